package model

type Comment struct {
	ID        uint64 `gorm:"primaryKey"`
	Content   string `gorm:"size:100;not null"`
	CreatorID uint64 `gorm:"not null;index"`
	Creator   User   `gorm:"constraint:OnDelete:CASCADE"`
	VideoID   uint64 `gorm:"not null;index"`
}
