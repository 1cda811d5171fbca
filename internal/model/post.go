package model

type Post struct {
	ID        uint64 `gorm:"primaryKey"`
	Body      string `gorm:"size:200;not null"`
	Image     string `gorm:"size:255;not null;default:''"` // 为空表示无图
	CreatorID uint64 `gorm:"not null;index"`
	Creator   User   `gorm:"constraint:OnDelete:CASCADE"`
}
