package model

import "time"

type Video struct {
	ID        uint64    `gorm:"primaryKey"`
	File      string    `gorm:"size:255;not null"` // 对象存储 key
	Title     string    `gorm:"size:40;not null"`
	Desc      string    `gorm:"size:100;not null"`
	CreatorID uint64    `gorm:"not null;index"`
	Creator   User      `gorm:"constraint:OnDelete:CASCADE"`
	Comments  []Comment `gorm:"foreignKey:VideoID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time // 创建时写入，每次更新刷新
}
