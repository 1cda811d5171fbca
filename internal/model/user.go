package model

import "time"

type User struct {
	ID        uint64 `gorm:"primaryKey"`
	Username  string `gorm:"uniqueIndex;size:150;not null"`
	Password  string `gorm:"size:255;not null"`
	Email     string `gorm:"size:254;not null;default:''"`
	FirstName string `gorm:"size:150;not null;default:''"`
	LastName  string `gorm:"size:150;not null;default:''"`
	IsStaff   bool   `gorm:"not null;default:false"`
	IsActive  bool   `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// String 展示名（序列化 creator 时使用）
func (u User) String() string {
	return u.Username
}
