package models

import "time"

// Post represents a forum post. Deleted posts keep their row and are hidden
// from every listing; UserID never changes after creation.
type Post struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Title     string     `gorm:"column:title;size:255;not null" json:"title"`
	Content   string     `gorm:"column:content;type:text;not null" json:"content"`
	Thumbnail string     `gorm:"column:thumbnail;size:1024" json:"thumbnail"`
	Username  string     `gorm:"column:username;size:64;not null" json:"username"`
	UserID    uint       `gorm:"column:user_id;index;not null" json:"user_id"`
	Tag       string     `gorm:"column:tag;size:64;index;not null" json:"tag"`
	CreatedAt time.Time  `gorm:"column:created_at;index" json:"created_at"`
	UpdatedAt *time.Time `gorm:"column:updated_at;autoUpdateTime:false" json:"updated_at"`
	Edited    bool       `gorm:"column:edited;not null;default:false" json:"edited"`
	IsDeleted bool       `gorm:"column:isDeleted;index;not null;default:false" json:"-"`
}

func (Post) TableName() string { return "posts" }
