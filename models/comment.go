package models

import "time"

// Comment represents a reply to a post.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"column:user_id;index;not null" json:"user_id"`
	PostID    uint      `gorm:"column:post_id;index;not null" json:"post_id"`
	Comment   string    `gorm:"column:comment;type:text;not null" json:"comment"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
	IsDeleted bool      `gorm:"column:isDeleted;index;not null;default:false" json:"-"`
}

func (Comment) TableName() string { return "user_comments" }

// CommentView is a comment joined with its author's display data.
type CommentView struct {
	ID           uint      `json:"id"`
	UserID       uint      `json:"user_id"`
	PostID       uint      `json:"post_id"`
	Comment      string    `json:"comment"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Username     string    `json:"username"`
	ProfileImage *string   `gorm:"column:profileImage" json:"profileImage"`
}
