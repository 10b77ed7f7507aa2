package models

import (
	"time"

	"gorm.io/gorm"
)

// DefaultProfileImage is shown for users that never uploaded a picture.
const DefaultProfileImage = "/assets/primogem.png"

// User represents a forum account. Passwords are stored as bcrypt hashes only.
// Username is stored lower-cased so the unique index is case-insensitive.
type User struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	Username       string     `gorm:"column:username;size:64;not null;uniqueIndex:uni_userdetails_username" json:"username"`
	First          string     `gorm:"column:first;size:64" json:"first"`
	Last           string     `gorm:"column:last;size:64" json:"last"`
	Email          string     `gorm:"column:email;size:255;not null;uniqueIndex:uni_userdetails_email" json:"email"`
	HashedPassword string     `gorm:"column:hashedPassword;size:255;not null" json:"-"`
	JoinDate       time.Time  `gorm:"column:joindate;not null" json:"joindate"`
	LastLogin      *time.Time `gorm:"column:lastlogin" json:"lastlogin"`
	ProfileImage   *string    `gorm:"column:profileImage;size:512" json:"profileImage"`
	Role           string     `gorm:"column:role;size:32;not null;default:user" json:"role"`
}

// TableName keeps the legacy table name.
func (User) TableName() string { return "userDetails" }

// BeforeCreate hook ensures join date and role are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.JoinDate.IsZero() {
		u.JoinDate = time.Now()
	}
	if u.Role == "" {
		u.Role = "user"
	}
	return nil
}

// AvatarURL returns the stored profile image or the placeholder.
func (u *User) AvatarURL() string {
	if u.ProfileImage == nil || *u.ProfileImage == "" {
		return DefaultProfileImage
	}
	return *u.ProfileImage
}
