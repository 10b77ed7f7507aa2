package models

import "time"

// ActionKind tags an ActivityEvent and decides what its ReferenceID points to.
type ActionKind string

const (
	ActionCreatePost ActionKind = "Create post"
	ActionUpdatePost ActionKind = "Update post"
	ActionDeletePost ActionKind = "Delete post"
	// ActionComment references a Comment, not a Post.
	ActionComment ActionKind = "Comment on post"
)

// UnknownTitle is displayed for events whose kind has no resolver.
const UnknownTitle = "N/A"

// ActivityEvent is an append-only audit record of a user action.
type ActivityEvent struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"column:user_id;index:idx_activity_user_ts;not null" json:"user_id"`
	ActionType  ActionKind `gorm:"column:action_type;size:32;not null" json:"action_type"`
	ReferenceID uint       `gorm:"column:reference_id;not null" json:"reference_id"`
	IsPublic    bool       `gorm:"column:isPublic;not null;default:false" json:"isPublic"`
	Timestamp   time.Time  `gorm:"column:timestamp;index:idx_activity_user_ts;not null" json:"timestamp"`
}

func (ActivityEvent) TableName() string { return "recent_activity" }

// ActivityView is an ActivityEvent with its display title resolved.
type ActivityView struct {
	Kind        ActionKind `json:"action_type"`
	ReferenceID uint       `json:"reference_id"`
	IsPublic    bool       `json:"isPublic"`
	Timestamp   time.Time  `json:"timestamp"`
	PostTitle   string     `json:"post_title"`
}
