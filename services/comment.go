package services

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/teyvattales/models"
	"github.com/cppla/teyvattales/utils"
)

const (
	msgCommentFields    = "Add required fields"
	msgCommentNotYours  = "No comment found or you do not have permission to delete this comment"
	msgCommentIDMissing = "Missing required parameter: commentId"
	msgCommentPostGone  = "Post not found"
)

// Order is a comment sort direction.
type Order string

const (
	OrderAsc  Order = "ASC"
	OrderDesc Order = "DESC"
)

// ParseOrder reads an order query value. Anything other than asc/desc yields def.
func ParseOrder(raw string, def Order) Order {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(OrderAsc):
		return OrderAsc
	case string(OrderDesc):
		return OrderDesc
	default:
		return def
	}
}

// CommentService manages comments on posts.
type CommentService struct {
	db       *gorm.DB
	activity *ActivityService
	log      *zap.Logger
}

func NewCommentService(db *gorm.DB, activity *ActivityService, log *zap.Logger) *CommentService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CommentService{db: db, activity: activity, log: log}
}

// Add inserts a comment on a live post and records the activity event.
func (s *CommentService) Add(ctx context.Context, userID, postID uint, body string) (*models.Comment, error) {
	body = strings.TrimSpace(utils.Sanitize(body))
	if postID == 0 || body == "" {
		return nil, NewValidationError(msgCommentFields)
	}

	var live int64
	err := s.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ? AND isDeleted = ?", postID, false).
		Count(&live).Error
	if err != nil {
		return nil, NewDatabaseError(err)
	}
	if live == 0 {
		return nil, NewNotFoundError(msgCommentPostGone)
	}

	comment := models.Comment{UserID: userID, PostID: postID, Comment: body}
	if err := s.db.WithContext(ctx).Create(&comment).Error; err != nil {
		return nil, NewDatabaseError(err)
	}

	s.activity.Record(ctx, userID, models.ActionComment, comment.ID, true)
	return &comment, nil
}

// ListForPost returns the live comments of a post with their authors, ordered by creation time.
func (s *CommentService) ListForPost(ctx context.Context, postID uint, order Order) ([]models.CommentView, error) {
	desc := order == OrderDesc
	comments := []models.CommentView{}
	err := s.db.WithContext(ctx).Table("user_comments").
		Select("user_comments.id, user_comments.user_id, user_comments.post_id, user_comments.comment, "+
			"user_comments.created_at, user_comments.updated_at, userDetails.username, userDetails.profileImage").
		Joins("JOIN userDetails ON userDetails.id = user_comments.user_id").
		Where("user_comments.post_id = ? AND user_comments.isDeleted = ?", postID, false).
		Order(clause.OrderByColumn{Column: clause.Column{Table: "user_comments", Name: "created_at"}, Desc: desc}).
		Order(clause.OrderByColumn{Column: clause.Column{Table: "user_comments", Name: "id"}, Desc: desc}).
		Scan(&comments).Error
	if err != nil {
		return nil, NewDatabaseError(err)
	}
	return comments, nil
}

// Delete soft-deletes a comment authored by userID. Missing and foreign comments
// are reported identically.
func (s *CommentService) Delete(ctx context.Context, userID, commentID uint) error {
	if commentID == 0 {
		return NewValidationError(msgCommentIDMissing)
	}
	res := s.db.WithContext(ctx).Model(&models.Comment{}).
		Where("id = ? AND user_id = ? AND isDeleted = ?", commentID, userID, false).
		Update("isDeleted", true)
	if res.Error != nil {
		return NewDatabaseError(res.Error)
	}
	if res.RowsAffected == 0 {
		return NewNotFoundOrForbiddenError(msgCommentNotYours)
	}
	return nil
}
