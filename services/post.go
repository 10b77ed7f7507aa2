package services

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/teyvattales/models"
	"github.com/cppla/teyvattales/storage"
	"github.com/cppla/teyvattales/utils"
)

const (
	msgTitleRequired       = "Title is required"
	msgTagRequired         = "Tag is required"
	msgDescriptionRequired = "Description is required"
	msgPostNotFound        = "Post not found"
	msgNotOwnerEdit        = "You are not authorized to edit this post"
	msgNotOwnerUpdate      = "You are not authorized to update this post"
	msgNotOwnerDelete      = "You are not authorized to delete this post"
)

// CreatePostInput is the create-post form. Thumbnail is optional.
type CreatePostInput struct {
	UserID    uint
	Username  string
	Title     string
	Tag       string
	Content   string
	Thumbnail *multipart.FileHeader
}

// UpdatePostInput carries a partial update; empty fields and a nil thumbnail are left unchanged.
type UpdatePostInput struct {
	UserID    uint
	PostID    uint
	Title     string
	Tag       string
	Content   string
	Thumbnail *multipart.FileHeader
}

// ListResult is a post listing. An empty listing is flagged rather than treated as an error.
type ListResult struct {
	Posts        []models.Post
	NoPostsFound bool
}

func newListResult(posts []models.Post) ListResult {
	return ListResult{Posts: posts, NoPostsFound: len(posts) == 0}
}

// PostService manages posts. Every mutation is owner-only and deletes are soft.
type PostService struct {
	db       *gorm.DB
	activity *ActivityService
	files    storage.FileStore
	log      *zap.Logger
}

func NewPostService(db *gorm.DB, activity *ActivityService, files storage.FileStore, log *zap.Logger) *PostService {
	if log == nil {
		log = zap.NewNop()
	}
	return &PostService{db: db, activity: activity, files: files, log: log}
}

func hasThumbnail(fh *multipart.FileHeader) bool {
	return fh != nil && fh.Size > 0 && fh.Filename != ""
}

// Create validates and inserts a post, then records the activity event.
func (s *PostService) Create(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	title := strings.TrimSpace(in.Title)
	tag := strings.TrimSpace(in.Tag)
	content := strings.TrimSpace(utils.Sanitize(in.Content))

	var msgs []string
	if title == "" {
		msgs = append(msgs, msgTitleRequired)
	}
	if tag == "" {
		msgs = append(msgs, msgTagRequired)
	}
	if content == "" {
		msgs = append(msgs, msgDescriptionRequired)
	}
	if len(msgs) > 0 {
		return nil, NewValidationError(msgs...)
	}

	var thumbnail string
	if hasThumbnail(in.Thumbnail) {
		url, err := saveUpload(ctx, s.files, "thumbnail", in.Thumbnail)
		if err != nil {
			return nil, err
		}
		thumbnail = url
	}

	post := models.Post{
		Title:     title,
		Content:   content,
		Thumbnail: thumbnail,
		Username:  in.Username,
		UserID:    in.UserID,
		Tag:       tag,
	}
	if err := s.db.WithContext(ctx).Create(&post).Error; err != nil {
		return nil, NewDatabaseError(err)
	}

	s.activity.Record(ctx, in.UserID, models.ActionCreatePost, post.ID, false)
	return &post, nil
}

// Get returns a live post.
func (s *PostService) Get(ctx context.Context, postID uint) (*models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ctx).Where("id = ? AND isDeleted = ?", postID, false).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NewNotFoundError(msgPostNotFound)
	}
	if err != nil {
		return nil, NewDatabaseError(err)
	}
	return &post, nil
}

// GetForEdit returns a live post only when userID owns it.
func (s *PostService) GetForEdit(ctx context.Context, userID, postID uint) (*models.Post, error) {
	return s.owned(ctx, userID, postID, msgNotOwnerEdit)
}

func (s *PostService) owned(ctx context.Context, userID, postID uint, denied string) (*models.Post, error) {
	post, err := s.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.UserID != userID {
		return nil, NewForbiddenError(denied)
	}
	return post, nil
}

// Update applies the present fields of in, marks the post edited and records the event.
func (s *PostService) Update(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.owned(ctx, in.UserID, in.PostID, msgNotOwnerUpdate)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	updates := map[string]interface{}{
		"edited":     true,
		"updated_at": now,
	}
	if title := strings.TrimSpace(in.Title); title != "" {
		updates["title"] = title
		post.Title = title
	}
	if tag := strings.TrimSpace(in.Tag); tag != "" {
		updates["tag"] = tag
		post.Tag = tag
	}
	if content := strings.TrimSpace(utils.Sanitize(in.Content)); content != "" {
		updates["content"] = content
		post.Content = content
	}
	if hasThumbnail(in.Thumbnail) {
		url, err := saveUpload(ctx, s.files, "thumbnail", in.Thumbnail)
		if err != nil {
			return nil, err
		}
		updates["thumbnail"] = url
		post.Thumbnail = url
	}

	err = s.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ? AND user_id = ?", post.ID, in.UserID).
		Updates(updates).Error
	if err != nil {
		return nil, NewDatabaseError(err)
	}
	post.Edited = true
	post.UpdatedAt = &now

	s.activity.Record(ctx, in.UserID, models.ActionUpdatePost, post.ID, false)
	return post, nil
}

// Delete soft-deletes a post owned by userID.
func (s *PostService) Delete(ctx context.Context, userID, postID uint) error {
	post, err := s.owned(ctx, userID, postID, msgNotOwnerDelete)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ? AND user_id = ?", post.ID, userID).
		Update("isDeleted", true).Error
	if err != nil {
		return NewDatabaseError(err)
	}

	s.activity.Record(ctx, userID, models.ActionDeletePost, post.ID, true)
	return nil
}

func (s *PostService) live(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("isDeleted = ?", false).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "created_at"}, Desc: true}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: true})
}

// List returns every live post, newest first.
func (s *PostService) List(ctx context.Context) (ListResult, error) {
	var posts []models.Post
	if err := s.live(ctx).Find(&posts).Error; err != nil {
		return ListResult{}, NewDatabaseError(err)
	}
	return newListResult(posts), nil
}

// ListByTag returns live posts whose tag equals tag exactly.
func (s *PostService) ListByTag(ctx context.Context, tag string) (ListResult, error) {
	var posts []models.Post
	if err := s.live(ctx).Where("tag = ?", strings.TrimSpace(tag)).Find(&posts).Error; err != nil {
		return ListResult{}, NewDatabaseError(err)
	}
	return newListResult(posts), nil
}

// Search matches term as a case-insensitive substring of title or content.
// Content is stored sanitized, so it is matched against the term sanitized the same way.
// An empty term matches nothing.
func (s *PostService) Search(ctx context.Context, term string) (ListResult, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return newListResult(nil), nil
	}
	titlePattern := likePattern(term)

	q := s.live(ctx)
	if body := strings.TrimSpace(utils.Sanitize(term)); body != "" {
		q = q.Where("(LOWER(title) LIKE ? ESCAPE '!' OR LOWER(content) LIKE ? ESCAPE '!')", titlePattern, likePattern(body))
	} else {
		q = q.Where("LOWER(title) LIKE ? ESCAPE '!'", titlePattern)
	}

	var posts []models.Post
	err := q.Find(&posts).Error
	if err != nil {
		return ListResult{}, NewDatabaseError(err)
	}
	return newListResult(posts), nil
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// escapeLike makes LIKE wildcards in s match literally under ESCAPE '!'.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// likePattern is a case-insensitive substring pattern for term.
func likePattern(term string) string {
	return "%" + escapeLike(strings.ToLower(term)) + "%"
}
