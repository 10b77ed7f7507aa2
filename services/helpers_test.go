package services

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/teyvattales/config"
	"github.com/cppla/teyvattales/models"
	"github.com/cppla/teyvattales/storage"
)

type fixture struct {
	db       *gorm.DB
	files    *storage.LocalStore
	activity *ActivityService
	accounts *AccountService
	posts    *PostService
	comments *CommentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Every pooled connection to :memory: would get its own empty database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, config.Migrate(db))

	files := storage.NewLocalStore(t.TempDir(), "/uploads", 1<<20)
	activity := NewActivityService(db, nil)
	return &fixture{
		db:       db,
		files:    files,
		activity: activity,
		accounts: NewAccountService(db, files, nil),
		posts:    NewPostService(db, activity, files, nil),
		comments: NewCommentService(db, activity, nil),
	}
}

func (f *fixture) register(t *testing.T, username string) *models.User {
	t.Helper()
	u, _, err := f.accounts.Register(context.Background(), RegisterInput{
		First:    "First",
		Last:     "Last",
		Email:    username + "@x.com",
		Username: username,
		Password: "pw-" + username,
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) post(t *testing.T, u *models.User, title, tag, content string) *models.Post {
	t.Helper()
	p, err := f.posts.Create(context.Background(), CreatePostInput{
		UserID:   u.ID,
		Username: u.Username,
		Title:    title,
		Tag:      tag,
		Content:  content,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) events(t *testing.T, userID uint) []models.ActivityEvent {
	t.Helper()
	var evs []models.ActivityEvent
	require.NoError(t, f.db.Where("user_id = ?", userID).Order("id").Find(&evs).Error)
	return evs
}

func formFile(t *testing.T, field, filename string, body []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(body)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File[field][0]
}
