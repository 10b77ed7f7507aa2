package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/teyvattales/models"
	"github.com/cppla/teyvattales/storage"
	"github.com/cppla/teyvattales/utils"
)

const (
	msgInvalidEmail      = "Please enter a valid email address"
	msgEmailInUse        = "Email is already in use"
	msgUsernameTaken     = "Username is already taken"
	msgIdentityInUse     = "The provided email and/or username is already in use"
	msgUsernameRequired  = "Username is required"
	msgUsernameInvalid   = "Username cannot contain < or >"
	msgPasswordRequired  = "Password is required"
	msgUserNotFound      = "User not found. Please try again."
	msgBadCredentials    = "Incorrect username or password"
	msgNoImageSelected   = "Please select an image to upload"
	msgAccountNotPresent = "User not found"
)

// RegisterInput is the registration form.
type RegisterInput struct {
	First    string
	Last     string
	Email    string
	Username string
	Password string
}

// AccountService owns registration, login and the lifecycle of a user row.
type AccountService struct {
	db       *gorm.DB
	files    storage.FileStore
	validate *validator.Validate
	log      *zap.Logger
}

func NewAccountService(db *gorm.DB, files storage.FileStore, log *zap.Logger) *AccountService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AccountService{db: db, files: files, validate: validator.New(), log: log}
}

// Register creates an account and returns it with the welcome message.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*models.User, string, error) {
	username := strings.ToLower(strings.TrimSpace(in.Username))
	email := strings.TrimSpace(in.Email)

	var msgs []string
	if s.validate.Var(email, "required,email") != nil {
		msgs = append(msgs, msgInvalidEmail)
	}
	switch {
	case username == "":
		msgs = append(msgs, msgUsernameRequired)
	case s.validate.Var(username, "excludesall=<>") != nil:
		msgs = append(msgs, msgUsernameInvalid)
	}
	if in.Password == "" {
		msgs = append(msgs, msgPasswordRequired)
	}
	if len(msgs) > 0 {
		return nil, "", NewValidationError(msgs...)
	}

	var existing []models.User
	err := s.db.WithContext(ctx).
		Select("id, email, username").
		Where("email = ? OR LOWER(username) = ?", email, username).
		Find(&existing).Error
	if err != nil {
		return nil, "", NewDatabaseError(err)
	}
	if len(existing) > 0 {
		var emailExists, usernameExists bool
		for _, u := range existing {
			emailExists = emailExists || u.Email == email
			usernameExists = usernameExists || strings.ToLower(u.Username) == username
		}
		switch {
		case emailExists && usernameExists:
			return nil, "", NewConflictError(msgIdentityInUse)
		case emailExists:
			return nil, "", NewConflictError(msgEmailInUse)
		default:
			return nil, "", NewConflictError(msgUsernameTaken)
		}
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, "", NewInternalError(fmt.Errorf("hash password: %w", err))
	}

	user := models.User{
		Username:       username,
		First:          strings.TrimSpace(in.First),
		Last:           strings.TrimSpace(in.Last),
		Email:          email,
		HashedPassword: hash,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		// A concurrent registration won the race past the pre-check
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, "", NewConflictError(msgIdentityInUse)
		}
		return nil, "", NewDatabaseError(err)
	}

	s.log.Info("user registered", zap.Uint("user_id", user.ID), zap.String("username", user.Username))
	return &user, fmt.Sprintf("Welcome %s! You can now log in as you have successfully registered.", user.Username), nil
}

// Login verifies credentials and stamps the last login time.
func (s *AccountService) Login(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return nil, NewValidationError(msgUsernameRequired)
	}
	if password == "" {
		return nil, NewValidationError(msgPasswordRequired)
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NewNotFoundError(msgUserNotFound)
	}
	if err != nil {
		return nil, NewDatabaseError(err)
	}
	if !utils.CheckPassword(user.HashedPassword, password) {
		return nil, NewAuthError(msgBadCredentials)
	}

	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&user).Update("lastlogin", now).Error; err != nil {
		return nil, NewDatabaseError(err)
	}
	user.LastLogin = &now
	return &user, nil
}

// Profile loads the account row for userID.
func (s *AccountService) Profile(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NewNotFoundError(msgAccountNotPresent)
	}
	if err != nil {
		return nil, NewDatabaseError(err)
	}
	return &user, nil
}

// DeleteAccount soft-deletes every post of the user, then removes the user row.
func (s *AccountService) DeleteAccount(ctx context.Context, userID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Post{}).
			Where("user_id = ?", userID).
			Update("isDeleted", true).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.User{}, userID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NewNotFoundError(msgAccountNotPresent)
	}
	if err != nil {
		return NewDatabaseError(err)
	}
	s.log.Info("account deleted", zap.Uint("user_id", userID))
	return nil
}

// UpdateProfileImage stores fh and records its URL on the user row.
func (s *AccountService) UpdateProfileImage(ctx context.Context, userID uint, fh *multipart.FileHeader) (string, error) {
	if fh == nil || fh.Size == 0 {
		return "", NewValidationError(msgNoImageSelected)
	}
	url, err := saveUpload(ctx, s.files, "profileImage", fh)
	if err != nil {
		return "", err
	}
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("profileImage", url)
	if res.Error != nil {
		return "", NewDatabaseError(res.Error)
	}
	if res.RowsAffected == 0 {
		return "", NewNotFoundError(msgAccountNotPresent)
	}
	return url, nil
}
