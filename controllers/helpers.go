package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/teyvattales/middleware"
	"github.com/cppla/teyvattales/services"
	"github.com/cppla/teyvattales/utils"
)

// view carries what every rendered page needs.
type view struct {
	forumName string
}

// render adds the session-derived fields every template expects and renders name.
func (v view) render(ctx *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	user, loggedIn := middleware.CurrentUser(ctx)
	data["forumName"] = v.forumName
	data["userLoggedIn"] = loggedIn
	data["username"] = user.Username
	data["role"] = user.Role
	data["userId"] = user.UserID
	ctx.HTML(status, name, data)
}

// statusFor maps a service error kind to its HTTP status.
func statusFor(kind services.ErrorKind) int {
	switch kind {
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindAuth:
		return http.StatusUnauthorized
	case services.KindForbidden:
		return http.StatusForbidden
	case services.KindNotFound, services.KindNotFoundOrForbidden:
		return http.StatusNotFound
	case services.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError answers err as JSON. Server-side failures are logged and their
// details withheld from the client.
func respondError(ctx *gin.Context, err error) {
	status := statusFor(services.KindOf(err))
	if status >= http.StatusInternalServerError {
		logError(ctx, err)
		utils.Error(ctx, status, "Internal Server Error")
		return
	}
	utils.Error(ctx, status, messageOf(err))
}

func logError(ctx *gin.Context, err error) {
	utils.Logger.Error("request failed",
		zap.String("path", ctx.FullPath()),
		zap.Uint("user_id", currentUserID(ctx)),
		zap.Error(err),
	)
}

const msgInvalidForm = "Invalid form data"

func badRequest(ctx *gin.Context, message string) {
	utils.Error(ctx, http.StatusBadRequest, message)
}

// messageOf returns the client-facing message of an AppError.
func messageOf(err error) string {
	var appErr *services.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "Internal Server Error"
}

// messagesOf returns every message of a validation error.
func messagesOf(err error) []string {
	var appErr *services.AppError
	if errors.As(err, &appErr) && len(appErr.Messages) > 0 {
		return appErr.Messages
	}
	return []string{messageOf(err)}
}

// isFormError reports whether err should be rendered back into its form.
func isFormError(err error) bool {
	switch services.KindOf(err) {
	case services.KindValidation, services.KindConflict, services.KindAuth, services.KindNotFound:
		return true
	}
	return false
}

// parseID reads a positive numeric path parameter.
func parseID(ctx *gin.Context, name string) (uint, bool) {
	n, err := strconv.ParseUint(strings.TrimSpace(ctx.Param(name)), 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

func currentUser(ctx *gin.Context) (utils.Session, bool) {
	return middleware.CurrentUser(ctx)
}

// currentUserID returns the session user id; routes that call it sit behind an auth gate.
func currentUserID(ctx *gin.Context) uint {
	user, _ := middleware.CurrentUser(ctx)
	return user.UserID
}
