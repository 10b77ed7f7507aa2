package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/teyvattales/middleware"
	"github.com/cppla/teyvattales/services"
	"github.com/cppla/teyvattales/utils"
)

// AccountController handles registration, login and the account page.
type AccountController struct {
	view
	accounts *services.AccountService
	activity *services.ActivityService
	sessions *middleware.SessionManager
}

// NewAccountController creates a new AccountController instance.
func NewAccountController(forumName string, accounts *services.AccountService, activity *services.ActivityService, sessions *middleware.SessionManager) *AccountController {
	return &AccountController{
		view:     view{forumName: forumName},
		accounts: accounts,
		activity: activity,
		sessions: sessions,
	}
}

func (a *AccountController) LoginForm(ctx *gin.Context) {
	a.render(ctx, http.StatusOK, "login.html", gin.H{"errorMessage": ""})
}

// Login verifies credentials and starts a session.
func (a *AccountController) Login(ctx *gin.Context) {
	var req struct {
		Username string `form:"username"`
		Password string `form:"password"`
	}
	if err := ctx.ShouldBind(&req); err != nil {
		badRequest(ctx, msgInvalidForm)
		return
	}

	user, err := a.accounts.Login(ctx.Request.Context(), req.Username, req.Password)
	if err != nil {
		if isFormError(err) {
			a.render(ctx, http.StatusOK, "login.html", gin.H{"errorMessage": messageOf(err)})
			return
		}
		respondError(ctx, err)
		return
	}

	if err := a.sessions.Start(ctx, utils.Session{UserID: user.ID, Username: user.Username, Role: user.Role}); err != nil {
		respondError(ctx, services.NewInternalError(err))
		return
	}
	ctx.Redirect(http.StatusFound, "/")
}

// Logout destroys the session unconditionally.
func (a *AccountController) Logout(ctx *gin.Context) {
	if err := a.sessions.End(ctx); err != nil {
		utils.Logger.Warn("session destroy failed", zap.Error(err))
	}
	ctx.Redirect(http.StatusFound, "/")
}

func (a *AccountController) RegisterForm(ctx *gin.Context) {
	a.render(ctx, http.StatusOK, "register.html", gin.H{"errorMessage": "", "successMessage": ""})
}

// Register creates an account and shows the welcome message.
func (a *AccountController) Register(ctx *gin.Context) {
	var req struct {
		First    string `form:"first"`
		Last     string `form:"last"`
		Email    string `form:"email"`
		Username string `form:"username"`
		Password string `form:"password"`
	}
	if err := ctx.ShouldBind(&req); err != nil {
		badRequest(ctx, msgInvalidForm)
		return
	}

	_, welcome, err := a.accounts.Register(ctx.Request.Context(), services.RegisterInput{
		First:    req.First,
		Last:     req.Last,
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		if isFormError(err) {
			a.render(ctx, http.StatusOK, "register.html", gin.H{
				"errorMessage":   messageOf(err),
				"errors":         messagesOf(err)[1:],
				"successMessage": "",
			})
			return
		}
		respondError(ctx, err)
		return
	}
	a.render(ctx, http.StatusOK, "register.html", gin.H{"errorMessage": "", "successMessage": welcome})
}

// MyAccount shows the user's details and recent activity.
func (a *AccountController) MyAccount(ctx *gin.Context) {
	userID := currentUserID(ctx)
	user, err := a.accounts.Profile(ctx.Request.Context(), userID)
	if services.IsKind(err, services.KindNotFound) {
		// The account is gone; the session is stale
		_ = a.sessions.End(ctx)
		ctx.Redirect(http.StatusFound, "/login")
		return
	}
	if err != nil {
		respondError(ctx, err)
		return
	}

	activity, err := a.activity.Recent(ctx.Request.Context(), userID, services.RecentActivityLimit)
	if err != nil {
		respondError(ctx, err)
		return
	}
	a.render(ctx, http.StatusOK, "myAccount.html", gin.H{
		"userDetails":  user,
		"userActivity": activity,
	})
}

// DeleteAccount removes the account and ends the session.
func (a *AccountController) DeleteAccount(ctx *gin.Context) {
	if err := a.accounts.DeleteAccount(ctx.Request.Context(), currentUserID(ctx)); err != nil {
		respondError(ctx, err)
		return
	}
	if err := a.sessions.End(ctx); err != nil {
		utils.Logger.Warn("session destroy failed", zap.Error(err))
	}
	ctx.Redirect(http.StatusFound, "/")
}

// UpdateProfileImage stores the uploaded profileImage file.
func (a *AccountController) UpdateProfileImage(ctx *gin.Context) {
	fh, _ := ctx.FormFile("profileImage")
	if _, err := a.accounts.UpdateProfileImage(ctx.Request.Context(), currentUserID(ctx), fh); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.Redirect(http.StatusFound, "/myAccount")
}
