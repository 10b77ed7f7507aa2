package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/teyvattales/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey stores the username inside Gin context.
	ContextUsernameKey = "username"
	// ContextRoleKey stores the role inside Gin context.
	ContextRoleKey = "role"

	contextTokenKey = "session_token"
)

// SessionManager binds the Redis session store to a cookie.
type SessionManager struct {
	store      *utils.SessionStore
	cookieName string
	secure     bool
}

// NewSessionManager creates a SessionManager issuing cookieName.
func NewSessionManager(store *utils.SessionStore, cookieName string, secure bool) *SessionManager {
	if cookieName == "" {
		cookieName = "teyvat_sid"
	}
	return &SessionManager{store: store, cookieName: cookieName, secure: secure}
}

// Load resolves the session cookie, if any, into the Gin context and slides
// its expiry by re-issuing the cookie.
func (m *SessionManager) Load() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token, err := ctx.Cookie(m.cookieName)
		if err != nil || token == "" {
			ctx.Next()
			return
		}

		sess, err := m.store.Load(ctx.Request.Context(), token)
		switch {
		case errors.Is(err, utils.ErrNoSession):
			m.clearCookie(ctx)
		case err != nil:
			utils.Logger.Warn("session load failed", zap.Error(err))
		default:
			ctx.Set(ContextUserIDKey, sess.UserID)
			ctx.Set(ContextUsernameKey, sess.Username)
			ctx.Set(ContextRoleKey, sess.Role)
			ctx.Set(contextTokenKey, token)
			m.setCookie(ctx, token)
		}
		ctx.Next()
	}
}

// Start creates a session for sess and hands its cookie to the client.
// A session the client already holds is destroyed first.
func (m *SessionManager) Start(ctx *gin.Context, sess utils.Session) error {
	if prev := m.currentToken(ctx); prev != "" {
		if err := m.store.Destroy(ctx.Request.Context(), prev); err != nil {
			utils.Logger.Warn("previous session destroy failed", zap.Error(err))
		}
	}
	token, err := m.store.Create(ctx.Request.Context(), sess)
	if err != nil {
		return err
	}
	m.setCookie(ctx, token)
	return nil
}

// End destroys the current session, if any, and clears the cookie.
func (m *SessionManager) End(ctx *gin.Context) error {
	defer m.clearCookie(ctx)
	token := m.currentToken(ctx)
	if token == "" {
		return nil
	}
	return m.store.Destroy(ctx.Request.Context(), token)
}

func (m *SessionManager) currentToken(ctx *gin.Context) string {
	if token := ctx.GetString(contextTokenKey); token != "" {
		return token
	}
	token, _ := ctx.Cookie(m.cookieName)
	return token
}

func (m *SessionManager) setCookie(ctx *gin.Context, token string) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(m.cookieName, token, int(m.store.Idle().Seconds()), "/", "", m.secure, true)
}

func (m *SessionManager) clearCookie(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(m.cookieName, "", -1, "/", "", m.secure, true)
}

// CurrentUser returns the identity loaded by SessionManager.Load.
func CurrentUser(ctx *gin.Context) (utils.Session, bool) {
	id, ok := ctx.Get(ContextUserIDKey)
	if !ok {
		return utils.Session{}, false
	}
	uid, ok := id.(uint)
	if !ok || uid == 0 {
		return utils.Session{}, false
	}
	return utils.Session{
		UserID:   uid,
		Username: ctx.GetString(ContextUsernameKey),
		Role:     ctx.GetString(ContextRoleKey),
	}, true
}

// AuthRequired redirects anonymous page requests to the login form.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if _, ok := CurrentUser(ctx); !ok {
			ctx.Redirect(http.StatusFound, "/login")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

// AuthRequiredJSON answers anonymous API requests with 401.
func AuthRequiredJSON() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if _, ok := CurrentUser(ctx); !ok {
			utils.Error(ctx, http.StatusUnauthorized, "You must be logged in")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}
