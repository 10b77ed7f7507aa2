package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/teyvattales/config"
	"github.com/cppla/teyvattales/controllers"
	"github.com/cppla/teyvattales/middleware"
	"github.com/cppla/teyvattales/services"
	"github.com/cppla/teyvattales/storage"
	"github.com/cppla/teyvattales/templates"
	"github.com/cppla/teyvattales/utils"
)

// Deps are the process-wide resources the router hands to its controllers.
type Deps struct {
	DB       *gorm.DB
	Sessions *utils.SessionStore
	Files    storage.FileStore
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(cfg config.AppConfig, deps Deps) (*gin.Engine, error) {
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	accessLog := utils.Logger
	if cfg.GinPath != "" {
		gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg)
		if err != nil {
			return nil, err
		}
		accessLog = gl
	}
	r.Use(utils.Ginzap(accessLog))
	r.Use(utils.RecoveryWithZap(accessLog))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		// Credentials cannot be combined with a wildcard origin
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))
	r.Use(middleware.Metrics())

	tmpl, err := templates.Load()
	if err != nil {
		return nil, err
	}
	r.SetHTMLTemplate(tmpl)

	r.Static("/assets", "./static/assets")
	if local, ok := deps.Files.(*storage.LocalStore); ok {
		r.Static(local.URLPrefix(), local.Dir())
	}

	pageController := controllers.NewPageController(cfg.ForumName)
	r.GET("/health", pageController.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	sessions := middleware.NewSessionManager(deps.Sessions, cfg.SessionCookieName, cfg.SessionCookieSecure)
	r.Use(sessions.Load())

	log := utils.Logger
	activity := services.NewActivityService(deps.DB, log.Named("activity"))
	accounts := services.NewAccountService(deps.DB, deps.Files, log.Named("accounts"))
	posts := services.NewPostService(deps.DB, activity, deps.Files, log.Named("posts"))
	comments := services.NewCommentService(deps.DB, activity, log.Named("comments"))

	accountController := controllers.NewAccountController(cfg.ForumName, accounts, activity, sessions)
	postController := controllers.NewPostController(cfg.ForumName, posts, comments)
	commentController := controllers.NewCommentController(comments)

	authPage := middleware.AuthRequired()
	authJSON := middleware.AuthRequiredJSON()
	authLimit := middleware.RateLimitMiddleware(cfg.RateLimitPerMinute)

	r.GET("/", pageController.Index)
	r.GET("/about", pageController.About)
	r.GET("/contact", pageController.Contact)
	r.GET("/characters", pageController.Characters)

	r.GET("/login", accountController.LoginForm)
	r.POST("/login", authLimit, accountController.Login)
	r.GET("/logout", accountController.Logout)
	r.GET("/register", accountController.RegisterForm)
	r.POST("/register", authLimit, accountController.Register)
	r.GET("/myAccount", authPage, accountController.MyAccount)
	r.POST("/delete-account", authPage, accountController.DeleteAccount)
	r.POST("/update-profile-image", authPage, accountController.UpdateProfileImage)

	r.GET("/createPost", authPage, postController.CreateForm)
	r.POST("/createPost", authPage, postController.CreatePost)
	r.GET("/posts", postController.ListPosts)
	r.GET("/posts/tag/:tag", postController.ListByTag)
	r.GET("/search-posts", postController.Search)
	r.GET("/view-post/:postId", postController.ViewPost)
	r.GET("/edit-post/:postId", authPage, postController.EditForm)
	r.POST("/update-post/:postId", authPage, postController.UpdatePost)
	r.GET("/delete-post/:postId", authPage, postController.DeletePost)
	r.POST("/delete-post/:postId", authPage, postController.DeletePost)

	r.POST("/add-comment", authPage, commentController.AddComment)
	r.GET("/post-comments/:id", commentController.ListComments)
	r.DELETE("/delete-comment/:commentId", authJSON, commentController.DeleteComment)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/uploads/") || strings.HasPrefix(ctx.Request.URL.Path, "/assets/") {
			utils.Error(ctx, http.StatusNotFound, "file not found")
			return
		}
		pageController.NotFound(ctx)
	})

	utils.Logger.Debug("router ready", zap.String("forum", cfg.ForumName))
	return r, nil
}
