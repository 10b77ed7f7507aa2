package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// PageController serves the informational pages.
type PageController struct {
	view
}

// NewPageController creates a new PageController instance.
func NewPageController(forumName string) *PageController {
	return &PageController{view: view{forumName: forumName}}
}

func (p *PageController) Index(ctx *gin.Context) {
	p.render(ctx, http.StatusOK, "index.html", nil)
}

func (p *PageController) About(ctx *gin.Context) {
	p.render(ctx, http.StatusOK, "about.html", nil)
}

func (p *PageController) Contact(ctx *gin.Context) {
	p.render(ctx, http.StatusOK, "contact.html", nil)
}

func (p *PageController) Characters(ctx *gin.Context) {
	p.render(ctx, http.StatusOK, "characters.html", nil)
}

// NotFound renders the error page for unknown routes.
func (p *PageController) NotFound(ctx *gin.Context) {
	p.render(ctx, http.StatusNotFound, "error.html", gin.H{"status": http.StatusNotFound, "message": "Page not found"})
}

// Health reports liveness.
func (p *PageController) Health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}
