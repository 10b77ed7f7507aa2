package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/teyvattales/services"
	"github.com/cppla/teyvattales/utils"
)

// CommentController manages comments on posts.
type CommentController struct {
	comments *services.CommentService
}

// NewCommentController creates a new CommentController instance.
func NewCommentController(comments *services.CommentService) *CommentController {
	return &CommentController{comments: comments}
}

// AddComment posts a comment and returns to the post.
func (c *CommentController) AddComment(ctx *gin.Context) {
	var req struct {
		PostID  string `form:"postId"`
		Comment string `form:"comment"`
	}
	if err := ctx.ShouldBind(&req); err != nil {
		badRequest(ctx, msgInvalidForm)
		return
	}
	postID, _ := strconv.ParseUint(strings.TrimSpace(req.PostID), 10, 64)

	comment, err := c.comments.Add(ctx.Request.Context(), currentUserID(ctx), uint(postID), req.Comment)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.Redirect(http.StatusFound, "/view-post/"+strconv.FormatUint(uint64(comment.PostID), 10))
}

// ListComments answers the live comments of a post as JSON, oldest first unless ?order=DESC.
func (c *CommentController) ListComments(ctx *gin.Context) {
	postID, ok := parseID(ctx, "id")
	if !ok {
		badRequest(ctx, `Missing required field "postId"`)
		return
	}
	order := services.ParseOrder(ctx.Query("order"), services.OrderAsc)
	comments, err := c.comments.ListForPost(ctx.Request.Context(), postID, order)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"comments": comments})
}

// DeleteComment soft-deletes a comment authored by the caller.
func (c *CommentController) DeleteComment(ctx *gin.Context) {
	commentID, ok := parseID(ctx, "commentId")
	if !ok {
		badRequest(ctx, "Missing required parameter: commentId")
		return
	}
	if err := c.comments.Delete(ctx.Request.Context(), currentUserID(ctx), commentID); err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"success": true, "message": "Comment deleted successfully"})
}
