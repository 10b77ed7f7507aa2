package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/teyvattales/services"
)

// PostController manages the post pages.
type PostController struct {
	view
	posts    *services.PostService
	comments *services.CommentService
}

// NewPostController creates a new PostController instance.
func NewPostController(forumName string, posts *services.PostService, comments *services.CommentService) *PostController {
	return &PostController{view: view{forumName: forumName}, posts: posts, comments: comments}
}

func (p *PostController) CreateForm(ctx *gin.Context) {
	p.render(ctx, http.StatusOK, "createPost.html", nil)
}

// CreatePost publishes a post from the multipart create form.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var req struct {
		Title       string `form:"title"`
		Tag         string `form:"tag"`
		Description string `form:"description"`
	}
	if err := ctx.ShouldBind(&req); err != nil {
		badRequest(ctx, msgInvalidForm)
		return
	}
	thumbnail, _ := ctx.FormFile("thumbnail")

	user, _ := currentUser(ctx)
	_, err := p.posts.Create(ctx.Request.Context(), services.CreatePostInput{
		UserID:    user.UserID,
		Username:  user.Username,
		Title:     req.Title,
		Tag:       req.Tag,
		Content:   req.Description,
		Thumbnail: thumbnail,
	})
	if err != nil {
		data := gin.H{"title": req.Title, "tag": req.Tag, "description": req.Description}
		if services.IsKind(err, services.KindValidation) {
			data["errors"] = messagesOf(err)
			p.render(ctx, http.StatusOK, "createPost.html", data)
			return
		}
		logError(ctx, err)
		data["errors"] = []string{"Failed to create post due to database error."}
		p.render(ctx, http.StatusInternalServerError, "createPost.html", data)
		return
	}
	ctx.Redirect(http.StatusFound, "/posts")
}

// ListPosts renders every live post.
func (p *PostController) ListPosts(ctx *gin.Context) {
	res, err := p.posts.List(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	p.renderList(ctx, res, gin.H{})
}

// ListByTag renders the live posts carrying the tag.
func (p *PostController) ListByTag(ctx *gin.Context) {
	tag := ctx.Param("tag")
	res, err := p.posts.ListByTag(ctx.Request.Context(), tag)
	if err != nil {
		respondError(ctx, err)
		return
	}
	p.renderList(ctx, res, gin.H{"tag": tag})
}

// Search renders the live posts matching ?term=.
func (p *PostController) Search(ctx *gin.Context) {
	term := strings.TrimSpace(ctx.Query("term"))
	res, err := p.posts.Search(ctx.Request.Context(), term)
	if err != nil {
		respondError(ctx, err)
		return
	}
	p.renderList(ctx, res, gin.H{"term": term})
}

func (p *PostController) renderList(ctx *gin.Context, res services.ListResult, data gin.H) {
	data["posts"] = res.Posts
	data["noPostsFound"] = res.NoPostsFound
	p.render(ctx, http.StatusOK, "posts.html", data)
}

// ViewPost renders a post with its comments, newest first unless ?order=ASC.
func (p *PostController) ViewPost(ctx *gin.Context) {
	postID, ok := parseID(ctx, "postId")
	if !ok {
		badRequest(ctx, `Missing required field "postId"`)
		return
	}
	post, err := p.posts.Get(ctx.Request.Context(), postID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	order := services.ParseOrder(ctx.Query("order"), services.OrderDesc)
	comments, err := p.comments.ListForPost(ctx.Request.Context(), postID, order)
	if err != nil {
		respondError(ctx, err)
		return
	}

	user, loggedIn := currentUser(ctx)
	p.render(ctx, http.StatusOK, "postDetails.html", gin.H{
		"post":     post,
		"comments": comments,
		"order":    string(order),
		"postId":   postID,
		"tag":      post.Tag,
		"isOwner":  loggedIn && user.UserID == post.UserID,
	})
}

// EditForm renders the edit form for the post's owner.
func (p *PostController) EditForm(ctx *gin.Context) {
	postID, ok := parseID(ctx, "postId")
	if !ok {
		badRequest(ctx, `Missing required field "postId"`)
		return
	}
	post, err := p.posts.GetForEdit(ctx.Request.Context(), currentUserID(ctx), postID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	comments, err := p.comments.ListForPost(ctx.Request.Context(), postID, services.OrderAsc)
	if err != nil {
		respondError(ctx, err)
		return
	}
	p.render(ctx, http.StatusOK, "editPost.html", gin.H{
		"post":     post,
		"postId":   postID,
		"comments": comments,
	})
}

// UpdatePost applies the non-empty fields of the edit form.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	postID, ok := parseID(ctx, "postId")
	if !ok {
		badRequest(ctx, `Missing required field "postId"`)
		return
	}
	var req struct {
		Title   string `form:"title"`
		Tag     string `form:"tag"`
		Content string `form:"content"`
	}
	if err := ctx.ShouldBind(&req); err != nil {
		badRequest(ctx, msgInvalidForm)
		return
	}
	thumbnail, _ := ctx.FormFile("thumbnail")

	_, err := p.posts.Update(ctx.Request.Context(), services.UpdatePostInput{
		UserID:    currentUserID(ctx),
		PostID:    postID,
		Title:     req.Title,
		Tag:       req.Tag,
		Content:   req.Content,
		Thumbnail: thumbnail,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.Redirect(http.StatusFound, "/view-post/"+strconv.FormatUint(uint64(postID), 10))
}

// DeletePost soft-deletes the post and returns home.
func (p *PostController) DeletePost(ctx *gin.Context) {
	postID, ok := parseID(ctx, "postId")
	if !ok {
		badRequest(ctx, `Missing required field "postId"`)
		return
	}
	if err := p.posts.Delete(ctx.Request.Context(), currentUserID(ctx), postID); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.Redirect(http.StatusFound, "/")
}
