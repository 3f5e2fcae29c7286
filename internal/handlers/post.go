package handlers

import (
	"context"
	"net/http"

	"flashfeed/internal/apperr"
	"flashfeed/internal/middleware"
	"flashfeed/internal/models"
	"flashfeed/internal/services"
	"flashfeed/internal/utils"

	"github.com/gin-gonic/gin"
)

type PostStore interface {
	Create(ctx context.Context, in services.CreatePostInput) (*models.PostView, error)
	Owner(ctx context.Context, postID uint) (uint, error)
	Update(ctx context.Context, postID uint, in services.UpdatePostInput) (*models.Post, error)
	Delete(ctx context.Context, postID uint) (*models.Post, error)
	TogglePrivacy(ctx context.Context, postID, userID uint) (bool, error)
}

type PostHandler struct {
	feed     FeedReader
	posts    PostStore
	pageSize int
}

func NewPostHandler(feed FeedReader, posts PostStore, pageSize int) *PostHandler {
	return &PostHandler{feed: feed, posts: posts, pageSize: pageSize}
}

type createPostRequest struct {
	UserID     uint   `json:"userId" binding:"required"`
	TxtContent string `json:"txtContent" binding:"required,max=2000"`
	ImgURL     string `json:"imgUrl" binding:"omitempty,url"`
	IsPrivate  bool   `json:"isPrivate"`
}

type updatePostRequest struct {
	TxtContent *string `json:"txtContent" binding:"omitempty,min=1,max=2000"`
	ImgURL     *string `json:"imgUrl" binding:"omitempty,url"`
	IsPrivate  *bool   `json:"isPrivate"`
}

// List GET /posts?user=&page=
// user defaults to the caller and, when given, has to be the caller.
func (h *PostHandler) List(c *gin.Context) {
	me := viewer(c)
	if ref := c.Query("user"); ref != "" && !me.Matches(ref) {
		fail(c, apperr.Unauthorized("Unauthorized"))
		return
	}
	posts, err := h.feed.ListPosts(c.Request.Context(), me.UserID, pageParam(c), h.pageSize)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

// Feed GET /posts/feed?page=, posts from followed users
func (h *PostHandler) Feed(c *gin.Context) {
	posts, err := h.feed.ListFollowing(c.Request.Context(), viewer(c).UserID, pageParam(c), h.pageSize)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

// ByUser GET /posts/user/:ref
func (h *PostHandler) ByUser(c *gin.Context) {
	posts, err := h.feed.ListPostsByAuthor(c.Request.Context(), viewer(c).UserID, c.Param("ref"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

// Detail GET /posts/:id, with the text rendered as sanitised HTML
func (h *PostHandler) Detail(c *gin.Context) {
	id, ok := paramID(c, "id", "Post")
	if !ok {
		return
	}
	post, err := h.feed.GetPost(c.Request.Context(), viewer(c).UserID, id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": post, "html": utils.RenderMarkdown(post.Text)})
}

// Create POST /posts
func (h *PostHandler) Create(c *gin.Context) {
	var req createPostRequest
	if !bindJSON(c, &req) {
		return
	}
	if !middleware.RequireSelf(c, req.UserID) {
		return
	}
	post, err := h.posts.Create(c.Request.Context(), services.CreatePostInput{
		UserID:     req.UserID,
		TxtContent: req.TxtContent,
		ImgURL:     req.ImgURL,
		IsPrivate:  req.IsPrivate,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"post": post})
}

// Update PATCH /posts/:id
func (h *PostHandler) Update(c *gin.Context) {
	id, ok := h.ownedPost(c)
	if !ok {
		return
	}
	var req updatePostRequest
	if !bindJSON(c, &req) {
		return
	}
	post, err := h.posts.Update(c.Request.Context(), id, services.UpdatePostInput{
		TxtContent: req.TxtContent,
		ImgURL:     req.ImgURL,
		IsPrivate:  req.IsPrivate,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": post})
}

// Delete DELETE /posts/:id
func (h *PostHandler) Delete(c *gin.Context) {
	id, ok := h.ownedPost(c)
	if !ok {
		return
	}
	post, err := h.posts.Delete(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": post})
}

// TogglePrivacy POST /posts/:id/privacy
func (h *PostHandler) TogglePrivacy(c *gin.Context) {
	id, ok := h.ownedPost(c)
	if !ok {
		return
	}
	private, err := h.posts.TogglePrivacy(c.Request.Context(), id, viewer(c).UserID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"isPrivate": private})
}

// ownedPost resolves :id and checks the caller wrote it
func (h *PostHandler) ownedPost(c *gin.Context) (uint, bool) {
	id, ok := paramID(c, "id", "Post")
	if !ok {
		return 0, false
	}
	owner, err := h.posts.Owner(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return 0, false
	}
	if owner != viewer(c).UserID {
		fail(c, apperr.Unauthorized("Unauthorized"))
		return 0, false
	}
	return id, true
}
