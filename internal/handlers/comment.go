package handlers

import (
	"context"
	"net/http"

	"flashfeed/internal/apperr"
	"flashfeed/internal/middleware"
	"flashfeed/internal/models"

	"github.com/gin-gonic/gin"
)

type CommentStore interface {
	Create(ctx context.Context, postID, userID uint, txtContent string) (*models.CommentView, error)
	Owner(ctx context.Context, commentID uint) (uint, error)
	Delete(ctx context.Context, commentID uint) (*models.Comment, error)
	ListForPost(ctx context.Context, viewerID, postID uint) ([]models.CommentView, error)
}

type CommentHandler struct {
	comments CommentStore
}

func NewCommentHandler(comments CommentStore) *CommentHandler {
	return &CommentHandler{comments: comments}
}

type createCommentRequest struct {
	PostID     uint   `json:"postId" binding:"required"`
	UserID     uint   `json:"userId" binding:"required"`
	TxtContent string `json:"txtContent" binding:"required,max=1000"`
}

// Create POST /comments/create
func (h *CommentHandler) Create(c *gin.Context) {
	var req createCommentRequest
	if !bindJSON(c, &req) {
		return
	}
	if !middleware.RequireSelf(c, req.UserID) {
		return
	}
	comment, err := h.comments.Create(c.Request.Context(), req.PostID, req.UserID, req.TxtContent)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"comment": comment})
}

// Delete DELETE /comments/:id, author only
func (h *CommentHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id", "Comment")
	if !ok {
		return
	}
	owner, err := h.comments.Owner(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	if owner != viewer(c).UserID {
		fail(c, apperr.Unauthorized("Unauthorized"))
		return
	}
	deleted, err := h.comments.Delete(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// ListForPost GET /comments/post/:postId
func (h *CommentHandler) ListForPost(c *gin.Context) {
	postID, ok := paramID(c, "postId", "Post")
	if !ok {
		return
	}
	comments, err := h.comments.ListForPost(c.Request.Context(), viewer(c).UserID, postID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}
