package handlers

import (
	"net/http"

	"flashfeed/internal/middleware"
	"flashfeed/internal/services"

	"github.com/gin-gonic/gin"
)

type LikeHandler struct {
	toggles EdgeToggler
	feed    FeedReader
}

func NewLikeHandler(toggles EdgeToggler, feed FeedReader) *LikeHandler {
	return &LikeHandler{toggles: toggles, feed: feed}
}

// edgeRequest is the body shared by like and bookmark toggles.
type edgeRequest struct {
	PostID uint `json:"postId" binding:"required"`
	UserID uint `json:"userId" binding:"required"`
}

// Toggle POST /posts/like 点赞/取消点赞
func (h *LikeHandler) Toggle(c *gin.Context) {
	var req edgeRequest
	if !bindJSON(c, &req) {
		return
	}
	if !middleware.RequireSelf(c, req.UserID) {
		return
	}
	liked, err := h.toggles.Toggle(c.Request.Context(), services.LikeRelation, idRef(req.UserID), idRef(req.PostID))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"like": liked})
}

// IsLiked GET /posts/:id/is-liked, for the caller
func (h *LikeHandler) IsLiked(c *gin.Context) {
	liked, err := h.toggles.IsEdgePresent(c.Request.Context(), services.LikeRelation, idRef(viewer(c).UserID), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"isLiked": liked})
}

// List GET /users/:ref/liked
func (h *LikeHandler) List(c *gin.Context) {
	posts, err := h.feed.ListLiked(c.Request.Context(), viewer(c).UserID, c.Param("ref"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}
