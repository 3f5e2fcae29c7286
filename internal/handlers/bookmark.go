package handlers

import (
	"net/http"

	"flashfeed/internal/middleware"
	"flashfeed/internal/services"

	"github.com/gin-gonic/gin"
)

type BookmarkHandler struct {
	toggles EdgeToggler
	feed    FeedReader
}

func NewBookmarkHandler(toggles EdgeToggler, feed FeedReader) *BookmarkHandler {
	return &BookmarkHandler{toggles: toggles, feed: feed}
}

// Toggle POST /posts/bookmark 收藏/取消收藏
func (h *BookmarkHandler) Toggle(c *gin.Context) {
	var req edgeRequest
	if !bindJSON(c, &req) {
		return
	}
	if !middleware.RequireSelf(c, req.UserID) {
		return
	}
	saved, err := h.toggles.Toggle(c.Request.Context(), services.BookmarkRelation, idRef(req.UserID), idRef(req.PostID))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookmark": saved})
}

// List GET /users/:ref/bookmarked
func (h *BookmarkHandler) List(c *gin.Context) {
	posts, err := h.feed.ListBookmarked(c.Request.Context(), viewer(c).UserID, c.Param("ref"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}
