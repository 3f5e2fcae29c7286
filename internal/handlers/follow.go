package handlers

import (
	"net/http"

	"flashfeed/internal/middleware"
	"flashfeed/internal/services"

	"github.com/gin-gonic/gin"
)

type FollowHandler struct {
	toggles EdgeToggler
	users   UserStore
}

func NewFollowHandler(toggles EdgeToggler, users UserStore) *FollowHandler {
	return &FollowHandler{toggles: toggles, users: users}
}

type followRequest struct {
	Username         string `json:"username" binding:"required"`
	FollowedUsername string `json:"followedUsername" binding:"required"`
}

// Toggle POST /follows/toggle 关注/取消关注
func (h *FollowHandler) Toggle(c *gin.Context) {
	var req followRequest
	if !bindJSON(c, &req) {
		return
	}
	if !middleware.RequireSelfName(c, req.Username) {
		return
	}
	// 以 token 中的 id 作为发起方
	following, err := h.toggles.Toggle(c.Request.Context(), services.FollowRelation, idRef(viewer(c).UserID), req.FollowedUsername)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"follow": following})
}

// IsFollowing GET /follows/is-following?followerUsername=&followedUsername=
func (h *FollowHandler) IsFollowing(c *gin.Context) {
	follower := c.Query("followerUsername")
	followed := c.Query("followedUsername")
	ok, err := h.toggles.IsEdgePresent(c.Request.Context(), services.FollowRelation, follower, followed)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"isFollowing": ok})
}

// Followed GET /follows/:id/followed
func (h *FollowHandler) Followed(c *gin.Context) {
	users, err := h.users.Followed(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// Followers GET /follows/:id/followers
func (h *FollowHandler) Followers(c *gin.Context) {
	users, err := h.users.Followers(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}
