package handlers

import (
	"context"
	"strconv"

	"flashfeed/internal/apperr"
	"flashfeed/internal/middleware"
	"flashfeed/internal/models"
	"flashfeed/internal/services"
	"flashfeed/internal/utils"

	"github.com/gin-gonic/gin"
)

// EdgeToggler flips and inspects follow/like/bookmark edges.
type EdgeToggler interface {
	Toggle(ctx context.Context, rel services.Relation, refA, refB string) (bool, error)
	IsEdgePresent(ctx context.Context, rel services.Relation, refA, refB string) (bool, error)
}

type FeedReader interface {
	ListPosts(ctx context.Context, viewerID uint, page, pageSize int) ([]models.PostView, error)
	ListFollowing(ctx context.Context, viewerID uint, page, pageSize int) ([]models.PostView, error)
	ListPostsByAuthor(ctx context.Context, viewerID uint, authorRef string) ([]models.PostView, error)
	ListLiked(ctx context.Context, viewerID uint, userRef string) ([]models.PostView, error)
	ListBookmarked(ctx context.Context, viewerID uint, userRef string) ([]models.PostView, error)
	GetPost(ctx context.Context, viewerID, postID uint) (*models.PostView, error)
}

type TokenIssuer interface {
	Make(userID uint, username string) (string, error)
}

// fail writes the error envelope and aborts the chain
func fail(c *gin.Context, err error) {
	middleware.AbortWithError(c, err)
}

// bindJSON binds and validates the body; validation failures are 400 with
// the validator's message.
func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		fail(c, apperr.BadRequest("%s", err.Error()))
		return false
	}
	return true
}

// paramID parses a numeric path parameter. Anything else cannot name a row.
func paramID(c *gin.Context, name, kind string) (uint, bool) {
	raw := c.Param(name)
	id, ok := utils.ParseID(raw)
	if !ok {
		fail(c, apperr.NotFound("%s not found with id %s", kind, raw))
		return 0, false
	}
	return id, true
}

// viewer returns the authenticated caller. Routes using it sit behind
// middleware.AuthRequired.
func viewer(c *gin.Context) *middleware.Identity {
	if id, ok := middleware.CurrentUser(c); ok {
		return id
	}
	return &middleware.Identity{}
}

func pageParam(c *gin.Context) int {
	return utils.StringToInt(c.DefaultQuery("page", "1"))
}

func idRef(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
