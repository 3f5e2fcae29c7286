package handlers

import (
	"context"
	"net/http"

	"flashfeed/internal/models"
	"flashfeed/internal/services"

	"github.com/gin-gonic/gin"
)

type UserStore interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
	Get(ctx context.Context, userRef string) (*models.UserProfile, error)
	Update(ctx context.Context, userRef string, in services.UpdateUserInput) (*models.User, error)
	Search(ctx context.Context, query string) ([]models.UserSummary, error)
	ListAll(ctx context.Context) ([]models.UserSummary, error)
	Followed(ctx context.Context, userRef string) ([]models.UserSummary, error)
	Followers(ctx context.Context, userRef string) ([]models.UserSummary, error)
}

type AuthHandler struct {
	users  UserStore
	tokens TokenIssuer
}

func NewAuthHandler(users UserStore, tokens TokenIssuer) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens}
}

type loginRequest struct {
	Username string `json:"username" binding:"required,min=1,max=25"`
	Password string `json:"password" binding:"required,min=1"`
}

type registerRequest struct {
	Username  string `json:"username" binding:"required,min=1,max=25,username"`
	Password  string `json:"password" binding:"required,min=5,max=72"`
	FirstName string `json:"firstName" binding:"required,min=1,max=30"`
	LastName  string `json:"lastName" binding:"required,min=1,max=30"`
	Email     string `json:"email" binding:"required,email,max=60"`
	ImageURL  string `json:"imageUrl" binding:"omitempty,url"`
}

func (r registerRequest) input() services.RegisterInput {
	return services.RegisterInput{
		Username:  r.Username,
		Password:  r.Password,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		ImageURL:  r.ImageURL,
	}
}

// Token POST /auth/token
func (h *AuthHandler) Token(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.users.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	token, err := h.tokens.Make(user.ID, user.Username)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// Register POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.users.Register(c.Request.Context(), req.input())
	if err != nil {
		fail(c, err)
		return
	}
	token, err := h.tokens.Make(user.ID, user.Username)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": token})
}
