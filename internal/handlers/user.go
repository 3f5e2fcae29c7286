package handlers

import (
	"net/http"

	"flashfeed/internal/services"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	users  UserStore
	tokens TokenIssuer
}

func NewUserHandler(users UserStore, tokens TokenIssuer) *UserHandler {
	return &UserHandler{users: users, tokens: tokens}
}

type updateUserRequest struct {
	Password  *string `json:"password" binding:"omitempty,min=5,max=72"`
	FirstName *string `json:"firstName" binding:"omitempty,min=1,max=30"`
	LastName  *string `json:"lastName" binding:"omitempty,min=1,max=30"`
	Email     *string `json:"email" binding:"omitempty,email,max=60"`
	ImageURL  *string `json:"imageUrl" binding:"omitempty,url"`
}

// Create POST /users, registers and returns the user with a token
func (h *UserHandler) Create(c *gin.Context) {
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
	c.JSON(http.StatusCreated, gin.H{"user": user, "token": token})
}

// List GET /users
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.users.ListAll(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// Search GET /users/search?q=
func (h *UserHandler) Search(c *gin.Context) {
	users, err := h.users.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// Profile GET /users/:ref
func (h *UserHandler) Profile(c *gin.Context) {
	profile, err := h.users.Get(c.Request.Context(), c.Param("ref"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": profile})
}

// Update PATCH /users/:ref, the caller may only edit themselves
func (h *UserHandler) Update(c *gin.Context) {
	var req updateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.users.Update(c.Request.Context(), c.Param("ref"), services.UpdateUserInput{
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		ImageURL:  req.ImageURL,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
