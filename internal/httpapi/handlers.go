package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	credAuth "github.com/MrEthical07/credAuth"
)

// registerRequest also accepts password2, the confirmation key older clients send.
type registerRequest struct {
	credAuth.RegisterRequest
	Password2 string `json:"password2"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Register handles POST /api/users/register.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Malformed request body"})
		return
	}
	if req.ConfirmPassword == "" {
		req.ConfirmPassword = req.Password2
	}

	user, err := h.svc.Register(c.Request.Context(), req.RegisterRequest)
	if err != nil {
		h.writeError(c, "register", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "New User " + user.Name + " registered successfully!",
		"user":    user,
	})
}

// Login handles POST /api/users/login.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Malformed request body"})
		return
	}

	res, err := h.svc.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(c, "login", err)
		return
	}

	c.JSON(http.StatusOK, loginResponse{
		Token:     res.Token,
		ID:        res.AccountID,
		Name:      res.Name,
		ExpiresAt: res.ExpiresAt,
	})
}

// EditUser handles PATCH /api/users/edit-user for the account named by the bearer token.
func (h *Handler) EditUser(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized. No token"})
		return
	}

	var req credAuth.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Malformed request body"})
		return
	}
	req.AccountID = claims.AccountID

	user, err := h.svc.UpdateCredentials(c.Request.Context(), req)
	if err != nil {
		// A wrong current password is a form error here, not a login failure.
		if errors.Is(err, credAuth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Current Password is Invalid."})
			return
		}
		h.writeError(c, "edit-user", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User " + user.ID + " successfully updated!",
		"user":    user,
	})
}

// GetUser handles GET /api/users/:id.
func (h *Handler) GetUser(c *gin.Context) {
	user, err := h.svc.Account(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, "get-user", err)
		return
	}
	c.JSON(http.StatusOK, user)
}
