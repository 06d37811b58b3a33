package server

import (
	"net/http"

	"github.com/alcoolio/neighbourgood/internal/users"
	"github.com/gin-gonic/gin"
)

type registerPayload struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
	PostalCode  string `json:"postal_code"`
}

type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string       `json:"access_token"`
	ExpiresIn   int64        `json:"expires_in"`
	TokenType   string       `json:"token_type"`
	User        userResponse `json:"user"`
}

type userResponse struct {
	ID          uint   `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	PostalCode  string `json:"postal_code,omitempty"`
}

func toUserResponse(user *users.User) userResponse {
	return userResponse{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		PostalCode:  user.PostalCode,
	}
}

func (h *httpHandler) handleRegister(c *gin.Context) {
	var payload registerPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, err := h.userService.Register(c.Request.Context(), users.RegisterParams{
		Email:       payload.Email,
		DisplayName: payload.DisplayName,
		Password:    payload.Password,
		PostalCode:  payload.PostalCode,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.issueToken(c, user, http.StatusCreated)
}

func (h *httpHandler) handleLogin(c *gin.Context) {
	var payload loginPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, err := h.userService.Authenticate(c.Request.Context(), payload.Email, payload.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.issueToken(c, user, http.StatusOK)
}

func (h *httpHandler) issueToken(c *gin.Context, user *users.User, status int) {
	token, expiresIn, err := h.tokens.IssueToken(user.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(status, tokenResponse{
		AccessToken: token,
		ExpiresIn:   expiresIn,
		TokenType:   "Bearer",
		User:        toUserResponse(user),
	})
}
