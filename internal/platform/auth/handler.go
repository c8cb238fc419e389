package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct{ svc AuthService }

func RegisterRoutes(r gin.IRoutes, svc AuthService) {
	h := &AuthHandler{svc: svc}
	r.POST("/auth/login", h.Login)
	r.POST("/auth/register", h.Register)
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login godoc
// @Summary  ログインしてJWTを発行
// @Tags     auth
// @Accept   json
// @Produce  json
// @Param    body body LoginRequest true "credentials"
// @Success  200 {object} map[string]string
// @Router   /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "invalid request")
		return
	}

	token, err := h.svc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrAccountDisabled):
			abort(c, http.StatusUnauthorized, "invalid username or password")
		default:
			_ = c.Error(err)
			abort(c, http.StatusInternalServerError, "login failed")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"message": "Login successful",
	})
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

// Register godoc
// @Summary  一般ユーザー登録
// @Tags     auth
// @Accept   json
// @Produce  json
// @Param    body body RegisterRequest true "account"
// @Success  201 {object} map[string]string
// @Router   /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "invalid request")
		return
	}

	acct, err := h.svc.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadyExists):
			abort(c, http.StatusConflict, "username already exists")
		case errors.Is(err, ErrInvalidInput):
			abort(c, http.StatusBadRequest, err.Error())
		default:
			_ = c.Error(err)
			abort(c, http.StatusInternalServerError, "register failed")
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": acct.ID, "username": acct.Username, "role": acct.Role})
}
