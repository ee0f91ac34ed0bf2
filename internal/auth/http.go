package auth

import (
	"net/http"
	"time"

	"github.com/abduss/filevault/internal/fault"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts /auth on public and the profile endpoints on protected.
func RegisterRoutes(public, protected *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}
	authGroup := public.Group("/auth")
	{
		authGroup.POST("/register", handler.register)
		authGroup.POST("/login", handler.login)
	}

	protected.GET("/user", handler.profile)
	protected.PUT("/user", handler.updateProfile)
}

type httpHandler struct {
	service *Service
}

type registerRequest struct {
	Username string `json:"username" binding:"required,max=64"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,max=72"`
}

type updateProfileRequest struct {
	Username string `json:"username" binding:"omitempty,max=64"`
	Email    string `json:"email" binding:"omitempty,email"`
	Password string `json:"password" binding:"omitempty,min=8,max=72"`
}

type userResponse struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

type authResponse struct {
	User  userResponse `json:"user"`
	Token struct {
		AccessToken string `json:"access_token"`
		ExpiresAt   int64  `json:"expires_at"`
	} `json:"token"`
}

func (h *httpHandler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Register(c.Request.Context(), RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, marshalAuthResponse(result))
}

func (h *httpHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Login(c.Request.Context(), LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		if err == ErrInvalidCredentials {
			c.JSON(http.StatusUnauthorized, gin.H{"error": ErrInvalidCredentials.Error()})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, marshalAuthResponse(result))
}

func (h *httpHandler) profile(c *gin.Context) {
	userID, ok := OwnerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	user, err := h.service.Profile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": marshalUser(user)})
}

func (h *httpHandler) updateProfile(c *gin.Context) {
	userID, ok := OwnerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := h.service.UpdateProfile(c.Request.Context(), userID, ProfilePatch{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	message := "updated user info"
	if outcome == NothingChanged {
		message = "nothing to update"
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message, "outcome": outcome.String()})
}

func respondError(c *gin.Context, err error) {
	c.JSON(fault.HTTPStatus(err), gin.H{"error": fault.Message(err)})
}

func marshalUser(user User) userResponse {
	resp := userResponse{
		ID:       user.ID.String(),
		Username: user.Username,
		Email:    user.Email,
	}
	if user.LastLogin != nil {
		last := user.LastLogin.UTC()
		resp.LastLogin = &last
	}
	if !user.CreatedAt.IsZero() {
		created := user.CreatedAt.UTC()
		resp.CreatedAt = &created
	}
	return resp
}

func marshalAuthResponse(result AuthResult) authResponse {
	resp := authResponse{User: marshalUser(result.User)}
	resp.Token.AccessToken = result.Token.Token
	resp.Token.ExpiresAt = result.Token.ExpiresAt.Unix()
	return resp
}
