package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"studx/database"
	"studx/models"
)

const maxAvatarBytes = 5 << 20

type UserStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, upd models.ProfileUpdate) (*models.User, error)
	SetAvatar(ctx context.Context, id primitive.ObjectID, url string) error
}

type AvatarUploader interface {
	UploadAvatar(ctx context.Context, userID string, file interface{}) (string, error)
}

type UserHandler struct {
	base
	users    UserStore
	uploader AvatarUploader
}

// NewUserHandler accepts a nil uploader; avatar uploads then answer 503.
func NewUserHandler(users UserStore, uploader AvatarUploader, logger zerolog.Logger, timeout time.Duration) *UserHandler {
	return &UserHandler{base: newBase(logger, timeout), users: users, uploader: uploader}
}

type updateProfileRequest struct {
	Name   *string `json:"name"`
	Branch *string `json:"branch"`
}

func (h *UserHandler) GetMe(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	user, err := h.users.FindByID(ctx, userID)
	if err != nil {
		h.respondUserError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdateMe edits the caller's profile. Existing conversations keep the
// participant details captured when they were created.
func (h *UserHandler) UpdateMe(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name cannot be empty"})
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	user, err := h.users.UpdateProfile(ctx, userID, models.ProfileUpdate{Name: req.Name, Branch: req.Branch})
	if err != nil {
		h.respondUserError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully", "user": user})
}

func (h *UserHandler) GetUser(c *gin.Context) {
	if _, ok := callerID(c); !ok {
		return
	}

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	user, err := h.users.FindByID(ctx, id)
	if err != nil {
		h.respondUserError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user.Public()})
}

func (h *UserHandler) UploadAvatar(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	if h.uploader == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Avatar uploads are not configured"})
		return
	}

	header, err := c.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "avatar file is required"})
		return
	}
	if header.Size > maxAvatarBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Avatar must be 5MB or smaller"})
		return
	}

	file, err := header.Open()
	if err != nil {
		h.serverError(c, err)
		return
	}
	defer file.Close()

	// uploads get a longer budget than plain reads
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*h.timeout)
	defer cancel()

	url, err := h.uploader.UploadAvatar(ctx, userID.Hex(), file)
	if err != nil {
		h.serverError(c, err)
		return
	}
	if err := h.users.SetAvatar(ctx, userID, url); err != nil {
		h.respondUserError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"avatar": url})
}

func (h *UserHandler) respondUserError(c *gin.Context, err error) {
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	h.serverError(c, err)
}
