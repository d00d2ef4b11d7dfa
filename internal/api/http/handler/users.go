package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dtroode/valhalla-auth/internal/logger"
	"github.com/dtroode/valhalla-auth/internal/model"
)

// UserManager registers and manages identities.
type UserManager interface {
	SignUp(ctx context.Context, params model.RegisterParams) (model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Get(ctx context.Context, id uuid.UUID) (model.User, error)
	Update(ctx context.Context, id uuid.UUID, params model.UpdateUserParams) (model.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Users serves the /users endpoints.
type Users struct {
	users  UserManager
	logger *logger.Logger
}

// NewUsers creates a new Users handler.
func NewUsers(users UserManager, logger *logger.Logger) *Users {
	return &Users{users: users, logger: logger}
}

var errBadDate = errors.New("dob must be a date in YYYY-MM-DD format")

type registerRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Name     string `json:"name"`
	Country  string `json:"country"`
	Phone    string `json:"phone"`
	DOB      string `json:"dob"`
}

type updateUserRequest struct {
	Email   *string `json:"email" binding:"omitempty,email"`
	Role    *string `json:"role"`
	Name    *string `json:"name"`
	Country *string `json:"country"`
	Phone   *string `json:"phone"`
	DOB     *string `json:"dob"`
}

type userURI struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// Register creates an identity with the USER role. Without a password the
// identity receives a set-password link instead.
func (h *Users) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, h.logger, err)
		return
	}

	dob, err := parseDate(req.DOB)
	if err != nil {
		writeBadRequest(c, h.logger, errBadDate)
		return
	}

	user, err := h.users.SignUp(c.Request.Context(), model.RegisterParams{
		Email:       req.Email,
		Password:    req.Password,
		Role:        model.Role(req.Role),
		Name:        req.Name,
		Country:     req.Country,
		Phone:       req.Phone,
		DateOfBirth: dob,
	})
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, user.Redacted())
}

func (h *Users) List(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, users)
}

func (h *Users) Get(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}

	user, err := h.users.Get(c.Request.Context(), id)
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, user.Redacted())
}

// Update applies the fields present in the body. Absent fields keep their
// value.
func (h *Users) Update(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, h.logger, err)
		return
	}

	params := model.UpdateUserParams{
		Email:   req.Email,
		Name:    req.Name,
		Country: req.Country,
		Phone:   req.Phone,
	}
	if req.Role != nil {
		role := model.Role(*req.Role)
		params.Role = &role
	}
	if req.DOB != nil {
		dob, err := parseDate(*req.DOB)
		if err != nil {
			writeBadRequest(c, h.logger, errBadDate)
			return
		}
		params.DateOfBirth = &dob
	}

	user, err := h.users.Update(c.Request.Context(), id, params)
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, user.Redacted())
}

func (h *Users) Delete(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}

	if err := h.users.Delete(c.Request.Context(), id); err != nil {
		WriteError(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Users) bindID(c *gin.Context) (uuid.UUID, bool) {
	var uri userURI
	if err := c.ShouldBindUri(&uri); err != nil {
		writeBindError(c, h.logger, err)
		return uuid.Nil, false
	}
	id, err := uuid.Parse(uri.ID)
	if err != nil {
		writeBadRequest(c, h.logger, errors.New("id must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
