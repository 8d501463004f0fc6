package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	userapp "github.com/eagleapps/user-service/internal/application"
	"github.com/eagleapps/user-service/internal/domain/entity"
	"github.com/eagleapps/user-service/pkg/helpers"
	"github.com/eagleapps/user-service/pkg/response"
	"github.com/eagleapps/user-service/pkg/validation"
)

type UserHandler struct {
	Svc    *userapp.Service
	Logger *logrus.Logger
}

func NewUserHandler(svc *userapp.Service, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger}
}

type roleRequest struct {
	Rolename string `json:"rolename" binding:"required"`
}

type createUserRequest struct {
	Username              string            `json:"username" binding:"required"`
	Fullname              string            `json:"fullname" binding:"required"`
	DOB                   string            `json:"dob" binding:"required"`
	Email                 string            `json:"email" binding:"required,email"`
	Password              string            `json:"password" binding:"required,pwd"`
	Mobile                int64             `json:"mobile" binding:"required"`
	Active                bool              `json:"active"`
	AccountNonExpired     bool              `json:"account_non_expired"`
	AccountNonLocked      bool              `json:"account_non_locked"`
	CredentialsNonExpired bool              `json:"credentials_non_expired"`
	ProfilePic            []byte            `json:"profile_pic"`
	Roles                 []roleRequest     `json:"roles"`
	Addresses             map[string]string `json:"addresses"`
}

// updateUserRequest carries no username, email, mobile, or password: those
// are fixed at creation (or owned by the password endpoint).
type updateUserRequest struct {
	Fullname              string            `json:"fullname" binding:"required"`
	DOB                   string            `json:"dob" binding:"required"`
	Active                bool              `json:"active"`
	AccountNonExpired     bool              `json:"account_non_expired"`
	AccountNonLocked      bool              `json:"account_non_locked"`
	CredentialsNonExpired bool              `json:"credentials_non_expired"`
	ProfilePic            []byte            `json:"profile_pic"`
	Roles                 []roleRequest     `json:"roles"`
	Addresses             map[string]string `json:"addresses"`
}

type updatePasswordRequest struct {
	NewPassword string `json:"new_password" binding:"required,pwd"`
}

func roles(reqs []roleRequest) []entity.Role {
	out := make([]entity.Role, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, entity.Role{Name: r.Rolename})
	}
	return out
}

// fail maps service errors onto transport status codes: duplicate → 409,
// not found → 404, anything else is a storage failure the caller may retry.
func (h *UserHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, userapp.ErrDuplicateUser):
		writeErr(c, http.StatusConflict, "email or mobile already registered", nil)
	case errors.Is(err, userapp.ErrUserNotFound):
		writeErr(c, http.StatusNotFound, "user not found", nil)
	default:
		if h.Logger != nil {
			h.Logger.WithError(err).Error("storage failure")
		}
		writeErr(c, http.StatusInternalServerError, "storage failure", nil)
	}
}

func writeErr(c *gin.Context, status int, msg string, details any) {
	resp := response.Error[any](c, status, msg, details)
	c.JSON(resp.Status, resp)
}

func writeOK[T any](c *gin.Context, status int, data T, msg string) {
	resp := response.Success(c, status, data, msg, nil)
	c.JSON(resp.Status, resp)
}

func (h *UserHandler) Create(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	hash, err := helpers.HashPassword(req.Password)
	if err != nil {
		writeErr(c, http.StatusInternalServerError, "failed to hash password", nil)
		return
	}
	u := &entity.User{
		Username:              req.Username,
		Fullname:              req.Fullname,
		DOB:                   req.DOB,
		Email:                 req.Email,
		Password:              hash,
		Mobile:                req.Mobile,
		Active:                req.Active,
		AccountNonExpired:     req.AccountNonExpired,
		AccountNonLocked:      req.AccountNonLocked,
		CredentialsNonExpired: req.CredentialsNonExpired,
		ProfilePic:            req.ProfilePic,
		Roles:                 roles(req.Roles),
		Addresses:             req.Addresses,
	}
	created, err := h.Svc.Create(c.Request.Context(), u)
	if err != nil {
		h.fail(c, err)
		return
	}
	writeOK(c, http.StatusCreated, created, "user created")
}

func (h *UserHandler) GetAll(c *gin.Context) {
	users, err := h.Svc.GetAll(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	writeOK(c, http.StatusOK, users, "users")
}

func (h *UserHandler) GetByID(c *gin.Context) {
	u, err := h.Svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	writeOK(c, http.StatusOK, u, "user")
}

func (h *UserHandler) Update(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u := &entity.User{
		ID:                    c.Param("id"),
		Fullname:              req.Fullname,
		DOB:                   req.DOB,
		Active:                req.Active,
		AccountNonExpired:     req.AccountNonExpired,
		AccountNonLocked:      req.AccountNonLocked,
		CredentialsNonExpired: req.CredentialsNonExpired,
		ProfilePic:            req.ProfilePic,
		Roles:                 roles(req.Roles),
		Addresses:             req.Addresses,
	}
	updated, err := h.Svc.Update(c.Request.Context(), u)
	if err != nil {
		h.fail(c, err)
		return
	}
	writeOK(c, http.StatusOK, updated, "user updated")
}

func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	writeOK[any](c, http.StatusOK, gin.H{"deleted": true}, "user deleted")
}

func (h *UserHandler) Search(c *gin.Context) {
	q := c.Query("q")
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	hits, err := h.Svc.SearchUsers(c.Request.Context(), q, size)
	if err != nil {
		h.fail(c, err)
		return
	}
	writeOK(c, http.StatusOK, hits, "search results")
}

// GetByUsername serves the credential view to the authentication service.
func (h *UserHandler) GetByUsername(c *gin.Context) {
	view, err := h.Svc.GetByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		h.fail(c, err)
		return
	}
	writeOK(c, http.StatusOK, view, "credentials")
}

func (h *UserHandler) UpdatePassword(c *gin.Context) {
	var req updatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	hash, err := helpers.HashPassword(req.NewPassword)
	if err != nil {
		writeErr(c, http.StatusInternalServerError, "failed to hash password", nil)
		return
	}
	if err := h.Svc.UpdatePassword(c.Request.Context(), c.Param("username"), hash); err != nil {
		h.fail(c, err)
		return
	}
	writeOK[any](c, http.StatusOK, gin.H{"updated": true}, "password updated")
}
