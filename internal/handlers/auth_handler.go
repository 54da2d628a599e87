package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/salon-scheduler/internal/config"
	"github.com/BruksfildServices01/salon-scheduler/internal/httperr"
	"github.com/BruksfildServices01/salon-scheduler/internal/middleware"
	"github.com/BruksfildServices01/salon-scheduler/internal/models"
	"github.com/BruksfildServices01/salon-scheduler/internal/validators"
)

const tokenTTL = 24 * time.Hour

type AuthHandler struct {
	db     *gorm.DB
	config *config.Config

	// emailDomainOK is swapped in tests to avoid DNS lookups.
	emailDomainOK func(string) bool
}

func NewAuthHandler(db *gorm.DB, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		db:            db,
		config:        cfg,
		emailDomainOK: validators.IsEmailDomainValid,
	}
}

// --------- Requests ---------

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Phone    string `json:"phone"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UserResponse struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Role  string `json:"role"`
}

func userResponse(u *models.User) UserResponse {
	return UserResponse{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone, Role: u.Role}
}

// --------- Handlers ---------

// Register creates a customer account. The very first account of an empty
// installation becomes the salon admin.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid request body.")
		return
	}

	var count int64
	if err := h.db.WithContext(c.Request.Context()).Model(&models.User{}).Count(&count).Error; err != nil {
		httperr.Internal(c, "internal_error", "Unexpected error.")
		return
	}

	role := models.RoleCustomer
	if count == 0 {
		role = models.RoleAdmin
	}

	user, ok := h.createUser(c, req, role)
	if !ok {
		return
	}

	h.respondWithToken(c, http.StatusCreated, user)
}

// CreateStaff lets an admin add a staff account.
func (h *AuthHandler) CreateStaff(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid request body.")
		return
	}

	user, ok := h.createUser(c, req, models.RoleStaff)
	if !ok {
		return
	}

	c.JSON(http.StatusCreated, userResponse(user))
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid request body.")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	var user models.User
	if err := h.db.WithContext(c.Request.Context()).
		Where("email = ?", email).
		First(&user).Error; err != nil {

		if errors.Is(err, gorm.ErrRecordNotFound) {
			httperr.Unauthorized(c, "invalid_credentials", "Invalid email or password.")
			return
		}
		httperr.Internal(c, "internal_error", "Unexpected error.")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		httperr.Unauthorized(c, "invalid_credentials", "Invalid email or password.")
		return
	}

	h.respondWithToken(c, http.StatusOK, &user)
}

// --------- Helpers ---------

func (h *AuthHandler) createUser(c *gin.Context, req RegisterRequest, role string) (*models.User, bool) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if !validators.IsEmailSyntaxValid(email) || !h.emailDomainOK(email) {
		httperr.BadRequest(c, "invalid_email_domain", "The email domain does not look valid.")
		return nil, false
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		httperr.Internal(c, "failed_to_hash_password", "Could not create account.")
		return nil, false
	}

	user := models.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: string(hashed),
		Phone:        req.Phone,
		Role:         role,
	}

	if err := h.db.WithContext(c.Request.Context()).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || httperr.IsUniqueViolation(err) {
			httperr.Conflict(c, "email_already_registered", "This email is already registered.")
			return nil, false
		}
		httperr.Internal(c, "failed_to_create_user", "Could not create account.")
		return nil, false
	}

	return &user, true
}

func (h *AuthHandler) respondWithToken(c *gin.Context, status int, user *models.User) {
	token, err := middleware.IssueToken(h.config.JWTSecret, user.ID, user.Role, tokenTTL)
	if err != nil {
		httperr.Internal(c, "failed_to_generate_token", "Could not sign token.")
		return
	}

	c.JSON(status, gin.H{
		"user":  userResponse(user),
		"token": token,
	})
}
