package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"modular-shop-backend/pkg/config"
	"modular-shop-backend/pkg/database"
	"modular-shop-backend/pkg/models"
	"modular-shop-backend/pkg/utils"

	"github.com/sirupsen/logrus"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	config *config.Config
	db     database.DatabaseInterface
	tokens *utils.JWTService
	log    logrus.FieldLogger
	now    func() time.Time
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(cfg *config.Config, db database.DatabaseInterface, tokens *utils.JWTService, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{
		config: cfg,
		db:     db,
		tokens: tokens,
		log:    log,
		now:    time.Now,
	}
}

// Register 用户注册
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.UserRegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, ok := h.newUser(w, r, req, true)
	if !ok {
		return
	}

	groups := []string{h.config.DefaultGroup}
	if err := h.db.CreateUser(r.Context(), user, groups); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			utils.WriteValidationErrorResponse(w, "Username or email already exists", "")
			return
		}
		writeStoreError(w, h.log, err, "user")
		return
	}

	h.log.WithField("username", user.Username).Info("user registered")
	utils.WriteCreatedResponse(w, user.Profile(groups))
}

// newUser validates a registration payload and builds the user to persist.
// It writes the error response itself and returns false on failure.
func (h *AuthHandler) newUser(w http.ResponseWriter, r *http.Request, req models.UserRegisterRequest, active bool) (*models.User, bool) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	// 验证输入
	if req.Username == "" || req.Email == "" || req.Password == "" {
		utils.WriteValidationErrorResponse(w, "Username, email and password are required", "")
		return nil, false
	}
	if !validEmail(req.Email) {
		utils.WriteValidationErrorResponse(w, "Invalid email format", "")
		return nil, false
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		utils.WriteValidationErrorResponse(w, err.Error(), "")
		return nil, false
	}

	exists, err := h.db.UserExists(r.Context(), req.Username, req.Email)
	if err != nil {
		writeStoreError(w, h.log, err, "user")
		return nil, false
	}
	if exists {
		utils.WriteValidationErrorResponse(w, "Username or email already exists", "")
		return nil, false
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		h.log.WithError(err).Error("failed to hash password")
		utils.WriteInternalServerErrorResponse(w, "Failed to process password")
		return nil, false
	}

	return &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		IsActive:     active,
		CreatedAt:    h.now().UTC(),
	}, true
}

// Login 用户登录
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.UserLoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		utils.WriteValidationErrorResponse(w, "Username and password are required", "")
		return
	}

	user, err := h.db.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			// 与密码错误耗时一致，避免暴露用户名是否存在
			utils.BurnPasswordCheck(req.Password)
			utils.WriteUnauthorizedResponse(w, "invalid credentials")
			return
		}
		writeStoreError(w, h.log, err, "user")
		return
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		h.log.WithField("username", req.Username).Warn("failed login attempt")
		utils.WriteUnauthorizedResponse(w, "invalid credentials")
		return
	}

	if !user.IsActive {
		utils.WriteUnauthorizedResponse(w, "account inactive")
		return
	}

	groups, err := h.db.GroupNamesForUser(r.Context(), user.ID)
	if err != nil {
		writeStoreError(w, h.log, err, "user groups")
		return
	}

	if err := h.db.RecordLogin(r.Context(), user.ID, h.now()); err != nil {
		h.log.WithError(err).WithField("user_id", user.ID).Warn("failed to record login time")
	}

	token, expiresAt, err := h.tokens.IssueToken(user, groups)
	if err != nil {
		h.log.WithError(err).Error("failed to issue token")
		utils.WriteInternalServerErrorResponse(w, "Failed to generate token")
		return
	}

	utils.WriteSuccessResponse(w, models.UserLoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Username:  user.Username,
		Email:     user.Email,
		Groups:    groups,
	})
}

// HealthCheck 健康检查
// GET /
func (h *AuthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	dbStatus := "healthy"
	status := http.StatusOK
	if err := h.db.HealthCheck(r.Context()); err != nil {
		h.log.WithError(err).Warn("database health check failed")
		dbStatus = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	utils.WriteJSONResponse(w, status, map[string]interface{}{
		"service":     "modular-shop-backend",
		"version":     "1.0.0",
		"environment": h.config.Environment,
		"database":    h.config.DBDriver,
		"db_status":   dbStatus,
		"timestamp":   h.now().Unix(),
		"status":      dbStatus,
	})
}
