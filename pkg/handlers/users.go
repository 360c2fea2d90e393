package handlers

import (
	"errors"
	"net/http"
	"strings"

	"modular-shop-backend/pkg/config"
	"modular-shop-backend/pkg/database"
	customMiddleware "modular-shop-backend/pkg/middleware"
	"modular-shop-backend/pkg/models"
	"modular-shop-backend/pkg/utils"

	"github.com/sirupsen/logrus"
)

// UsersHandler 用户管理处理器（需认证）
type UsersHandler struct {
	config *config.Config
	db     database.DatabaseInterface
	auth   *AuthHandler
	log    logrus.FieldLogger
}

// NewUsersHandler 创建用户管理处理器；注册校验逻辑与 AuthHandler 共用
func NewUsersHandler(cfg *config.Config, db database.DatabaseInterface, auth *AuthHandler, log logrus.FieldLogger) *UsersHandler {
	return &UsersHandler{config: cfg, db: db, auth: auth, log: log}
}

// GET /users
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.db.ListUsers(r.Context())
	if err != nil {
		writeStoreError(w, h.log, err, "user")
		return
	}
	utils.WriteSuccessResponse(w, users)
}

// GET /users/{id}
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	profile, err := h.profile(r, id)
	if err != nil {
		writeStoreError(w, h.log, err, "user")
		return
	}
	utils.WriteSuccessResponse(w, profile)
}

// POST /users （Administrators）
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if !decodeBody(w, r, &req) {
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	groups := req.Groups
	if len(groups) == 0 {
		groups = []string{h.config.DefaultGroup}
	}
	for i, g := range groups {
		groups[i] = strings.TrimSpace(g)
	}

	user, ok := h.auth.newUser(w, r, req.UserRegisterRequest, active)
	if !ok {
		return
	}

	if err := h.db.CreateUser(r.Context(), user, groups); err != nil {
		switch {
		case errors.Is(err, database.ErrInvalidReference):
			utils.WriteValidationErrorResponse(w, "Unknown group", err.Error())
		case errors.Is(err, database.ErrDuplicate):
			utils.WriteValidationErrorResponse(w, "Username or email already exists", "")
		default:
			writeStoreError(w, h.log, err, "user")
		}
		return
	}

	profile, err := h.profile(r, user.ID)
	if err != nil {
		writeStoreError(w, h.log, err, "user")
		return
	}
	utils.WriteCreatedResponse(w, profile)
}

// PUT /users/{id} （Administrators 或 Managers）
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	var req models.UpdateUserRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if (req.Password != nil || req.IsActive != nil) && !h.mayChangeCredentials(w, r, id) {
		return
	}

	patch := models.UserPatch{
		FirstName: trimmed(req.FirstName),
		LastName:  trimmed(req.LastName),
		IsActive:  req.IsActive,
	}
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if !validEmail(email) {
			utils.WriteValidationErrorResponse(w, "Invalid email format", "")
			return
		}
		patch.Email = &email
	}
	if req.Password != nil {
		if err := utils.ValidatePassword(*req.Password); err != nil {
			utils.WriteValidationErrorResponse(w, err.Error(), "")
			return
		}
		hash, err := utils.HashPassword(*req.Password)
		if err != nil {
			h.log.WithError(err).Error("failed to hash password")
			utils.WriteInternalServerErrorResponse(w, "Failed to process password")
			return
		}
		patch.PasswordHash = &hash
	}

	if _, err := h.db.UpdateUser(r.Context(), id, patch); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			utils.WriteValidationErrorResponse(w, "Email already exists", "")
			return
		}
		writeStoreError(w, h.log, err, "user")
		return
	}

	profile, err := h.profile(r, id)
	if err != nil {
		writeStoreError(w, h.log, err, "user")
		return
	}
	utils.WriteSuccessResponse(w, profile)
}

// DELETE /users/{id} （Administrators）
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	if err := h.db.DeleteUser(r.Context(), id); err != nil {
		writeStoreError(w, h.log, err, "user")
		return
	}
	utils.WriteNoContentResponse(w)
}

func (h *UsersHandler) profile(r *http.Request, id int64) (*models.UserProfile, error) {
	user, err := h.db.GetUserByID(r.Context(), id)
	if err != nil {
		return nil, err
	}
	groups, err := h.db.GroupNamesForUser(r.Context(), id)
	if err != nil {
		return nil, err
	}
	p := user.Profile(groups)
	return &p, nil
}

// mayChangeCredentials 只有管理员可以修改管理员账号的密码与启用状态
func (h *UsersHandler) mayChangeCredentials(w http.ResponseWriter, r *http.Request, targetID int64) bool {
	caller, ok := customMiddleware.GetUserFromContext(r.Context())
	if !ok {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return false
	}
	if caller.InAnyGroup(models.GroupAdministrators) {
		return true
	}

	groups, err := h.db.GroupNamesForUser(r.Context(), targetID)
	if err != nil {
		writeStoreError(w, h.log, err, "user")
		return false
	}
	for _, g := range groups {
		if g == models.GroupAdministrators {
			h.log.WithFields(logrus.Fields{"caller": caller.Username, "target_id": targetID}).
				Warn("non-administrator tried to change administrator credentials")
			utils.WriteForbiddenResponse(w, "Only administrators may change an administrator's password or status")
			return false
		}
	}
	return true
}
