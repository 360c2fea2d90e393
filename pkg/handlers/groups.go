package handlers

import (
	"net/http"
	"strings"

	"modular-shop-backend/pkg/config"
	"modular-shop-backend/pkg/database"
	"modular-shop-backend/pkg/models"
	"modular-shop-backend/pkg/utils"

	"github.com/sirupsen/logrus"
)

// GroupsHandler 用户组与成员关系处理器
type GroupsHandler struct {
	config *config.Config
	db     database.DatabaseInterface
	log    logrus.FieldLogger
}

func NewGroupsHandler(cfg *config.Config, db database.DatabaseInterface, log logrus.FieldLogger) *GroupsHandler {
	return &GroupsHandler{config: cfg, db: db, log: log}
}

// GET /usergroups
func (h *GroupsHandler) List(w http.ResponseWriter, r *http.Request) {
	groups, err := h.db.ListGroups(r.Context())
	if err != nil {
		writeStoreError(w, h.log, err, "group")
		return
	}
	utils.WriteSuccessResponse(w, groups)
}

// GET /usergroups/{id}
func (h *GroupsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	group, err := h.db.GetGroup(r.Context(), id)
	if err != nil {
		writeStoreError(w, h.log, err, "group")
		return
	}
	utils.WriteSuccessResponse(w, group)
}

// POST /usergroups
func (h *GroupsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.GroupRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if blank(req.Name) {
		utils.WriteValidationErrorResponse(w, "Group name is required", "")
		return
	}

	group := &models.Group{Name: strings.TrimSpace(*req.Name)}
	if req.Description != nil {
		group.Description = *req.Description
	}
	if err := h.db.CreateGroup(r.Context(), group); err != nil {
		writeStoreError(w, h.log, err, "group")
		return
	}
	utils.WriteCreatedResponse(w, group)
}

// PUT /usergroups/{id}
func (h *GroupsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	var req models.GroupRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name != nil && blank(req.Name) {
		utils.WriteValidationErrorResponse(w, "Group name must not be empty", "")
		return
	}

	group, err := h.db.UpdateGroup(r.Context(), id, models.GroupPatch{
		Name:        trimmed(req.Name),
		Description: req.Description,
	})
	if err != nil {
		writeStoreError(w, h.log, err, "group")
		return
	}
	utils.WriteSuccessResponse(w, group)
}

// DELETE /usergroups/{id}
func (h *GroupsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	if err := h.db.DeleteGroup(r.Context(), id); err != nil {
		writeStoreError(w, h.log, err, "group")
		return
	}
	utils.WriteNoContentResponse(w)
}

// GET /usergroups/{id}/users
func (h *GroupsHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	members, err := h.db.ListGroupMembers(r.Context(), id)
	if err != nil {
		writeStoreError(w, h.log, err, "group")
		return
	}
	utils.WriteSuccessResponse(w, members)
}

// POST /usergroups/{id}/users/{userId}
func (h *GroupsHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	groupID, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	userID, ok := parseID(w, r, "userId")
	if !ok {
		return
	}

	membership, err := h.db.AddMember(r.Context(), groupID, userID)
	if err != nil {
		writeStoreError(w, h.log, err, "user or group")
		return
	}
	h.log.WithFields(logrus.Fields{"group_id": groupID, "user_id": userID}).Info("member added")
	utils.WriteCreatedResponse(w, membership)
}

// DELETE /usergroups/{id}/users/{userId}
func (h *GroupsHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	groupID, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	userID, ok := parseID(w, r, "userId")
	if !ok {
		return
	}

	if err := h.db.RemoveMember(r.Context(), groupID, userID); err != nil {
		writeStoreError(w, h.log, err, "user or group")
		return
	}
	h.log.WithFields(logrus.Fields{"group_id": groupID, "user_id": userID}).Info("member removed")
	utils.WriteNoContentResponse(w)
}
