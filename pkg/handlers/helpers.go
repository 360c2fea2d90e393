package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"modular-shop-backend/pkg/database"
	"modular-shop-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// parseID 解析路径中的正整数ID，失败时写入400
func parseID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	raw := chi.URLParam(r, param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		utils.WriteBadRequestResponse(w, "Invalid "+param+": must be a positive integer")
		return 0, false
	}
	return id, true
}

// decodeBody 解析JSON请求体，失败时写入400
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	err := utils.ParseJSONBody(r, v)
	if err == nil {
		return true
	}

	var maxErr *http.MaxBytesError
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &maxErr):
		utils.WriteBadRequestResponse(w, "Request body too large")
	case errors.Is(err, io.EOF):
		utils.WriteBadRequestResponse(w, "Request body is required")
	case errors.As(err, &typeErr):
		utils.WriteValidationErrorResponse(w, "Invalid value for field "+typeErr.Field, "")
	case errors.As(err, &syntaxErr):
		utils.WriteBadRequestResponse(w, "Malformed JSON")
	default:
		utils.WriteBadRequestResponse(w, "Invalid request body")
	}
	return false
}

// writeStoreError 将存储层错误映射为响应
func writeStoreError(w http.ResponseWriter, log logrus.FieldLogger, err error, what string) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		utils.WriteNotFoundResponse(w, what+" not found")
	case errors.Is(err, database.ErrDuplicate):
		utils.WriteValidationErrorResponse(w, what+" already exists", err.Error())
	case errors.Is(err, database.ErrAlreadyMember):
		utils.WriteValidationErrorResponse(w, "User is already a member of this group", "")
	case errors.Is(err, database.ErrNotMember):
		utils.WriteNotFoundResponse(w, "User is not a member of this group")
	case errors.Is(err, database.ErrInvalidReference):
		utils.WriteReferenceErrorResponse(w, "Referenced record does not exist: "+err.Error())
	case errors.Is(err, database.ErrInUse):
		utils.WriteConflictResponse(w, what+" is referenced by existing orders")
	default:
		log.WithError(err).WithField("resource", what).Error("store operation failed")
		utils.WriteInternalServerErrorResponse(w, "Internal server error occurred")
	}
}

// blank 判断可选字符串字段是否为空
func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

// validEmail 只做最基本的格式校验
func validEmail(email string) bool {
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t\r\n")
}
