package handlers

import (
	"net/http"
	"strings"
	"time"

	"modular-shop-backend/pkg/config"
	"modular-shop-backend/pkg/database"
	"modular-shop-backend/pkg/models"
	"modular-shop-backend/pkg/utils"

	"github.com/sirupsen/logrus"
)

// CustomersHandler 客户处理器
type CustomersHandler struct {
	config *config.Config
	db     database.DatabaseInterface
	log    logrus.FieldLogger
}

func NewCustomersHandler(cfg *config.Config, db database.DatabaseInterface, log logrus.FieldLogger) *CustomersHandler {
	return &CustomersHandler{config: cfg, db: db, log: log}
}

// GET /customers
func (h *CustomersHandler) List(w http.ResponseWriter, r *http.Request) {
	customers, err := h.db.ListCustomers(r.Context())
	if err != nil {
		writeStoreError(w, h.log, err, "customer")
		return
	}
	utils.WriteSuccessResponse(w, customers)
}

// GET /customers/{id}
func (h *CustomersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	customer, err := h.db.GetCustomer(r.Context(), id)
	if err != nil {
		writeStoreError(w, h.log, err, "customer")
		return
	}
	utils.WriteSuccessResponse(w, customer)
}

// POST /customers
func (h *CustomersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CustomerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if blank(req.Name) || blank(req.Email) {
		utils.WriteValidationErrorResponse(w, "Customer name and email are required", "")
		return
	}
	email := strings.TrimSpace(*req.Email)
	if !validEmail(email) {
		utils.WriteValidationErrorResponse(w, "Invalid email format", "")
		return
	}

	customer := &models.Customer{
		Name:           strings.TrimSpace(*req.Name),
		Email:          email,
		RegisteredDate: time.Now().UTC(),
	}
	if req.RegisteredDate != nil {
		customer.RegisteredDate = req.RegisteredDate.UTC()
	}

	if err := h.db.CreateCustomer(r.Context(), customer); err != nil {
		writeStoreError(w, h.log, err, "customer")
		return
	}
	utils.WriteCreatedResponse(w, customer)
}

// PUT /customers/{id}
func (h *CustomersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	var req models.CustomerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name != nil && blank(req.Name) {
		utils.WriteValidationErrorResponse(w, "Customer name must not be empty", "")
		return
	}
	if req.Email != nil && !validEmail(strings.TrimSpace(*req.Email)) {
		utils.WriteValidationErrorResponse(w, "Invalid email format", "")
		return
	}

	customer, err := h.db.UpdateCustomer(r.Context(), id, models.CustomerPatch{
		Name:           trimmed(req.Name),
		Email:          trimmed(req.Email),
		RegisteredDate: req.RegisteredDate,
	})
	if err != nil {
		writeStoreError(w, h.log, err, "customer")
		return
	}
	utils.WriteSuccessResponse(w, customer)
}

// DELETE /customers/{id}
// 仍有订单的客户不可删除（409）
func (h *CustomersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	if err := h.db.DeleteCustomer(r.Context(), id); err != nil {
		writeStoreError(w, h.log, err, "customer")
		return
	}
	utils.WriteNoContentResponse(w)
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
