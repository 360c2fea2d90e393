package handlers

import (
	"net/http"

	"modular-shop-backend/pkg/config"
	"modular-shop-backend/pkg/database"
	"modular-shop-backend/pkg/models"
	"modular-shop-backend/pkg/utils"

	"github.com/sirupsen/logrus"
)

// OrdersHandler 订单处理器
type OrdersHandler struct {
	config *config.Config
	db     database.DatabaseInterface
	log    logrus.FieldLogger
}

func NewOrdersHandler(cfg *config.Config, db database.DatabaseInterface, log logrus.FieldLogger) *OrdersHandler {
	return &OrdersHandler{config: cfg, db: db, log: log}
}

// GET /orders
func (h *OrdersHandler) List(w http.ResponseWriter, r *http.Request) {
	orders, err := h.db.ListOrders(r.Context())
	if err != nil {
		writeStoreError(w, h.log, err, "order")
		return
	}
	utils.WriteSuccessResponse(w, orders)
}

// GET /orders/{id}
func (h *OrdersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	order, err := h.db.GetOrder(r.Context(), id)
	if err != nil {
		writeStoreError(w, h.log, err, "order")
		return
	}
	utils.WriteSuccessResponse(w, order)
}

// POST /orders
// 总额由服务端按商品当前单价计算，请求中的金额字段被忽略
func (h *OrdersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.OrderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.CustomerID == nil || req.ProductID == nil || req.Quantity == nil {
		utils.WriteValidationErrorResponse(w, "customer_id, product_id and quantity are required", "")
		return
	}
	if *req.Quantity <= 0 {
		utils.WriteValidationErrorResponse(w, "Quantity must be greater than zero", "")
		return
	}

	in := models.OrderInput{
		CustomerID: *req.CustomerID,
		ProductID:  *req.ProductID,
		Quantity:   *req.Quantity,
	}
	if req.OrderDate != nil {
		in.OrderDate = *req.OrderDate
	}

	order, err := h.db.CreateOrder(r.Context(), in)
	if err != nil {
		writeStoreError(w, h.log, err, "order")
		return
	}
	utils.WriteCreatedResponse(w, order)
}

// PUT /orders/{id}
func (h *OrdersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	var req models.OrderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Quantity != nil && *req.Quantity <= 0 {
		utils.WriteValidationErrorResponse(w, "Quantity must be greater than zero", "")
		return
	}

	order, err := h.db.UpdateOrder(r.Context(), id, models.OrderPatch{
		CustomerID: req.CustomerID,
		ProductID:  req.ProductID,
		Quantity:   req.Quantity,
		OrderDate:  req.OrderDate,
	})
	if err != nil {
		writeStoreError(w, h.log, err, "order")
		return
	}
	utils.WriteSuccessResponse(w, order)
}

// DELETE /orders/{id}
func (h *OrdersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	if err := h.db.DeleteOrder(r.Context(), id); err != nil {
		writeStoreError(w, h.log, err, "order")
		return
	}
	utils.WriteNoContentResponse(w)
}
