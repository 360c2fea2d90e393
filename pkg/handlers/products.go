package handlers

import (
	"net/http"
	"strings"

	"modular-shop-backend/pkg/config"
	"modular-shop-backend/pkg/database"
	"modular-shop-backend/pkg/models"
	"modular-shop-backend/pkg/utils"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ProductsHandler 商品处理器
type ProductsHandler struct {
	config *config.Config
	db     database.DatabaseInterface
	log    logrus.FieldLogger
}

func NewProductsHandler(cfg *config.Config, db database.DatabaseInterface, log logrus.FieldLogger) *ProductsHandler {
	return &ProductsHandler{config: cfg, db: db, log: log}
}

// GET /products
func (h *ProductsHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.db.ListProducts(r.Context())
	if err != nil {
		writeStoreError(w, h.log, err, "product")
		return
	}
	utils.WriteSuccessResponse(w, products)
}

// GET /products/{id}
func (h *ProductsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	product, err := h.db.GetProduct(r.Context(), id)
	if err != nil {
		writeStoreError(w, h.log, err, "product")
		return
	}
	utils.WriteSuccessResponse(w, product)
}

// POST /products
func (h *ProductsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.ProductRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if blank(req.Name) {
		utils.WriteValidationErrorResponse(w, "Product name is required", "")
		return
	}
	if req.Price == nil {
		utils.WriteValidationErrorResponse(w, "Product price is required", "")
		return
	}
	if !validPrice(w, *req.Price) {
		return
	}

	product := &models.Product{
		Name:  strings.TrimSpace(*req.Name),
		Price: *req.Price,
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Category != nil {
		product.Category = strings.TrimSpace(*req.Category)
	}

	if err := h.db.CreateProduct(r.Context(), product); err != nil {
		writeStoreError(w, h.log, err, "product")
		return
	}
	utils.WriteCreatedResponse(w, product)
}

// PUT /products/{id}
// 只修改请求中出现的字段
func (h *ProductsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	var req models.ProductRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name != nil && blank(req.Name) {
		utils.WriteValidationErrorResponse(w, "Product name must not be empty", "")
		return
	}
	if req.Price != nil && !validPrice(w, *req.Price) {
		return
	}

	patch := models.ProductPatch{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		patch.Name = &name
	}

	product, err := h.db.UpdateProduct(r.Context(), id, patch)
	if err != nil {
		writeStoreError(w, h.log, err, "product")
		return
	}
	utils.WriteSuccessResponse(w, product)
}

// DELETE /products/{id}
func (h *ProductsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	if err := h.db.DeleteProduct(r.Context(), id); err != nil {
		writeStoreError(w, h.log, err, "product")
		return
	}
	utils.WriteNoContentResponse(w)
}

// validPrice 价格不能为负，且最多两位小数（与 NUMERIC(12,2) 列一致）
func validPrice(w http.ResponseWriter, price decimal.Decimal) bool {
	if price.IsNegative() {
		utils.WriteValidationErrorResponse(w, "Product price must not be negative", "")
		return false
	}
	if !price.Equal(price.Round(2)) {
		utils.WriteValidationErrorResponse(w, "Product price must have at most 2 decimal places", price.String())
		return false
	}
	return true
}
