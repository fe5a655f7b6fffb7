package handler

import (
	"net/http"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type SuccessResponse struct {
	Message string `json:"message"`
}

type VariantRequest struct {
	Size          string `json:"size" validate:"required,notblank,max=20"`
	StockQuantity int64  `json:"stock_quantity" validate:"gte=0"`
}

type ProductRequest struct {
	CategoryID  *int64           `json:"category_id"`
	Name        string           `json:"name" validate:"required,notblank,max=255"`
	SKU         string           `json:"sku" validate:"required,notblank,max=100"`
	Description string           `json:"description"`
	Price       decimal.Decimal  `json:"price"`
	WeightGrams int64            `json:"weight_grams" validate:"gte=0"`
	TrackStock  bool             `json:"track_stock"`
	IsActive    bool             `json:"is_active"`
	Variants    []VariantRequest `json:"variants" validate:"dive"`
}

func (r ProductRequest) toInput() usecase.AdminProductInput {
	in := usecase.AdminProductInput{
		CategoryID:  r.CategoryID,
		Name:        r.Name,
		SKU:         r.SKU,
		Description: r.Description,
		Price:       r.Price,
		WeightGrams: r.WeightGrams,
		TrackStock:  r.TrackStock,
		IsActive:    r.IsActive,
	}
	for _, v := range r.Variants {
		in.Variants = append(in.Variants, usecase.VariantInput{Size: v.Size, StockQuantity: v.StockQuantity})
	}
	return in
}

// 在庫更新の入力
type StockUpdateRequest struct {
	Stock  *int64 `json:"stock" validate:"required,gte=0"`
	Reason string `json:"reason" validate:"required,notblank,max=255"`
}

type CategoryRequest struct {
	Name     string `json:"name" validate:"required,notblank,max=100"`
	Slug     string `json:"slug" validate:"required,max=100"`
	IsActive bool   `json:"is_active"`
}

// /admin/products /admin/variants /admin/categories をまとめる
type AdminProductHandler struct {
	uc *usecase.ProductUsecase
}

// DI
func NewAdminProductHandler(uc *usecase.ProductUsecase) *AdminProductHandler {
	return &AdminProductHandler{uc: uc}
}

// adminを登録
func (h *AdminProductHandler) RegisterRoutes(e *echo.Echo, admin []echo.MiddlewareFunc) {
	g := e.Group("/admin", admin...)

	g.POST("/products", h.createProduct)
	g.PUT("/products/:id", h.updateProduct)
	g.DELETE("/products/:id", h.deleteProduct)
	g.PUT("/variants/:id/stock", h.updateStock)
	g.POST("/categories", h.createCategory)
}

func (h *AdminProductHandler) createProduct(c echo.Context) error {
	p, ok := getPrincipal(c)
	if !ok {
		return unauthorized(c)
	}

	var req ProductRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	created, err := h.uc.AdminCreateProduct(c.Request().Context(), p, req.toInput())
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, created)
}

func (h *AdminProductHandler) updateProduct(c echo.Context) error {
	p, ok := getPrincipal(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req ProductRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	if err := h.uc.AdminUpdateProduct(c.Request().Context(), p, id, req.toInput()); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{Message: "updated"})
}

func (h *AdminProductHandler) deleteProduct(c echo.Context) error {
	p, ok := getPrincipal(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	if err := h.uc.AdminDeleteProduct(c.Request().Context(), p, id); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

func (h *AdminProductHandler) updateStock(c echo.Context) error {
	p, ok := getPrincipal(c)
	if !ok {
		return unauthorized(c)
	}
	variantID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req StockUpdateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	v, err := h.uc.AdminSetVariantStock(c.Request().Context(), p, variantID, *req.Stock, req.Reason)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, v)
}

func (h *AdminProductHandler) createCategory(c echo.Context) error {
	p, ok := getPrincipal(c)
	if !ok {
		return unauthorized(c)
	}

	var req CategoryRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	cat, err := h.uc.AdminCreateCategory(c.Request().Context(), p, usecase.AdminCategoryInput{
		Name:     req.Name,
		Slug:     req.Slug,
		IsActive: req.IsActive,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, cat)
}
