package usecase

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/shopspring/decimal"
)

type ProductUsecase struct {
	tx           repo.TransactionManager
	productRepo  repo.ProductRepository
	categoryRepo repo.CategoryRepository
}

// DI
func NewProductUsecase(
	tx repo.TransactionManager,
	productRepo repo.ProductRepository,
	categoryRepo repo.CategoryRepository,
) *ProductUsecase {
	return &ProductUsecase{
		tx:           tx,
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
	}
}

// GET /productsの入力DTO
type ListProductsInput struct {
	Page       int
	Limit      int
	Q          string
	CategoryID *int64
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	Sort       string
}

type ProductListOutput struct {
	Items []model.Product `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

func (u *ProductUsecase) ListPublicProducts(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	if in.Page < 1 {
		return ProductListOutput{}, NewValidationError("invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return ProductListOutput{}, NewValidationError("invalid limit")
	}
	if len(in.Q) > 100 {
		return ProductListOutput{}, NewValidationError("q too long")
	}
	if in.MinPrice != nil && in.MinPrice.IsNegative() {
		return ProductListOutput{}, NewValidationError("min_price must be >= 0")
	}
	if in.MaxPrice != nil && in.MaxPrice.IsNegative() {
		return ProductListOutput{}, NewValidationError("max_price must be >= 0")
	}
	if in.MinPrice != nil && in.MaxPrice != nil && in.MinPrice.GreaterThan(*in.MaxPrice) {
		return ProductListOutput{}, NewValidationError("min_price must be <= max_price")
	}
	switch in.Sort {
	case "", "new", "price_asc", "price_desc":
	default:
		return ProductListOutput{}, NewValidationError("invalid sort")
	}

	items, total, err := u.productRepo.ListPublic(ctx, repo.ProductListQuery{
		Page:       in.Page,
		Limit:      in.Limit,
		Q:          strings.TrimSpace(in.Q),
		CategoryID: in.CategoryID,
		MinPrice:   in.MinPrice,
		MaxPrice:   in.MaxPrice,
		Sort:       in.Sort,
	})
	if err != nil {
		return ProductListOutput{}, NewInternalError(err)
	}

	return ProductListOutput{
		Items: items,
		Total: total,
		Page:  in.Page,
		Limit: in.Limit,
	}, nil
}

func (u *ProductUsecase) GetProductDetail(ctx context.Context, productID int64) (model.Product, error) {
	if productID <= 0 {
		return model.Product{}, NewValidationError("invalid product id")
	}

	p, err := u.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, NewNotFoundError("product")
	}
	if err != nil {
		return model.Product{}, NewInternalError(err)
	}

	if !p.IsActive {
		return model.Product{}, NewNotFoundError("product")
	}
	return p, nil
}

func (u *ProductUsecase) ListCategories(ctx context.Context) ([]model.Category, error) {
	list, err := u.categoryRepo.List(ctx, true)
	if err != nil {
		return nil, NewInternalError(err)
	}
	return list, nil
}

type VariantInput struct {
	Size          string
	StockQuantity int64
}

type AdminProductInput struct {
	CategoryID  *int64
	Name        string
	SKU         string
	Description string
	Price       decimal.Decimal
	WeightGrams int64
	TrackStock  bool
	IsActive    bool
	// 作成時のみ使う
	Variants []VariantInput
}

func (in AdminProductInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return NewValidationError("name required")
	}
	if sku := strings.TrimSpace(in.SKU); sku == "" || len(sku) > 100 {
		return NewValidationError("invalid sku")
	}
	if in.Price.IsNegative() {
		return NewValidationError("price must be >= 0")
	}
	if !in.Price.Equal(in.Price.Round(2)) {
		return NewValidationError("price must have at most 2 decimal places")
	}
	if in.WeightGrams < 0 {
		return NewValidationError("weight_grams must be >= 0")
	}
	return nil
}

func (u *ProductUsecase) AdminCreateProduct(ctx context.Context, p model.Principal, in AdminProductInput) (model.Product, error) {
	if !p.IsAdmin() {
		return model.Product{}, NewForbiddenError("admin only")
	}
	if err := in.validate(); err != nil {
		return model.Product{}, err
	}

	seen := map[string]bool{}
	variants := make([]model.SizeVariant, 0, len(in.Variants))
	for _, v := range in.Variants {
		size := strings.TrimSpace(v.Size)
		if size == "" {
			return model.Product{}, NewValidationError("size required")
		}
		if seen[strings.ToLower(size)] {
			return model.Product{}, NewValidationError("duplicate size %q", size)
		}
		seen[strings.ToLower(size)] = true
		if v.StockQuantity < 0 {
			return model.Product{}, NewValidationError("stock must be >= 0")
		}
		variants = append(variants, model.SizeVariant{Size: size, StockQuantity: v.StockQuantity})
	}
	if in.TrackStock && len(variants) == 0 {
		return model.Product{}, NewValidationError("stock tracked product needs at least one size")
	}

	if err := u.checkCategory(ctx, in.CategoryID); err != nil {
		return model.Product{}, err
	}

	created, err := u.productRepo.Create(ctx, model.Product{
		CategoryID:   in.CategoryID,
		Name:         strings.TrimSpace(in.Name),
		SKU:          strings.TrimSpace(in.SKU),
		Description:  in.Description,
		Price:        in.Price,
		WeightGrams:  in.WeightGrams,
		TrackStock:   in.TrackStock,
		IsActive:     in.IsActive,
		SizeVariants: variants,
	})
	if errors.Is(err, repo.ErrConflict) {
		return model.Product{}, NewConflictError("sku already exists")
	}
	if err != nil {
		return model.Product{}, NewInternalError(err)
	}
	return created, nil
}

func (u *ProductUsecase) AdminUpdateProduct(ctx context.Context, p model.Principal, productID int64, in AdminProductInput) error {
	if !p.IsAdmin() {
		return NewForbiddenError("admin only")
	}
	if productID <= 0 {
		return NewValidationError("invalid product id")
	}
	if err := in.validate(); err != nil {
		return err
	}
	if err := u.checkCategory(ctx, in.CategoryID); err != nil {
		return err
	}

	err := u.productRepo.Update(ctx, model.Product{
		ID:          productID,
		CategoryID:  in.CategoryID,
		Name:        strings.TrimSpace(in.Name),
		SKU:         strings.TrimSpace(in.SKU),
		Description: in.Description,
		Price:       in.Price,
		WeightGrams: in.WeightGrams,
		TrackStock:  in.TrackStock,
		IsActive:    in.IsActive,
	})
	if errors.Is(err, repo.ErrNotFound) {
		return NewNotFoundError("product")
	}
	if errors.Is(err, repo.ErrConflict) {
		return NewConflictError("sku already exists")
	}
	if err != nil {
		return NewInternalError(err)
	}
	return nil
}

// 論理削除。過去の注文明細はスナップショットなので影響しない
func (u *ProductUsecase) AdminDeleteProduct(ctx context.Context, p model.Principal, productID int64) error {
	if !p.IsAdmin() {
		return NewForbiddenError("admin only")
	}
	if productID <= 0 {
		return NewValidationError("invalid product id")
	}

	err := u.productRepo.SoftDelete(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return NewNotFoundError("product")
	}
	if err != nil {
		return NewInternalError(err)
	}
	return nil
}

// AdminSetVariantStock は在庫の現在値を設定し、調整履歴と監査ログも同じTxで残す。
func (u *ProductUsecase) AdminSetVariantStock(ctx context.Context, p model.Principal, variantID int64, newStock int64, reason string) (model.SizeVariant, error) {
	if !p.IsAdmin() {
		return model.SizeVariant{}, NewForbiddenError("admin only")
	}
	if variantID <= 0 {
		return model.SizeVariant{}, NewValidationError("invalid variant id")
	}
	if newStock < 0 {
		return model.SizeVariant{}, NewValidationError("stock must be >= 0")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" || len(reason) > 255 {
		return model.SizeVariant{}, NewValidationError("reason required")
	}

	var out model.SizeVariant
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//変更前の在庫（before）
		v, err := r.Inventory().FindVariant(ctx, variantID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewNotFoundError("size variant")
		}
		if err != nil {
			return NewInternalError(err)
		}

		if err := r.Inventory().SetStock(ctx, variantID, newStock); err != nil {
			return NewInternalError(err)
		}

		//履歴を作成（差分）
		if err := r.Inventory().CreateAdjustment(ctx, model.InventoryAdjustment{
			SizeVariantID: variantID,
			ProductID:     v.ProductID,
			AdminUserID:   p.UserID,
			Delta:         newStock - v.StockQuantity,
			Reason:        reason,
		}); err != nil {
			return NewInternalError(err)
		}

		//監査ログを作成（在庫更新）
		entry := model.NewAuditLog(p.UserID, model.AuditActionUpdateStock, model.AuditResourceSizeVariant, variantID,
			model.AuditState{"stock_quantity": v.StockQuantity},
			model.AuditState{"stock_quantity": newStock},
		)
		if err := r.AuditLogs().Create(ctx, entry); err != nil {
			return NewInternalError(err)
		}

		v.StockQuantity = newStock
		out = v
		return nil
	})
	if err != nil {
		return model.SizeVariant{}, err
	}
	return out, nil
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

type AdminCategoryInput struct {
	Name     string
	Slug     string
	IsActive bool
}

func (u *ProductUsecase) AdminCreateCategory(ctx context.Context, p model.Principal, in AdminCategoryInput) (model.Category, error) {
	if !p.IsAdmin() {
		return model.Category{}, NewForbiddenError("admin only")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Category{}, NewValidationError("name required")
	}
	slug := strings.ToLower(strings.TrimSpace(in.Slug))
	if !slugPattern.MatchString(slug) {
		return model.Category{}, NewValidationError("invalid slug")
	}

	c, err := u.categoryRepo.Create(ctx, model.Category{Name: name, Slug: slug, IsActive: in.IsActive})
	if errors.Is(err, repo.ErrConflict) {
		return model.Category{}, NewConflictError("slug already exists")
	}
	if err != nil {
		return model.Category{}, NewInternalError(err)
	}
	return c, nil
}

func (u *ProductUsecase) checkCategory(ctx context.Context, id *int64) error {
	if id == nil {
		return nil
	}
	_, err := u.categoryRepo.FindByID(ctx, *id)
	if errors.Is(err, repo.ErrNotFound) {
		return NewValidationError("category %d does not exist", *id)
	}
	if err != nil {
		return NewInternalError(err)
	}
	return nil
}
