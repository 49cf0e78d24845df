package service

import (
	"context"
	"log/slog"
	"net/url"

	"catalog/internal/model"
	"catalog/internal/pricing"
	"catalog/internal/repository"
	"catalog/internal/storage"
	"catalog/pkg/optional"
	"catalog/pkg/pagination"

	"github.com/shopspring/decimal"
)

// --- DTOs ---

// CategoryPayload is used for both create and update. On update only the
// fields that were sent are applied.
type CategoryPayload struct {
	Name        optional.Value[string] `json:"name"`
	Description optional.Value[string] `json:"description"`
	Image       *storage.Upload        `json:"-"`
}

// ProductPayload is used for both create and update. On update only the
// fields that were sent are applied.
type ProductPayload struct {
	Name                  optional.Value[string]          `json:"name"`
	Description           optional.Value[string]          `json:"description"`
	ProductNumber         optional.Value[string]          `json:"product_number"`
	Price                 optional.Value[decimal.Decimal] `json:"price"`
	Discount              optional.Value[decimal.Decimal] `json:"discount"`
	ManufacturingMaterial optional.Value[string]          `json:"manufacturing_material"`
	ManufacturingCountry  optional.Value[string]          `json:"manufacturing_country"`
	StockQuantity         optional.Value[int]             `json:"stock_quantity"`
	IsAvailable           optional.Value[bool]            `json:"is_available"`
	CategoryID            optional.Value[uint]            `json:"category_id"`
	Image                 *storage.Upload                 `json:"-"`
	Images                []storage.Upload                `json:"-"`
}

type ProductImagesRequest struct {
	Images  []storage.Upload
	AltText optional.Value[string]
}

type UpdateProductImageRequest struct {
	Image   *storage.Upload
	AltText optional.Value[string]
}

type ProductUploadRequest struct {
	Image  *storage.Upload
	Images []storage.Upload
}

// ProductListQuery is a parsed product listing request.
type ProductListQuery struct {
	Filter repository.ProductFilter
	Page   int
	Path   string
	Query  url.Values
}

type CategoryResponse struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	ImageURL    *string `json:"image_url"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

type ProductImageResponse struct {
	ID        uint   `json:"id"`
	ProductID uint   `json:"product_id"`
	ImageURL  string `json:"image_url"`
	AltText   string `json:"alt_text"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type ProductResponse struct {
	ID                    uint                   `json:"id"`
	Name                  string                 `json:"name"`
	Description           string                 `json:"description"`
	ProductNumber         string                 `json:"product_number"`
	Price                 decimal.Decimal        `json:"price"`
	Discount              decimal.Decimal        `json:"discount"`
	FinalPrice            decimal.Decimal        `json:"final_price"`
	ManufacturingMaterial *string                `json:"manufacturing_material"`
	ManufacturingCountry  *string                `json:"manufacturing_country"`
	StockQuantity         int                    `json:"stock_quantity"`
	IsAvailable           bool                   `json:"is_available"`
	CategoryID            uint                   `json:"category_id"`
	ImageURL              *string                `json:"image_url"`
	Category              *CategoryResponse      `json:"category,omitempty"`
	ProductImages         []ProductImageResponse `json:"product_images"`
	UploadFailures        []GalleryFailure       `json:"upload_failures,omitempty"`
	CreatedAt             string                 `json:"created_at"`
	UpdatedAt             string                 `json:"updated_at"`
}

// GalleryResponse lists the gallery entries created by a batch upload and
// the files that were rejected.
type GalleryResponse struct {
	Data   []ProductImageResponse `json:"data"`
	Failed []GalleryFailure       `json:"failed,omitempty"`
}

// ProductUploadResponse is the result of a dedicated image upload.
type ProductUploadResponse struct {
	ImageURL      *string                `json:"image_url"`
	ProductImages []ProductImageResponse `json:"product_images"`
	Failed        []GalleryFailure       `json:"failed,omitempty"`
	Product       ProductResponse        `json:"product"`
}

// --- Interface ---

type CatalogService interface {
	ListCategories(ctx context.Context, actor uint) ([]CategoryResponse, error)
	GetCategory(ctx context.Context, actor, id uint) (*CategoryResponse, error)
	CreateCategory(ctx context.Context, actor uint, req CategoryPayload) (*CategoryResponse, error)
	UpdateCategory(ctx context.Context, actor, id uint, req CategoryPayload) (*CategoryResponse, error)
	DeleteCategory(ctx context.Context, actor, id uint) error

	ListProducts(ctx context.Context, actor uint, q ProductListQuery) (*pagination.Page[ProductResponse], error)
	GetProduct(ctx context.Context, actor, id uint) (*ProductResponse, error)
	CreateProduct(ctx context.Context, actor uint, req ProductPayload) (*ProductResponse, error)
	UpdateProduct(ctx context.Context, actor, id uint, req ProductPayload) (*ProductResponse, error)
	DeleteProduct(ctx context.Context, actor, id uint) error
	UploadProductImages(ctx context.Context, actor, id uint, req ProductUploadRequest) (*ProductUploadResponse, error)

	ListProductImages(ctx context.Context, actor, productID uint) ([]ProductImageResponse, error)
	AddProductImages(ctx context.Context, actor, productID uint, req ProductImagesRequest) (*GalleryResponse, error)
	GetProductImage(ctx context.Context, actor, productID, imageID uint) (*ProductImageResponse, error)
	UpdateProductImage(ctx context.Context, actor, productID, imageID uint, req UpdateProductImageRequest) (*ProductImageResponse, error)
	DeleteProductImage(ctx context.Context, actor, productID, imageID uint) error
}

// CatalogDeps groups the collaborators of the catalog service.
type CatalogDeps struct {
	Categories repository.CategoryRepository
	Products   repository.ProductRepository
	Images     repository.ProductImageRepository
	Audit      repository.AuditRepository
	Tx         repository.TransactionManager
	Authz      Authorizer
	Media      *MediaManager
	Events     EventPublisher
	Log        *slog.Logger
}

type catalogService struct {
	categories repository.CategoryRepository
	products   repository.ProductRepository
	images     repository.ProductImageRepository
	audit      repository.AuditRepository
	tx         repository.TransactionManager
	authz      Authorizer
	media      *MediaManager
	events     EventPublisher
	log        *slog.Logger
}

func NewCatalogService(d CatalogDeps) CatalogService {
	if d.Events == nil {
		d.Events = noopPublisher{}
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	return &catalogService{
		categories: d.Categories,
		products:   d.Products,
		images:     d.Images,
		audit:      d.Audit,
		tx:         d.Tx,
		authz:      d.Authz,
		media:      d.Media,
		events:     d.Events,
		log:        d.Log,
	}
}

// --- Mapping ---

func (s *catalogService) toCategoryResponse(c *model.Category) CategoryResponse {
	return CategoryResponse{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		ImageURL:    s.media.URLPtr(c.ImagePath),
		CreatedAt:   formatTime(c.CreatedAt),
		UpdatedAt:   formatTime(c.UpdatedAt),
	}
}

func (s *catalogService) toImageResponse(img *model.ProductImage) ProductImageResponse {
	return ProductImageResponse{
		ID:        img.ID,
		ProductID: img.ProductID,
		ImageURL:  s.media.URL(img.ImagePath),
		AltText:   img.AltText,
		CreatedAt: formatTime(img.CreatedAt),
		UpdatedAt: formatTime(img.UpdatedAt),
	}
}

func (s *catalogService) toImageResponses(images []model.ProductImage) []ProductImageResponse {
	res := make([]ProductImageResponse, 0, len(images))
	for i := range images {
		res = append(res, s.toImageResponse(&images[i]))
	}
	return res
}

func (s *catalogService) toProductResponse(p *model.Product) ProductResponse {
	res := ProductResponse{
		ID:                    p.ID,
		Name:                  p.Name,
		Description:           p.Description,
		ProductNumber:         p.ProductNumber,
		Price:                 p.Price,
		Discount:              p.Discount,
		FinalPrice:            pricing.FinalPrice(p.Price, p.Discount),
		ManufacturingMaterial: p.ManufacturingMaterial,
		ManufacturingCountry:  p.ManufacturingCountry,
		StockQuantity:         p.StockQuantity,
		IsAvailable:           p.IsAvailable,
		CategoryID:            p.CategoryID,
		ImageURL:              s.media.URLPtr(p.ImagePath),
		ProductImages:         s.toImageResponses(p.Images),
		CreatedAt:             formatTime(p.CreatedAt),
		UpdatedAt:             formatTime(p.UpdatedAt),
	}
	if p.Category != nil {
		c := s.toCategoryResponse(p.Category)
		res.Category = &c
	}
	return res
}
