package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"catalog/internal/authz"
	"catalog/internal/model"
	"catalog/internal/repository"
	"catalog/internal/storage"
	"catalog/pkg/apperror"
	"catalog/pkg/pagination"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	// maxPrice is the largest value a decimal(12,2) price column holds.
	maxPrice = decimal.RequireFromString("9999999999.99")
)

func hasAtMostTwoDecimals(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(2))
}

// validateProduct checks req against the current product, or against an
// empty one when current is nil (create).
func (s *catalogService) validateProduct(ctx context.Context, req ProductPayload, current *model.Product) error {
	creating := current == nil
	ve := &apperror.ValidationError{}

	requiredString := func(field string, v interface {
		Get() (string, bool)
		IsSet() bool
	}, max int) {
		if val, ok := v.Get(); ok && strings.TrimSpace(val) != "" {
			if max > 0 && len(val) > max {
				ve.Add(field, msgMax(field, max))
			}
			return
		}
		if creating || v.IsSet() {
			ve.Add(field, msgRequired(field))
		}
	}
	requiredString("name", req.Name, 255)
	requiredString("description", req.Description, 0)
	requiredString("product_number", req.ProductNumber, 255)

	if price, ok := req.Price.Get(); ok {
		switch {
		case price.IsNegative():
			ve.Add("price", msgMin("price", 0))
		case price.GreaterThan(maxPrice):
			ve.Add("price", "The price must not be greater than "+maxPrice.StringFixed(2)+".")
		case !hasAtMostTwoDecimals(price):
			ve.Add("price", "The price must not have more than 2 decimal places.")
		}
	} else if creating || req.Price.IsSet() {
		ve.Add("price", msgRequired("price"))
	}

	if discount, ok := req.Discount.Get(); ok {
		if discount.IsNegative() || discount.GreaterThan(hundred) {
			ve.Add("discount", "The discount must be between 0 and 100.")
		} else if !hasAtMostTwoDecimals(discount) {
			ve.Add("discount", "The discount must not have more than 2 decimal places.")
		}
	}

	for field, v := range map[string]*string{
		"manufacturing_material": req.ManufacturingMaterial.Ptr(),
		"manufacturing_country":  req.ManufacturingCountry.Ptr(),
	} {
		if v != nil && len(*v) > 255 {
			ve.Add(field, msgMax(field, 255))
		}
	}

	if stock, ok := req.StockQuantity.Get(); ok {
		if stock < 0 {
			ve.Add("stock_quantity", msgMin("stock_quantity", 0))
		}
	} else if creating || req.StockQuantity.IsSet() {
		ve.Add("stock_quantity", msgRequired("stock_quantity"))
	}

	if !creating && req.IsAvailable.IsNull() {
		ve.Add("is_available", "The is available field must be true or false.")
	}

	if categoryID, ok := req.CategoryID.Get(); ok && categoryID != 0 {
		exists, err := s.categories.Exists(ctx, categoryID)
		if err != nil {
			return fmt.Errorf("failed to check category: %w", err)
		}
		if !exists {
			ve.Add("category_id", msgInvalid("category_id"))
		}
	} else if creating || req.CategoryID.IsSet() {
		ve.Add("category_id", msgRequired("category_id"))
	}

	if req.Image != nil {
		s.media.ValidateImage(ve, "image", *req.Image)
	}
	for i, f := range req.Images {
		s.media.ValidateImage(ve, "images."+strconv.Itoa(i), f)
	}

	if !ve.Empty() {
		return ve
	}

	if number, ok := req.ProductNumber.Get(); ok {
		existing, err := s.products.FindByNumber(ctx, strings.TrimSpace(number))
		switch {
		case err == nil && (creating || existing.ID != current.ID):
			return apperror.NewConflict("product_number", msgTaken("product_number"))
		case err != nil && !repository.IsNotFound(err):
			return fmt.Errorf("failed to check product number: %w", err)
		}
	}
	return nil
}

// applyProduct copies the fields present in req onto p.
func applyProduct(p *model.Product, req ProductPayload) {
	if v, ok := req.Name.Get(); ok {
		p.Name = strings.TrimSpace(v)
	}
	if v, ok := req.Description.Get(); ok {
		p.Description = v
	}
	if v, ok := req.ProductNumber.Get(); ok {
		p.ProductNumber = strings.TrimSpace(v)
	}
	if v, ok := req.Price.Get(); ok {
		p.Price = v
	}
	if req.Discount.IsSet() {
		p.Discount, _ = req.Discount.Get()
	}
	if req.ManufacturingMaterial.IsSet() {
		p.ManufacturingMaterial = nonEmpty(req.ManufacturingMaterial.Ptr())
	}
	if req.ManufacturingCountry.IsSet() {
		p.ManufacturingCountry = nonEmpty(req.ManufacturingCountry.Ptr())
	}
	if v, ok := req.StockQuantity.Get(); ok {
		p.StockQuantity = v
	}
	if v, ok := req.IsAvailable.Get(); ok {
		p.IsAvailable = v
	}
	if v, ok := req.CategoryID.Get(); ok {
		p.CategoryID = v
	}
}

func duplicateNumber(err error) error {
	if repository.IsDuplicate(err) {
		return apperror.NewConflict("product_number", msgTaken("product_number"))
	}
	return err
}

func (s *catalogService) ListProducts(ctx context.Context, actor uint, q ProductListQuery) (*pagination.Page[ProductResponse], error) {
	if err := s.authz.Authenticate(ctx, actor); err != nil {
		return nil, err
	}

	p := pagination.New(q.Page, pagination.ProductPageSize)
	products, total, err := s.products.List(ctx, repository.BuildProductQuery(q.Filter), p.Offset, p.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}

	items := make([]ProductResponse, 0, len(products))
	for i := range products {
		items = append(items, s.toProductResponse(&products[i]))
	}

	page := pagination.NewPage(items, total, p, q.Path, q.Query)
	return &page, nil
}

func (s *catalogService) GetProduct(ctx context.Context, actor, id uint) (*ProductResponse, error) {
	if err := s.authz.Authenticate(ctx, actor); err != nil {
		return nil, err
	}
	return s.loadProduct(ctx, id)
}

func (s *catalogService) loadProduct(ctx context.Context, id uint) (*ProductResponse, error) {
	product, err := s.products.FindByIDWithRelations(ctx, id)
	if err != nil {
		return nil, notFound(err, "product")
	}
	res := s.toProductResponse(product)
	return &res, nil
}

func (s *catalogService) CreateProduct(ctx context.Context, actor uint, req ProductPayload) (*ProductResponse, error) {
	if err := s.authz.Authorize(ctx, actor, authz.ActionManageCatalog); err != nil {
		return nil, err
	}
	if err := s.validateProduct(ctx, req, nil); err != nil {
		return nil, err
	}

	product := &model.Product{Discount: decimal.Zero, IsAvailable: true}
	applyProduct(product, req)

	commit := func(imagePath string) error {
		if imagePath != "" {
			product.ImagePath = &imagePath
		}
		return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
			if err := s.products.Create(txCtx, product); err != nil {
				return fmt.Errorf("failed to create product: %w", duplicateNumber(err))
			}
			return writeAudit(txCtx, s.audit, actor, model.ActionCreateProduct, product.ID, product.Name, req)
		})
	}

	if err := s.saveWithImage(ctx, product.ImagePath, req.Image, commit); err != nil {
		return nil, err
	}

	failed := s.attachGallery(ctx, actor, product, req.Images)

	res, err := s.loadProduct(ctx, product.ID)
	if err != nil {
		return nil, err
	}
	res.UploadFailures = failed

	s.events.Publish("product.created", product.ID, res)
	return res, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, actor, id uint, req ProductPayload) (*ProductResponse, error) {
	if err := s.authz.Authorize(ctx, actor, authz.ActionManageCatalog); err != nil {
		return nil, err
	}

	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "product")
	}
	if err := s.validateProduct(ctx, req, product); err != nil {
		return nil, err
	}

	applyProduct(product, req)

	commit := func(imagePath string) error {
		if imagePath != "" {
			product.ImagePath = &imagePath
		}
		return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
			if err := s.products.Update(txCtx, product); err != nil {
				return fmt.Errorf("failed to update product: %w", duplicateNumber(err))
			}
			return writeAudit(txCtx, s.audit, actor, model.ActionUpdateProduct, product.ID, product.Name, req)
		})
	}

	if err := s.saveWithImage(ctx, product.ImagePath, req.Image, commit); err != nil {
		return nil, err
	}

	failed := s.attachGallery(ctx, actor, product, req.Images)

	res, err := s.loadProduct(ctx, product.ID)
	if err != nil {
		return nil, err
	}
	res.UploadFailures = failed

	s.events.Publish("product.updated", product.ID, res)
	return res, nil
}

// DeleteProduct removes the product and its gallery records, then their files.
func (s *catalogService) DeleteProduct(ctx context.Context, actor, id uint) error {
	if err := s.authz.Authorize(ctx, actor, authz.ActionManageCatalog); err != nil {
		return err
	}

	product, err := s.products.FindByIDWithRelations(ctx, id)
	if err != nil {
		return notFound(err, "product")
	}

	var paths []string
	if product.ImagePath != nil {
		paths = append(paths, *product.ImagePath)
	}
	for _, img := range product.Images {
		paths = append(paths, img.ImagePath)
	}

	err = s.media.Detach(ctx, storage.NamespaceProductImages, paths, func() error {
		return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
			if err := s.images.DeleteByProduct(txCtx, id); err != nil {
				return fmt.Errorf("failed to delete product images: %w", err)
			}
			if err := s.products.Delete(txCtx, id); err != nil {
				return fmt.Errorf("failed to delete product: %w", err)
			}
			return writeAudit(txCtx, s.audit, actor, model.ActionDeleteProduct, id, product.Name, map[string]uint{"deleted_id": id})
		})
	})
	if err != nil {
		return err
	}

	s.events.Publish("product.deleted", id, nil)
	return nil
}

// UploadProductImages replaces the main image and/or appends gallery images.
func (s *catalogService) UploadProductImages(ctx context.Context, actor, id uint, req ProductUploadRequest) (*ProductUploadResponse, error) {
	if err := s.authz.Authorize(ctx, actor, authz.ActionManageCatalog); err != nil {
		return nil, err
	}

	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "product")
	}

	ve := &apperror.ValidationError{}
	if req.Image == nil && len(req.Images) == 0 {
		ve.Add("image", "The image field is required when images is not present.")
	}
	if req.Image != nil {
		s.media.ValidateImage(ve, "image", *req.Image)
	}
	for i, f := range req.Images {
		s.media.ValidateImage(ve, "images."+strconv.Itoa(i), f)
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	out := &ProductUploadResponse{ProductImages: []ProductImageResponse{}}

	if req.Image != nil {
		commit := func(imagePath string) error {
			product.ImagePath = &imagePath
			return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
				if err := s.products.Update(txCtx, product); err != nil {
					return fmt.Errorf("failed to update product image: %w", err)
				}
				return writeAudit(txCtx, s.audit, actor, model.ActionUpdateProduct, product.ID, product.Name,
					map[string]string{"image": req.Image.Filename})
			})
		}
		if err := s.saveWithImage(ctx, product.ImagePath, req.Image, commit); err != nil {
			return nil, err
		}
		out.ImageURL = s.media.URLPtr(product.ImagePath)
	}

	if len(req.Images) > 0 {
		created, failed := s.media.AttachGallery(ctx, product.ID, req.Images, product.Name)
		if len(created) == 0 && req.Image == nil {
			return nil, fmt.Errorf("no gallery image could be stored: %w", apperror.ErrStorage)
		}
		s.auditGallery(ctx, actor, product, created)
		out.ProductImages = s.toImageResponses(created)
		out.Failed = failed
	}

	res, err := s.loadProduct(ctx, product.ID)
	if err != nil {
		return nil, err
	}
	out.Product = *res

	s.events.Publish("product.updated", product.ID, res)
	return out, nil
}

// saveWithImage runs commit, first storing file through the media manager
// when one was uploaded.
func (s *catalogService) saveWithImage(ctx context.Context, oldPath *string, file *storage.Upload, commit func(string) error) error {
	if file == nil {
		return commit("")
	}
	var previous *string
	if oldPath != nil {
		p := *oldPath
		previous = &p
	}
	_, err := s.media.Replace(ctx, storage.NamespaceProductImages, previous, *file, commit)
	return err
}

// attachGallery appends files to the product's gallery and audits the result.
func (s *catalogService) attachGallery(ctx context.Context, actor uint, product *model.Product, files []storage.Upload) []GalleryFailure {
	if len(files) == 0 {
		return nil
	}
	created, failed := s.media.AttachGallery(ctx, product.ID, files, product.Name)
	s.auditGallery(ctx, actor, product, created)
	return failed
}

func (s *catalogService) auditGallery(ctx context.Context, actor uint, product *model.Product, created []model.ProductImage) {
	if len(created) == 0 {
		return
	}
	ids := make([]uint, 0, len(created))
	for _, img := range created {
		ids = append(ids, img.ID)
	}
	if err := writeAudit(ctx, s.audit, actor, model.ActionAddProductImages, product.ID, product.Name, map[string][]uint{"image_ids": ids}); err != nil {
		s.log.Error("Audit write failed", "action", model.ActionAddProductImages, "product_id", product.ID, "error", err)
	}
}
