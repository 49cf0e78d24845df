package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"catalog/internal/authz"
	"catalog/internal/model"
	"catalog/internal/storage"
	"catalog/pkg/apperror"
)

// scopedImage loads an image and checks it belongs to productID. A mismatch
// is reported as not found so image ids do not leak across products.
func (s *catalogService) scopedImage(ctx context.Context, productID, imageID uint) (*model.Product, *model.ProductImage, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, nil, notFound(err, "product")
	}
	image, err := s.images.FindByID(ctx, imageID)
	if err != nil {
		return nil, nil, notFound(err, "product image")
	}
	if image.ProductID != product.ID {
		return nil, nil, fmt.Errorf("product image: %w", apperror.ErrNotFound)
	}
	return product, image, nil
}

func (s *catalogService) ListProductImages(ctx context.Context, actor, productID uint) ([]ProductImageResponse, error) {
	if err := s.authz.Authenticate(ctx, actor); err != nil {
		return nil, err
	}
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		return nil, notFound(err, "product")
	}

	images, err := s.images.ListByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product images: %w", err)
	}
	return s.toImageResponses(images), nil
}

// AddProductImages stores every file independently. It fails only when no
// file at all could be attached.
func (s *catalogService) AddProductImages(ctx context.Context, actor, productID uint, req ProductImagesRequest) (*GalleryResponse, error) {
	if err := s.authz.Authorize(ctx, actor, authz.ActionManageCatalog); err != nil {
		return nil, err
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, notFound(err, "product")
	}

	ve := &apperror.ValidationError{}
	if len(req.Images) == 0 {
		ve.Add("images", msgRequired("images"))
	}
	for i, f := range req.Images {
		s.media.ValidateImage(ve, "images."+strconv.Itoa(i), f)
	}
	if alt, ok := req.AltText.Get(); ok && len(alt) > 255 {
		ve.Add("alt_text", msgMax("alt_text", 255))
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	altText := product.Name
	if alt, ok := req.AltText.Get(); ok && strings.TrimSpace(alt) != "" {
		altText = alt
	}

	created, failed := s.media.AttachGallery(ctx, product.ID, req.Images, altText)
	if len(created) == 0 {
		return nil, fmt.Errorf("no gallery image could be stored: %w", apperror.ErrStorage)
	}
	s.auditGallery(ctx, actor, product, created)

	res := &GalleryResponse{Data: s.toImageResponses(created), Failed: failed}
	s.events.Publish("product.images_added", product.ID, res.Data)
	return res, nil
}

func (s *catalogService) GetProductImage(ctx context.Context, actor, productID, imageID uint) (*ProductImageResponse, error) {
	if err := s.authz.Authenticate(ctx, actor); err != nil {
		return nil, err
	}
	_, image, err := s.scopedImage(ctx, productID, imageID)
	if err != nil {
		return nil, err
	}
	res := s.toImageResponse(image)
	return &res, nil
}

// UpdateProductImage swaps the file and/or alt text. A blank alt text leaves
// the current one in place.
func (s *catalogService) UpdateProductImage(ctx context.Context, actor, productID, imageID uint, req UpdateProductImageRequest) (*ProductImageResponse, error) {
	if err := s.authz.Authorize(ctx, actor, authz.ActionManageCatalog); err != nil {
		return nil, err
	}

	product, image, err := s.scopedImage(ctx, productID, imageID)
	if err != nil {
		return nil, err
	}

	ve := &apperror.ValidationError{}
	if req.Image != nil {
		s.media.ValidateImage(ve, "image", *req.Image)
	}
	if alt, ok := req.AltText.Get(); ok && len(alt) > 255 {
		ve.Add("alt_text", msgMax("alt_text", 255))
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	if alt, ok := req.AltText.Get(); ok && strings.TrimSpace(alt) != "" {
		image.AltText = alt
	}

	oldPath := image.ImagePath
	commit := func(imagePath string) error {
		if imagePath != "" {
			image.ImagePath = imagePath
		}
		return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
			if err := s.images.Update(txCtx, image); err != nil {
				return fmt.Errorf("failed to update product image: %w", err)
			}
			return writeAudit(txCtx, s.audit, actor, model.ActionUpdateProductImage, image.ID, product.Name,
				map[string]interface{}{"product_id": product.ID, "alt_text": image.AltText})
		})
	}

	if req.Image != nil {
		if _, err := s.media.Replace(ctx, storage.NamespaceProductImages, &oldPath, *req.Image, commit); err != nil {
			return nil, err
		}
	} else if err := commit(""); err != nil {
		return nil, err
	}

	res := s.toImageResponse(image)
	s.events.Publish("product.image_updated", product.ID, res)
	return &res, nil
}

func (s *catalogService) DeleteProductImage(ctx context.Context, actor, productID, imageID uint) error {
	if err := s.authz.Authorize(ctx, actor, authz.ActionManageCatalog); err != nil {
		return err
	}

	product, image, err := s.scopedImage(ctx, productID, imageID)
	if err != nil {
		return err
	}

	err = s.media.Detach(ctx, storage.NamespaceProductImages, []string{image.ImagePath}, func() error {
		return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
			if err := s.images.Delete(txCtx, image.ID); err != nil {
				return fmt.Errorf("failed to delete product image: %w", err)
			}
			return writeAudit(txCtx, s.audit, actor, model.ActionDeleteProductImage, image.ID, product.Name,
				map[string]uint{"product_id": product.ID, "deleted_id": image.ID})
		})
	})
	if err != nil {
		return err
	}

	s.events.Publish("product.image_deleted", product.ID, map[string]uint{"image_id": image.ID})
	return nil
}
