package service

import (
	"context"
	"fmt"
	"strings"

	"catalog/internal/authz"
	"catalog/internal/model"
	"catalog/internal/storage"
	"catalog/pkg/apperror"
)

func (s *catalogService) validateCategory(req CategoryPayload, creating bool) error {
	ve := &apperror.ValidationError{}

	if name, ok := req.Name.Get(); ok && strings.TrimSpace(name) != "" {
		if len(name) > 255 {
			ve.Add("name", msgMax("name", 255))
		}
	} else if creating || req.Name.IsSet() {
		ve.Add("name", msgRequired("name"))
	}

	if req.Image != nil {
		s.media.ValidateImage(ve, "image", *req.Image)
	}
	return ve.OrNil()
}

func (s *catalogService) ListCategories(ctx context.Context, actor uint) ([]CategoryResponse, error) {
	if err := s.authz.Authenticate(ctx, actor); err != nil {
		return nil, err
	}

	categories, err := s.categories.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch categories: %w", err)
	}

	res := make([]CategoryResponse, 0, len(categories))
	for i := range categories {
		res = append(res, s.toCategoryResponse(&categories[i]))
	}
	return res, nil
}

func (s *catalogService) GetCategory(ctx context.Context, actor, id uint) (*CategoryResponse, error) {
	if err := s.authz.Authenticate(ctx, actor); err != nil {
		return nil, err
	}

	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "category")
	}
	res := s.toCategoryResponse(category)
	return &res, nil
}

func (s *catalogService) CreateCategory(ctx context.Context, actor uint, req CategoryPayload) (*CategoryResponse, error) {
	if err := s.authz.Authorize(ctx, actor, authz.ActionManageCatalog); err != nil {
		return nil, err
	}
	if err := s.validateCategory(req, true); err != nil {
		return nil, err
	}

	name, _ := req.Name.Get()
	category := &model.Category{Name: strings.TrimSpace(name), Description: nonEmpty(req.Description.Ptr())}

	commit := func(imagePath string) error {
		if imagePath != "" {
			category.ImagePath = &imagePath
		}
		return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
			if err := s.categories.Create(txCtx, category); err != nil {
				return fmt.Errorf("failed to create category: %w", err)
			}
			return writeAudit(txCtx, s.audit, actor, model.ActionCreateCategory, category.ID, category.Name, req)
		})
	}

	if req.Image != nil {
		if _, err := s.media.Replace(ctx, storage.NamespaceCategoryImages, nil, *req.Image, commit); err != nil {
			return nil, err
		}
	} else if err := commit(""); err != nil {
		return nil, err
	}

	res := s.toCategoryResponse(category)
	s.events.Publish("category.created", category.ID, res)
	return &res, nil
}

func (s *catalogService) UpdateCategory(ctx context.Context, actor, id uint, req CategoryPayload) (*CategoryResponse, error) {
	if err := s.authz.Authorize(ctx, actor, authz.ActionManageCatalog); err != nil {
		return nil, err
	}

	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "category")
	}
	if err := s.validateCategory(req, false); err != nil {
		return nil, err
	}

	if name, ok := req.Name.Get(); ok {
		category.Name = strings.TrimSpace(name)
	}
	if req.Description.IsSet() {
		category.Description = nonEmpty(req.Description.Ptr())
	}

	oldPath := category.ImagePath
	commit := func(imagePath string) error {
		if imagePath != "" {
			category.ImagePath = &imagePath
		}
		return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
			if err := s.categories.Update(txCtx, category); err != nil {
				return fmt.Errorf("failed to update category: %w", err)
			}
			return writeAudit(txCtx, s.audit, actor, model.ActionUpdateCategory, category.ID, category.Name, req)
		})
	}

	if req.Image != nil {
		if _, err := s.media.Replace(ctx, storage.NamespaceCategoryImages, oldPath, *req.Image, commit); err != nil {
			return nil, err
		}
	} else if err := commit(""); err != nil {
		return nil, err
	}

	res := s.toCategoryResponse(category)
	s.events.Publish("category.updated", category.ID, res)
	return &res, nil
}

// DeleteCategory refuses to remove a category that still has products.
func (s *catalogService) DeleteCategory(ctx context.Context, actor, id uint) error {
	if err := s.authz.Authorize(ctx, actor, authz.ActionManageCatalog); err != nil {
		return err
	}

	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return notFound(err, "category")
	}

	count, err := s.products.CountByCategory(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count products: %w", err)
	}
	if count > 0 {
		return apperror.NewConflict("category", fmt.Sprintf("The category still has %d product(s).", count))
	}

	var paths []string
	if category.ImagePath != nil {
		paths = append(paths, *category.ImagePath)
	}

	err = s.media.Detach(ctx, storage.NamespaceCategoryImages, paths, func() error {
		return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
			if err := s.categories.Delete(txCtx, id); err != nil {
				return fmt.Errorf("failed to delete category: %w", err)
			}
			return writeAudit(txCtx, s.audit, actor, model.ActionDeleteCategory, id, category.Name, map[string]uint{"deleted_id": id})
		})
	})
	if err != nil {
		return err
	}

	s.events.Publish("category.deleted", id, nil)
	return nil
}

// nonEmpty maps blank strings to nil.
func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
