package repository

import (
	"context"

	"catalog/internal/model"

	"gorm.io/gorm"
)

type ProductImageRepository interface {
	Create(ctx context.Context, image *model.ProductImage) error
	Update(ctx context.Context, image *model.ProductImage) error
	Delete(ctx context.Context, id uint) error
	DeleteByProduct(ctx context.Context, productID uint) error
	FindByID(ctx context.Context, id uint) (*model.ProductImage, error)
	ListByProduct(ctx context.Context, productID uint) ([]model.ProductImage, error)
}

type productImageRepository struct {
	db *gorm.DB
}

func NewProductImageRepository(db *gorm.DB) ProductImageRepository {
	return &productImageRepository{db: db}
}

func (r *productImageRepository) Create(ctx context.Context, image *model.ProductImage) error {
	return GetDB(ctx, r.db).Create(image).Error
}

func (r *productImageRepository) Update(ctx context.Context, image *model.ProductImage) error {
	return GetDB(ctx, r.db).Save(image).Error
}

func (r *productImageRepository) Delete(ctx context.Context, id uint) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.ProductImage{}).Error
}

func (r *productImageRepository) DeleteByProduct(ctx context.Context, productID uint) error {
	return GetDB(ctx, r.db).Where("product_id = ?", productID).Delete(&model.ProductImage{}).Error
}

func (r *productImageRepository) FindByID(ctx context.Context, id uint) (*model.ProductImage, error) {
	var image model.ProductImage
	if err := GetDB(ctx, r.db).First(&image, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &image, nil
}

func (r *productImageRepository) ListByProduct(ctx context.Context, productID uint) ([]model.ProductImage, error) {
	var images []model.ProductImage
	if err := GetDB(ctx, r.db).Where("product_id = ?", productID).Order("id asc").Find(&images).Error; err != nil {
		return nil, err
	}
	return images, nil
}
