package repository

import (
	"context"

	"catalog/internal/model"

	"gorm.io/gorm"
)

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*model.Product, error)
	FindByIDWithRelations(ctx context.Context, id uint) (*model.Product, error)
	FindByNumber(ctx context.Context, number string) (*model.Product, error)
	List(ctx context.Context, spec QuerySpec, offset, limit int) ([]model.Product, int64, error)
	Count(ctx context.Context, spec QuerySpec) (int64, error)
	CountByCategory(ctx context.Context, categoryID uint) (int64, error)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Omit("Category", "Images").Create(product).Error
}

func (r *productRepository) Update(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Omit("Category", "Images").Save(product).Error
}

func (r *productRepository) Delete(ctx context.Context, id uint) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Product{}).Error
}

func (r *productRepository) FindByID(ctx context.Context, id uint) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) FindByIDWithRelations(ctx context.Context, id uint) (*model.Product, error) {
	var product model.Product
	if err := withRelations(GetDB(ctx, r.db)).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) FindByNumber(ctx context.Context, number string) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).Where("product_number = ?", number).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// List runs spec and returns one window of it plus the total match count.
func (r *productRepository) List(ctx context.Context, spec QuerySpec, offset, limit int) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	if err := spec.Scope(GetDB(ctx, r.db).Model(&model.Product{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	db := withRelations(spec.Scope(GetDB(ctx, r.db).Model(&model.Product{})))
	if err := db.Order(spec.OrderBy).Offset(offset).Limit(limit).Find(&products).Error; err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

func (r *productRepository) Count(ctx context.Context, spec QuerySpec) (int64, error) {
	var total int64
	err := spec.Scope(GetDB(ctx, r.db).Model(&model.Product{})).Count(&total).Error
	return total, err
}

func (r *productRepository) CountByCategory(ctx context.Context, categoryID uint) (int64, error) {
	var total int64
	err := GetDB(ctx, r.db).Model(&model.Product{}).Where("category_id = ?", categoryID).Count(&total).Error
	return total, err
}

func withRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Category").Preload("Images", func(db *gorm.DB) *gorm.DB {
		return db.Order("product_images.id asc")
	})
}
