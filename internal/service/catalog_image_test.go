package service_test

import (
	"context"
	"errors"
	"testing"

	"catalog/internal/model"
	"catalog/internal/service"
	"catalog/internal/storage"
	"catalog/pkg/apperror"
	"catalog/pkg/optional"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductImageLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product, err := f.catalog.CreateProduct(ctx, f.admin, productPayload(f.mkCategory(t, "Lighting"), "LMP-1"))
	require.NoError(t, err)

	added, err := f.catalog.AddProductImages(ctx, f.admin, product.ID, service.ProductImagesRequest{
		Images:  []storage.Upload{png("front.png"), png("back.png")},
		AltText: optional.Some("Lamp photo"),
	})
	require.NoError(t, err)
	require.Len(t, added.Data, 2)
	assert.Empty(t, added.Failed)
	assert.Equal(t, "Lamp photo", added.Data[0].AltText)
	assert.Less(t, added.Data[0].ID, added.Data[1].ID)

	list, err := f.catalog.ListProductImages(ctx, f.plain, product.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	img := added.Data[0]
	var before model.ProductImage
	require.NoError(t, f.db.First(&before, img.ID).Error)

	// Blank alt text keeps the current one.
	updated, err := f.catalog.UpdateProductImage(ctx, f.admin, product.ID, img.ID, service.UpdateProductImageRequest{
		Image:   ptr(png("front-v2.png")),
		AltText: optional.Some(""),
	})
	require.NoError(t, err)
	assert.Equal(t, "Lamp photo", updated.AltText)
	assert.NotEqual(t, img.ImageURL, updated.ImageURL)
	assert.False(t, f.local.Exists(before.ImagePath))

	got, err := f.catalog.GetProductImage(ctx, f.plain, product.ID, img.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.ImageURL, got.ImageURL)

	require.NoError(t, f.catalog.DeleteProductImage(ctx, f.admin, product.ID, img.ID))
	_, err = f.catalog.GetProductImage(ctx, f.plain, product.ID, img.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.Equal(t, 1, f.countFiles(t, storage.NamespaceProductImages))

	assert.Contains(t, f.events.names(), "product.images_added")
	assert.Contains(t, f.events.names(), "product.image_deleted")
}

func TestAddProductImagesDefaultsAltTextToProductName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product, err := f.catalog.CreateProduct(ctx, f.admin, productPayload(f.mkCategory(t, "Lighting"), "LMP-1"))
	require.NoError(t, err)

	added, err := f.catalog.AddProductImages(ctx, f.admin, product.ID, service.ProductImagesRequest{Images: []storage.Upload{png("a.png")}})
	require.NoError(t, err)
	assert.Equal(t, "Desk Lamp", added.Data[0].AltText)

	_, err = f.catalog.AddProductImages(ctx, f.admin, product.ID, service.ProductImagesRequest{})
	require.ErrorIs(t, err, apperror.ErrValidation)
	assert.Equal(t, "The images field is required.", apperror.Fields(err)["images"])
}

func TestAddProductImagesReportsPartialFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product, err := f.catalog.CreateProduct(ctx, f.admin, productPayload(f.mkCategory(t, "Lighting"), "LMP-1"))
	require.NoError(t, err)

	f.blobs.failCalls[1] = true
	added, err := f.catalog.AddProductImages(ctx, f.admin, product.ID, service.ProductImagesRequest{
		Images: []storage.Upload{png("a.png"), png("b.png"), png("c.png")},
	})
	require.NoError(t, err)
	require.Len(t, added.Data, 2)
	require.Len(t, added.Failed, 1)
	assert.Equal(t, 0, added.Failed[0].Index)
	assert.Equal(t, "a.png", added.Failed[0].Filename)
}

func TestImageOperationsAreScopedToTheirProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.mkCategory(t, "Lighting")

	a, err := f.catalog.CreateProduct(ctx, f.admin, productPayload(cat, "A-1"))
	require.NoError(t, err)
	b, err := f.catalog.CreateProduct(ctx, f.admin, productPayload(cat, "B-1"))
	require.NoError(t, err)

	added, err := f.catalog.AddProductImages(ctx, f.admin, a.ID, service.ProductImagesRequest{Images: []storage.Upload{png("a.png")}})
	require.NoError(t, err)
	imgID := added.Data[0].ID

	_, err = f.catalog.GetProductImage(ctx, f.admin, b.ID, imgID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = f.catalog.UpdateProductImage(ctx, f.admin, b.ID, imgID, service.UpdateProductImageRequest{AltText: optional.Some("hijack")})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	assert.ErrorIs(t, f.catalog.DeleteProductImage(ctx, f.admin, b.ID, imgID), apperror.ErrNotFound)

	got, err := f.catalog.GetProductImage(ctx, f.admin, a.ID, imgID)
	require.NoError(t, err)
	assert.Equal(t, "Desk Lamp", got.AltText)
}

func TestDeleteProductImageToleratesBlobFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product, err := f.catalog.CreateProduct(ctx, f.admin, productPayload(f.mkCategory(t, "Lighting"), "LMP-1"))
	require.NoError(t, err)
	added, err := f.catalog.AddProductImages(ctx, f.admin, product.ID, service.ProductImagesRequest{Images: []storage.Upload{png("a.png")}})
	require.NoError(t, err)

	f.blobs.deleteErr = errors.New("bucket unreachable")
	require.NoError(t, f.catalog.DeleteProductImage(ctx, f.admin, product.ID, added.Data[0].ID))

	var n int64
	f.db.Model(&model.ProductImage{}).Count(&n)
	assert.Zero(t, n)
}

func TestUploadProductImages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product, err := f.catalog.CreateProduct(ctx, f.admin, productPayload(f.mkCategory(t, "Lighting"), "LMP-1"))
	require.NoError(t, err)

	_, err = f.catalog.UploadProductImages(ctx, f.admin, product.ID, service.ProductUploadRequest{})
	require.ErrorIs(t, err, apperror.ErrValidation)
	assert.Contains(t, apperror.Fields(err), "image")

	res, err := f.catalog.UploadProductImages(ctx, f.admin, product.ID, service.ProductUploadRequest{
		Image:  ptr(png("main.png")),
		Images: []storage.Upload{png("g1.png")},
	})
	require.NoError(t, err)
	require.NotNil(t, res.ImageURL)
	assert.Len(t, res.ProductImages, 1)
	assert.Equal(t, res.ImageURL, res.Product.ImageURL)
	assert.Len(t, res.Product.ProductImages, 1)

	_, err = f.catalog.UploadProductImages(ctx, f.plain, product.ID, service.ProductUploadRequest{Image: ptr(png("x.png"))})
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}
