package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"catalog/internal/repository"
	"catalog/internal/service"
	"catalog/pkg/optional"
	"catalog/pkg/pagination"

	"github.com/gin-gonic/gin"
)

type CatalogHandler struct {
	catalog service.CatalogService
	maxBody int64
	log     *slog.Logger
}

// NewCatalogHandler wires the category, product and product image endpoints.
// maxBody caps the size of a whole request including uploaded files.
func NewCatalogHandler(catalog service.CatalogService, maxBody int64, log *slog.Logger) *CatalogHandler {
	if log == nil {
		log = slog.Default()
	}
	return &CatalogHandler{catalog: catalog, maxBody: maxBody, log: log}
}

// RegisterRoutes binds the catalog endpoints. Every route requires a
// signed-in caller; the service decides what each caller may change.
func (h *CatalogHandler) RegisterRoutes(router *gin.RouterGroup, authn gin.HandlerFunc) {
	categories := router.Group("/api/categories", authn)
	{
		categories.GET("", h.ListCategories)
		categories.GET("/:id", h.GetCategory)
		categories.POST("", h.CreateCategory)
		categories.PUT("/:id", h.UpdateCategory)
		categories.PATCH("/:id", h.UpdateCategory)
		categories.POST("/:id/update", h.UpdateCategory)
		categories.DELETE("/:id", h.DeleteCategory)
	}

	products := router.Group("/api/products", authn)
	{
		products.GET("", h.ListProducts)
		products.GET("/:id", h.GetProduct)
		products.POST("", h.CreateProduct)
		products.PUT("/:id", h.UpdateProduct)
		products.PATCH("/:id", h.UpdateProduct)
		products.DELETE("/:id", h.DeleteProduct)
		products.POST("/:id/upload-image", h.UploadProductImages)

		products.GET("/:id/images", h.ListProductImages)
		products.POST("/:id/images", h.AddProductImages)
		products.GET("/:id/images/:image", h.GetProductImage)
		products.PUT("/:id/images/:image", h.UpdateProductImage)
		products.PATCH("/:id/images/:image", h.UpdateProductImage)
		products.DELETE("/:id/images/:image", h.DeleteProductImage)
	}
}

// --- Categories ---

func (h *CatalogHandler) categoryPayload(c *gin.Context) (service.CategoryPayload, error) {
	var req service.CategoryPayload
	f, err := parseForm(c, h.maxBody)
	if errors.Is(err, errNotForm) {
		err = c.ShouldBindJSON(&req)
		return req, err
	}
	if err != nil {
		return req, err
	}

	req.Name = f.text("name")
	req.Description = f.text("description")
	req.Image = f.file("image")
	return req, f.err()
}

// ListCategories returns every category
// @Summary      List categories
// @Tags         categories
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  object{data=[]service.CategoryResponse}
// @Failure      401  {object}  response.Response
// @Router       /api/categories [get]
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	categories, err := h.catalog.ListCategories(c.Request.Context(), actor(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": categories})
}

// GetCategory returns a single category
// @Summary      Get category
// @Tags         categories
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Category ID"
// @Success      200  {object}  service.CategoryResponse
// @Failure      404  {object}  response.Response
// @Router       /api/categories/{id} [get]
func (h *CatalogHandler) GetCategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	category, err := h.catalog.GetCategory(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

// CreateCategory creates a category with an optional image
// @Summary      Create category
// @Tags         categories
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        name         formData  string  true   "Name"
// @Param        description  formData  string  false  "Description"
// @Param        image        formData  file    false  "Image (jpeg, png, jpg, gif)"
// @Success      201  {object}  service.CategoryResponse
// @Failure      403  {object}  response.Response
// @Failure      422  {object}  response.Response
// @Router       /api/categories [post]
func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	req, err := h.categoryPayload(c)
	if err != nil {
		bindingError(c, h.log, err)
		return
	}

	category, err := h.catalog.CreateCategory(c.Request.Context(), actor(c), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

// UpdateCategory applies the fields that were sent
// @Summary      Update category
// @Tags         categories
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id           path      int     true   "Category ID"
// @Param        name         formData  string  false  "Name"
// @Param        description  formData  string  false  "Description"
// @Param        image        formData  file    false  "Replacement image"
// @Success      200  {object}  service.CategoryResponse
// @Failure      404  {object}  response.Response
// @Failure      422  {object}  response.Response
// @Router       /api/categories/{id} [put]
// @Router       /api/categories/{id}/update [post]
func (h *CatalogHandler) UpdateCategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	req, err := h.categoryPayload(c)
	if err != nil {
		bindingError(c, h.log, err)
		return
	}

	category, err := h.catalog.UpdateCategory(c.Request.Context(), actor(c), id, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

// DeleteCategory removes an empty category and its image
// @Summary      Delete category
// @Tags         categories
// @Security     BearerAuth
// @Param        id   path  int  true  "Category ID"
// @Success      204
// @Failure      409  {object}  response.Response
// @Router       /api/categories/{id} [delete]
func (h *CatalogHandler) DeleteCategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteCategory(c.Request.Context(), actor(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Products ---

func (h *CatalogHandler) productPayload(c *gin.Context) (service.ProductPayload, error) {
	var req service.ProductPayload
	f, err := parseForm(c, h.maxBody)
	if errors.Is(err, errNotForm) {
		err = c.ShouldBindJSON(&req)
		return req, err
	}
	if err != nil {
		return req, err
	}

	req.Name = f.text("name")
	req.Description = f.text("description")
	req.ProductNumber = f.text("product_number")
	req.Price = f.number("price")
	req.Discount = f.number("discount")
	req.ManufacturingMaterial = f.text("manufacturing_material")
	req.ManufacturingCountry = f.text("manufacturing_country")
	req.StockQuantity = f.integer("stock_quantity")
	req.IsAvailable = f.flag("is_available")
	req.CategoryID = f.id("category_id")
	req.Image = f.file("image")
	req.Images = f.fileList("images")
	return req, f.err()
}

// ListProducts returns one page of products matching the filters
// @Summary      List products
// @Description  Filters combine with AND. Pages hold 20 products.
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Param        category_id  query     int     false  "Category ID"
// @Param        search       query     string  false  "Matches name, description or product number"
// @Param        min_price    query     number  false  "Minimum price"
// @Param        max_price    query     number  false  "Maximum price"
// @Param        available    query     bool    false  "Availability"
// @Param        page         query     int     false  "Page number (default 1)"
// @Success      200  {object}  pagination.Page[service.ProductResponse]
// @Router       /api/products [get]
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	p := pagination.ParsePage(c, pagination.ProductPageSize)
	query := c.Request.URL.Query()

	page, err := h.catalog.ListProducts(c.Request.Context(), actor(c), service.ProductListQuery{
		Filter: repository.ParseProductFilter(query),
		Page:   p.Page,
		Path:   c.Request.URL.Path,
		Query:  query,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetProduct returns a product with its category and gallery
// @Summary      Get product
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Product ID"
// @Success      200  {object}  service.ProductResponse
// @Failure      404  {object}  response.Response
// @Router       /api/products/{id} [get]
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	product, err := h.catalog.GetProduct(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// CreateProduct creates a product with optional main image and gallery
// @Summary      Create product
// @Tags         products
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        name                    formData  string  true   "Name"
// @Param        description             formData  string  true   "Description"
// @Param        product_number          formData  string  true   "Unique product number"
// @Param        price                   formData  number  true   "Price"
// @Param        discount                formData  number  false  "Discount percent (0-100)"
// @Param        manufacturing_material  formData  string  false  "Material"
// @Param        manufacturing_country   formData  string  false  "Country"
// @Param        stock_quantity          formData  int     true   "Stock"
// @Param        is_available            formData  bool    false  "Available (default true)"
// @Param        category_id             formData  int     true   "Category ID"
// @Param        image                   formData  file    false  "Main image"
// @Param        images                  formData  file    false  "Gallery images"
// @Success      201  {object}  service.ProductResponse
// @Failure      409  {object}  response.Response
// @Failure      422  {object}  response.Response
// @Router       /api/products [post]
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	req, err := h.productPayload(c)
	if err != nil {
		bindingError(c, h.log, err)
		return
	}

	product, err := h.catalog.CreateProduct(c.Request.Context(), actor(c), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

// UpdateProduct applies the fields that were sent
// @Summary      Update product
// @Description  Accepts the same fields as create, all optional. A new image replaces the main image; images are appended to the gallery.
// @Tags         products
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Product ID"
// @Success      200  {object}  service.ProductResponse
// @Failure      404  {object}  response.Response
// @Failure      422  {object}  response.Response
// @Router       /api/products/{id} [put]
func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	req, err := h.productPayload(c)
	if err != nil {
		bindingError(c, h.log, err)
		return
	}

	product, err := h.catalog.UpdateProduct(c.Request.Context(), actor(c), id, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// DeleteProduct removes a product and every image it owns
// @Summary      Delete product
// @Tags         products
// @Security     BearerAuth
// @Param        id   path  int  true  "Product ID"
// @Success      204
// @Failure      404  {object}  response.Response
// @Router       /api/products/{id} [delete]
func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteProduct(c.Request.Context(), actor(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UploadProductImages sets the main image and/or appends gallery images
// @Summary      Upload product images
// @Tags         products
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id      path      int   true   "Product ID"
// @Param        image   formData  file  false  "Main image"
// @Param        images  formData  file  false  "Gallery images"
// @Success      200  {object}  service.ProductUploadResponse
// @Failure      422  {object}  response.Response
// @Router       /api/products/{id}/upload-image [post]
func (h *CatalogHandler) UploadProductImages(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req service.ProductUploadRequest
	f, err := parseForm(c, h.maxBody)
	switch {
	case errors.Is(err, errNotForm):
	case err != nil:
		bindingError(c, h.log, err)
		return
	default:
		req.Image = f.file("image")
		req.Images = f.fileList("images")
		if err := f.err(); err != nil {
			respondError(c, h.log, err)
			return
		}
	}

	res, err := h.catalog.UploadProductImages(c.Request.Context(), actor(c), id, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// --- Product images ---

// ListProductImages returns the gallery of a product
// @Summary      List product images
// @Tags         product-images
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Product ID"
// @Success      200  {object}  object{data=[]service.ProductImageResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/products/{id}/images [get]
func (h *CatalogHandler) ListProductImages(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	images, err := h.catalog.ListProductImages(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": images})
}

// AddProductImages appends files to the gallery
// @Summary      Add product images
// @Description  Each file is stored independently. Files that fail are listed under "failed".
// @Tags         product-images
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id        path      int     true   "Product ID"
// @Param        images    formData  file    true   "Images"
// @Param        alt_text  formData  string  false  "Alt text (defaults to the product name)"
// @Success      201  {object}  service.GalleryResponse
// @Failure      422  {object}  response.Response
// @Failure      500  {object}  response.Response
// @Router       /api/products/{id}/images [post]
func (h *CatalogHandler) AddProductImages(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req service.ProductImagesRequest
	f, err := parseForm(c, h.maxBody)
	switch {
	case errors.Is(err, errNotForm):
	case err != nil:
		bindingError(c, h.log, err)
		return
	default:
		req.Images = f.fileList("images")
		req.AltText = f.text("alt_text")
		if err := f.err(); err != nil {
			respondError(c, h.log, err)
			return
		}
	}

	res, err := h.catalog.AddProductImages(c.Request.Context(), actor(c), id, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// GetProductImage returns one image of a product
// @Summary      Get product image
// @Tags         product-images
// @Produce      json
// @Security     BearerAuth
// @Param        id     path      int  true  "Product ID"
// @Param        image  path      int  true  "Image ID"
// @Success      200  {object}  service.ProductImageResponse
// @Failure      404  {object}  response.Response
// @Router       /api/products/{id}/images/{image} [get]
func (h *CatalogHandler) GetProductImage(c *gin.Context) {
	productID, ok := pathID(c, "id")
	if !ok {
		return
	}
	imageID, ok := pathID(c, "image")
	if !ok {
		return
	}

	image, err := h.catalog.GetProductImage(c.Request.Context(), actor(c), productID, imageID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, image)
}

type altTextBody struct {
	AltText optional.Value[string] `json:"alt_text"`
}

// UpdateProductImage replaces the file and/or alt text
// @Summary      Update product image
// @Tags         product-images
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id        path      int     true   "Product ID"
// @Param        image     path      int     true   "Image ID"
// @Param        image     formData  file    false  "Replacement file"
// @Param        alt_text  formData  string  false  "Alt text"
// @Success      200  {object}  service.ProductImageResponse
// @Failure      404  {object}  response.Response
// @Router       /api/products/{id}/images/{image} [put]
func (h *CatalogHandler) UpdateProductImage(c *gin.Context) {
	productID, ok := pathID(c, "id")
	if !ok {
		return
	}
	imageID, ok := pathID(c, "image")
	if !ok {
		return
	}

	var req service.UpdateProductImageRequest
	f, err := parseForm(c, h.maxBody)
	switch {
	case errors.Is(err, errNotForm):
		var body altTextBody
		if err := c.ShouldBindJSON(&body); err != nil {
			bindingError(c, h.log, err)
			return
		}
		req.AltText = body.AltText
	case err != nil:
		bindingError(c, h.log, err)
		return
	default:
		req.Image = f.file("image")
		req.AltText = f.text("alt_text")
		if err := f.err(); err != nil {
			respondError(c, h.log, err)
			return
		}
	}

	image, err := h.catalog.UpdateProductImage(c.Request.Context(), actor(c), productID, imageID, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, image)
}

// DeleteProductImage removes one gallery image
// @Summary      Delete product image
// @Tags         product-images
// @Security     BearerAuth
// @Param        id     path  int  true  "Product ID"
// @Param        image  path  int  true  "Image ID"
// @Success      204
// @Failure      404  {object}  response.Response
// @Router       /api/products/{id}/images/{image} [delete]
func (h *CatalogHandler) DeleteProductImage(c *gin.Context) {
	productID, ok := pathID(c, "id")
	if !ok {
		return
	}
	imageID, ok := pathID(c, "image")
	if !ok {
		return
	}

	if err := h.catalog.DeleteProductImage(c.Request.Context(), actor(c), productID, imageID); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
