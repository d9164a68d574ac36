package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/gohaste/storefront/internal/domain"
	"github.com/gohaste/storefront/internal/platform/httpx"
	"github.com/gohaste/storefront/internal/services"
)

// CatalogHandlers exposes the product listing endpoints.
type CatalogHandlers struct {
	catalog services.CatalogService
}

// NewCatalogHandlers constructs handlers backed by the catalog service.
func NewCatalogHandlers(catalog services.CatalogService) *CatalogHandlers {
	return &CatalogHandlers{catalog: catalog}
}

// Routes wires the /products endpoints onto the provided router.
func (h *CatalogHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listProducts)
	r.Get("/{productId}", h.getProduct)
}

func (h *CatalogHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	products, err := h.catalog.ListProducts(ctx)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_error", "failed to list products", http.StatusInternalServerError))
		return
	}

	payload := productListResponse{Products: make([]productPayload, 0, len(products))}
	for _, product := range products {
		payload.Products = append(payload.Products, buildProductPayload(product))
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

func (h *CatalogHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	productID := strings.TrimSpace(chi.URLParam(r, "productId"))
	product, err := h.catalog.GetProduct(ctx, productID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrCatalogInvalidInput):
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		case errors.Is(err, services.ErrCatalogNotFound):
			httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("catalog_error", "failed to fetch product", http.StatusInternalServerError))
		}
		return
	}

	writeJSONResponse(w, http.StatusOK, productResponse{Product: buildProductPayload(*product)})
}

type productListResponse struct {
	Products []productPayload `json:"products"`
}

type productResponse struct {
	Product productPayload `json:"product"`
}

type productPayload struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Handle      string           `json:"handle,omitempty"`
	Description string           `json:"description,omitempty"`
	Price       int64            `json:"price"`
	Currency    string           `json:"currency"`
	ImageURL    string           `json:"image_url,omitempty"`
	InStock     bool             `json:"in_stock"`
	Inventory   int              `json:"inventory"`
	Variants    []variantPayload `json:"variants,omitempty"`
}

type variantPayload struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	SKU               string `json:"sku,omitempty"`
	Price             int64  `json:"price"`
	InventoryQuantity int    `json:"inventory_quantity"`
}

func buildProductPayload(product domain.Product) productPayload {
	payload := productPayload{
		ID:          strings.TrimSpace(product.ID),
		Title:       strings.TrimSpace(product.Title),
		Handle:      strings.TrimSpace(product.Handle),
		Description: strings.TrimSpace(product.Description),
		Price:       product.Price,
		Currency:    strings.ToUpper(strings.TrimSpace(product.Currency)),
		ImageURL:    strings.TrimSpace(product.ImageURL),
		InStock:     product.InStock,
		Inventory:   product.Inventory,
	}
	for _, variant := range product.Variants {
		payload.Variants = append(payload.Variants, variantPayload{
			ID:                variant.ID,
			Title:             variant.Title,
			SKU:               variant.SKU,
			Price:             variant.Price,
			InventoryQuantity: variant.InventoryQuantity,
		})
	}
	return payload
}
