package http

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tuanvumaihuynh/inventory-service/internal/apperr"
	"github.com/tuanvumaihuynh/inventory-service/internal/service"
	"github.com/tuanvumaihuynh/inventory-service/pkg/ptr"
	"github.com/tuanvumaihuynh/inventory-service/pkg/validator"
)

type productHandler struct {
	s          *Service
	productSvc service.ProductService
	validator  validator.Validator
}

func newProductHandler(s *Service, productSvc service.ProductService, v validator.Validator) *productHandler {
	return &productHandler{
		s:          s,
		productSvc: productSvc,
		validator:  v,
	}
}

func (h *productHandler) register(r chi.Router) {
	r.Route("/api/products", func(r chi.Router) {
		r.Post("/", h.s.handle(h.CreateProduct))
		r.Get("/", h.s.handle(h.ListProducts))
		r.Get("/statistics", h.s.handle(h.GetStatistics))
		r.Get("/low-stock", h.s.handle(h.ListLowStockProducts))
		r.Get("/category/{category}", h.s.handle(h.ListProductsByCategory))

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.s.handle(h.GetProduct))
			r.Put("/", h.s.handle(h.UpdateProduct))
			r.Delete("/", h.s.handle(h.DeleteProduct))
			r.Delete("/permanent", h.s.handle(h.DeleteProductPermanently))
			r.Patch("/stock", h.s.handle(h.AdjustStock))
		})
	})
}

func (h *productHandler) validate(req any) error {
	if err := h.validator.Validate(req); err != nil {
		return apperr.ValidationErr.WrapParent(err)
	}
	return nil
}

func (h *productHandler) CreateProduct(w http.ResponseWriter, r *http.Request) error {
	var req CreateProductRequest
	if err := decodeJSON(r, w, &req); err != nil {
		return err
	}
	req.normalize()
	if err := h.validate(req); err != nil {
		return err
	}

	product, err := h.productSvc.CreateProduct(r.Context(), req.toParams())
	if err != nil {
		return fmt.Errorf("product service create product: %w", err)
	}

	h.s.writeSuccess(w, r, http.StatusCreated, "Product created successfully", product)
	return nil
}

func (h *productHandler) ListProducts(w http.ResponseWriter, r *http.Request) error {
	var query ListProductsQuery
	if err := query.bind(r.URL.Query()); err != nil {
		return err
	}
	if err := h.validate(query); err != nil {
		return err
	}
	if query.MinPrice != nil && query.MaxPrice != nil && *query.MaxPrice < *query.MinPrice {
		return apperr.ValidationErr.WithMsg("maxPrice must be greater than or equal to minPrice")
	}

	result, err := h.productSvc.ListProducts(r.Context(), query.toParams())
	if err != nil {
		return fmt.Errorf("product service list products: %w", err)
	}

	h.s.writeSuccess(w, r, http.StatusOK, "Products retrieved successfully", result)
	return nil
}

func (h *productHandler) GetProduct(w http.ResponseWriter, r *http.Request) error {
	product, err := h.productSvc.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return fmt.Errorf("product service get product: %w", err)
	}

	h.s.writeSuccess(w, r, http.StatusOK, "Product retrieved successfully", product)
	return nil
}

func (h *productHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) error {
	var req UpdateProductRequest
	if err := decodeJSON(r, w, &req); err != nil {
		return err
	}
	if req.isEmpty() {
		return apperr.ValidationErr.WithMsg("at least one field must be provided for update")
	}
	req.normalize()
	if err := h.validate(req); err != nil {
		return err
	}

	product, err := h.productSvc.UpdateProduct(r.Context(), chi.URLParam(r, "id"), req.toParams())
	if err != nil {
		return fmt.Errorf("product service update product: %w", err)
	}

	h.s.writeSuccess(w, r, http.StatusOK, "Product updated successfully", product)
	return nil
}

func (h *productHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) error {
	product, err := h.productSvc.DeleteProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return fmt.Errorf("product service delete product: %w", err)
	}

	h.s.writeSuccess(w, r, http.StatusOK, "Product deactivated successfully", product)
	return nil
}

func (h *productHandler) DeleteProductPermanently(w http.ResponseWriter, r *http.Request) error {
	if err := h.productSvc.DeleteProductPermanently(r.Context(), chi.URLParam(r, "id")); err != nil {
		return fmt.Errorf("product service delete product permanently: %w", err)
	}

	h.s.writeSuccess(w, r, http.StatusOK, "Product permanently deleted", nil)
	return nil
}

func (h *productHandler) AdjustStock(w http.ResponseWriter, r *http.Request) error {
	var req AdjustStockRequest
	if err := decodeJSON(r, w, &req); err != nil {
		return err
	}
	if err := h.validate(req); err != nil {
		return err
	}

	product, err := h.productSvc.AdjustStock(r.Context(), chi.URLParam(r, "id"), *req.Quantity)
	if err != nil {
		return fmt.Errorf("product service adjust stock: %w", err)
	}

	h.s.writeSuccess(w, r, http.StatusOK, "Stock updated successfully", product)
	return nil
}

func (h *productHandler) ListProductsByCategory(w http.ResponseWriter, r *http.Request) error {
	products, err := h.productSvc.ListProductsByCategory(r.Context(), chi.URLParam(r, "category"))
	if err != nil {
		return fmt.Errorf("product service list products by category: %w", err)
	}

	h.s.writeSuccess(w, r, http.StatusOK, "Products retrieved successfully", products)
	return nil
}

func (h *productHandler) ListLowStockProducts(w http.ResponseWriter, r *http.Request) error {
	var query LowStockQuery
	if err := query.bind(r.URL.Query()); err != nil {
		return err
	}
	if err := h.validate(query); err != nil {
		return err
	}

	threshold := ptr.Deref(query.Threshold, service.DefaultLowStockThreshold)
	products, err := h.productSvc.ListLowStockProducts(r.Context(), threshold)
	if err != nil {
		return fmt.Errorf("product service list low stock products: %w", err)
	}

	h.s.writeSuccess(w, r, http.StatusOK, "Low stock products retrieved successfully", products)
	return nil
}

func (h *productHandler) GetStatistics(w http.ResponseWriter, r *http.Request) error {
	stats, err := h.productSvc.GetStatistics(r.Context())
	if err != nil {
		return fmt.Errorf("product service get statistics: %w", err)
	}

	h.s.writeSuccess(w, r, http.StatusOK, "Statistics retrieved successfully", stats)
	return nil
}
