package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"
	"github.com/oapi-codegen/runtime"

	"github.com/tuanvumaihuynh/inventory-service/internal/apperr"
	"github.com/tuanvumaihuynh/inventory-service/internal/model"
	"github.com/tuanvumaihuynh/inventory-service/internal/repository"
	"github.com/tuanvumaihuynh/inventory-service/internal/service"
	"github.com/tuanvumaihuynh/inventory-service/pkg/ptr"
)

const (
	maxBodyBytes = 1 << 20

	defaultPage  = 1
	defaultLimit = 10
)

type CreateProductRequest struct {
	Name        string         `json:"name" validate:"required,notblank,min=3,max=100"`
	Description string         `json:"description" validate:"required,notblank,min=10,max=500"`
	Price       *float64       `json:"price" validate:"required,gte=0,lte=9999999999.99,maxdecimals=2"`
	Category    model.Category `json:"category" validate:"required,enum"`
	Stock       *int           `json:"stock" validate:"omitempty,gte=0,lte=2147483647"`
}

func (req *CreateProductRequest) normalize() {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
}

func (req CreateProductRequest) toParams() service.CreateProductParams {
	return service.CreateProductParams{
		Name:        req.Name,
		Description: req.Description,
		Price:       ptr.Deref(req.Price, 0),
		Category:    req.Category,
		Stock:       ptr.Deref(req.Stock, 0),
	}
}

// UpdateProductRequest has no isActive field: restoring a product is not
// exposed and unknown fields are rejected.
type UpdateProductRequest struct {
	Name        *string         `json:"name" validate:"omitempty,notblank,min=3,max=100"`
	Description *string         `json:"description" validate:"omitempty,notblank,min=10,max=500"`
	Price       *float64        `json:"price" validate:"omitempty,gte=0,lte=9999999999.99,maxdecimals=2"`
	Category    *model.Category `json:"category" validate:"omitempty,enum"`
	Stock       *int            `json:"stock" validate:"omitempty,gte=0,lte=2147483647"`
}

func (req *UpdateProductRequest) normalize() {
	if req.Name != nil {
		*req.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		*req.Description = strings.TrimSpace(*req.Description)
	}
}

func (req UpdateProductRequest) isEmpty() bool {
	return req.Name == nil &&
		req.Description == nil &&
		req.Price == nil &&
		req.Category == nil &&
		req.Stock == nil
}

func (req UpdateProductRequest) toParams() service.UpdateProductParams {
	return service.UpdateProductParams{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		Stock:       req.Stock,
	}
}

type AdjustStockRequest struct {
	Quantity *int `json:"quantity" validate:"required,gte=-2147483647,lte=2147483647"`
}

type ListProductsQuery struct {
	Page      *int            `json:"page" validate:"omitempty,gte=1,lte=1000000"`
	Limit     *int            `json:"limit" validate:"omitempty,gte=1,lte=100"`
	SortBy    *string         `json:"sortBy" validate:"omitempty,oneof=name price stock category createdAt updatedAt"`
	SortOrder *string         `json:"sortOrder" validate:"omitempty,oneof=asc desc"`
	Category  *model.Category `json:"category" validate:"omitempty,enum"`
	IsActive  *bool           `json:"isActive"`
	MinPrice  *float64        `json:"minPrice" validate:"omitempty,gte=0"`
	MaxPrice  *float64        `json:"maxPrice" validate:"omitempty,gte=0"`
	Search    *string         `json:"search" validate:"omitempty,max=100"`
}

func (q ListProductsQuery) toParams() repository.ListProductsParams {
	return repository.ListProductsParams{
		Page:      ptr.Deref(q.Page, defaultPage),
		Limit:     ptr.Deref(q.Limit, defaultLimit),
		SortBy:    repository.SortField(ptr.Deref(q.SortBy, string(repository.SortFieldCreatedAt))),
		SortOrder: repository.SortOrder(ptr.Deref(q.SortOrder, string(repository.SortOrderDesc))),
		Category:  q.Category,
		IsActive:  q.IsActive,
		MinPrice:  q.MinPrice,
		MaxPrice:  q.MaxPrice,
		Search:    strings.TrimSpace(ptr.Deref(q.Search, "")),
	}
}

type LowStockQuery struct {
	Threshold *int `json:"threshold" validate:"omitempty,gte=0"`
}

// decodeJSON reads a single JSON object and rejects unknown fields.
func decodeJSON(r *http.Request, w http.ResponseWriter, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.InvalidRequestBodyErr.WithMsg("request body must not be empty")
		}
		return apperr.InvalidRequestBodyErr.
			WithMsg(fmt.Sprintf("invalid request body: %v", err)).
			WrapParent(err)
	}

	if dec.More() {
		return apperr.InvalidRequestBodyErr.WithMsg("request body must contain a single JSON object")
	}

	return nil
}

type queryParam struct {
	name string
	dest any
}

// bindQuery binds optional form-style query parameters.
func bindQuery(query url.Values, params ...queryParam) error {
	for _, p := range params {
		if err := runtime.BindQueryParameter("form", true, false, p.name, query, p.dest); err != nil {
			return apperr.ValidationErr.
				WithMsg(fmt.Sprintf("invalid format for query parameter %s", p.name)).
				WrapParent(err)
		}
	}
	return nil
}

func (q *ListProductsQuery) bind(query url.Values) error {
	return bindQuery(query,
		queryParam{"page", &q.Page},
		queryParam{"limit", &q.Limit},
		queryParam{"sortBy", &q.SortBy},
		queryParam{"sortOrder", &q.SortOrder},
		queryParam{"category", &q.Category},
		queryParam{"isActive", &q.IsActive},
		queryParam{"minPrice", &q.MinPrice},
		queryParam{"maxPrice", &q.MaxPrice},
		queryParam{"search", &q.Search},
	)
}

func (q *LowStockQuery) bind(query url.Values) error {
	return bindQuery(query, queryParam{"threshold", &q.Threshold})
}
