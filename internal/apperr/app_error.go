// Package apperr declares the errors the service layer and HTTP handlers
// report to clients. Codes are part of the API contract.
package apperr

import "github.com/tuanvumaihuynh/inventory-service/pkg/zerror"

const (
	ValidationErrorCode     = "VALIDATION_FAILED"
	InvalidRequestBodyCode  = "INVALID_REQUEST_BODY"
	InvalidProductIDCode    = "INVALID_PRODUCT_ID"
	ProductNotFoundCode     = "PRODUCT_NOT_FOUND"
	ProductNameConflictCode = "PRODUCT_NAME_CONFLICT"
	PriceTooLowCode         = "PRICE_TOO_LOW"
	InvalidPriceCode        = "INVALID_PRICE"
	ProductInactiveCode     = "PRODUCT_ALREADY_INACTIVE"
	InsufficientStockCode   = "INSUFFICIENT_STOCK"
	StockLimitCode          = "STOCK_LIMIT_EXCEEDED"
	InvalidCategoryCode     = "INVALID_CATEGORY"
	RouteNotFoundCode       = "ROUTE_NOT_FOUND"
	MethodNotAllowedCode    = "METHOD_NOT_ALLOWED"
	StoreUnavailableCode    = "STORE_UNAVAILABLE"
	RateLimitedCode         = "RATE_LIMITED"
	InternalCode            = "INTERNAL_SERVER_ERROR"
)

var (
	ValidationErr         = zerror.New(zerror.StatusValidationFailed, ValidationErrorCode, "validation error")
	InvalidRequestBodyErr = zerror.New(zerror.StatusBadRequest, InvalidRequestBodyCode, "invalid request body")
	InvalidProductIDErr   = zerror.New(zerror.StatusBadRequest, InvalidProductIDCode, "invalid product id")

	ProductNotFoundErr     = zerror.New(zerror.StatusNotFound, ProductNotFoundCode, "product not found")
	ProductNameConflictErr = zerror.New(zerror.StatusConflict, ProductNameConflictCode, "a product with this name already exists")

	PriceTooLowErr       = zerror.New(zerror.StatusValidationFailed, PriceTooLowCode, "price must be at least 0.01")
	InvalidPriceErr      = zerror.New(zerror.StatusValidationFailed, InvalidPriceCode, "price must have at most 2 decimal places and be at most 9999999999.99")
	ProductInactiveErr   = zerror.New(zerror.StatusBadRequest, ProductInactiveCode, "product is already inactive")
	InsufficientStockErr = zerror.New(zerror.StatusBadRequest, InsufficientStockCode, "insufficient stock for this adjustment")
	StockLimitErr        = zerror.New(zerror.StatusBadRequest, StockLimitCode, "stock would exceed 2147483647")
	InvalidCategoryErr   = zerror.New(zerror.StatusValidationFailed, InvalidCategoryCode, "invalid category")

	RouteNotFoundErr    = zerror.New(zerror.StatusNotFound, RouteNotFoundCode, "route not found")
	MethodNotAllowedErr = zerror.New(zerror.StatusMethodNotAllowed, MethodNotAllowedCode, "method not allowed")
	StoreUnavailableErr = zerror.New(zerror.StatusServiceUnavailable, StoreUnavailableCode, "store is unavailable")
	RateLimitedErr      = zerror.New(zerror.StatusTooManyRequests, RateLimitedCode, "too many requests, try again later")
	InternalErr         = zerror.New(zerror.StatusInternalServerError, InternalCode, "an unknown error occurred")
)
