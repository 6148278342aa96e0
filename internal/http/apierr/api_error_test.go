package apierr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tuanvumaihuynh/inventory-service/internal/apperr"
	"github.com/tuanvumaihuynh/inventory-service/internal/http/apierr"
	"github.com/tuanvumaihuynh/inventory-service/pkg/validator"
)

type createRequest struct {
	Name  string   `json:"name" validate:"required,min=3"`
	Price *float64 `json:"price" validate:"required,gte=0"`
}

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "not found",
			err:        fmt.Errorf("get product: %w", apperr.ProductNotFoundErr.WrapParent(errors.New("no documents"))),
			wantStatus: http.StatusNotFound,
			wantCode:   apperr.ProductNotFoundCode,
		},
		{
			name:       "conflict",
			err:        apperr.ProductNameConflictErr,
			wantStatus: http.StatusConflict,
			wantCode:   apperr.ProductNameConflictCode,
		},
		{
			name:       "business rule",
			err:        apperr.InsufficientStockErr,
			wantStatus: http.StatusBadRequest,
			wantCode:   apperr.InsufficientStockCode,
		},
		{
			name:       "method not allowed",
			err:        apperr.MethodNotAllowedErr,
			wantStatus: http.StatusMethodNotAllowed,
			wantCode:   apperr.MethodNotAllowedCode,
		},
		{
			name:       "mongo duplicate key",
			err:        fmt.Errorf("insert: %w", mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000}}}),
			wantStatus: http.StatusConflict,
			wantCode:   apperr.ProductNameConflictCode,
		},
		{
			name:       "postgres unique violation",
			err:        fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}),
			wantStatus: http.StatusConflict,
			wantCode:   apperr.ProductNameConflictCode,
		},
		{
			name:       "unknown",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   apperr.InternalCode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := apierr.New(tt.err)
			assert.Equal(t, tt.wantStatus, res.StatusCode)
			assert.Equal(t, tt.wantCode, res.Code)
			assert.False(t, res.Success)
			assert.Empty(t, res.Stack)
		})
	}
}

func TestNew_ValidationErrors(t *testing.T) {
	v, err := validator.NewDefaultValidator()
	require.NoError(t, err)

	validationErr := v.Validate(createRequest{Name: "ab"})
	require.Error(t, validationErr)

	res := apierr.New(apperr.ValidationErr.WrapParent(validationErr))

	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, apperr.ValidationErrorCode, res.Code)
	assert.Equal(t, "name must be at least 3 characters long; price is required", res.Message)
	require.Len(t, res.Details, 2)
	assert.Equal(t, apierr.FieldError{Field: "name", Message: "must be at least 3 characters long"}, res.Details[0])
	assert.Equal(t, "price", res.Details[1].Field)
}

func TestErrorResponse_WithStack(t *testing.T) {
	err := fmt.Errorf("create product: %w", apperr.ProductNameConflictErr)

	res := apierr.New(err).WithStack(err)

	require.Len(t, res.Stack, 2)
	assert.Contains(t, res.Stack[0], "create product")
	assert.Contains(t, res.Stack[1], apperr.ProductNameConflictCode)
}
