package validator_test

import (
	"errors"
	"strconv"
	"testing"

	govalidator "github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuanvumaihuynh/inventory-service/pkg/validator"
)

type color string

func (c color) Validate() error {
	if c == "red" || c == "blue" {
		return nil
	}
	return errors.New("unknown color")
}

type payload struct {
	Name  string   `json:"name" validate:"required,notblank,min=3,max=10"`
	Price *float64 `json:"price" validate:"required,gte=0,maxdecimals=2"`
	Color color    `json:"color" validate:"required,enum"`
	Stock *int     `json:"stock,omitempty" validate:"omitempty,gte=0"`
}

func TestDefaultValidator(t *testing.T) {
	v, err := validator.NewDefaultValidator()
	require.NoError(t, err)

	price := 1.5
	zero := 0.0
	negative := -1

	t.Run("Should accept a valid payload", func(t *testing.T) {
		err := v.Validate(payload{Name: "Widget", Price: &price, Color: "red"})
		assert.NoError(t, err)
	})

	t.Run("Should accept a zero price pointer", func(t *testing.T) {
		err := v.Validate(payload{Name: "Widget", Price: &zero, Color: "blue"})
		assert.NoError(t, err)
	})

	t.Run("Should report every violation by json name", func(t *testing.T) {
		err := v.Validate(payload{Name: "ab", Color: "green", Stock: &negative})
		require.Error(t, err)
		assert.True(t, validator.IsValidationError(err))

		var validationErrs govalidator.ValidationErrors
		require.True(t, errors.As(err, &validationErrs))

		msg := validator.CombinedMessage(validationErrs)
		assert.Contains(t, msg, "name must be at least 3 characters long")
		assert.Contains(t, msg, "price is required")
		assert.Contains(t, msg, "color has invalid value: green")
		assert.Contains(t, msg, "stock must be greater than or equal to 0")
	})

	t.Run("Should reject a blank name", func(t *testing.T) {
		err := v.Validate(payload{Name: "     ", Price: &price, Color: "red"})
		require.Error(t, err)

		var validationErrs govalidator.ValidationErrors
		require.True(t, errors.As(err, &validationErrs))
		assert.Equal(t, "name must not be blank", validator.CombinedMessage(validationErrs))
	})
}

func TestDefaultValidator_MaxDecimals(t *testing.T) {
	v, err := validator.NewDefaultValidator()
	require.NoError(t, err)

	tests := []struct {
		price   float64
		wantErr bool
	}{
		{price: 19.99},
		{price: 0.1},
		{price: 9999999999.99},
		{price: 0.015, wantErr: true},
		{price: 1.001, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(strconv.FormatFloat(tt.price, 'f', -1, 64), func(t *testing.T) {
			err := v.Validate(payload{Name: "Widget", Price: &tt.price, Color: "red"})
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}

			var validationErrs govalidator.ValidationErrors
			require.True(t, errors.As(err, &validationErrs))
			assert.Equal(t, "price must have at most 2 decimal places", validator.CombinedMessage(validationErrs))
		})
	}
}

func TestDecimalPlaces(t *testing.T) {
	assert.Equal(t, 0, validator.DecimalPlaces(42))
	assert.Equal(t, 2, validator.DecimalPlaces(0.07))
	assert.Equal(t, 3, validator.DecimalPlaces(0.015))
	assert.Equal(t, 2, validator.DecimalPlaces(9999999999.99))
}
