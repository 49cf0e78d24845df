package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationErrorMatchesSentinel(t *testing.T) {
	ve := NewValidation("name", "The name field is required.")
	ve.Add("price", "The price must be at least 0.")
	ve.Add("name", "ignored second message")

	wrapped := fmt.Errorf("create product: %w", ve)

	assert.True(t, errors.Is(wrapped, ErrValidation))
	assert.False(t, errors.Is(wrapped, ErrConflict))
	assert.Equal(t, "The name field is required.", Fields(wrapped)["name"])
	assert.Len(t, Fields(wrapped), 2)
	assert.Equal(t, "validation failed: name: The name field is required.; price: The price must be at least 0.", ve.Error())
}

func TestValidationErrorOrNil(t *testing.T) {
	ve := &ValidationError{}
	assert.NoError(t, ve.OrNil())

	ve.Add("email", "bad")
	assert.Error(t, ve.OrNil())
}

func TestConflictErrorCarriesField(t *testing.T) {
	err := fmt.Errorf("create: %w", NewConflict("product_number", "The product number has already been taken."))

	assert.True(t, errors.Is(err, ErrConflict))
	assert.Equal(t, map[string]string{"product_number": "The product number has already been taken."}, Fields(err))
	assert.Nil(t, Fields(ErrNotFound))
}
