package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoginPayload(t *testing.T) {
	assert.Error(t, (&LoginPayload{}).Validate())
	assert.Error(t, (&LoginPayload{Username: "sam"}).Validate())
	assert.NoError(t, (&LoginPayload{Username: "sam", Password: "pw"}).Validate())
}

func TestRegisterPayload(t *testing.T) {
	ok := &RegisterPayload{Username: "sam123", Email: "sam@example.com", Password: "secret1"}
	assert.NoError(t, ok.Validate())

	bad := *ok
	bad.Email = "not-an-email"
	assert.Error(t, bad.Validate())

	short := *ok
	short.Password = "pw"
	assert.Error(t, short.Validate())
}

func TestAddToCartPayload(t *testing.T) {
	assert.NoError(t, (&AddToCartPayload{ProductID: 5, Qty: 1}).Validate())
	assert.Error(t, (&AddToCartPayload{ProductID: 0, Qty: 1}).Validate())
	assert.Error(t, (&AddToCartPayload{ProductID: 5, Qty: 0}).Validate())
}

func TestProductPayload(t *testing.T) {
	ok := &ProductPayload{Name: "Clean Code", Price: 680, Stock: 12, Category: "程式設計"}
	assert.NoError(t, ok.Validate())

	bad := *ok
	bad.Name = ""
	assert.Error(t, bad.Validate())

	badURL := *ok
	badURL.ImageURL = "::nope"
	assert.Error(t, badURL.Validate())
}

func TestValidationErrorResponseMessage(t *testing.T) {
	err := (&LoginPayload{}).Validate()
	flat := ValidationErrorResponse(err)
	assert.Contains(t, flat.Error(), "validation failed")
	assert.Contains(t, flat.Error(), "Username")
}
