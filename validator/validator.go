// Package validator declares the form payloads accepted by the frontend and
// validates them before any backend call is made.
package validator

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// LoginPayload is the credential form on /login.
type LoginPayload struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

func (p *LoginPayload) Validate() error {
	return validate.Struct(p)
}

// RegisterPayload is the account creation form on /register.
type RegisterPayload struct {
	Username string `validate:"required,min=3,max=32"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
}

func (p *RegisterPayload) Validate() error {
	return validate.Struct(p)
}

// AddToCartPayload guards the add-to-cart form.
type AddToCartPayload struct {
	ProductID int64 `validate:"required,gt=0"`
	Qty       int   `validate:"required,gte=1"`
}

func (p *AddToCartPayload) Validate() error {
	return validate.Struct(p)
}

// ProductPayload is the flat record posted by the admin product form.
type ProductPayload struct {
	Name        string `json:"name" validate:"required"`
	Price       int64  `json:"price" validate:"gte=0"`
	Stock       int    `json:"stock" validate:"gte=0"`
	Category    string `json:"category" validate:"required"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl" validate:"omitempty,url"`
}

func (p *ProductPayload) Validate() error {
	return validate.Struct(p)
}

// ValidationErrorResponse flattens validator errors into one error whose
// message is safe to show the user.
func ValidationErrorResponse(err error) error {
	fieldErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	parts := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		parts = append(parts, fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("validation failed: %s", strings.Join(parts, "; "))
}
