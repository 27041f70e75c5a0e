package main

// types.go defines the model types exchanged with the storefront backend.
// Every backend payload arrives wrapped in the { data, message } envelope
// declared in rpc.go.

import (
	"github.com/SamHsieh0409/smartshop-frontend/authstate"
)

// User is the authenticated profile held by the auth state store.
type User = authstate.User

// Product represents a catalog entry. Prices are flat NT$ amounts.
type Product struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	Stock       int    `json:"stock"`
	Category    string `json:"category"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl"`
}

// ProductPage is the paginated shape returned by /products/filter.
type ProductPage struct {
	Content       []*Product `json:"content"`
	TotalPages    int        `json:"totalPages"`
	TotalElements int64      `json:"totalElements"`
	Number        int        `json:"number"`
}

// CartItem is a server-derived cart line. The cart is never merged locally;
// every mutation is followed by a full re-fetch.
type CartItem struct {
	ProductID   int64  `json:"productId"`
	ProductName string `json:"productName"`
	Price       int64  `json:"price"`
	Qty         int    `json:"qty"`
	ImageURL    string `json:"imageUrl"`
}

// Order statuses as reported by the backend.
const (
	OrderStatusPending = "PENDING"
	OrderStatusPaid    = "PAID"
)

// OrderItem is a single line of a placed order.
type OrderItem struct {
	ProductID   int64  `json:"productId"`
	ProductName string `json:"productName"`
	Qty         int    `json:"qty"`
	Subtotal    int64  `json:"subtotal"`
}

// Order is a placed order. It transitions PENDING -> PAID via payment
// confirmation.
type Order struct {
	ID          int64        `json:"id"`
	Status      string       `json:"status"`
	CreatedAt   string       `json:"createdAt"`
	TotalAmount int64        `json:"totalAmount"`
	Items       []*OrderItem `json:"items"`
}

// ChatReply is the structured answer from the AI assistant, optionally
// carrying recommended products to render as mini-cards.
type ChatReply struct {
	Reply    string     `json:"reply"`
	Products []*Product `json:"products"`
}
