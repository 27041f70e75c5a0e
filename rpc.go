// Copyright 2018 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"
)

// backendSessionCookie is the backend's own session cookie. Its value is
// captured at login and re-attached to every backend call so the single
// configured client always carries the user's credentials.
const backendSessionCookie = "JSESSIONID"

// apiEnvelope is the { data, message } wrapper around every backend payload.
type apiEnvelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// apiError carries the backend HTTP status and the envelope message so
// handlers can branch on 401 and surface server-supplied messages verbatim.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("backend returned status %d", e.Status)
}

// isUnauthorized reports whether err (or its cause) is a backend 401.
func isUnauthorized(err error) bool {
	var ae *apiError
	return errors.As(err, &ae) && ae.Status == http.StatusUnauthorized
}

// apiMessage extracts the server-supplied message from err, or fallback when
// there is none.
func apiMessage(err error, fallback string) string {
	var ae *apiError
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	return fallback
}

// callBackend performs one backend round trip: JSON body out, envelope in,
// session cookie attached from the request context. out, when non-nil,
// receives the envelope's data field.
func (fe *frontendServer) callBackend(ctx context.Context, method, path string, query url.Values, body interface{}, out interface{}) error {
	u := fmt.Sprintf("http://%s%s", fe.backendAddr, path)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request body")
		}
		reqBody = bytes.NewReader(raw)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if session := backendSession(ctx); session != "" {
		req.AddCookie(&http.Cookie{Name: backendSessionCookie, Value: session})
	}

	resp, err := fe.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env apiEnvelope
	dec := json.NewDecoder(resp.Body)
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		// The error body may not be an envelope at all.
		_ = dec.Decode(&env)
		return &apiError{Status: resp.StatusCode, Message: env.Message}
	}
	if err := dec.Decode(&env); err != nil {
		return errors.Wrapf(err, "decode envelope from %s %s", method, path)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return errors.Wrapf(err, "decode payload from %s %s", method, path)
		}
	}
	return nil
}

// productQuery are the paging/sorting/filter params of /products/filter.
// Page is zero-based, matching the backend.
type productQuery struct {
	Page      int
	Size      int
	SortBy    string
	Direction string
	Keyword   string
	Category  string
}

func (q productQuery) values() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("size", strconv.Itoa(q.Size))
	if q.SortBy != "" {
		v.Set("sortBy", q.SortBy)
	}
	if q.Direction != "" {
		v.Set("direction", q.Direction)
	}
	if q.Keyword != "" {
		v.Set("keyword", q.Keyword)
	}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	return v
}

func (fe *frontendServer) getProducts(ctx context.Context, q productQuery) (*ProductPage, error) {
	var page ProductPage
	if err := fe.callBackend(ctx, http.MethodGet, "/products/filter", q.values(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (fe *frontendServer) getCategories(ctx context.Context) ([]string, error) {
	var categories []string
	if err := fe.callBackend(ctx, http.MethodGet, "/products/categories", nil, nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (fe *frontendServer) getProduct(ctx context.Context, id int64) (*Product, error) {
	var product Product
	if err := fe.callBackend(ctx, http.MethodGet, fmt.Sprintf("/products/%d", id), nil, nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (fe *frontendServer) createProduct(ctx context.Context, record interface{}) error {
	return fe.callBackend(ctx, http.MethodPost, "/products", nil, record, nil)
}

func (fe *frontendServer) updateProduct(ctx context.Context, id int64, record interface{}) error {
	return fe.callBackend(ctx, http.MethodPut, fmt.Sprintf("/products/%d", id), nil, record, nil)
}

func (fe *frontendServer) deleteProduct(ctx context.Context, id int64) error {
	return fe.callBackend(ctx, http.MethodDelete, fmt.Sprintf("/products/%d", id), nil, nil, nil)
}

func (fe *frontendServer) getCart(ctx context.Context) ([]*CartItem, error) {
	var items []*CartItem
	if err := fe.callBackend(ctx, http.MethodGet, "/cart", nil, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (fe *frontendServer) insertCart(ctx context.Context, productID int64, qty int) error {
	body := struct {
		ProductID int64 `json:"productId"`
		Qty       int   `json:"qty"`
	}{productID, qty}
	return fe.callBackend(ctx, http.MethodPost, "/cart/add", nil, body, nil)
}

func (fe *frontendServer) updateCartItemQuantity(ctx context.Context, productID int64, qty int) error {
	q := url.Values{}
	q.Set("quantity", strconv.Itoa(qty))
	return fe.callBackend(ctx, http.MethodPut, fmt.Sprintf("/cart/update/%d", productID), q, nil, nil)
}

func (fe *frontendServer) removeCartItem(ctx context.Context, productID int64) error {
	return fe.callBackend(ctx, http.MethodDelete, fmt.Sprintf("/cart/remove/%d", productID), nil, nil, nil)
}

func (fe *frontendServer) clearCart(ctx context.Context) error {
	return fe.callBackend(ctx, http.MethodDelete, "/cart/clear", nil, nil, nil)
}

func (fe *frontendServer) getOrderHistory(ctx context.Context) ([]*Order, error) {
	var orders []*Order
	if err := fe.callBackend(ctx, http.MethodGet, "/orders", nil, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (fe *frontendServer) checkout(ctx context.Context) error {
	return fe.callBackend(ctx, http.MethodPost, "/orders/checkout", nil, nil, nil)
}

// confirmPayment marks an order paid through the test payment endpoint. It
// is driven by the gateway return on /orders, never twice per session for
// the same order.
func (fe *frontendServer) confirmPayment(ctx context.Context, orderID int64) error {
	return fe.callBackend(ctx, http.MethodPost, fmt.Sprintf("/payments/test/pay/%d", orderID), nil, nil, nil)
}

// paymentGatewayURL is the backend-constructed handoff to the external
// gateway; paying is a full-page navigation there.
func (fe *frontendServer) paymentGatewayURL(orderID int64) string {
	return fmt.Sprintf("http://%s/payments/ecpay/%d", fe.backendAddr, orderID)
}

func (fe *frontendServer) sendChatMessage(ctx context.Context, message string) (*ChatReply, error) {
	body := struct {
		Message string `json:"message"`
	}{message}
	var reply ChatReply
	if err := fe.callBackend(ctx, http.MethodPost, "/ai/chat", nil, body, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}
