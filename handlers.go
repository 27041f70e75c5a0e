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
	"fmt"
	"html/template"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/SamHsieh0409/smartshop-frontend/notify"
	"github.com/SamHsieh0409/smartshop-frontend/validator"
)

var templates = template.Must(template.New("").
	Funcs(template.FuncMap{
		"renderPrice": renderPrice,
		"add":         func(a, b int) int { return a + b },
		"sub":         func(a, b int) int { return a - b },
	}).ParseGlob("templates/*.html"))

const (
	listPageSize     = 12
	featuredPoolSize = 20
	featuredCount    = 3
)

func (fe *frontendServer) homeHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)

	q := r.URL.Query()
	page := parsePage(q.Get("page"))
	keyword := q.Get("keyword")
	category := q.Get("category")
	sortBy := q.Get("sortBy")
	if sortBy == "" {
		sortBy = "id"
	}
	log.WithField("page", page).WithField("keyword", keyword).
		WithField("category", category).Info("home")

	products, err := fe.getProducts(r.Context(), productQuery{
		Page:      page - 1,
		Size:      listPageSize,
		SortBy:    sortBy,
		Direction: "asc",
		Keyword:   keyword,
		Category:  category,
	})
	if err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "could not retrieve products"), http.StatusInternalServerError)
		return
	}

	// Categories and the featured strip are decoration; their failure never
	// blocks the catalog.
	categories, err := fe.getCategories(r.Context())
	if err != nil {
		log.WithField("error", err).Warn("failed to get categories")
	}
	featured := fe.pickFeatured(r, log)

	if err := templates.ExecuteTemplate(w, "home", injectCommonTemplateData(r, map[string]interface{}{
		"products":    products.Content,
		"page":        page,
		"total_pages": products.TotalPages,
		"keyword":     keyword,
		"category":    category,
		"sort_by":     sortBy,
		"categories":  categories,
		"featured":    featured,
	})); err != nil {
		log.Error(err)
	}
}

// pickFeatured samples a few random products from the front of the catalog.
func (fe *frontendServer) pickFeatured(r *http.Request, log logrus.FieldLogger) []*Product {
	pool, err := fe.getProducts(r.Context(), productQuery{Page: 0, Size: featuredPoolSize})
	if err != nil {
		log.WithField("error", err).Warn("failed to get featured products")
		return nil
	}
	all := append([]*Product(nil), pool.Content...)
	rand.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	if len(all) > featuredCount {
		all = all[:featuredCount]
	}
	return all
}

func (fe *frontendServer) productHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		renderHTTPError(log, r, w, errors.New("invalid product id"), http.StatusBadRequest)
		return
	}
	log.WithField("id", id).Debug("serving product page")

	p, err := fe.getProduct(r.Context(), id)
	if err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "could not retrieve product"), http.StatusInternalServerError)
		return
	}

	if err := templates.ExecuteTemplate(w, "product", injectCommonTemplateData(r, map[string]interface{}{
		"product": p,
	})); err != nil {
		log.Error(err)
	}
}

func (fe *frontendServer) addToCartHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	sess := sessionFromContext(r.Context())

	productID, _ := strconv.ParseInt(r.FormValue("product_id"), 10, 64)
	qty, _ := strconv.Atoi(r.FormValue("qty"))
	if qty == 0 {
		qty = 1
	}
	payload := validator.AddToCartPayload{ProductID: productID, Qty: qty}
	if err := payload.Validate(); err != nil {
		renderHTTPError(log, r, w, validator.ValidationErrorResponse(err), http.StatusUnprocessableEntity)
		return
	}
	log.WithField("product", productID).WithField("qty", qty).Debug("adding to cart")

	if err := fe.insertCart(r.Context(), productID, qty); err != nil {
		if isUnauthorized(err) {
			sess.Notifier.Show("請先登入！", notify.Error)
			http.Redirect(w, r, baseUrl+"/login", http.StatusFound)
			return
		}
		log.WithField("error", err).Warn("failed to add to cart")
		sess.Notifier.Show("加入失敗", notify.Error)
		redirectBack(w, r)
		return
	}
	sess.Notifier.Show("加入購物車成功", notify.Success)

	// Best-effort: the add succeeded, so a failed cart-count refresh is
	// logged and swallowed rather than surfaced.
	if user, _ := sess.Auth.Snapshot(); user != nil {
		if err := sess.Auth.Refresh(r.Context()); err != nil {
			log.WithField("error", err).Warn("cart count refresh failed after add")
		}
	}
	redirectBack(w, r)
}

func (fe *frontendServer) viewCartHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	sess := sessionFromContext(r.Context())
	log.Debug("view user cart")

	items, err := fe.getCart(r.Context())
	if err != nil {
		if isUnauthorized(err) {
			sess.Notifier.Show("請先登入", notify.Error)
			http.Redirect(w, r, baseUrl+"/login", http.StatusFound)
			return
		}
		renderHTTPError(log, r, w, errors.Wrap(err, "could not retrieve cart"), http.StatusInternalServerError)
		return
	}

	type cartItemView struct {
		Item     *CartItem
		LineCost int64
	}
	views := make([]cartItemView, len(items))
	var total int64
	for i, item := range items {
		line := item.Price * int64(item.Qty)
		views[i] = cartItemView{Item: item, LineCost: line}
		total += line
	}

	if err := templates.ExecuteTemplate(w, "cart", injectCommonTemplateData(r, map[string]interface{}{
		"items":      views,
		"total_cost": total,
		"cart_size":  len(items),
	})); err != nil {
		log.Error(err)
	}
}

func (fe *frontendServer) updateCartItemHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	sess := sessionFromContext(r.Context())

	productID, err := strconv.ParseInt(r.FormValue("product_id"), 10, 64)
	qty, qerr := strconv.Atoi(r.FormValue("qty"))
	if err != nil || qerr != nil {
		renderHTTPError(log, r, w, errors.New("invalid product_id or qty"), http.StatusBadRequest)
		return
	}
	// The decrement button below qty 1 lands here: the backend is never
	// asked to set a non-positive quantity.
	if qty <= 0 {
		http.Redirect(w, r, baseUrl+"/cart", http.StatusFound)
		return
	}
	log.WithField("product_id", productID).WithField("qty", qty).Debug("updating cart item quantity")

	if err := fe.updateCartItemQuantity(r.Context(), productID, qty); err != nil {
		log.WithField("error", err).Warn("failed to update cart item")
		sess.Notifier.Show("更新數量失敗", notify.Error)
	}
	http.Redirect(w, r, baseUrl+"/cart", http.StatusFound)
}

func (fe *frontendServer) removeCartItemHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	sess := sessionFromContext(r.Context())

	productID, err := strconv.ParseInt(r.FormValue("product_id"), 10, 64)
	if err != nil {
		renderHTTPError(log, r, w, errors.New("invalid product_id"), http.StatusBadRequest)
		return
	}
	if err := fe.removeCartItem(r.Context(), productID); err != nil {
		log.WithField("error", err).Warn("failed to remove cart item")
		sess.Notifier.Show("移除失敗", notify.Error)
	}
	http.Redirect(w, r, baseUrl+"/cart", http.StatusFound)
}

func (fe *frontendServer) emptyCartHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	sess := sessionFromContext(r.Context())
	log.Debug("emptying cart")

	if err := fe.clearCart(r.Context()); err != nil {
		log.WithField("error", err).Warn("failed to empty cart")
		sess.Notifier.Show("清空失敗", notify.Error)
	}
	http.Redirect(w, r, baseUrl+"/cart", http.StatusFound)
}

func (fe *frontendServer) checkoutHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	sess := sessionFromContext(r.Context())
	log.Debug("placing order")

	if err := fe.checkout(r.Context()); err != nil {
		log.WithField("error", err).Warn("checkout failed")
		sess.Notifier.Show(apiMessage(err, "結帳失敗"), notify.Error)
		http.Redirect(w, r, baseUrl+"/cart", http.StatusFound)
		return
	}
	sess.Notifier.Show("結帳成功！", notify.Success)
	http.Redirect(w, r, baseUrl+"/orders", http.StatusFound)
}

func (fe *frontendServer) orderHistoryHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	sess := sessionFromContext(r.Context())

	// Gateway return: ?orderId=N means the external gateway bounced the
	// browser back here. Confirm at most once per session per order, then
	// strip the identifier so a reload cannot replay the return.
	if raw := r.URL.Query().Get("orderId"); raw != "" {
		if orderID, err := strconv.ParseInt(raw, 10, 64); err == nil {
			if sess.claimPaymentReturn(orderID) {
				if err := fe.confirmPayment(r.Context(), orderID); err != nil {
					log.WithField("order", orderID).WithField("error", err).Warn("payment confirmation failed")
					sess.Notifier.Show("付款失敗，請稍後再試", notify.Error)
				} else {
					log.WithField("order", orderID).Info("payment confirmed")
					sess.Notifier.Show(fmt.Sprintf("訂單 #%d 付款成功！", orderID), notify.Success)
				}
			}
		}
		http.Redirect(w, r, baseUrl+"/orders", http.StatusFound)
		return
	}

	log.Debug("view order history")
	orders, err := fe.getOrderHistory(r.Context())
	if err != nil {
		if isUnauthorized(err) {
			http.Redirect(w, r, baseUrl+"/login", http.StatusFound)
			return
		}
		renderHTTPError(log, r, w, errors.Wrap(err, "could not retrieve order history"), http.StatusInternalServerError)
		return
	}

	if err := templates.ExecuteTemplate(w, "orders", injectCommonTemplateData(r, map[string]interface{}{
		"orders": orders,
	})); err != nil {
		log.Error(err)
	}
}

// payOrderHandler hands the browser to the external payment gateway with a
// full-page navigation. The gateway redirects back to /orders?orderId=N.
func (fe *frontendServer) payOrderHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)

	orderID, err := strconv.ParseInt(r.FormValue("order_id"), 10, 64)
	if err != nil {
		renderHTTPError(log, r, w, errors.New("invalid order_id"), http.StatusBadRequest)
		return
	}
	log.WithField("order", orderID).Info("redirecting to payment gateway")
	http.Redirect(w, r, fe.paymentGatewayURL(orderID), http.StatusFound)
}

func renderHTTPError(log logrus.FieldLogger, r *http.Request, w http.ResponseWriter, err error, code int) {
	log.WithField("error", err).Error("request error")
	errMsg := fmt.Sprintf("%+v", err)

	w.WriteHeader(code)

	if templateErr := templates.ExecuteTemplate(w, "error", injectCommonTemplateData(r, map[string]interface{}{
		"error":       errMsg,
		"status_code": code,
		"status":      http.StatusText(code),
	})); templateErr != nil {
		log.Error(templateErr)
	}
}

func injectCommonTemplateData(r *http.Request, payload map[string]interface{}) map[string]interface{} {
	data := map[string]interface{}{
		"session_id":   sessionID(r),
		"request_id":   r.Context().Value(ctxKeyRequestID{}),
		"baseUrl":      baseUrl,
		"current_year": time.Now().Year(),
	}
	if sess := sessionFromContext(r.Context()); sess != nil {
		user, loading := sess.Auth.Snapshot()
		data["user"] = user
		data["auth_loading"] = loading
		data["notifications"] = sess.Notifier.Active()
	}

	for k, v := range payload {
		data[k] = v
	}
	return data
}

func sessionID(r *http.Request) string {
	v := r.Context().Value(ctxKeySessionID{})
	if v != nil {
		return v.(string)
	}
	return ""
}

// redirectBack returns to the referring page, falling back to the catalog.
func redirectBack(w http.ResponseWriter, r *http.Request) {
	referer := r.Header.Get("referer")
	if referer == "" {
		referer = baseUrl + "/"
	}
	http.Redirect(w, r, referer, http.StatusFound)
}

func parsePage(raw string) int {
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func renderPrice(p int64) string {
	return fmt.Sprintf("NT$ %d", p)
}
