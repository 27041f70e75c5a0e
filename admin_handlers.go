package main

// admin_handlers.go implements the admin product CRUD pages. Every route
// here sits behind requireAdmin; mutations never patch local state — the
// handler redirects back to the list, which re-fetches the current page.

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/SamHsieh0409/smartshop-frontend/notify"
	"github.com/SamHsieh0409/smartshop-frontend/validator"
)

const adminPageSize = 10

func (fe *frontendServer) adminProductListHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	sess := sessionFromContext(r.Context())

	page := parsePage(r.URL.Query().Get("page"))
	log.WithField("page", page).Debug("admin product list")

	var products []*Product
	totalPages := 1
	result, err := fe.getProducts(r.Context(), productQuery{
		Page:      page - 1,
		Size:      adminPageSize,
		SortBy:    "id",
		Direction: "desc",
	})
	if err != nil {
		log.WithField("error", err).Warn("failed to get admin product list")
		sess.Notifier.Show(apiMessage(err, "無法取得商品列表 (請重新登入)"), notify.Error)
	} else {
		products = result.Content
		totalPages = result.TotalPages
	}

	if err := templates.ExecuteTemplate(w, "admin_products", injectCommonTemplateData(r, map[string]interface{}{
		"products":    products,
		"page":        page,
		"total_pages": totalPages,
	})); err != nil {
		log.Error(err)
	}
}

// adminProductFormHandler renders the create/edit form. Edit mode pre-fills
// the record from the backend.
func (fe *frontendServer) adminProductFormHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	sess := sessionFromContext(r.Context())

	categories, err := fe.getCategories(r.Context())
	if err != nil {
		log.WithField("error", err).Warn("failed to get categories")
		sess.Notifier.Show("無法載入分類列表", notify.Error)
	}

	var product *Product
	if raw, ok := mux.Vars(r)["id"]; ok {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			renderHTTPError(log, r, w, errors.New("invalid product id"), http.StatusBadRequest)
			return
		}
		product, err = fe.getProduct(r.Context(), id)
		if err != nil {
			log.WithField("error", err).Warn("failed to load product for edit")
			sess.Notifier.Show("載入資料失敗", notify.Error)
			http.Redirect(w, r, baseUrl+"/admin/products", http.StatusFound)
			return
		}
	}

	if err := templates.ExecuteTemplate(w, "admin_product_form", injectCommonTemplateData(r, map[string]interface{}{
		"product":    product,
		"categories": categories,
	})); err != nil {
		log.Error(err)
	}
}

// adminSaveProductHandler persists the flat form record: POST /admin/products
// creates, POST /admin/products/{id} updates.
func (fe *frontendServer) adminSaveProductHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	sess := sessionFromContext(r.Context())

	price, _ := strconv.ParseInt(r.FormValue("price"), 10, 64)
	stock, _ := strconv.Atoi(r.FormValue("stock"))
	payload := validator.ProductPayload{
		Name:        r.FormValue("name"),
		Price:       price,
		Stock:       stock,
		Category:    r.FormValue("category"),
		Description: r.FormValue("description"),
		ImageURL:    r.FormValue("image_url"),
	}
	if err := payload.Validate(); err != nil {
		sess.Notifier.Show(validator.ValidationErrorResponse(err).Error(), notify.Error)
		redirectBack(w, r)
		return
	}

	if raw, ok := mux.Vars(r)["id"]; ok {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			renderHTTPError(log, r, w, errors.New("invalid product id"), http.StatusBadRequest)
			return
		}
		if err := fe.updateProduct(r.Context(), id, &payload); err != nil {
			log.WithField("error", err).Warn("product update failed")
			sess.Notifier.Show(apiMessage(err, "儲存失敗 (請確認是否為管理員)"), notify.Error)
			redirectBack(w, r)
			return
		}
		log.WithField("id", id).Info("product updated")
		sess.Notifier.Show("更新成功！", notify.Success)
	} else {
		if err := fe.createProduct(r.Context(), &payload); err != nil {
			log.WithField("error", err).Warn("product create failed")
			sess.Notifier.Show(apiMessage(err, "儲存失敗 (請確認是否為管理員)"), notify.Error)
			redirectBack(w, r)
			return
		}
		log.WithField("name", payload.Name).Info("product created")
		sess.Notifier.Show("新增成功！", notify.Success)
	}

	http.Redirect(w, r, baseUrl+"/admin/products", http.StatusFound)
}

// adminDeleteProductHandler deletes a product. The list template asks the
// user to confirm and sets confirm=yes; an unconfirmed post never reaches
// the backend.
func (fe *frontendServer) adminDeleteProductHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	sess := sessionFromContext(r.Context())

	listURL := baseUrl + "/admin/products"
	if page := r.FormValue("page"); page != "" {
		listURL += "?page=" + page
	}

	if r.FormValue("confirm") != "yes" {
		http.Redirect(w, r, listURL, http.StatusFound)
		return
	}

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		renderHTTPError(log, r, w, errors.New("invalid product id"), http.StatusBadRequest)
		return
	}
	if err := fe.deleteProduct(r.Context(), id); err != nil {
		log.WithField("id", id).WithField("error", err).Warn("product delete failed")
		sess.Notifier.Show(apiMessage(err, "刪除失敗 (請確認權限)"), notify.Error)
	} else {
		log.WithField("id", id).Info("product deleted")
		sess.Notifier.Show("刪除成功", notify.Success)
	}
	http.Redirect(w, r, listURL, http.StatusFound)
}
