// Copyright 2024 Google LLC
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
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/SamHsieh0409/smartshop-frontend/notify"
	"github.com/SamHsieh0409/smartshop-frontend/validator"
)

// loginPageHandler renders the login page (GET /login).
func (fe *frontendServer) loginPageHandler(w http.ResponseWriter, r *http.Request) {
	data := map[string]interface{}{}
	if r.URL.Query().Get("registered") == "true" {
		data["success_message"] = "註冊成功！請登入 😄"
	}
	if err := templates.ExecuteTemplate(w, "login", injectCommonTemplateData(r, data)); err != nil {
		log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
		log.Error(err)
	}
}

// loginSubmitHandler handles the login form submission (POST /login).
func (fe *frontendServer) loginSubmitHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	sess := sessionFromContext(r.Context())

	payload := validator.LoginPayload{
		Username: r.FormValue("username"),
		Password: r.FormValue("password"),
	}
	if err := payload.Validate(); err != nil {
		if templateErr := templates.ExecuteTemplate(w, "login", injectCommonTemplateData(r, map[string]interface{}{
			"login_error": "請輸入帳號與密碼！",
			"username":    payload.Username,
		})); templateErr != nil {
			log.Error(templateErr)
		}
		return
	}

	user, backendSess, err := fe.authLogin(r.Context(), payload.Username, payload.Password)
	if err != nil {
		log.WithField("error", err).Warn("login failed")
		if templateErr := templates.ExecuteTemplate(w, "login", injectCommonTemplateData(r, map[string]interface{}{
			"login_error": apiMessage(err, "登入失敗，請稍後再試"),
			"username":    payload.Username,
		})); templateErr != nil {
			log.Error(templateErr)
		}
		return
	}

	// Re-host the backend's session cookie under this origin so every later
	// backend call carries the credentials.
	if backendSess != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     cookieBackendSession,
			Value:    backendSess,
			Path:     "/",
			MaxAge:   cookieMaxAge,
			HttpOnly: true,
		})
	}
	sess.Auth.Login(user)
	sess.Notifier.Show("登入成功！歡迎回來 😄", notify.Success)
	log.WithField("username", user.Username).Info("user logged in successfully")

	http.Redirect(w, r, baseUrl+"/", http.StatusFound)
}

// registerPageHandler renders the registration page (GET /register).
func (fe *frontendServer) registerPageHandler(w http.ResponseWriter, r *http.Request) {
	if err := templates.ExecuteTemplate(w, "register", injectCommonTemplateData(r, map[string]interface{}{})); err != nil {
		log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
		log.Error(err)
	}
}

// registerSubmitHandler handles the registration form submission (POST /register).
func (fe *frontendServer) registerSubmitHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)

	payload := validator.RegisterPayload{
		Username: r.FormValue("username"),
		Email:    r.FormValue("email"),
		Password: r.FormValue("password"),
	}
	renderWithError := func(msg string) {
		if templateErr := templates.ExecuteTemplate(w, "register", injectCommonTemplateData(r, map[string]interface{}{
			"register_error": msg,
			"username":       payload.Username,
			"email":          payload.Email,
		})); templateErr != nil {
			log.Error(templateErr)
		}
	}

	if err := payload.Validate(); err != nil {
		renderWithError("請完整填寫所有欄位！")
		return
	}
	if err := fe.authRegister(r.Context(), payload.Username, payload.Email, payload.Password); err != nil {
		log.WithField("error", err).Warn("registration failed")
		renderWithError(apiMessage(err, "註冊失敗，請稍後再試"))
		return
	}

	log.WithField("username", payload.Username).Info("user registered successfully")
	http.Redirect(w, r, baseUrl+"/login?registered=true", http.StatusFound)
}

// logoutHandler terminates the backend session, clears local auth state and
// the re-hosted backend cookie, and returns to the catalog (GET /logout).
func (fe *frontendServer) logoutHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	sess := sessionFromContext(r.Context())
	log.Debug("logging out")

	sess.Auth.Logout(r.Context())
	http.SetCookie(w, &http.Cookie{
		Name:   cookieBackendSession,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	http.Redirect(w, r, baseUrl+"/", http.StatusFound)
}
