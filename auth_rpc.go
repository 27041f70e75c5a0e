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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// --- Calls against the backend auth endpoints ---

func (fe *frontendServer) isLoggedIn(ctx context.Context) (bool, error) {
	var active bool
	if err := fe.callBackend(ctx, http.MethodGet, "/auth/isLoggedIn", nil, nil, &active); err != nil {
		return false, err
	}
	return active, nil
}

func (fe *frontendServer) getProfile(ctx context.Context) (*User, error) {
	var user User
	if err := fe.callBackend(ctx, http.MethodGet, "/auth/me", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// authLogin exchanges credentials for a profile. Unlike the other calls it
// needs the raw response: the backend establishes its session here and the
// new session cookie must be captured so it can be re-hosted under this
// frontend's origin.
func (fe *frontendServer) authLogin(ctx context.Context, username, password string) (*User, string, error) {
	raw, err := json.Marshal(struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}{username, password})
	if err != nil {
		return nil, "", errors.Wrap(err, "encode login request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("http://%s/auth/login", fe.backendAddr), bytes.NewReader(raw))
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := fe.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	var env apiEnvelope
	dec := json.NewDecoder(resp.Body)
	if resp.StatusCode != http.StatusOK {
		_ = dec.Decode(&env)
		return nil, "", &apiError{Status: resp.StatusCode, Message: env.Message}
	}
	if err := dec.Decode(&env); err != nil {
		return nil, "", errors.Wrap(err, "decode login response")
	}
	var user User
	if err := json.Unmarshal(env.Data, &user); err != nil {
		return nil, "", errors.Wrap(err, "decode login profile")
	}

	var session string
	for _, c := range resp.Cookies() {
		if c.Name == backendSessionCookie {
			session = c.Value
			break
		}
	}
	return &user, session, nil
}

func (fe *frontendServer) authLogout(ctx context.Context) error {
	return fe.callBackend(ctx, http.MethodGet, "/auth/logout", nil, nil, nil)
}

func (fe *frontendServer) authRegister(ctx context.Context, username, email, password string) error {
	body := struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}{username, email, password}
	return fe.callBackend(ctx, http.MethodPost, "/auth/register", nil, body, nil)
}

// authBackend adapts the auth endpoints to the narrow interface the auth
// state store consumes. Session credentials travel in the context like every
// other backend call.
type authBackend struct {
	fe *frontendServer
}

func (a authBackend) IsLoggedIn(ctx context.Context) (bool, error) {
	return a.fe.isLoggedIn(ctx)
}

func (a authBackend) Profile(ctx context.Context) (*User, error) {
	return a.fe.getProfile(ctx)
}

func (a authBackend) Logout(ctx context.Context) error {
	return a.fe.authLogout(ctx)
}
