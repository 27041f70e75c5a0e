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
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type ctxKeyLog struct{}
type ctxKeyRequestID struct{}
type ctxKeySession struct{}
type ctxKeyBackendSession struct{}
type ctxKeyUser struct{}

type logHandler struct {
	log  *logrus.Logger
	next http.Handler
}

type responseRecorder struct {
	b      int
	status int
	w      http.ResponseWriter
}

func (r *responseRecorder) Header() http.Header { return r.w.Header() }

func (r *responseRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.w.Write(p)
	r.b += n
	return n, err
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.status = statusCode
	r.w.WriteHeader(statusCode)
}

func (lh *logHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID, _ := uuid.NewRandom()
	ctx = context.WithValue(ctx, ctxKeyRequestID{}, requestID.String())

	start := time.Now()
	rr := &responseRecorder{w: w}
	log := lh.log.WithFields(logrus.Fields{
		"http.req.path":   r.URL.Path,
		"http.req.method": r.Method,
		"http.req.id":     requestID.String(),
	})
	if v, ok := ctx.Value(ctxKeySessionID{}).(string); ok {
		log = log.WithField("session", v)
	}
	log.Debug("request started")
	defer func() {
		log.WithFields(logrus.Fields{
			"http.resp.took_ms": int64(time.Since(start) / time.Millisecond),
			"http.resp.status":  rr.status,
			"http.resp.bytes":   rr.b}).Debugf("request complete")
	}()
	ctx = context.WithValue(ctx, ctxKeyLog{}, logrus.FieldLogger(log))
	r = r.WithContext(ctx)
	lh.next.ServeHTTP(rr, r)
}

// ensureSession assigns the frontend session-ID cookie, attaches the
// per-session state and the re-hosted backend session cookie to the request
// context, and fires the one-time startup auth probe for new sessions.
func (fe *frontendServer) ensureSession(next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var sessionID string
		c, err := r.Cookie(cookieSessionID)
		if err == http.ErrNoCookie {
			u, _ := uuid.NewRandom()
			sessionID = u.String()
			http.SetCookie(w, &http.Cookie{
				Name:   cookieSessionID,
				Value:  sessionID,
				Path:   "/",
				MaxAge: cookieMaxAge,
			})
		} else if err != nil {
			return
		} else {
			sessionID = c.Value
		}

		ctx := context.WithValue(r.Context(), ctxKeySessionID{}, sessionID)
		var backendSess string
		if bc, err := r.Cookie(cookieBackendSession); err == nil {
			backendSess = bc.Value
			ctx = context.WithValue(ctx, ctxKeyBackendSession{}, backendSess)
		}

		sess := fe.sessions.get(sessionID)
		ctx = context.WithValue(ctx, ctxKeySession{}, sess)

		// The session's auth state resolves once, at first sight of the
		// browser session. The probe outlives this request, so it runs on a
		// detached context carrying only the backend credentials.
		if _, loading := sess.Auth.Snapshot(); loading {
			probeCtx := context.Background()
			if backendSess != "" {
				probeCtx = context.WithValue(probeCtx, ctxKeyBackendSession{}, backendSess)
			}
			go sess.Auth.Initialize(probeCtx)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// guardState is the route guard's transition target for one navigation.
type guardState int

const (
	// guardPending: auth resolution still in flight. Neither the login
	// redirect nor protected content may be produced.
	guardPending guardState = iota
	guardDenied
	guardAllowed
)

// guardDecision maps auth store state to the guard transition. loading=true
// is a distinct state from "not logged in".
func guardDecision(user *User, loading bool) guardState {
	if loading {
		return guardPending
	}
	if user == nil {
		return guardDenied
	}
	return guardAllowed
}

// requireAuth gates protected pages. The first protected navigation of a
// session resolves the auth store synchronously, so the decision below is
// made on settled state.
func (fe *frontendServer) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFromContext(r.Context())
		if sess == nil {
			http.Error(w, "no session", http.StatusInternalServerError)
			return
		}
		if _, loading := sess.Auth.Snapshot(); loading {
			sess.Auth.Initialize(r.Context())
		}
		user, loading := sess.Auth.Snapshot()

		switch guardDecision(user, loading) {
		case guardPending:
			// Resolution did not complete within this request. Ask the
			// browser to retry instead of rendering either outcome.
			w.Header().Set("Retry-After", "1")
			http.Error(w, "session check in progress", http.StatusServiceUnavailable)
		case guardDenied:
			http.Redirect(w, r, baseUrl+"/login", http.StatusFound)
		default:
			ctx := context.WithValue(r.Context(), ctxKeyUser{}, user)
			next(w, r.WithContext(ctx))
		}
	}
}

// requireAdmin additionally bounces non-admin visitors to the catalog root.
func (fe *frontendServer) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return fe.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		if user := currentUser(r.Context()); !user.IsAdmin() {
			http.Redirect(w, r, baseUrl+"/", http.StatusFound)
			return
		}
		next(w, r)
	})
}

func sessionFromContext(ctx context.Context) *session {
	if s, ok := ctx.Value(ctxKeySession{}).(*session); ok {
		return s
	}
	return nil
}

func backendSession(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyBackendSession{}).(string); ok {
		return v
	}
	return ""
}

func currentUser(ctx context.Context) *User {
	if u, ok := ctx.Value(ctxKeyUser{}).(*User); ok {
		return u
	}
	return nil
}
