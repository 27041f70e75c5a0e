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
	"fmt"
	"net/http"
	"os"
	"time"

	"cloud.google.com/go/profiler"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/SamHsieh0409/smartshop-frontend/authstate"
	"github.com/SamHsieh0409/smartshop-frontend/notify"
)

const (
	port         = "8080"
	cookieMaxAge = 60 * 60 * 48

	cookiePrefix         = "shop_"
	cookieSessionID      = cookiePrefix + "session-id"
	cookieBackendSession = cookiePrefix + "backend-session"
)

var (
	baseUrl = ""
)

type ctxKeySessionID struct{}

type frontendServer struct {
	backendAddr string

	httpClient *http.Client
	sessions   *sessionRegistry
}

func main() {
	ctx := context.Background()
	log := logrus.New()
	log.Level = logrus.DebugLevel
	log.Formatter = &logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "severity",
			logrus.FieldKeyMsg:   "message",
		},
		TimestampFormat: time.RFC3339Nano,
	}
	log.Out = os.Stdout

	// Local development convenience; a missing .env is fine.
	_ = godotenv.Load()

	svc := new(frontendServer)
	svc.httpClient = &http.Client{Timeout: 10 * time.Second}
	svc.sessions = newSessionRegistry(func() *session {
		return &session{
			Auth:     authstate.New(authBackend{fe: svc}, log),
			Notifier: notify.New(),
		}
	})

	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{}, propagation.Baggage{}))

	baseUrl = os.Getenv("BASE_URL")

	if os.Getenv("ENABLE_TRACING") == "1" {
		log.Info("Tracing enabled.")
		initTracing(log, ctx)
	} else {
		log.Info("Tracing disabled.")
	}

	if os.Getenv("ENABLE_PROFILER") == "1" {
		log.Info("Profiling enabled.")
		go initProfiling(log, "frontend", "1.0.0")
	} else {
		log.Info("Profiling disabled.")
	}

	srvPort := port
	if os.Getenv("PORT") != "" {
		srvPort = os.Getenv("PORT")
	}
	addr := os.Getenv("LISTEN_ADDR")
	mustMapEnv(&svc.backendAddr, "BACKEND_ADDR")

	r := svc.routes()

	var handler http.Handler = r
	handler = &logHandler{log: log, next: handler}     // add logging
	handler = svc.ensureSession(handler)               // add session state
	handler = otelhttp.NewHandler(handler, "frontend") // add OTel tracing

	log.Infof("starting server on %s:%s", addr, srvPort)
	log.Fatal(http.ListenAndServe(addr+":"+srvPort, handler))
}

// routes builds the full route table. Split out of main so tests can mount
// the same router against a fake backend.
func (fe *frontendServer) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc(baseUrl+"/", fe.homeHandler).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc(baseUrl+"/product/{id:[0-9]+}", fe.productHandler).Methods(http.MethodGet, http.MethodHead)

	r.HandleFunc(baseUrl+"/cart/add", fe.addToCartHandler).Methods(http.MethodPost)
	r.HandleFunc(baseUrl+"/cart", fe.requireAuth(fe.viewCartHandler)).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc(baseUrl+"/cart/update", fe.requireAuth(fe.updateCartItemHandler)).Methods(http.MethodPost)
	r.HandleFunc(baseUrl+"/cart/remove", fe.requireAuth(fe.removeCartItemHandler)).Methods(http.MethodPost)
	r.HandleFunc(baseUrl+"/cart/empty", fe.requireAuth(fe.emptyCartHandler)).Methods(http.MethodPost)
	r.HandleFunc(baseUrl+"/cart/checkout", fe.requireAuth(fe.checkoutHandler)).Methods(http.MethodPost)

	r.HandleFunc(baseUrl+"/orders", fe.requireAuth(fe.orderHistoryHandler)).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc(baseUrl+"/orders/pay", fe.requireAuth(fe.payOrderHandler)).Methods(http.MethodPost)

	r.HandleFunc(baseUrl+"/login", fe.loginPageHandler).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc(baseUrl+"/login", fe.loginSubmitHandler).Methods(http.MethodPost)
	r.HandleFunc(baseUrl+"/register", fe.registerPageHandler).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc(baseUrl+"/register", fe.registerSubmitHandler).Methods(http.MethodPost)
	r.HandleFunc(baseUrl+"/logout", fe.logoutHandler).Methods(http.MethodGet)

	r.HandleFunc(baseUrl+"/admin/products", fe.requireAdmin(fe.adminProductListHandler)).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc(baseUrl+"/admin/products", fe.requireAdmin(fe.adminSaveProductHandler)).Methods(http.MethodPost)
	r.HandleFunc(baseUrl+"/admin/products/new", fe.requireAdmin(fe.adminProductFormHandler)).Methods(http.MethodGet)
	r.HandleFunc(baseUrl+"/admin/products/{id:[0-9]+}/edit", fe.requireAdmin(fe.adminProductFormHandler)).Methods(http.MethodGet)
	r.HandleFunc(baseUrl+"/admin/products/{id:[0-9]+}", fe.requireAdmin(fe.adminSaveProductHandler)).Methods(http.MethodPost)
	r.HandleFunc(baseUrl+"/admin/products/{id:[0-9]+}/delete", fe.requireAdmin(fe.adminDeleteProductHandler)).Methods(http.MethodPost)

	r.HandleFunc(baseUrl+"/chat", fe.chatHandler).Methods(http.MethodPost)

	r.PathPrefix(baseUrl + "/static/").Handler(http.StripPrefix(baseUrl+"/static/", http.FileServer(http.Dir("./static/"))))
	r.HandleFunc(baseUrl+"/robots.txt", func(w http.ResponseWriter, _ *http.Request) { fmt.Fprint(w, "User-agent: *\nDisallow: /") })
	r.HandleFunc(baseUrl+"/_healthz", func(w http.ResponseWriter, _ *http.Request) { fmt.Fprint(w, "ok") })
	return r
}

func initTracing(log logrus.FieldLogger, ctx context.Context) (*sdktrace.TracerProvider, error) {
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()))
	otel.SetTracerProvider(tp)
	log.Info("Tracing provider initialized (no exporter configured)")
	return tp, nil
}

func initProfiling(log logrus.FieldLogger, service, version string) {
	for i := 1; i <= 3; i++ {
		log = log.WithField("retry", i)
		if err := profiler.Start(profiler.Config{
			Service:        service,
			ServiceVersion: version,
			// ProjectID must be set if not running on GCP.
			// ProjectID: "my-project",
		}); err != nil {
			log.Warnf("warn: failed to start profiler: %+v", err)
		} else {
			log.Info("started Stackdriver profiler")
			return
		}
		d := time.Second * 10 * time.Duration(i)
		log.Debugf("sleeping %v to retry initializing Stackdriver profiler", d)
		time.Sleep(d)
	}
	log.Warn("warning: could not initialize Stackdriver profiler after retrying, giving up")
}

func mustMapEnv(target *string, envKey string) {
	v := os.Getenv(envKey)
	if v == "" {
		panic(fmt.Sprintf("environment variable %q not set", envKey))
	}
	*target = v
}
