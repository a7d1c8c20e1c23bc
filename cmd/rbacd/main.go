// Copyright 2026 The OpenTrusty Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command rbacd is the HTTP entrypoint: a go-chi server that wires the
// Request Interceptor (C4) in front of the tenant/role administration
// API, with /healthz and /metrics mounted outside the interceptor.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/opentrusty/rbac-core/apierr"
	"github.com/opentrusty/rbac-core/audit"
	"github.com/opentrusty/rbac-core/authz"
	"github.com/opentrusty/rbac-core/config"
	"github.com/opentrusty/rbac-core/metrics"
	"github.com/opentrusty/rbac-core/middleware"
	"github.com/opentrusty/rbac-core/policy"
	"github.com/opentrusty/rbac-core/role"
	"github.com/opentrusty/rbac-core/store/postgres"
	"github.com/opentrusty/rbac-core/store/rediscache"
	"github.com/opentrusty/rbac-core/tenant"
	"github.com/opentrusty/rbac-core/user"
)

func main() {
	cfg := config.MustLoad()
	initLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.New(ctx, postgres.Config{
		Host:         cfg.DBHost,
		Port:         cfg.DBPort,
		User:         cfg.DBUser,
		Password:     cfg.DBPassword,
		Database:     cfg.DBName,
		SSLMode:      cfg.DBSSLMode,
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
	})
	if err != nil {
		slog.Error("rbacd: failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		slog.Error("rbacd: failed to run migrations", "error", err)
		os.Exit(1)
	}

	recorder := metrics.New(prometheus.DefaultRegisterer)

	endpointRepo := postgres.NewEndpointRepository(db)
	var store policy.Store = endpointRepo
	if cfg.RedisURL != "" {
		rdb, err := newRedisClient(cfg.RedisURL)
		if err != nil {
			slog.Error("rbacd: failed to connect to redis, continuing without cache", "error", err)
		} else {
			store = rediscache.New(store, rdb,
				rediscache.WithRecorder(recorder),
				rediscache.WithTTL(time.Duration(cfg.CacheTTL)*time.Second),
			)
		}
	}

	engine := authz.NewService(store, authz.WithRecorder(recorder))

	auditLogger := newAuditLogger(db, cfg)

	roleRepo := postgres.NewRoleRepository(db)
	tenantSvc := tenant.NewService(postgres.NewTenantRepository(db), postgres.NewSubscriptionRepository(db), roleRepo, auditLogger)
	userSvc := user.NewService(postgres.NewUserRepository(db), auditLogger)
	overrideSvc := policy.NewOverrideService(endpointRepo, auditLogger)

	router := chi.NewRouter()
	router.Get("/healthz", handleHealthz)
	router.Handle("/metrics", promhttp.Handler())

	router.Group(func(r chi.Router) {
		r.Use(middleware.Authorize(engine, middleware.Config{
			BypassPrefixes: cfg.BypassPrefixList(),
			Extractor:      headerPrincipalExtractor,
			Audit:          auditLogger,
		}))
		mountTenantAdminAPI(r, tenantSvc, roleRepo)
		mountUserAPI(r, userSvc)
		mountOverrideAPI(r, overrideSvc)
	})

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		slog.Info("rbacd: listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("rbacd: server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("rbacd: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("rbacd: graceful shutdown failed", "error", err)
	}
}

// initLogger installs the process-wide slog handler. JSON by default;
// LOG_FORMAT=text switches to a human-readable handler for local runs.
func initLogger(cfg config.Config) {
	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func newRedisClient(redisURL string) (redis.UniversalClient, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return client, nil
}

// newAuditLogger always includes the durable repository-backed sink;
// it adds a Kafka sink on top when brokers are configured.
func newAuditLogger(db *postgres.DB, cfg config.Config) audit.Logger {
	base := audit.NewRepositoryLogger(postgres.NewAuditRepository(db))

	brokers := cfg.KafkaBrokerList()
	if len(brokers) == 0 {
		return base
	}
	return audit.NewMultiLogger(base, audit.NewKafkaLogger(brokers, cfg.KafkaTopic))
}

// headerPrincipalExtractor reads the authenticated principal from
// headers an upstream authentication layer is expected to set. Per
// spec.md §1, authentication itself is an external collaborator; this
// extractor only consumes its outcome.
func headerPrincipalExtractor(r *http.Request) (userID, tenantID string, ok bool) {
	userID = r.Header.Get("X-User-ID")
	tenantID = r.Header.Get("X-Tenant-ID")
	if userID == "" || tenantID == "" {
		return "", "", false
	}
	return userID, tenantID, true
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// mountTenantAdminAPI wires the tenant/role administration surface
// behind the Request Interceptor. It only mounts the chi routes and
// registers nothing with the catalog: these routes' (module, submodule,
// action) come from cmd/rbacsync's manifest (the registry.Registry
// itself lives in the manifest, not in this process, per spec.md §9's
// explicit-registration redesign).
func mountTenantAdminAPI(r chi.Router, tenantSvc *tenant.Service, roleRepo role.Repository) {
	r.Route("/api/tenants", func(r chi.Router) {
		r.Post("/", handleCreateTenant(tenantSvc))
		r.Get("/{tenantID}", handleGetTenant(tenantSvc))
		r.Route("/{tenantID}/roles", func(r chi.Router) {
			r.Get("/", handleListRoles(roleRepo))
			r.Post("/{roleID}/assignments/{userID}", handleAssignRole(tenantSvc))
			r.Delete("/{roleID}/assignments/{userID}", handleRevokeRole(tenantSvc))
		})
	})
}

// mountUserAPI wires identity-reference provisioning: the admin surface
// for recording a user seen by the upstream authentication system.
func mountUserAPI(r chi.Router, userSvc *user.Service) {
	r.Route("/api/users", func(r chi.Router) {
		r.Post("/", handleProvisionUser(userSvc))
		r.Get("/{userID}", handleGetUser(userSvc))
	})
}

// mountOverrideAPI wires the layer L4 (tenant override) and layer L5
// (user block) admin levers.
func mountOverrideAPI(r chi.Router, overrideSvc *policy.OverrideService) {
	r.Route("/api/tenants/{tenantID}/operations/{operationID}/override", func(r chi.Router) {
		r.Post("/", handleSetTenantOverride(overrideSvc))
		r.Delete("/", handleClearTenantOverride(overrideSvc))
	})
	r.Route("/api/tenants/{tenantID}/operations/{operationID}/blocks/{userID}", func(r chi.Router) {
		r.Post("/", handleBlockUser(overrideSvc))
		r.Delete("/", handleUnblockUser(overrideSvc))
	})
}

type createTenantRequest struct {
	Name    string `json:"name"`
	ActorID string `json:"actor_id"`
}

func handleCreateTenant(svc *tenant.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createTenantRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apierr.Write(w, r.URL.Path, &apierr.ValidationError{Detail: "invalid request body"})
			return
		}
		t, err := svc.CreateTenant(r.Context(), req.Name, req.ActorID)
		if err != nil {
			apierr.Write(w, r.URL.Path, &apierr.ValidationError{Detail: err.Error()})
			return
		}
		writeJSON(w, http.StatusCreated, t)
	}
}

func handleGetTenant(svc *tenant.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := svc.GetTenant(r.Context(), chi.URLParam(r, "tenantID"))
		if err != nil {
			apierr.Write(w, r.URL.Path, &apierr.NotFoundError{Resource: "tenant"})
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

func handleListRoles(roleRepo role.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roles, err := roleRepo.List(r.Context(), chi.URLParam(r, "tenantID"))
		if err != nil {
			apierr.Write(w, r.URL.Path, err)
			return
		}
		writeJSON(w, http.StatusOK, roles)
	}
}

func handleAssignRole(svc *tenant.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := chi.URLParam(r, "tenantID")
		roleID := chi.URLParam(r, "roleID")
		userID := chi.URLParam(r, "userID")
		grantedBy := r.Header.Get("X-User-ID")

		if err := svc.AssignRole(r.Context(), tenantID, userID, roleID, grantedBy); err != nil {
			apierr.Write(w, r.URL.Path, &apierr.ValidationError{Detail: err.Error()})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleRevokeRole(svc *tenant.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := chi.URLParam(r, "tenantID")
		roleID := chi.URLParam(r, "roleID")
		userID := chi.URLParam(r, "userID")
		actorID := r.Header.Get("X-User-ID")

		if err := svc.RevokeRole(r.Context(), tenantID, userID, roleID, actorID); err != nil {
			apierr.Write(w, r.URL.Path, &apierr.ValidationError{Detail: err.Error()})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type provisionUserRequest struct {
	UserID  string       `json:"user_id"`
	Profile user.Profile `json:"profile"`
	ActorID string       `json:"actor_id"`
}

func handleProvisionUser(svc *user.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req provisionUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apierr.Write(w, r.URL.Path, &apierr.ValidationError{Detail: "invalid request body"})
			return
		}
		u, err := svc.Provision(r.Context(), req.UserID, req.Profile, req.ActorID)
		if err != nil {
			apierr.Write(w, r.URL.Path, &apierr.ValidationError{Detail: err.Error()})
			return
		}
		writeJSON(w, http.StatusCreated, u)
	}
}

func handleGetUser(svc *user.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := svc.GetUser(r.Context(), chi.URLParam(r, "userID"))
		if err != nil || u == nil {
			apierr.Write(w, r.URL.Path, &apierr.NotFoundError{Resource: "user"})
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}

func handleSetTenantOverride(svc *policy.OverrideService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Enabled bool   `json:"enabled"`
			ActorID string `json:"actor_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apierr.Write(w, r.URL.Path, &apierr.ValidationError{Detail: "invalid request body"})
			return
		}

		tenantID := chi.URLParam(r, "tenantID")
		operationID := chi.URLParam(r, "operationID")
		var (
			override *policy.TenantApiOverride
			err      error
		)
		if req.Enabled {
			override, err = svc.EnableForTenant(r.Context(), tenantID, operationID, req.ActorID)
		} else {
			override, err = svc.DisableForTenant(r.Context(), tenantID, operationID, req.ActorID)
		}
		if err != nil {
			apierr.Write(w, r.URL.Path, &apierr.ValidationError{Detail: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, override)
	}
}

func handleClearTenantOverride(svc *policy.OverrideService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID := r.Header.Get("X-User-ID")
		if err := svc.ClearTenantOverride(r.Context(), chi.URLParam(r, "tenantID"), chi.URLParam(r, "operationID"), actorID); err != nil {
			apierr.Write(w, r.URL.Path, &apierr.ValidationError{Detail: err.Error()})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleBlockUser(svc *policy.OverrideService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Reason  string `json:"reason"`
			ActorID string `json:"actor_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apierr.Write(w, r.URL.Path, &apierr.ValidationError{Detail: "invalid request body"})
			return
		}
		block, err := svc.BlockUser(r.Context(), chi.URLParam(r, "tenantID"), chi.URLParam(r, "userID"), chi.URLParam(r, "operationID"), req.Reason, req.ActorID)
		if err != nil {
			apierr.Write(w, r.URL.Path, &apierr.ValidationError{Detail: err.Error()})
			return
		}
		writeJSON(w, http.StatusCreated, block)
	}
}

func handleUnblockUser(svc *policy.OverrideService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID := r.Header.Get("X-User-ID")
		tenantID := chi.URLParam(r, "tenantID")
		userID := chi.URLParam(r, "userID")
		operationID := chi.URLParam(r, "operationID")
		if err := svc.UnblockUser(r.Context(), tenantID, userID, operationID, actorID); err != nil {
			apierr.Write(w, r.URL.Path, &apierr.ValidationError{Detail: err.Error()})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
