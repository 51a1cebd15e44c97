/*
Copyright 2026 Nscale.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package server provides an in-memory users service, compatible with what
// json-server offers, so the suites can run without external dependencies.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/unikorn-cloud/users-smoke/pkg/fake"
	"github.com/unikorn-cloud/users-smoke/pkg/openapi"
	"github.com/unikorn-cloud/users-smoke/pkg/server/handler/users"
)

const (
	// DefaultListenAddress matches the base URL the smoke tests default to.
	DefaultListenAddress = ":3000"

	// DefaultSeedUsers covers the fixed IDs the scenarios read and update.
	DefaultSeedUsers = 60
)

// Options configures the service.
type Options struct {
	// ListenAddress is where the server listens.
	ListenAddress string

	// SeedUsers is how many users exist at start up.
	SeedUsers int

	// Faker produces the seed users.
	Faker fake.Provider

	// Logger receives access logs.
	Logger logr.Logger
}

// Server is the stub users service.
type Server struct {
	options Options
	store   *users.Store
	faults  *Faults
}

// New returns a server with a seeded store.
func New(options Options) *Server {
	if options.ListenAddress == "" {
		options.ListenAddress = DefaultListenAddress
	}

	if options.Faker == nil {
		options.Faker = fake.New(0)
	}

	store := users.NewStore()
	store.Seed(options.SeedUsers, options.Faker)

	return &Server{
		options: options,
		store:   store,
		faults:  NewFaults(),
	}
}

// Store exposes the backing store for test setup.
func (s *Server) Store() *users.Store {
	return s.store
}

// Faults exposes fault injection.
func (s *Server) Faults() *Faults {
	return s.faults
}

// requestID echoes the caller's request ID, or makes one up.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}

		w.Header().Set("X-Request-Id", id)

		next.ServeHTTP(w, r)
	})
}

// accessLog logs every request at debug level.
func accessLog(logger logr.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.V(1).Info("request served", "method", r.Method, "path", r.URL.Path, "status", ww.Status(), "duration", time.Since(start), "traceparent", r.Header.Get("Traceparent"))
		})
	}
}

// Handler returns the HTTP handler for the service.
func (s *Server) Handler() http.Handler {
	h := users.New(s.store, s.options.Logger)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestID)
	r.Use(accessLog(s.options.Logger))
	r.Use(s.faults.Middleware)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(openapi.Spec())
	})

	r.Route("/users", h.Routes)

	return r
}

// Run serves on the configured address until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.options.ListenAddress)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.options.ListenAddress, err)
	}

	return s.Serve(ctx, listener)
}

// Serve serves on the listener until the context is cancelled.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			s.options.Logger.Error(err, "server shutdown failed")
		}
	}()

	s.options.Logger.Info("users service listening", "address", listener.Addr().String(), "users", len(s.store.List()))

	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving users api: %w", err)
	}

	return nil
}
