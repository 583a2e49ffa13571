// Package apitest runs the real API against an in-memory database for
// client-side tests.
package apitest

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/freezer/internal/api"
	"github.com/erazemk/freezer/internal/client"
	"github.com/erazemk/freezer/internal/db"
	"github.com/erazemk/freezer/internal/store"
	"github.com/erazemk/freezer/internal/upc"
)

// Admin credentials created by New.
const (
	AdminUser     = "admin"
	AdminPassword = "password"
)

// Server is a running API backed by a fresh database seeded with the default
// categories and an admin account.
type Server struct {
	*httptest.Server
	DB *sql.DB

	mu       sync.Mutex
	requests []string
}

// New starts a server. configure may adjust the router config, for example
// to set UPC or Now.
func New(t testing.TB, configure ...func(*api.Config)) *Server {
	t.Helper()
	database := db.NewTestDB(t)

	cfg := api.Config{DB: database, JWTSecret: "test-secret", DBPath: ":memory:"}
	for _, fn := range configure {
		fn(&cfg)
	}

	router, err := api.NewRouter(cfg)
	if err != nil {
		t.Fatalf("creating router: %v", err)
	}

	s := &Server{DB: database}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Method+" "+r.URL.Path)
		s.mu.Unlock()
		router.ServeHTTP(w, r)
	}))
	t.Cleanup(s.Close)

	if _, err := store.SeedDefaultCategories(context.Background(), database); err != nil {
		t.Fatalf("seeding categories: %v", err)
	}
	s.AddUser(t, AdminUser, AdminPassword, "admin")
	return s
}

// AddUser creates an account directly in the database.
func (s *Server) AddUser(t testing.TB, username, password, role string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	if _, err := store.CreateUser(context.Background(), s.DB, username, string(hash), role); err != nil {
		t.Fatalf("creating user %s: %v", username, err)
	}
}

// Login returns a client logged in as username.
func (s *Server) Login(t testing.TB, username, password string) *client.Client {
	t.Helper()
	c := client.New(s.URL, "", 5*time.Second)
	if _, err := c.Login(context.Background(), username, password); err != nil {
		t.Fatalf("logging in as %s: %v", username, err)
	}
	return c
}

// Admin returns a client logged in as the admin.
func (s *Server) Admin(t testing.TB) *client.Client {
	t.Helper()
	return s.Login(t, AdminUser, AdminPassword)
}

// Requests returns the "METHOD /path" of every request served so far.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

// Count returns how many requests hit path with method.
func (s *Server) Count(method, path string) int {
	n := 0
	for _, r := range s.Requests() {
		if r == method+" "+path {
			n++
		}
	}
	return n
}

// Product is a record served by ProductDB.
type Product struct {
	Title    string
	Brand    string
	Category string
	Image    string
}

// ProductDB starts a fake UPCitemdb-style product database and returns a
// lookup client for it.
func ProductDB(t testing.TB, products map[string]Product) *upc.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		type item struct {
			Title    string   `json:"title"`
			Brand    string   `json:"brand"`
			Category string   `json:"category"`
			Images   []string `json:"images"`
		}
		resp := struct {
			Code  string `json:"code"`
			Total int    `json:"total"`
			Items []item `json:"items"`
		}{Code: "OK", Items: []item{}}

		if p, ok := products[r.URL.Query().Get("upc")]; ok {
			it := item{Title: p.Title, Brand: p.Brand, Category: p.Category}
			if p.Image != "" {
				it.Images = []string{p.Image}
			}
			resp.Items = append(resp.Items, it)
			resp.Total = 1
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return upc.NewClient(srv.URL)
}
