package upc

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erazemk/freezer/internal/model"
)

func fakeDatabase(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/lookup" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("upc") {
		case "012345678901":
			w.Write([]byte(`{"code":"OK","total":1,"items":[{
				"title":"Premium Vanilla Ice Cream","brand":"Acme","description":"Rich and creamy",
				"category":"Food > Frozen Foods > Ice Cream","images":["https://img.example/1.jpg","https://img.example/2.jpg"]}]}`))
		case "999999999999":
			w.Write([]byte(`{"code":"OK","total":0,"items":[]}`))
		default:
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"code":"TOO_FAST"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLookupFound(t *testing.T) {
	c := NewClient(fakeDatabase(t).URL + "/")

	p, err := c.Lookup(context.Background(), "012345678901")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if p.Title != "Premium Vanilla Ice Cream" || p.Brand != "Acme" {
		t.Errorf("unexpected product: %+v", p)
	}
	if p.ImageURL != "https://img.example/1.jpg" {
		t.Errorf("expected first image, got %q", p.ImageURL)
	}
	if p.Notes() != "Brand: Acme. Rich and creamy" {
		t.Errorf("unexpected notes %q", p.Notes())
	}
}

func TestLookupNotFound(t *testing.T) {
	c := NewClient(fakeDatabase(t).URL)

	_, err := c.Lookup(context.Background(), "999999999999")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLookupUpstreamError(t *testing.T) {
	c := NewClient(fakeDatabase(t).URL)

	_, err := c.Lookup(context.Background(), "111111111111")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("expected upstream error, got %v", err)
	}
}

func TestLookupValidatesBeforeRequest(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL).Lookup(context.Background(), "12345"); err == nil {
		t.Error("expected validation error")
	}
	if called {
		t.Error("invalid UPC must not reach the product database")
	}
}

func TestLookupDisabled(t *testing.T) {
	if _, err := NewClient("").Lookup(context.Background(), "012345678901"); !errors.Is(err, ErrDisabled) {
		t.Errorf("expected ErrDisabled, got %v", err)
	}
}

func TestMatchCategory(t *testing.T) {
	cats := []model.Category{
		{ID: 1, Name: "Beef, Steak"},
		{ID: 2, Name: "Ice Cream"},
		{ID: 3, Name: "Fish"},
	}

	tests := []struct {
		product Product
		want    int64
	}{
		{Product{Category: "Food > Frozen Foods > Ice Cream"}, 2},
		{Product{Title: "Ribeye Steak"}, 1},
		{Product{Title: "Fish sticks"}, 3},
	}
	for _, tt := range tests {
		got := MatchCategory(&tt.product, cats)
		if got == nil || *got != tt.want {
			t.Errorf("MatchCategory(%+v) = %v, want %d", tt.product, got, tt.want)
		}
	}

	if got := MatchCategory(&Product{Title: "Frozen peas"}, cats); got != nil {
		t.Errorf("expected no match, got %d", *got)
	}
}
