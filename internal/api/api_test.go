package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/freezer/internal/db"
	"github.com/erazemk/freezer/internal/model"
	"github.com/erazemk/freezer/internal/store"
	"github.com/erazemk/freezer/internal/upc"
)

const testJWTSecret = "test-secret"

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

type testServer struct {
	*httptest.Server
	DB    *sql.DB
	Token string
}

func setupTestServer(t *testing.T, configure ...func(*Config)) *testServer {
	t.Helper()
	database := db.NewTestDB(t)

	cfg := Config{
		DB:        database,
		JWTSecret: testJWTSecret,
		DBPath:    ":memory:",
		Now:       func() time.Time { return testNow },
	}
	for _, fn := range configure {
		fn(&cfg)
	}

	router, err := NewRouter(cfg)
	if err != nil {
		t.Fatalf("creating router: %v", err)
	}
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	ctx := context.Background()
	if _, err := store.SeedDefaultCategories(ctx, database); err != nil {
		t.Fatalf("seeding categories: %v", err)
	}
	createUser(t, database, "admin", "password", model.RoleAdmin)

	ts := &testServer{Server: server, DB: database}
	ts.Token = ts.login(t, "admin", "password")
	return ts
}

func createUser(t *testing.T, database *sql.DB, username, password, role string) *model.User {
	t.Helper()
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	u, err := store.CreateUser(context.Background(), database, username, string(hash), role)
	if err != nil {
		t.Fatalf("creating user %s: %v", username, err)
	}
	return u
}

func (ts *testServer) login(t *testing.T, username, password string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := http.Post(ts.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}

	var loginResp loginResponse
	json.NewDecoder(resp.Body).Decode(&loginResp)
	if loginResp.Token == "" {
		t.Fatal("empty token from login")
	}
	return loginResp.Token
}

func authRequest(method, url, token string, body any) (*http.Request, error) {
	var bodyReader io.Reader = bytes.NewReader(nil)
	if body != nil {
		data, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// do sends a JSON request and decodes the response into out if it is non-nil.
func (ts *testServer) do(t *testing.T, method, path, token string, body, out any) int {
	t.Helper()
	req, err := authRequest(method, ts.URL+path, token, body)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func TestLoginEndpoint(t *testing.T) {
	ts := setupTestServer(t)

	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrong"})
	resp, _ := http.Post(ts.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Usernames are matched case-insensitively.
	ts.login(t, "  ADMIN ", "password")
}

func TestUnauthenticatedAccess(t *testing.T) {
	ts := setupTestServer(t)

	resp, _ := http.Get(ts.URL + "/api/items")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for unauthenticated request, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	if code := ts.do(t, "GET", "/api/items", "garbage", nil, nil); code != http.StatusUnauthorized {
		t.Errorf("expected 401 for invalid token, got %d", code)
	}

	resp, _ = http.Get(ts.URL + "/api/health")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 from health, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestLogoutRevokesToken(t *testing.T) {
	ts := setupTestServer(t)

	if code := ts.do(t, "POST", "/api/auth/logout", ts.Token, nil, nil); code != http.StatusOK {
		t.Fatalf("expected 200 from logout, got %d", code)
	}
	if code := ts.do(t, "GET", "/api/auth/me", ts.Token, nil, nil); code != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", code)
	}

	// A fresh login still works.
	token := ts.login(t, "admin", "password")
	var me model.User
	if code := ts.do(t, "GET", "/api/auth/me", token, nil, &me); code != http.StatusOK {
		t.Fatalf("expected 200 from me, got %d", code)
	}
	if me.Username != "admin" {
		t.Errorf("expected admin, got %q", me.Username)
	}
}

func TestChangePassword(t *testing.T) {
	ts := setupTestServer(t)

	code := ts.do(t, "PUT", "/api/auth/password", ts.Token, map[string]string{
		"current_password": "wrong", "new_password": "secret123",
	}, nil)
	if code != http.StatusUnauthorized {
		t.Errorf("expected 401 for wrong current password, got %d", code)
	}

	code = ts.do(t, "PUT", "/api/auth/password", ts.Token, map[string]string{
		"current_password": "password", "new_password": "abc",
	}, nil)
	if code != http.StatusBadRequest {
		t.Errorf("expected 400 for short password, got %d", code)
	}

	code = ts.do(t, "PUT", "/api/auth/password", ts.Token, map[string]string{
		"current_password": "password", "new_password": "secret123",
	}, nil)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	ts.login(t, "admin", "secret123")
}

func TestItemsAPIFlow(t *testing.T) {
	ts := setupTestServer(t)

	cat, _ := store.GetCategoryByName(context.Background(), ts.DB, "Chicken")

	// Create item; expiration follows the category's shelf life.
	var item model.Item
	code := ts.do(t, "POST", "/api/items", ts.Token, map[string]any{
		"name":        "Chicken thighs",
		"category_id": cat.ID,
		"weight":      1.5,
		"weight_unit": "lb",
	}, &item)
	if code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", code)
	}
	if item.AddedDate != "2024-06-15" {
		t.Errorf("expected added date 2024-06-15, got %q", item.AddedDate)
	}
	if item.ExpirationDate != "2025-03-12" {
		t.Errorf("expected expiration 2025-03-12, got %q", item.ExpirationDate)
	}
	if len(item.Code) != 6 {
		t.Errorf("expected generated 6 character code, got %q", item.Code)
	}
	if item.Status != model.ItemStatusInFreezer {
		t.Errorf("expected in_freezer, got %q", item.Status)
	}

	// Lookup by code accepts the QR payload form.
	var byCode model.Item
	if code := ts.do(t, "GET", "/api/items/code/"+model.QRPayload(item.Code), ts.Token, nil, &byCode); code != http.StatusOK {
		t.Fatalf("expected 200 from code lookup, got %d", code)
	}
	if byCode.ID != item.ID {
		t.Errorf("expected item %d, got %d", item.ID, byCode.ID)
	}

	// Duplicate codes are rejected.
	code = ts.do(t, "POST", "/api/items", ts.Token, map[string]any{
		"name": "Other", "qr_code": item.Code,
	}, nil)
	if code != http.StatusBadRequest {
		t.Errorf("expected 400 for duplicate code, got %d", code)
	}

	// Update keeps the code.
	var updated model.Item
	code = ts.do(t, "PUT", fmt.Sprintf("/api/items/%d", item.ID), ts.Token, map[string]any{
		"name": "Chicken breasts", "qr_code": "ZZZ999", "category_id": cat.ID,
		"expiration_date": "2024-12-01",
	}, &updated)
	if code != http.StatusOK {
		t.Fatalf("expected 200 from update, got %d", code)
	}
	if updated.Code != item.Code || updated.Name != "Chicken breasts" {
		t.Errorf("unexpected update result: %+v", updated)
	}

	// Consume.
	var consumed model.Item
	code = ts.do(t, "PUT", fmt.Sprintf("/api/items/%d/status", item.ID), ts.Token,
		map[string]string{"status": model.ItemStatusConsumed}, &consumed)
	if code != http.StatusOK {
		t.Fatalf("expected 200 from status update, got %d", code)
	}
	if consumed.RemovedDate != "2024-06-15" {
		t.Errorf("expected removed date 2024-06-15, got %q", consumed.RemovedDate)
	}

	// Default list shows only items in the freezer.
	var items []model.Item
	ts.do(t, "GET", "/api/items", ts.Token, nil, &items)
	if len(items) != 0 {
		t.Errorf("expected empty default list, got %d", len(items))
	}
	ts.do(t, "GET", "/api/items?status=all", ts.Token, nil, &items)
	if len(items) != 1 {
		t.Errorf("expected 1 item with status=all, got %d", len(items))
	}
	if code := ts.do(t, "GET", "/api/items?status=eaten", ts.Token, nil, nil); code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad status, got %d", code)
	}

	// Return to freezer clears the removed date.
	var returned model.Item
	code = ts.do(t, "PUT", fmt.Sprintf("/api/items/%d/status", item.ID), ts.Token,
		map[string]string{"status": model.ItemStatusInFreezer}, &returned)
	if code != http.StatusOK || returned.Status != model.ItemStatusInFreezer || returned.RemovedDate != "" {
		t.Errorf("expected in_freezer with cleared removed date, got %d %q %q", code, returned.Status, returned.RemovedDate)
	}

	if code := ts.do(t, "DELETE", fmt.Sprintf("/api/items/%d", item.ID), ts.Token, nil, nil); code != http.StatusOK {
		t.Fatalf("expected 200 from delete, got %d", code)
	}
	if code := ts.do(t, "GET", fmt.Sprintf("/api/items/%d", item.ID), ts.Token, nil, nil); code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", code)
	}
}

func TestItemValidation(t *testing.T) {
	ts := setupTestServer(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing name", map[string]any{"name": "  "}},
		{"bad upc", map[string]any{"name": "Peas", "upc": "123"}},
		{"bad date", map[string]any{"name": "Peas", "added_date": "15/06/2024"}},
		{"bad unit", map[string]any{"name": "Peas", "weight_unit": "stone"}},
		{"unknown category", map[string]any{"name": "Peas", "category_id": 9999}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := ts.do(t, "POST", "/api/items", ts.Token, tt.body, nil); code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", code)
			}
		})
	}
}

func TestItemsTrackHistorySetting(t *testing.T) {
	ts := setupTestServer(t)

	var item model.Item
	ts.do(t, "POST", "/api/items", ts.Token, map[string]any{"name": "Peas", "status": "thrown_out"}, &item)
	if item.RemovedDate != "2024-06-15" {
		t.Fatalf("expected removed date on creation, got %q", item.RemovedDate)
	}

	var settings map[string]string
	code := ts.do(t, "PUT", "/api/settings", ts.Token, map[string]any{"track_history": false}, &settings)
	if code != http.StatusOK {
		t.Fatalf("expected 200 from settings update, got %d", code)
	}
	if settings["track_history"] != "false" {
		t.Errorf("expected track_history=false, got %q", settings["track_history"])
	}

	var items []model.Item
	ts.do(t, "GET", "/api/items?status=all", ts.Token, nil, &items)
	if len(items) != 0 {
		t.Errorf("expected history hidden, got %d items", len(items))
	}

	if code := ts.do(t, "PUT", "/api/settings", ts.Token, map[string]any{"theme": "dark"}, nil); code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown setting, got %d", code)
	}
}

func TestExpiringAndOldest(t *testing.T) {
	ts := setupTestServer(t)

	for _, in := range []map[string]any{
		{"name": "Soon", "added_date": "2024-01-01", "expiration_date": "2024-06-20"},
		{"name": "Later", "added_date": "2024-03-01", "expiration_date": "2024-12-01"},
		{"name": "Past", "added_date": "2023-01-01", "expiration_date": "2024-06-01"},
	} {
		if code := ts.do(t, "POST", "/api/items", ts.Token, in, nil); code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", code)
		}
	}

	var items []model.Item
	ts.do(t, "GET", "/api/items/expiring-soon?days=30", ts.Token, nil, &items)
	if len(items) != 2 || items[0].Name != "Past" || items[1].Name != "Soon" {
		t.Errorf("unexpected expiring items: %+v", items)
	}

	ts.do(t, "GET", "/api/items/oldest?limit=2", ts.Token, nil, &items)
	if len(items) != 2 || items[0].Name != "Past" {
		t.Errorf("unexpected oldest items: %+v", items)
	}
}

func TestLookupUPC(t *testing.T) {
	products := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("upc") != "012345678905" {
			w.Write([]byte(`{"code":"OK","total":0,"items":[]}`))
			return
		}
		w.Write([]byte(`{"code":"OK","total":1,"items":[{"title":"Vanilla Ice Cream","brand":"Acme",
			"category":"Food > Frozen Desserts","images":["https://img.example/ice.jpg"]}]}`))
	}))
	t.Cleanup(products.Close)

	ts := setupTestServer(t, func(cfg *Config) { cfg.UPC = upc.NewClient(products.URL) })

	var found lookupResponse
	if code := ts.do(t, "GET", "/api/items/lookup-upc/012345678905", ts.Token, nil, &found); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if !found.Found || found.Data == nil {
		t.Fatalf("expected product found, got %+v", found)
	}
	if found.Data.Name != "Vanilla Ice Cream" || found.Data.ImageURL != "https://img.example/ice.jpg" {
		t.Errorf("unexpected product data: %+v", found.Data)
	}
	ice, _ := store.GetCategoryByName(context.Background(), ts.DB, "Ice Cream")
	if found.Data.CategoryID == nil || *found.Data.CategoryID != ice.ID {
		t.Errorf("expected Ice Cream category, got %v", found.Data.CategoryID)
	}

	var missing lookupResponse
	ts.do(t, "GET", "/api/items/lookup-upc/999999999999", ts.Token, nil, &missing)
	if missing.Found {
		t.Error("expected not found")
	}

	if code := ts.do(t, "GET", "/api/items/lookup-upc/12345", ts.Token, nil, nil); code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed upc, got %d", code)
	}
}

func TestLookupUPCDisabled(t *testing.T) {
	ts := setupTestServer(t)

	var resp lookupResponse
	if code := ts.do(t, "GET", "/api/items/lookup-upc/012345678905", ts.Token, nil, &resp); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if resp.Found {
		t.Error("expected not found with lookups disabled")
	}
}

func TestCategoriesAPI(t *testing.T) {
	ts := setupTestServer(t, func(cfg *Config) {
		cfg.StockImages = map[string]string{"fish": "https://img.example/fish.jpg"}
	})
	createUser(t, ts.DB, "bob", "password", model.RoleUser)
	userToken := ts.login(t, "bob", "password")

	var cats []model.Category
	ts.do(t, "GET", "/api/categories", userToken, nil, &cats)
	if len(cats) != len(model.DefaultCategories) {
		t.Fatalf("expected %d seeded categories, got %d", len(model.DefaultCategories), len(cats))
	}

	// Users can add their own categories.
	var soup model.Category
	code := ts.do(t, "POST", "/api/categories", userToken, map[string]any{
		"name": "Soup", "default_expiration_days": 120,
	}, &soup)
	if code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", code)
	}
	if soup.IsSystem {
		t.Error("user category should not be a system category")
	}
	if code := ts.do(t, "POST", "/api/categories", userToken, map[string]any{"name": "soup"}, nil); code != http.StatusBadRequest {
		t.Errorf("expected 400 for duplicate name, got %d", code)
	}

	// System categories are admin only.
	fish, _ := store.GetCategoryByName(context.Background(), ts.DB, "Fish")
	path := fmt.Sprintf("/api/categories/%d", fish.ID)
	if code := ts.do(t, "PUT", path, userToken, map[string]any{"default_expiration_days": 1}, nil); code != http.StatusForbidden {
		t.Errorf("expected 403 for user editing system category, got %d", code)
	}
	var edited model.Category
	if code := ts.do(t, "PUT", path, ts.Token, map[string]any{"default_expiration_days": 200}, &edited); code != http.StatusOK {
		t.Fatalf("expected 200 for admin edit, got %d", code)
	}
	if edited.DefaultExpirationDays != 200 {
		t.Errorf("expected 200 days, got %d", edited.DefaultExpirationDays)
	}

	var stock stockImageResponse
	ts.do(t, "GET", path+"/stock-image", userToken, nil, &stock)
	if stock.StockImageURL != "https://img.example/fish.jpg" {
		t.Errorf("expected stock image, got %q", stock.StockImageURL)
	}

	// Deleting needs admin, and system categories cannot be deleted.
	if code := ts.do(t, "DELETE", fmt.Sprintf("/api/categories/%d", soup.ID), userToken, nil, nil); code != http.StatusForbidden {
		t.Errorf("expected 403 for user delete, got %d", code)
	}
	if code := ts.do(t, "DELETE", path, ts.Token, nil, nil); code != http.StatusForbidden {
		t.Errorf("expected 403 deleting system category, got %d", code)
	}

	// Categories in use cannot be deleted.
	ts.do(t, "POST", "/api/items", userToken, map[string]any{"name": "Minestrone", "category_id": soup.ID}, nil)
	if code := ts.do(t, "DELETE", fmt.Sprintf("/api/categories/%d", soup.ID), ts.Token, nil, nil); code != http.StatusBadRequest {
		t.Errorf("expected 400 deleting category in use, got %d", code)
	}
	if code := ts.do(t, "DELETE", "/api/categories/9999", ts.Token, nil, nil); code != http.StatusNotFound {
		t.Errorf("expected 404 for missing category, got %d", code)
	}
}

func TestRoleBasedAccess(t *testing.T) {
	ts := setupTestServer(t)
	bob := createUser(t, ts.DB, "bob", "password", model.RoleUser)
	userToken := ts.login(t, "bob", "password")

	// Regular users manage items but not users.
	if code := ts.do(t, "POST", "/api/items", userToken, map[string]any{"name": "Peas"}, nil); code != http.StatusCreated {
		t.Errorf("expected 201 for user creating item, got %d", code)
	}
	if code := ts.do(t, "GET", "/api/users", userToken, nil, nil); code != http.StatusForbidden {
		t.Errorf("expected 403 for user accessing users, got %d", code)
	}

	// Promotion applies to existing tokens.
	if code := ts.do(t, "PUT", fmt.Sprintf("/api/users/%d", bob.ID), ts.Token, map[string]string{"role": model.RoleAdmin}, nil); code != http.StatusOK {
		t.Fatalf("expected 200 promoting user, got %d", code)
	}
	if code := ts.do(t, "GET", "/api/users", userToken, nil, nil); code != http.StatusOK {
		t.Errorf("expected 200 after promotion, got %d", code)
	}

	// Deleted users lose access.
	if code := ts.do(t, "DELETE", fmt.Sprintf("/api/users/%d", bob.ID), ts.Token, nil, nil); code != http.StatusOK {
		t.Fatalf("expected 200 deleting user, got %d", code)
	}
	if code := ts.do(t, "GET", "/api/items", userToken, nil, nil); code != http.StatusUnauthorized {
		t.Errorf("expected 401 for deleted user, got %d", code)
	}
}

func TestUsersAPI(t *testing.T) {
	ts := setupTestServer(t)

	var u model.User
	code := ts.do(t, "POST", "/api/users", ts.Token, map[string]string{"username": "Carol", "password": "secret1"}, &u)
	if code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", code)
	}
	if u.Username != "carol" || u.Role != model.RoleUser {
		t.Errorf("unexpected user: %+v", u)
	}
	if code := ts.do(t, "POST", "/api/users", ts.Token, map[string]string{"username": "carol", "password": "secret1"}, nil); code != http.StatusConflict {
		t.Errorf("expected 409 for duplicate, got %d", code)
	}

	var admin model.User
	ts.do(t, "GET", "/api/auth/me", ts.Token, nil, &admin)
	if code := ts.do(t, "DELETE", fmt.Sprintf("/api/users/%d", admin.ID), ts.Token, nil, nil); code != http.StatusBadRequest {
		t.Errorf("expected 400 deleting self, got %d", code)
	}
	if code := ts.do(t, "PUT", fmt.Sprintf("/api/users/%d", admin.ID), ts.Token, map[string]string{"role": model.RoleUser}, nil); code != http.StatusBadRequest {
		t.Errorf("expected 400 demoting last admin, got %d", code)
	}

	if code := ts.do(t, "PUT", fmt.Sprintf("/api/users/%d/password", u.ID), ts.Token, map[string]string{"password": "newpass1"}, nil); code != http.StatusOK {
		t.Fatalf("expected 200 resetting password, got %d", code)
	}
	ts.login(t, "carol", "newpass1")
}

func TestLabels(t *testing.T) {
	ts := setupTestServer(t)

	var item model.Item
	ts.do(t, "POST", "/api/items", ts.Token, map[string]any{"name": "Lasagna", "expiration_date": "2024-09-01"}, &item)

	req, _ := authRequest("POST", ts.URL+"/api/items/labels", ts.Token, map[string]any{"item_ids": []int64{item.ID}})
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("labels request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("expected html, got %q", ct)
	}
	page, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(page), "Lasagna") || !strings.Contains(string(page), "data:image/png;base64,") {
		t.Error("label sheet is missing the item name or QR image")
	}

	if code := ts.do(t, "POST", "/api/items/labels", ts.Token, map[string]any{"item_ids": []int64{}}, nil); code != http.StatusBadRequest {
		t.Errorf("expected 400 for no items, got %d", code)
	}
}

func TestQRCode(t *testing.T) {
	ts := setupTestServer(t)

	var item model.Item
	ts.do(t, "POST", "/api/items", ts.Token, map[string]any{"name": "Peas"}, &item)

	req, _ := authRequest("GET", ts.URL+"/api/items/code/"+item.Code+"/qr", ts.Token, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("qr request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Errorf("expected png, got %d %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
}

func TestExportImport(t *testing.T) {
	ts := setupTestServer(t)

	ts.do(t, "POST", "/api/items", ts.Token, map[string]any{"name": "Peas", "qr_code": "PEA001"}, nil)

	req, _ := authRequest("GET", ts.URL+"/api/items/export?format=csv", ts.Token, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("export request: %v", err)
	}
	exported, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from export, got %d", resp.StatusCode)
	}
	if !strings.Contains(resp.Header.Get("Content-Disposition"), "freezer-export-2024-06-15.csv") {
		t.Errorf("unexpected disposition %q", resp.Header.Get("Content-Disposition"))
	}

	// Importing into the same database skips the existing code.
	lines := strings.SplitAfter(string(exported), "\n")
	data := string(exported) + strings.Replace(lines[1], "PEA001", "PEA002", 1)
	var result model.ImportResult
	code := ts.upload(t, "/api/items/import", "file", "items.csv", []byte(data), &result)
	if code != http.StatusOK {
		t.Fatalf("expected 200 from import, got %d", code)
	}
	if result.Imported != 1 || result.Skipped != 1 {
		t.Errorf("expected 1 imported and 1 skipped, got %+v", result)
	}

	req, _ = authRequest("POST", ts.URL+"/api/items/import?format=json", ts.Token, nil)
	req.Body = io.NopCloser(strings.NewReader(`{"items":[{"name":"Stock","category":"Broths"}]}`))
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("import request: %v", err)
	}
	json.NewDecoder(resp.Body).Decode(&result)
	resp.Body.Close()
	if result.Imported != 1 {
		t.Errorf("expected json import, got %+v", result)
	}
	if c, _ := store.GetCategoryByName(context.Background(), ts.DB, "Broths"); c == nil {
		t.Error("expected import to create the missing category")
	}
}

// upload posts data as a multipart file field.
func (ts *testServer) upload(t *testing.T, path, field, filename string, data []byte, out any) int {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile(field, filename)
	fw.Write(data)
	mw.Close()

	req, _ := http.NewRequest("POST", ts.URL+path, &body)
	req.Header.Set("Authorization", "Bearer "+ts.Token)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload %s: %v", path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode
}

func TestPurgeHistory(t *testing.T) {
	ts := setupTestServer(t)

	ts.do(t, "POST", "/api/items", ts.Token, map[string]any{"name": "Old", "status": "consumed"}, nil)
	ts.do(t, "POST", "/api/items", ts.Token, map[string]any{"name": "Current"}, nil)

	var resp purgeResponse
	if code := ts.do(t, "POST", "/api/settings/purge-history", ts.Token, nil, &resp); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if resp.Purged != 1 {
		t.Errorf("expected 1 purged, got %d", resp.Purged)
	}
}

func TestBackupRoundTrip(t *testing.T) {
	ts := setupTestServer(t)

	ts.do(t, "POST", "/api/items", ts.Token, map[string]any{"name": "Keep me", "qr_code": "KEP001"}, nil)

	req, _ := authRequest("GET", ts.URL+"/api/settings/backup/download", ts.Token, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("backup request: %v", err)
	}
	backup, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || len(backup) == 0 {
		t.Fatalf("expected backup file, got %d (%d bytes)", resp.StatusCode, len(backup))
	}

	ts.do(t, "POST", "/api/items", ts.Token, map[string]any{"name": "Lose me"}, nil)

	if code := ts.upload(t, "/api/settings/backup/restore", "file", "backup.db", backup, nil); code != http.StatusOK {
		t.Fatalf("expected 200 from restore, got %d", code)
	}

	var items []model.Item
	ts.do(t, "GET", "/api/items", ts.Token, nil, &items)
	if len(items) != 1 || items[0].Code != "KEP001" {
		t.Errorf("expected only the backed up item, got %+v", items)
	}

	if code := ts.upload(t, "/api/settings/backup/restore", "file", "junk.db", []byte("not a database"), nil); code != http.StatusBadRequest {
		t.Errorf("expected 400 for junk backup, got %d", code)
	}
}
