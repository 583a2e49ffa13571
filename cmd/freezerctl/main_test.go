package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/freezer/internal/apitest"
	"github.com/erazemk/freezer/internal/client"
	"github.com/erazemk/freezer/internal/config"
	"github.com/erazemk/freezer/internal/query"
)

type cli struct {
	t   *testing.T
	srv *apitest.Server
	dir string
}

func newCLI(t *testing.T) *cli {
	t.Setenv(config.EnvServer, "")
	t.Setenv(config.EnvToken, "")
	return &cli{t: t, srv: apitest.New(t), dir: t.TempDir()}
}

func (c *cli) run(stdin string, args ...string) (string, error) {
	c.t.Helper()
	var out, errOut bytes.Buffer
	full := append([]string{"--config", filepath.Join(c.dir, "config.ini"), "--server", c.srv.URL}, args...)
	err := run(context.Background(), full, strings.NewReader(stdin), &out, &errOut)
	return out.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run("", args...)
	require.NoError(c.t, err, "freezerctl %s", strings.Join(args, " "))
	return out
}

func (c *cli) login() {
	c.t.Helper()
	out, err := c.run(apitest.AdminPassword+"\n", "login", "-u", apitest.AdminUser)
	require.NoError(c.t, err)
	require.Contains(c.t, out, "Logged in as admin (admin)")
}

func (c *cli) path(name string) string {
	return filepath.Join(c.dir, name)
}

func TestLoginStoresToken(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("", "whoami")
	require.ErrorContains(t, err, "not logged in")

	c.login()
	cfg, err := config.Load(c.path("config.ini"))
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Token)

	assert.Contains(t, c.mustRun("whoami"), "admin (admin)")

	assert.Contains(t, c.mustRun("logout"), "Logged out")
	_, err = c.run("", "whoami")
	require.ErrorContains(t, err, "not logged in")
}

func TestLoginWrongPassword(t *testing.T) {
	c := newCLI(t)
	_, err := c.run("nope\n", "login", "-u", apitest.AdminUser)
	require.Error(t, err)
	assert.Equal(t, 401, client.StatusOf(err))
}

func TestAddListAndPrintLabels(t *testing.T) {
	c := newCLI(t)
	c.login()

	out := c.mustRun("items", "add", "--name", "Chicken thighs", "--category", "Chicken", "--weight", "1.5")
	assert.Contains(t, out, "Chicken thighs")
	assert.Contains(t, out, "1 item added in this session")

	out = c.mustRun("items", "list")
	assert.Contains(t, out, "Chicken thighs")
	assert.Contains(t, out, "1.5 lb")

	assert.Contains(t, c.mustRun("items", "list", "--search", "beef"), "No items found.")

	labels := c.path("labels.html")
	c.mustRun("session", "labels", "-o", labels)
	data, err := os.ReadFile(labels)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Chicken thighs")

	assert.Contains(t, c.mustRun("session"), "No items added")
}

func TestAddCountCreatesDistinctItems(t *testing.T) {
	c := newCLI(t)
	c.login()

	out := c.mustRun("items", "add", "--name", "Pho", "--new-category", "Soup:120", "--count", "3")
	assert.Contains(t, out, "3 items added in this session")

	items, err := c.srv.Admin(t).ListItems(context.Background(), query.Default())
	require.NoError(t, err)
	require.Len(t, items, 3)
	codes := map[string]bool{}
	for _, it := range items {
		codes[it.Code] = true
		assert.Equal(t, "Soup", it.CategoryName)
	}
	assert.Len(t, codes, 3)

	_, err = c.run("", "items", "add", "--name", "Pho", "--code", "A1", "--count", "2")
	require.ErrorContains(t, err, "--code cannot be combined")
}

func TestAddRejectsInvalidInput(t *testing.T) {
	c := newCLI(t)
	c.login()

	_, err := c.run("", "items", "add", "--name", "Fish sticks", "--upc", "123")
	require.Error(t, err)
	_, err = c.run("", "items", "add", "--weight", "1")
	require.ErrorContains(t, err, "Name is required")
	assert.Zero(t, c.srv.Count("POST", "/api/items"))
}

func TestLocate(t *testing.T) {
	c := newCLI(t)
	c.login()
	ctx := context.Background()

	item, err := c.srv.Admin(t).CreateItem(ctx, client.ItemInput{Name: "Beef stew"})
	require.NoError(t, err)

	out := c.mustRun("locate", "freezer-item:"+item.Code)
	assert.Contains(t, out, "Beef stew")
	assert.Contains(t, out, "--consume")

	out = c.mustRun("locate", item.Code, "--consume")
	assert.Contains(t, out, "consumed")

	out = c.mustRun("locate", "NEW123")
	assert.Contains(t, out, "No item with code NEW123")

	out = c.mustRun("locate", "freezer-item:NEW123", "--name", "Lasagna", "--category", "Entrees")
	assert.Contains(t, out, "Lasagna")
	created, err := c.srv.Admin(t).GetItemByCode(ctx, "NEW123")
	require.NoError(t, err)
	assert.Equal(t, "Entrees", created.CategoryName)
}

func TestEditAndStatus(t *testing.T) {
	c := newCLI(t)
	c.login()
	ctx := context.Background()
	admin := c.srv.Admin(t)

	item, err := admin.CreateItem(ctx, client.ItemInput{Name: "Peas"})
	require.NoError(t, err)

	out := c.mustRun("items", "edit", item.Code, "--notes", "garden", "--thrown-out")
	assert.Contains(t, out, "thrown_out")

	got, err := admin.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "garden", got.Notes)
	assert.NotEmpty(t, got.RemovedDate)

	assert.Contains(t, c.mustRun("items", "return", item.Code), "in freezer")
}

func TestExportImport(t *testing.T) {
	c := newCLI(t)
	c.login()
	c.mustRun("items", "add", "--name", "Waffles", "--category", "Staples")

	file := c.path("items.json")
	assert.Contains(t, c.mustRun("export", "-o", file), "Wrote")

	// Codes already present are skipped.
	assert.Contains(t, c.mustRun("import", file), "Imported 0, skipped 1")
}

func TestCategoriesAndUsers(t *testing.T) {
	c := newCLI(t)
	c.login()

	c.mustRun("categories", "add", "Dumplings", "--days", "120")
	out := c.mustRun("categories", "list")
	assert.Contains(t, out, "Dumplings")
	assert.Contains(t, out, "120")

	out = c.mustRun("categories", "edit", "dumplings", "--days", "100")
	assert.Contains(t, out, "100 days")

	_, err := c.run("", "categories", "edit", "Dumplings")
	require.ErrorContains(t, err, "nothing to change")

	out, err = c.run("hunter2\n", "users", "add", "bob")
	require.NoError(t, err)
	assert.Contains(t, out, "Created bob (user)")
	assert.Contains(t, c.mustRun("users", "list"), "bob")
	assert.Contains(t, c.mustRun("users", "role", "bob", "admin"), "bob is now admin")
	assert.Contains(t, c.mustRun("users", "delete", "bob"), "Deleted bob")
}

func TestSettings(t *testing.T) {
	c := newCLI(t)
	c.login()

	assert.Contains(t, c.mustRun("settings"), "track_history = true")
	assert.Contains(t, c.mustRun("settings", "set", "track_history=false"), "track_history = false")

	_, err := c.run("", "settings", "set", "track_history")
	require.ErrorContains(t, err, "key=value")

	assert.Contains(t, c.mustRun("backup", "info"), "Items:")
}
