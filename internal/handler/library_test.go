package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/stemstage/api/internal/config"
	"github.com/stemstage/api/internal/model"
	"github.com/stemstage/api/internal/service"
	"github.com/stemstage/api/internal/stem"
	"github.com/stemstage/api/internal/taskstore"
)

func newLibraryTestApp(t *testing.T) (*fiber.App, config.DirsConfig, *taskstore.MemoryStore) {
	t.Helper()
	base := t.TempDir()
	dirs := config.DirsConfig{
		Downloads: filepath.Join(base, "downloads"),
		Separated: filepath.Join(base, "separated"),
		Mixes:     filepath.Join(base, "mixes"),
		Remuxed:   filepath.Join(base, "remuxed"),
	}
	for _, dir := range dirs.Roots() {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
	}

	store := taskstore.NewMemoryStore()
	h := NewLibraryHandler(service.NewLibraryService(dirs, store))

	app := fiber.New()
	app.Get("/files/*", h.Serve)
	api := app.Group("/api")
	api.Get("/library", h.List)
	api.Post("/cleanup", h.Cleanup)
	return app, dirs, store
}

func get(t *testing.T, app *fiber.App, path string) *http.Response {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestLibraryListPairsManifest(t *testing.T) {
	app, dirs, _ := newLibraryTestApp(t)

	if err := os.WriteFile(filepath.Join(dirs.Remuxed, "song_remuxed.mp4"), []byte("video"), 0644); err != nil {
		t.Fatal(err)
	}
	stemDir := filepath.Join(dirs.Separated, "song_abc123", "htdemucs_6s", "song")
	if err := os.MkdirAll(stemDir, 0755); err != nil {
		t.Fatal(err)
	}
	manifest := &stem.Manifest{
		StemOrder:     []string{"vocals", "drums", "bass"},
		ChannelLayout: "6.0",
		ChannelCount:  6,
	}
	if err := stem.WriteManifest(stemDir, manifest); err != nil {
		t.Fatal(err)
	}

	resp := get(t, app, "/api/library")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var library model.LibraryResponse
	decodeBody(t, resp, &library)

	if len(library.Files) != 1 {
		t.Fatalf("files = %d, want 1", len(library.Files))
	}
	f := library.Files[0]
	if f.Filename != "song_remuxed.mp4" {
		t.Errorf("filename = %q", f.Filename)
	}
	if f.SeparatedDir != stemDir {
		t.Errorf("separated dir = %q, want %q", f.SeparatedDir, stemDir)
	}
	if len(f.StemOrder) != 3 || f.StemOrder[0] != "vocals" {
		t.Errorf("stem order = %v, want manifest order", f.StemOrder)
	}
	if f.ChannelLayout != "6.0" {
		t.Errorf("channel layout = %q", f.ChannelLayout)
	}
}

func TestLibraryListEmpty(t *testing.T) {
	app, _, _ := newLibraryTestApp(t)

	resp := get(t, app, "/api/library")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var library model.LibraryResponse
	decodeBody(t, resp, &library)
	if len(library.Files) != 0 {
		t.Errorf("files = %v, want none", library.Files)
	}
}

func TestServeAllowListedFile(t *testing.T) {
	app, dirs, _ := newLibraryTestApp(t)

	path := filepath.Join(dirs.Remuxed, "song_remuxed.mp4")
	if err := os.WriteFile(path, []byte("payload"), 0644); err != nil {
		t.Fatal(err)
	}

	// Served relative to the allow-listed roots.
	resp := get(t, app, "/files/song_remuxed.mp4")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "payload" {
		t.Errorf("body = %q", body)
	}
}

func TestServeRejectsOutsidePaths(t *testing.T) {
	app, _, _ := newLibraryTestApp(t)

	outside := filepath.Join(t.TempDir(), "secret.txt")
	if err := os.WriteFile(outside, []byte("secret"), 0644); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{
		"/files/" + outside,
		"/files/etc/passwd",
		"/files/../../etc/passwd",
	} {
		resp := get(t, app, path)
		if resp.StatusCode != fiber.StatusNotFound {
			t.Errorf("GET %s = %d, want 404", path, resp.StatusCode)
		}
	}
}

func TestCleanupResetsEverything(t *testing.T) {
	app, dirs, store := newLibraryTestApp(t)
	ctx := context.Background()

	if err := os.WriteFile(filepath.Join(dirs.Downloads, "video.mp4"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	store.Create(ctx, &model.Task{ID: "t1", Status: model.TaskStatusPending})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/cleanup", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	// Roots survive as empty directories.
	for _, dir := range dirs.Roots() {
		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatalf("root %s missing after cleanup: %v", dir, err)
		}
		if len(entries) != 0 {
			t.Errorf("root %s not emptied: %v", dir, entries)
		}
	}
	tasks, _ := store.List(ctx)
	if len(tasks) != 0 {
		t.Errorf("task table not cleared: %v", tasks)
	}
}
