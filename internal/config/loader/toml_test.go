package loader

import (
	"errors"
	"strings"
	"testing"
)

func TestTOMLLoader_Load(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/storefront.toml", `
strict = true

[api]
origin = "https://larek-api.nomoreparties.co"
timeout = "5s"
rate_limit = 2.5
burst = 4

[logging]
level = "debug"
`)

	loader := NewTOMLLoaderWithFS(memfs, "/storefront.toml")
	config, err := loader.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	api, ok := config["api"].(map[string]any)
	if !ok {
		t.Fatal("expected api to be a map")
	}
	if api["origin"] != "https://larek-api.nomoreparties.co" {
		t.Errorf("origin = %v", api["origin"])
	}
	if api["timeout"] != "5s" {
		t.Errorf("timeout = %v, want '5s'", api["timeout"])
	}
	if api["rate_limit"] != 2.5 {
		t.Errorf("rate_limit = %v (%T), want 2.5", api["rate_limit"], api["rate_limit"])
	}
	if api["burst"] != int64(4) {
		t.Errorf("burst = %v (%T), want 4", api["burst"], api["burst"])
	}
	if config["strict"] != true {
		t.Errorf("strict = %v, want true", config["strict"])
	}
}

func TestTOMLLoader_LoadNonExistent(t *testing.T) {
	memfs := NewMemFS()
	loader := NewTOMLLoaderWithFS(memfs, "/nonexistent.toml")

	config, err := loader.Load()
	if err != nil {
		t.Fatalf("expected no error for non-existent file, got: %v", err)
	}
	if config != nil {
		t.Error("expected nil config for non-existent file")
	}
}

func TestTOMLLoader_LoadInvalid(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/invalid.toml", `
[api
origin = "x"
`)

	loader := NewTOMLLoaderWithFS(memfs, "/invalid.toml")
	_, err := loader.Load()
	if err == nil {
		t.Fatal("expected parse error")
	}

	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if parseErr.Path != "/invalid.toml" {
		t.Errorf("Path = %q, want '/invalid.toml'", parseErr.Path)
	}
	if parseErr.Line == 0 {
		t.Error("expected a line number")
	}
	if !strings.Contains(parseErr.Error(), "/invalid.toml") {
		t.Errorf("Error() = %q", parseErr.Error())
	}
}

func TestTOMLLoader_LoadFromReader(t *testing.T) {
	loader := &TOMLLoader{}

	config, err := loader.LoadFromReader(strings.NewReader(`watch = true`))
	if err != nil {
		t.Fatalf("LoadFromReader failed: %v", err)
	}
	if config["watch"] != true {
		t.Errorf("watch = %v, want true", config["watch"])
	}
}

func TestTOMLLoader_Empty(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/empty.toml", "")

	config, err := NewTOMLLoaderWithFS(memfs, "/empty.toml").Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if config == nil || len(config) != 0 {
		t.Errorf("expected empty map, got %v", config)
	}
}
