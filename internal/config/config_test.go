package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("server.port = %d", cfg.Server.Port)
	}
	if cfg.Catalog.BaseURL != "https://drrsystemas4.azurewebsites.net" {
		t.Errorf("catalog.base_url = %q", cfg.Catalog.BaseURL)
	}
	if cfg.Hydration.Concurrency != 5 || cfg.Hydration.MaxImageBytes != 4*1024*1024 {
		t.Errorf("hydration = %+v", cfg.Hydration)
	}
	if cfg.Paging.MaxBackendPages != 100 || cfg.Paging.DefaultPageSize != 25 {
		t.Errorf("paging = %+v", cfg.Paging)
	}
	if cfg.Gemini.TextModel != "gemini-2.5-flash-lite" || cfg.Gemini.ImageModel != "gemini-2.5-flash-image" {
		t.Errorf("gemini = %+v", cfg.Gemini)
	}
	if cfg.Database.ConnMaxLifetime != time.Hour {
		t.Errorf("database.conn_max_lifetime = %v", cfg.Database.ConnMaxLifetime)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "config.yaml")
	yaml := []byte("server:\n  port: 9090\npaging:\n  max_backend_pages: 12\n")
	if err := os.WriteFile(path, yaml, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("GOOGLE_CSE_API_KEYS", "k1, k2,,k3")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("server.port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Paging.MaxBackendPages != 12 {
		t.Errorf("paging.max_backend_pages = %d, want 12", cfg.Paging.MaxBackendPages)
	}
	if cfg.Gemini.APIKey != "g-key" {
		t.Errorf("gemini.api_key = %q", cfg.Gemini.APIKey)
	}
	if want := []string{"k1", "k2", "k3"}; !reflect.DeepEqual(cfg.ImageSearch.APIKeys, want) {
		t.Errorf("image_search.api_keys = %v, want %v", cfg.ImageSearch.APIKeys, want)
	}
}

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{"sqlite", DatabaseConfig{Driver: "sqlite", Path: "./data/x.db"}, "./data/x.db"},
		{"postgres", DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, User: "u", Password: "p", DBName: "cat", SSLMode: "disable"},
			"host=db port=5432 user=u password=p dbname=cat sslmode=disable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.DSN(); got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}
}
