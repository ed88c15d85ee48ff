package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/tablemap/tablemap/pkg/errors"
	"github.com/tablemap/tablemap/pkg/render"
)

func writeConfig(t *testing.T, content string) context.Context {
	t.Helper()
	path := filepath.Join(t.TempDir(), configFileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return withConfigPath(context.Background(), path)
}

func TestLoadConfigDefaults(t *testing.T) {
	// No config file anywhere: point XDG_CONFIG_HOME at an empty dir.
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := loadConfig(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Zoom != 1.0 {
		t.Errorf("Zoom = %v, want 1", cfg.Zoom)
	}
	if cfg.Layout != "grid" {
		t.Errorf("Layout = %q, want grid", cfg.Layout)
	}
	if len(cfg.Fonts) == 0 {
		t.Error("default config should carry font candidates")
	}
}

func TestLoadConfigFile(t *testing.T) {
	ctx := writeConfig(t, `
zoom = 1.5
layout = "graph"
statistics = true
fonts = ["DejaVu Sans"]

[grid]
order = "rows"
reverse = true

[theme]
background = "#202030"
selection = "#ff8800"
`)
	cfg, err := loadConfig(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Zoom != 1.5 || cfg.Layout != "graph" || !cfg.Statistics {
		t.Errorf("config not applied: %+v", cfg)
	}
	if cfg.Grid.Order != "rows" || !cfg.Grid.Reverse {
		t.Errorf("grid config not applied: %+v", cfg.Grid)
	}
	if len(cfg.Fonts) != 1 || cfg.Fonts[0] != "DejaVu Sans" {
		t.Errorf("fonts = %v", cfg.Fonts)
	}

	theme, err := cfg.theme()
	if err != nil {
		t.Fatal(err)
	}
	if theme.Background.Hex() != "#202030" {
		t.Errorf("Background = %s, want #202030", theme.Background.Hex())
	}
	if theme.Selection.Hex() != "#ff8800" {
		t.Errorf("Selection = %s, want #ff8800", theme.Selection.Hex())
	}
	// Untouched colors keep the default palette.
	if theme.Border != render.DefaultTheme().Border {
		t.Error("unset theme colors should keep defaults")
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	if _, err := loadConfig(writeConfig(t, "zoom = 99.0")); !errors.Is(err, errors.ErrCodeInvalidZoom) {
		t.Errorf("bad zoom should fail, got %v", err)
	}
	if _, err := loadConfig(writeConfig(t, `layout = "circular"`)); !errors.Is(err, errors.ErrCodeInvalidLayout) {
		t.Errorf("bad layout should fail, got %v", err)
	}
	if _, err := loadConfig(writeConfig(t, "not toml ===")); err == nil {
		t.Error("malformed TOML should fail")
	}

	cfg := defaultConfig()
	cfg.Theme.Background = "magenta-ish"
	if _, err := cfg.theme(); err == nil {
		t.Error("bad theme color should fail")
	}
}
