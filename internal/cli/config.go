package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/tablemap/tablemap/pkg/errors"
	"github.com/tablemap/tablemap/pkg/fonts"
	"github.com/tablemap/tablemap/pkg/geometry"
	"github.com/tablemap/tablemap/pkg/layout"
	"github.com/tablemap/tablemap/pkg/render"
)

// configFileName is the TOML config file looked up in the config directory.
const configFileName = "tablemap.toml"

// Config is the on-disk CLI configuration (tablemap.toml). Every field is
// optional; zero values fall back to the built-in defaults.
type Config struct {
	// Fonts lists font candidates by family name or file path, tried in order.
	Fonts []string `toml:"fonts"`

	// Zoom is the default zoom factor for exports.
	Zoom float64 `toml:"zoom"`

	// Layout selects the default placement strategy: "grid" or "graph".
	Layout string `toml:"layout"`

	// Statistics enables row/size statistics collection by default.
	Statistics bool `toml:"statistics"`

	Grid  layout.GridOptions `toml:"grid"`
	Theme ThemeConfig        `toml:"theme"`
}

// ThemeConfig holds theme color overrides as hex strings ("#rrggbb").
// Empty fields keep the default palette.
type ThemeConfig struct {
	Background  string `toml:"background"`
	Box         string `toml:"box"`
	Border      string `toml:"border"`
	HeaderStart string `toml:"header_start"`
	HeaderEnd   string `toml:"header_end"`
	HeaderText  string `toml:"header_text"`
	Text        string `toml:"text"`
	TypeText    string `toml:"type_text"`
	Stats       string `toml:"stats"`
	Line        string `toml:"line"`
	Selection   string `toml:"selection"`
}

func defaultConfig() Config {
	return Config{
		Fonts:  fonts.DefaultCandidates,
		Zoom:   1.0,
		Layout: "grid",
		Grid:   layout.DefaultGridOptions(),
	}
}

// loadConfig reads the config file from the context path or the default
// location. A missing file is not an error; malformed TOML is.
func loadConfig(ctx context.Context) (Config, error) {
	cfg := defaultConfig()

	path := configPathFromContext(ctx)
	if path == "" {
		dir, err := configDir()
		if err != nil {
			return cfg, nil
		}
		path = filepath.Join(dir, configFileName)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return cfg, nil
		}
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidInput, err, "malformed config file %s", path)
	}
	if cfg.Zoom != 0 {
		if err := errors.ValidateZoom(cfg.Zoom); err != nil {
			return cfg, err
		}
	}
	if cfg.Layout != "" {
		if err := errors.ValidateLayout(cfg.Layout); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// theme builds the render palette from the defaults plus any overrides.
func (c Config) theme() (render.Theme, error) {
	t := render.DefaultTheme()
	for _, f := range []struct {
		hex string
		dst *geometry.Color
	}{
		{c.Theme.Background, &t.Background},
		{c.Theme.Box, &t.Box},
		{c.Theme.Border, &t.Border},
		{c.Theme.HeaderStart, &t.HeaderStart},
		{c.Theme.HeaderEnd, &t.HeaderEnd},
		{c.Theme.HeaderText, &t.HeaderText},
		{c.Theme.Text, &t.Text},
		{c.Theme.TypeText, &t.TypeText},
		{c.Theme.Stats, &t.Stats},
		{c.Theme.Line, &t.Line},
		{c.Theme.Selection, &t.Selection},
	} {
		if f.hex == "" {
			continue
		}
		color, err := geometry.ParseColor(f.hex)
		if err != nil {
			return t, errors.Wrap(errors.ErrCodeInvalidInput, err, "bad theme color %q", f.hex)
		}
		*f.dst = color
	}
	return t, nil
}

// configPathKey is the context key for the --config flag value.
const configPathKey ctxKey = 1

// withConfigPath attaches an explicit config file path to the context.
func withConfigPath(ctx context.Context, path string) context.Context {
	if path == "" {
		return ctx
	}
	return context.WithValue(ctx, configPathKey, path)
}

// configPathFromContext returns the explicit config file path, if any.
func configPathFromContext(ctx context.Context) string {
	if p, ok := ctx.Value(configPathKey).(string); ok {
		return p
	}
	return ""
}
