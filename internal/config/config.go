package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/unitctl/internal/build"
	"github.com/danmuck/unitctl/internal/relations"
	"github.com/go-playground/validator/v10"
)

// Mode selects which environment composes roots: the guard in the editor,
// the startup loader in the player.
type Mode string

const (
	ModeEditor Mode = "editor"
	ModePlayer Mode = "player"
)

const DefaultPath = "unitctl.toml"

type Config struct {
	ContentRoot   string `validate:"required"`
	UnitExtension string `validate:"required,startswith=.,min=2"`
	RelationsPath string `validate:"required"`
	BuildManifest string `validate:"required"`
	Mode          Mode   `validate:"oneof=editor player"`
	StartRoot     string
	Server        ServerConfig
	Watch         WatchConfig
}

type ServerConfig struct {
	Addr        string `validate:"required"`
	CorsOrigins []string
	// Token, when set, is required as a bearer token on mutating requests.
	Token string
}

type WatchConfig struct {
	Enabled  bool
	Debounce time.Duration `validate:"gte=0"`
}

func DefaultConfig() Config {
	return Config{
		ContentRoot:   "content",
		UnitExtension: relations.DefaultUnitExtension,
		RelationsPath: relations.DefaultPath,
		BuildManifest: build.DefaultManifestPath,
		Mode:          ModeEditor,
		Server: ServerConfig{
			Addr:        ":9400",
			CorsOrigins: []string{"http://localhost:3000"},
		},
		Watch: WatchConfig{
			Enabled:  true,
			Debounce: 250 * time.Millisecond,
		},
	}
}

type fileConfig struct {
	ContentRoot   string `toml:"content_root"`
	UnitExtension string `toml:"unit_extension"`
	RelationsPath string `toml:"relations_path"`
	BuildManifest string `toml:"build_manifest"`
	Mode          string `toml:"mode"`
	StartRoot     string `toml:"start_root"`
	Server        struct {
		Addr        string   `toml:"addr"`
		CorsOrigins []string `toml:"cors_origins"`
		Token       string   `toml:"token"`
	} `toml:"server"`
	Watch struct {
		Enabled  bool   `toml:"enabled"`
		Debounce string `toml:"debounce"`
	} `toml:"watch"`
}

// Load reads path over DefaultConfig. Only keys present in the file override
// defaults. A missing file yields the validated defaults when allowMissing.
func Load(path string, allowMissing bool) (Config, error) {
	cfg := DefaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		if allowMissing && errors.Is(err, fs.ErrNotExist) {
			return cfg, Validate(cfg)
		}
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}

	if meta.IsDefined("content_root") {
		cfg.ContentRoot = strings.TrimSpace(raw.ContentRoot)
	}
	if meta.IsDefined("unit_extension") {
		cfg.UnitExtension = normalizeExtension(raw.UnitExtension)
	}
	if meta.IsDefined("relations_path") {
		cfg.RelationsPath = strings.TrimSpace(raw.RelationsPath)
	}
	if meta.IsDefined("build_manifest") {
		cfg.BuildManifest = strings.TrimSpace(raw.BuildManifest)
	}
	if meta.IsDefined("mode") {
		cfg.Mode = Mode(strings.ToLower(strings.TrimSpace(raw.Mode)))
	}
	if meta.IsDefined("start_root") {
		cfg.StartRoot = strings.TrimSpace(raw.StartRoot)
	}
	if meta.IsDefined("server", "addr") {
		cfg.Server.Addr = strings.TrimSpace(raw.Server.Addr)
	}
	if meta.IsDefined("server", "cors_origins") {
		cfg.Server.CorsOrigins = normalizeList(raw.Server.CorsOrigins)
	}
	if meta.IsDefined("server", "token") {
		cfg.Server.Token = strings.TrimSpace(raw.Server.Token)
	}
	if meta.IsDefined("watch", "enabled") {
		cfg.Watch.Enabled = raw.Watch.Enabled
	}
	if meta.IsDefined("watch", "debounce") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Watch.Debounce))
		if err != nil {
			return Config{}, fmt.Errorf("parse watch.debounce: %w", err)
		}
		cfg.Watch.Debounce = d
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("config has unknown keys (%s): %v", path, undecoded)
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func normalizeExtension(ext string) string {
	ext = strings.TrimSpace(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

func normalizeList(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

var validate = validator.New()

// Validate checks struct constraints and reports every failed field.
func Validate(cfg Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("config invalid: %w", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, formatFieldError(fe))
	}
	return fmt.Errorf("config invalid: %s", strings.Join(msgs, "; "))
}

func formatFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "startswith":
		return fmt.Sprintf("%s must start with %q", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
}
