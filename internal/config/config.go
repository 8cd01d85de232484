// Package config loads the daemon configuration from a JSONC file in the
// data directory, overridden by environment variables.
package config

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/natefinch/atomic"
	"github.com/tailscale/hujson"

	"github.com/recallkit/recall/common"
	"github.com/recallkit/recall/internal/scheduler"
)

// FileName is the config file inside the data directory.
const FileName = "config.jsonc"

// Delivery surface names.
const (
	SurfaceRPC = "rpc"
	SurfaceLog = "log"
)

var (
	// ErrConfigInvalid wraps every parse and validation failure.
	ErrConfigInvalid = errors.New("invalid config")
	// ErrConfigExists is returned by WriteDefault when the file is present.
	ErrConfigExists = errors.New("config file already exists")
)

// Duration is a time.Duration written as a Go duration string.
type Duration time.Duration

// UnmarshalJSON accepts strings such as "24h" or "90m".
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalJSON writes the duration string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Retention holds the janitor thresholds.
type Retention struct {
	// Sent is how long settled records are kept.
	Sent Duration `json:"sent"`
	// Stale is how far overdue a pending record may fall before it is dropped.
	Stale Duration `json:"stale"`
}

// Config is the daemon configuration.
type Config struct {
	// DataDir is resolved from the environment, never read from the file.
	DataDir string `json:"-"`

	Listen         string    `json:"listen"`
	RPCSecret      string    `json:"rpc_secret"`
	AllowedOrigins []string  `json:"allowed_origins,omitempty"`
	Debug          bool      `json:"debug"`
	Heartbeat      string    `json:"heartbeat"`
	Surfaces       []string  `json:"surfaces"`
	DedupSize      int       `json:"dedup_size"`
	Retention      Retention `json:"retention"`
	Snooze         Duration  `json:"snooze"`
	Horizon        Duration  `json:"horizon"`
	ClaimLease     Duration  `json:"claim_lease"`
}

// Default returns the built-in configuration for dataDir.
func Default(dataDir string) Config {
	return Config{
		DataDir:   dataDir,
		Listen:    "127.0.0.1:7117",
		Heartbeat: "*/5 * * * *",
		Surfaces:  []string{SurfaceRPC, SurfaceLog},
		DedupSize: 1024,
		Retention: Retention{
			Sent:  Duration(24 * time.Hour),
			Stale: Duration(48 * time.Hour),
		},
		Snooze:     Duration(time.Hour),
		Horizon:    Duration(time.Hour),
		ClaimLease: Duration(2 * time.Minute),
	}
}

// Path returns the config file path inside c.DataDir.
func (c Config) Path() string {
	return filepath.Join(c.DataDir, FileName)
}

// DataDir returns the data directory from the environment, falling back
// to the user config directory.
func DataDir(getenv func(string) string) (string, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if dir := getenv(common.DataDirEnv); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate data dir: %w", err)
	}
	return filepath.Join(base, "recall"), nil
}

// Load resolves the data directory, reads its config file if present and
// applies environment overrides. A nil getenv reads the process
// environment.
func Load(getenv func(string) string) (Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	dir, err := DataDir(getenv)
	if err != nil {
		return Config{}, err
	}
	cfg := Default(dir)

	data, err := os.ReadFile(cfg.Path())
	switch {
	case err == nil:
		if err := parse(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w %s: %w", ErrConfigInvalid, cfg.Path(), err)
		}
	case !os.IsNotExist(err):
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	if err := applyEnv(&cfg, getenv); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrConfigInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parse(data []byte, cfg *Config) error {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return fmt.Errorf("invalid JSONC: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(standardized))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return err
	}
	return nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv(common.ListenEnv); v != "" {
		cfg.Listen = v
	}
	if v := getenv(common.RPCSecretEnv); v != "" {
		cfg.RPCSecret = v
	}
	if v := getenv(common.DebugEnv); v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", common.DebugEnv, err)
		}
		cfg.Debug = on
	}
	return nil
}

// Validate checks every field.
func (c Config) Validate() error {
	var errs []error
	if c.DataDir == "" {
		errs = append(errs, errors.New("data dir is empty"))
	}
	if c.Listen == "" {
		errs = append(errs, errors.New("listen address is empty"))
	}
	if c.Heartbeat != "" {
		if err := scheduler.ValidateCron(c.Heartbeat, time.Now()); err != nil {
			errs = append(errs, fmt.Errorf("heartbeat: %w", err))
		}
	}
	if len(c.Surfaces) == 0 {
		errs = append(errs, errors.New("at least one delivery surface is required"))
	}
	for _, s := range c.Surfaces {
		if s != SurfaceRPC && s != SurfaceLog {
			errs = append(errs, fmt.Errorf("unknown surface %q", s))
		}
	}
	if c.DedupSize <= 0 {
		errs = append(errs, errors.New("dedup_size must be positive"))
	}
	for name, d := range map[string]Duration{
		"retention.sent":  c.Retention.Sent,
		"retention.stale": c.Retention.Stale,
		"snooze":          c.Snooze,
		"horizon":         c.Horizon,
		"claim_lease":     c.ClaimLease,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrConfigInvalid, err)
	}
	return nil
}

// HasSurface reports whether the named surface is enabled.
func (c Config) HasSurface(name string) bool {
	return slices.Contains(c.Surfaces, name)
}

const header = `// recall daemon configuration.
// Comments and trailing commas are allowed. Durations use Go syntax
// ("90m", "24h"). Environment variables RECALL_LISTEN, RECALL_RPC_SECRET
// and RECALL_DEBUG override the values below.
`

// WriteDefault writes the default config with a fresh RPC secret to the
// data directory. It refuses to overwrite an existing file unless force
// is set.
func WriteDefault(dataDir string, force bool) (Config, error) {
	cfg := Default(dataDir)
	if !force {
		if _, err := os.Stat(cfg.Path()); err == nil {
			return Config{}, fmt.Errorf("%w: %s", ErrConfigExists, cfg.Path())
		}
	}
	secret, err := NewSecret()
	if err != nil {
		return Config{}, err
	}
	cfg.RPCSecret = secret

	body, err := json.Marshal(cfg)
	if err != nil {
		return Config{}, fmt.Errorf("encode config: %w", err)
	}
	formatted, err := hujson.Format(body)
	if err != nil {
		return Config{}, fmt.Errorf("format config: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return Config{}, fmt.Errorf("create data dir: %w", err)
	}
	if err := atomic.WriteFile(cfg.Path(), strings.NewReader(header+string(formatted))); err != nil {
		return Config{}, fmt.Errorf("write config: %w", err)
	}
	if err := os.Chmod(cfg.Path(), 0o600); err != nil {
		return Config{}, fmt.Errorf("chmod config: %w", err)
	}
	return cfg, nil
}

// NewSecret returns a random hex token for the RPC endpoint.
func NewSecret() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
