// Package config handles application configuration for the jsonrpc2go daemon.
// file: internal/config/config.go
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/dkoosis/jsonrpc2go/internal/logging"
)

// Initialize the logger at the package level.
var logger = logging.GetLogger("config")

// TransportKind selects which wire transport the server attaches to.
type TransportKind string

// Supported transport kinds.
const (
	TransportStdioLine   TransportKind = "stdio-line"
	TransportStdioFramed TransportKind = "stdio-framed"
	TransportHTTP        TransportKind = "http"
)

// NamingStrategyKind selects the pluggable naming strategy applied when a
// contract is built (spec.md S4.3).
type NamingStrategyKind string

// Supported naming strategies.
const (
	NamingIdentity  NamingStrategyKind = "identity"
	NamingCamelCase NamingStrategyKind = "camelCase"
)

// Settings represents the application configuration. It encapsulates all
// configuration for the jsonrpc2go daemon, grouped by concern so each
// subsystem can be handed only the section it needs.
type Settings struct {
	Server   ServerConfig   `yaml:"server"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	HTTP     HTTPConfig     `yaml:"http"`
}

// ServerConfig contains process-level server configuration.
type ServerConfig struct {
	Name      string        `yaml:"name"`
	Transport TransportKind `yaml:"transport"`
	// LineDelimiter, when non-empty, is the delimiter line used by the
	// line-delimited framing codec (spec.md S4.2). Empty means each
	// non-empty line is its own message.
	LineDelimiter string `yaml:"line_delimiter"`
}

// DispatchConfig controls the server dispatch core (spec.md S4.5).
type DispatchConfig struct {
	// Ordered enables ordered-response mode: responses are written in the
	// same order as the originating requests arrived.
	Ordered bool `yaml:"ordered"`
	// CancellationEnabled turns on the active-request table and the
	// cancelRequest convention handler.
	CancellationEnabled bool `yaml:"cancellation_enabled"`
	// Naming selects the method naming strategy applied once at
	// contract-build time (parameter names are used as registered).
	Naming NamingStrategyKind `yaml:"naming"`
	// PreserveForeignResponses keeps a bounded side-table of responses
	// whose id no longer has an outstanding caller (client-side only).
	PreserveForeignResponses bool `yaml:"preserve_foreign_responses"`
	// ForeignResponseCacheSize bounds that side-table. Zero uses a sensible
	// default (256).
	ForeignResponseCacheSize int `yaml:"foreign_response_cache_size"`
}

// HTTPConfig configures the HTTP adapter (spec.md S4.7).
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// New creates a new configuration with default values, letting the daemon
// run out of the box without requiring a config file.
func New() *Settings {
	logger.Debug("creating default configuration")
	return &Settings{
		Server: ServerConfig{
			Name:      "jsonrpc2go",
			Transport: TransportStdioFramed,
		},
		Dispatch: DispatchConfig{
			Ordered:                  false,
			CancellationEnabled:      true,
			Naming:                   NamingCamelCase,
			PreserveForeignResponses: false,
			ForeignResponseCacheSize: 256,
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
	}
}

// Load reads configuration from a YAML file and applies it on top of the
// defaults returned by New, so a partial file is valid. A missing file is
// not an error; it simply yields the defaults.
func Load(path string) (*Settings, error) {
	settings := New()

	expanded, err := ExpandPath(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to expand config path")
	}

	data, err := os.ReadFile(expanded)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn("config file not found, using defaults", "path", expanded)
			return settings, nil
		}
		return nil, errors.Wrap(err, "failed to read config file")
	}

	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	return settings, nil
}

// GetServerName returns the server's advertised name.
func (s *Settings) GetServerName() string {
	return s.Server.Name
}

// ExpandPath expands a leading ~ in path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get user home directory")
	}

	return filepath.Join(home, path[1:]), nil
}
