// Package config loads and stores the renderer's TOML configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/go-homedir"
)

// FileName is the default configuration file name inside ConfigDir.
const FileName = "oxy-gl.toml"

// Config holds the tunables read by the renderer and its caches.
type Config struct {
	// IgnoreShaderErrors makes a failed shade style fall back to the default structure
	// instead of failing the draw. Meant for live-editing snippets.
	IgnoreShaderErrors bool `toml:"ignore_shader_errors"`

	// ShaderCacheSize bounds the number of non-default programs kept alive.
	ShaderCacheSize int `toml:"shader_cache_size"`

	// GLVersion forces a driver version such as "gl-4.1" or "gles-3.2". Empty means detect.
	GLVersion string `toml:"gl_version"`

	// DebugGLErrors checks the native error flag after every draw call.
	DebugGLErrors bool `toml:"debug_gl_errors"`

	// PrewarmWorkers is the number of goroutines generating shader sources during Prewarm.
	PrewarmWorkers int `toml:"prewarm_workers"`

	// WatchStyles binds snippet files to the renderer's watched style. Each entry has the
	// form "snippet=path", such as "fragment_transform=~/shaders/fill.frag".
	WatchStyles []string `toml:"watch_styles"`

	// LogLevel is one of debug, info, warn or error.
	LogLevel string `toml:"log_level"`
}

// Default returns the configuration used when no file is present.
//
// Returns:
//   - Config: the default configuration
func Default() Config {
	return Config{
		IgnoreShaderErrors: false,
		ShaderCacheSize:    1000,
		DebugGLErrors:      false,
		PrewarmWorkers:     4,
		LogLevel:           "info",
	}
}

// Dir returns the directory holding the configuration file, honoring XDG_CONFIG_HOME.
//
// Returns:
//   - string: the configuration directory
//   - error: an error if the home directory cannot be resolved
func Dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "oxy-gl"), nil
	}
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "oxy-gl"), nil
}

// Load reads the configuration at path. A leading "~" is expanded. A missing file
// yields Default() without error. Fields absent from the file keep their defaults.
//
// Parameters:
//   - path: the file to read
//
// Returns:
//   - Config: the loaded configuration
//   - error: an error if the file exists but cannot be decoded
func Load(path string) (Config, error) {
	cfg := Default()
	expanded, err := homedir.Expand(path)
	if err != nil {
		return cfg, fmt.Errorf("expand config path %q: %w", path, err)
	}
	if _, err := toml.DecodeFile(expanded, &cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return Default(), fmt.Errorf("decode config %q: %w", expanded, err)
	}
	if cfg.ShaderCacheSize <= 0 {
		cfg.ShaderCacheSize = Default().ShaderCacheSize
	}
	if cfg.PrewarmWorkers <= 0 {
		cfg.PrewarmWorkers = Default().PrewarmWorkers
	}
	for i, entry := range cfg.WatchStyles {
		snippet, path, ok := strings.Cut(entry, "=")
		if !ok || snippet == "" || path == "" {
			return cfg, fmt.Errorf("watched style %q: want snippet=path", entry)
		}
		if path, err = homedir.Expand(path); err != nil {
			return cfg, fmt.Errorf("expand watched style %q: %w", entry, err)
		}
		cfg.WatchStyles[i] = snippet + "=" + path
	}
	return cfg, nil
}

// Save writes cfg to path, creating parent directories as needed.
//
// Parameters:
//   - path: the destination file, "~" is expanded
//   - cfg: the configuration to encode
//
// Returns:
//   - error: an error if encoding or writing fails
func Save(path string, cfg Config) error {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return fmt.Errorf("expand config path %q: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(expanded, buf.Bytes(), 0o644)
}
