// Package config loads the compositor's INI configuration: [section]
// headers, key=value lines, # comments. Files are parsed with
// gopkg.in/ini.v1 and flattened into a viper store (viper itself no
// longer ships an INI codec). Lookup order is an env-var override,
// then the user config directory, then a colon-separated system path
// list; a sibling <name>.d/ directory contributes *.ini fragments in
// lexicographic order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/ini.v1"

	"github.com/bnema/waylab/internal/logger"
)

// Sentinel errors, errno-style.
var (
	// ErrNotFound: no config file, or section/key missing (ENOENT).
	ErrNotFound = errors.New("config: not found")
	// ErrInvalid: value present but unparsable (EINVAL).
	ErrInvalid = errors.New("config: invalid value")
	// ErrRange: value parses but overflows the requested type (ERANGE).
	ErrRange = errors.New("config: value out of range")
)

const (
	envOverride = "WAYLAB_CONFIG"
	envDirs     = "WAYLAB_CONFIG_DIRS"
	defaultDirs = "/etc/waylab:/usr/share/waylab"
	fileName    = "waylab.ini"
)

// Config is a loaded configuration snapshot.
type Config struct {
	v *viper.Viper
}

// New returns an empty configuration; every getter falls back to its
// default.
func New() *Config {
	return &Config{v: viper.New()}
}

// Load resolves and reads the configuration. With an explicit path the
// search order is skipped; path == "" searches, and a missing file in
// search mode yields an empty config without error.
func Load(path string) (*Config, error) {
	c := New()
	log := logger.Scope("config")

	resolved := path
	if resolved == "" {
		resolved = resolve()
		if resolved == "" {
			log.Debug("no config file found, using defaults")
			return c, nil
		}
	}

	if err := c.merge(resolved); err != nil {
		return nil, err
	}
	log.Debug("config loaded", "path", resolved)

	for _, frag := range fragments(resolved) {
		if err := c.merge(frag); err != nil {
			return nil, err
		}
		log.Debug("config fragment merged", "path", frag)
	}
	return c, nil
}

// merge parses one INI file into the store. A key merged later
// overrides an earlier value, which gives fragments their override
// semantics.
func (c *Config) merge(path string) error {
	f, err := ini.Load(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return fmt.Errorf("%s: %w: %v", path, ErrInvalid, err)
	}
	for _, sec := range f.Sections() {
		for _, key := range sec.Keys() {
			c.v.Set(sec.Name()+"."+key.Name(), key.Value())
		}
	}
	return nil
}

// resolve walks the search order and returns the first existing file.
func resolve() string {
	if p := os.Getenv(envOverride); p != "" {
		return p
	}
	if dir := userConfigDir(); dir != "" {
		p := filepath.Join(dir, "waylab", fileName)
		if fileExists(p) {
			return p
		}
	}
	dirs := os.Getenv(envDirs)
	if dirs == "" {
		dirs = defaultDirs
	}
	for _, dir := range strings.Split(dirs, ":") {
		if dir == "" {
			continue
		}
		p := filepath.Join(dir, fileName)
		if fileExists(p) {
			return p
		}
	}
	return ""
}

func userConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return xdg
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".config")
	}
	return ""
}

func fileExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}

// fragments lists <path>.d/*.ini in lexicographic order.
func fragments(path string) []string {
	dir := path + ".d"
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".ini") {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out
}

func (c *Config) raw(section, key string) (string, error) {
	full := section + "." + key
	if !c.v.IsSet(full) {
		return "", fmt.Errorf("[%s] %s: %w", section, key, ErrNotFound)
	}
	return strings.TrimSpace(c.v.GetString(full)), nil
}

// String returns a string value or the default when missing.
func (c *Config) String(section, key, def string) string {
	s, err := c.raw(section, key)
	if err != nil {
		return def
	}
	return s
}

// Int returns a signed integer value.
func (c *Config) Int(section, key string, def int32) (int32, error) {
	s, err := c.raw(section, key)
	if err != nil {
		return def, nil
	}
	n, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return def, fmt.Errorf("[%s] %s: %w", section, key, ErrRange)
		}
		return def, fmt.Errorf("[%s] %s: %w", section, key, ErrInvalid)
	}
	if n < -1<<31 || n > 1<<31-1 {
		return def, fmt.Errorf("[%s] %s: %w", section, key, ErrRange)
	}
	return int32(n), nil
}

// Uint returns an unsigned integer value.
func (c *Config) Uint(section, key string, def uint32) (uint32, error) {
	s, err := c.raw(section, key)
	if err != nil {
		return def, nil
	}
	n, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return def, fmt.Errorf("[%s] %s: %w", section, key, ErrRange)
		}
		return def, fmt.Errorf("[%s] %s: %w", section, key, ErrInvalid)
	}
	if n > 1<<32-1 {
		return def, fmt.Errorf("[%s] %s: %w", section, key, ErrRange)
	}
	return uint32(n), nil
}

// Double returns a floating-point value.
func (c *Config) Double(section, key string, def float64) (float64, error) {
	s, err := c.raw(section, key)
	if err != nil {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return def, fmt.Errorf("[%s] %s: %w", section, key, ErrRange)
		}
		return def, fmt.Errorf("[%s] %s: %w", section, key, ErrInvalid)
	}
	return f, nil
}

// Bool returns a boolean value; only "true" and "false" parse.
func (c *Config) Bool(section, key string, def bool) (bool, error) {
	s, err := c.raw(section, key)
	if err != nil {
		return def, nil
	}
	switch s {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return def, fmt.Errorf("[%s] %s: %w", section, key, ErrInvalid)
}

// Color parses a color value: "0" (transparent black), 8 hex digits
// (AARRGGBB), or the same with a 0x prefix (10 characters).
func (c *Config) Color(section, key string, def uint32) (uint32, error) {
	s, err := c.raw(section, key)
	if err != nil {
		return def, nil
	}
	if s == "0" {
		return 0, nil
	}
	hex := s
	switch len(s) {
	case 10:
		if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
			return def, fmt.Errorf("[%s] %s: %w", section, key, ErrInvalid)
		}
		hex = s[2:]
	case 8:
	default:
		return def, fmt.Errorf("[%s] %s: %w", section, key, ErrInvalid)
	}
	n, err := strconv.ParseUint(hex, 16, 64)
	if err != nil {
		return def, fmt.Errorf("[%s] %s: %w", section, key, ErrInvalid)
	}
	return uint32(n), nil
}
