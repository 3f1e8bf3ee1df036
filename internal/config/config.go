// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jeranaias/livechat-tui/internal/util"
)

// =============================================================================
// DURATION
// =============================================================================

// Duration is a time.Duration written as text ("16ms", "5s") in every
// config format.
type Duration struct {
	time.Duration
}

// D wraps d.
func D(d time.Duration) Duration {
	return Duration{Duration: d}
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Bare integers are read
// as milliseconds.
func (d *Duration) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if s == "" {
		d.Duration = 0
		return nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		d.Duration = time.Duration(ms) * time.Millisecond
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

var durationType = reflect.TypeOf(Duration{})

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete livechat configuration.
type Config struct {
	Version string `toml:"version" yaml:"version" json:"version"`

	User       UserConfig       `toml:"user" yaml:"user" json:"user"`
	Storage    StorageConfig    `toml:"storage" yaml:"storage" json:"storage"`
	Scroll     ScrollConfig     `toml:"scroll" yaml:"scroll" json:"scroll"`
	Pagination PaginationConfig `toml:"pagination" yaml:"pagination" json:"pagination"`
	Typing     TypingConfig     `toml:"typing" yaml:"typing" json:"typing"`
	Session    SessionConfig    `toml:"session" yaml:"session" json:"session"`
	UI         UIConfig         `toml:"ui" yaml:"ui" json:"ui"`
	Logging    LoggingConfig    `toml:"logging" yaml:"logging" json:"logging"`
	Metrics    MetricsConfig    `toml:"metrics" yaml:"metrics" json:"metrics"`
	Simulator  SimulatorConfig  `toml:"simulator" yaml:"simulator" json:"simulator"`
}

// UserConfig identifies the local user.
type UserConfig struct {
	ID   string `toml:"id" yaml:"id" json:"id"`
	Name string `toml:"name" yaml:"name" json:"name"`
}

// StorageConfig locates the message database.
type StorageConfig struct {
	// Path of the SQLite database; ":memory:" keeps nothing on disk
	Path string `toml:"path" yaml:"path" json:"path"`
	// PageSize is the number of messages per history page
	PageSize int `toml:"page_size" yaml:"page_size" json:"page_size"`
}

// ScrollConfig tunes the anchor manager and autoscroll policy.
type ScrollConfig struct {
	BottomThreshold     int      `toml:"bottom_threshold" yaml:"bottom_threshold" json:"bottom_threshold"`
	AnchorTolerance     int      `toml:"anchor_tolerance" yaml:"anchor_tolerance" json:"anchor_tolerance"`
	AnchorRetries       int      `toml:"anchor_retries" yaml:"anchor_retries" json:"anchor_retries"`
	AnchorRetryDelay    Duration `toml:"anchor_retry_delay" yaml:"anchor_retry_delay" json:"anchor_retry_delay"`
	ThrottleWindow      Duration `toml:"throttle_window" yaml:"throttle_window" json:"throttle_window"`
	PaintDelay          Duration `toml:"paint_delay" yaml:"paint_delay" json:"paint_delay"`
	SwitchRetries       int      `toml:"switch_retries" yaml:"switch_retries" json:"switch_retries"`
	SwitchRetryInterval Duration `toml:"switch_retry_interval" yaml:"switch_retry_interval" json:"switch_retry_interval"`
	// LineHeight is the pixel height of one rendered terminal line
	LineHeight int `toml:"line_height" yaml:"line_height" json:"line_height"`
}

// PaginationConfig tunes the history trigger.
type PaginationConfig struct {
	Debounce      Duration `toml:"debounce" yaml:"debounce" json:"debounce"`
	TriggerMargin int      `toml:"trigger_margin" yaml:"trigger_margin" json:"trigger_margin"`
	TriggerRatio  float64  `toml:"trigger_ratio" yaml:"trigger_ratio" json:"trigger_ratio"`
	TriggerHeight int      `toml:"trigger_height" yaml:"trigger_height" json:"trigger_height"`
}

// TypingConfig tunes the typing heartbeat.
type TypingConfig struct {
	RefreshInterval Duration `toml:"refresh_interval" yaml:"refresh_interval" json:"refresh_interval"`
	EndDelay        Duration `toml:"end_delay" yaml:"end_delay" json:"end_delay"`
	// EndOnSwitch sends an explicit typing end when leaving a chat mid-burst
	EndOnSwitch bool `toml:"end_on_switch" yaml:"end_on_switch" json:"end_on_switch"`
}

// SessionConfig tunes chat open behavior.
type SessionConfig struct {
	InitialLoadDelay Duration `toml:"initial_load_delay" yaml:"initial_load_delay" json:"initial_load_delay"`
	GroupRetryDelay  Duration `toml:"group_retry_delay" yaml:"group_retry_delay" json:"group_retry_delay"`
}

// UIConfig contains presentation settings.
type UIConfig struct {
	// Locale for date separator labels (BCP 47, e.g. "de-DE")
	Locale string `toml:"locale" yaml:"locale" json:"locale"`
	// Timezone is an IANA name; empty means the system zone
	Timezone string `toml:"timezone" yaml:"timezone" json:"timezone"`
	// ShowAvatars draws sender initials in group chats
	ShowAvatars bool `toml:"show_avatars" yaml:"show_avatars" json:"show_avatars"`
	// Theme is "dark", "light" or "auto"
	Theme string `toml:"theme" yaml:"theme" json:"theme"`
}

// LoggingConfig selects log level and destination.
type LoggingConfig struct {
	Level string `toml:"level" yaml:"level" json:"level"`
	// File receives logs; the terminal belongs to the UI
	File string `toml:"file" yaml:"file" json:"file"`
	// Development switches to human-readable console encoding
	Development bool `toml:"development" yaml:"development" json:"development"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Addr such as "127.0.0.1:9464"; empty disables the endpoint
	Addr string `toml:"addr" yaml:"addr" json:"addr"`
}

// SimulatorConfig controls the demo peers.
type SimulatorConfig struct {
	Enabled    bool     `toml:"enabled" yaml:"enabled" json:"enabled"`
	Interval   Duration `toml:"interval" yaml:"interval" json:"interval"`
	TypingLead Duration `toml:"typing_lead" yaml:"typing_lead" json:"typing_lead"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	dir, err := ConfigDir()
	if err != nil {
		dir = ".livechat"
	}
	return &Config{
		Version: "1",
		User: UserConfig{
			ID:   "me",
			Name: "You",
		},
		Storage: StorageConfig{
			Path:     filepath.Join(dir, "livechat.db"),
			PageSize: 30,
		},
		Scroll: ScrollConfig{
			BottomThreshold:     200,
			AnchorTolerance:     10,
			AnchorRetries:       5,
			AnchorRetryDelay:    D(16 * time.Millisecond),
			ThrottleWindow:      D(200 * time.Millisecond),
			PaintDelay:          D(16 * time.Millisecond),
			SwitchRetries:       5,
			SwitchRetryInterval: D(50 * time.Millisecond),
			LineHeight:          20,
		},
		Pagination: PaginationConfig{
			Debounce:      D(300 * time.Millisecond),
			TriggerMargin: 100,
			TriggerRatio:  0.5,
			TriggerHeight: 40,
		},
		Typing: TypingConfig{
			RefreshInterval: D(4 * time.Second),
			EndDelay:        D(5 * time.Second),
		},
		Session: SessionConfig{
			InitialLoadDelay: D(50 * time.Millisecond),
			GroupRetryDelay:  D(500 * time.Millisecond),
		},
		UI: UIConfig{
			Locale:      "en-US",
			ShowAvatars: true,
			Theme:       "auto",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  filepath.Join(dir, "livechat.log"),
		},
		Simulator: SimulatorConfig{
			Interval:   D(20 * time.Second),
			TypingLead: D(3 * time.Second),
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the livechat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".livechat"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathYAML returns the path to the YAML config file.
func ConfigPathYAML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// DefaultPath returns the config file Load would read: the first existing of
// the TOML and YAML files, or the TOML path when neither exists.
func DefaultPath() (string, error) {
	tomlPath, err := ConfigPathTOML()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(tomlPath); err == nil {
		return tomlPath, nil
	}
	yamlPath, err := ConfigPathYAML()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(yamlPath); err == nil {
		return yamlPath, nil
	}
	return tomlPath, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads the default config file, falling back to built-in defaults when
// none exists. A .env file next to it (or in the working directory) is
// loaded before environment overrides apply.
func Load() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return finish(Default())
	}
	if _, statErr := os.Stat(path); statErr != nil {
		loadDotEnv(filepath.Dir(path))
		return finish(Default())
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific file path with full
// validation. The extension picks the format; anything but .yaml/.yml is TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	var err error
	if isYAML(path) {
		err = LoadYAML(cfg, path)
	} else {
		err = LoadTOML(cfg, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	loadDotEnv(filepath.Dir(path))
	return finish(cfg)
}

// finish applies env overrides, defaults and validation.
func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadYAML decodes a YAML file over cfg.
func LoadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read YAML file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode YAML file: %w", err)
	}
	return nil
}

// loadDotEnv loads .env from dir and the working directory. Variables that
// are already set win.
func loadDotEnv(dir string) {
	for _, path := range []string{filepath.Join(dir, ".env"), ".env"} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not load %s: %v\n", path, err)
		}
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

const fileHeader = "# livechat configuration file\n# Generated by livechat - edit with care\n\n"

// Save writes cfg to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTo(cfg, path)
}

// SaveTo writes cfg to path atomically, in YAML for .yaml/.yml paths and
// TOML otherwise.
func SaveTo(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := Encode(cfg, isYAML(path))
	if err != nil {
		return err
	}

	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Encode renders cfg with the file header, as YAML or TOML.
func Encode(cfg *Config, asYAML bool) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(fileHeader)
	if asYAML {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return nil, fmt.Errorf("failed to encode config: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(c.User.ID) == "" {
		add("user.id", "must not be empty")
	}

	if c.Storage.Path == "" {
		add("storage.path", "must not be empty")
	}
	if c.Storage.PageSize < 1 || c.Storage.PageSize > 500 {
		add("storage.page_size", "must be between 1 and 500, got %d", c.Storage.PageSize)
	}

	nonNegative := map[string]int{
		"scroll.bottom_threshold":   c.Scroll.BottomThreshold,
		"scroll.anchor_tolerance":   c.Scroll.AnchorTolerance,
		"pagination.trigger_margin": c.Pagination.TriggerMargin,
	}
	for _, field := range sortedKeys(nonNegative) {
		if nonNegative[field] < 0 {
			add(field, "must not be negative, got %d", nonNegative[field])
		}
	}

	positive := map[string]int{
		"scroll.anchor_retries":     c.Scroll.AnchorRetries,
		"scroll.switch_retries":     c.Scroll.SwitchRetries,
		"scroll.line_height":        c.Scroll.LineHeight,
		"pagination.trigger_height": c.Pagination.TriggerHeight,
	}
	for _, field := range sortedKeys(positive) {
		if positive[field] < 1 {
			add(field, "must be at least 1, got %d", positive[field])
		}
	}

	if c.Pagination.TriggerRatio <= 0 || c.Pagination.TriggerRatio > 1 {
		add("pagination.trigger_ratio", "must be in (0, 1], got %g", c.Pagination.TriggerRatio)
	}

	durations := map[string]Duration{
		"scroll.anchor_retry_delay":    c.Scroll.AnchorRetryDelay,
		"scroll.throttle_window":       c.Scroll.ThrottleWindow,
		"scroll.paint_delay":           c.Scroll.PaintDelay,
		"scroll.switch_retry_interval": c.Scroll.SwitchRetryInterval,
		"pagination.debounce":          c.Pagination.Debounce,
		"session.initial_load_delay":   c.Session.InitialLoadDelay,
		"session.group_retry_delay":    c.Session.GroupRetryDelay,
		"simulator.typing_lead":        c.Simulator.TypingLead,
	}
	for _, field := range sortedKeys(durations) {
		if durations[field].Duration < 0 {
			add(field, "must not be negative, got %s", durations[field])
		}
	}

	if c.Typing.RefreshInterval.Duration <= 0 {
		add("typing.refresh_interval", "must be positive")
	}
	if c.Typing.EndDelay.Duration <= 0 {
		add("typing.end_delay", "must be positive")
	}
	if c.Simulator.Enabled && c.Simulator.Interval.Duration <= 0 {
		add("simulator.interval", "must be positive when the simulator is enabled")
	}

	if c.UI.Timezone != "" {
		if _, err := time.LoadLocation(c.UI.Timezone); err != nil {
			add("ui.timezone", "unknown zone %q", c.UI.Timezone)
		}
	}
	validThemes := map[string]bool{"auto": true, "dark": true, "light": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		add("ui.theme", "invalid theme '%s', must be one of: auto, dark, light", c.UI.Theme)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		add("logging.level", "invalid level '%s', must be one of: debug, info, warn, error", c.Logging.Level)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// SetDefaults fills zero values left by a partial config file.
func (c *Config) SetDefaults() {
	d := Default()
	if c.Version == "" {
		c.Version = d.Version
	}
	if c.User.ID == "" {
		c.User.ID = d.User.ID
	}
	if c.User.Name == "" {
		c.User.Name = d.User.Name
	}
	if c.Storage.Path == "" {
		c.Storage.Path = d.Storage.Path
	}
	if c.Storage.PageSize == 0 {
		c.Storage.PageSize = d.Storage.PageSize
	}
	if c.Scroll.LineHeight == 0 {
		c.Scroll.LineHeight = d.Scroll.LineHeight
	}
	if c.UI.Locale == "" {
		c.UI.Locale = d.UI.Locale
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.Logging.File == "" {
		c.Logging.File = d.Logging.File
	}
}

// Location resolves UI.Timezone, falling back to the system zone.
func (c *Config) Location() *time.Location {
	if c.UI.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.UI.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides.
//
// Supported variables:
//   - LIVECHAT_USER_ID: overrides user.id
//   - LIVECHAT_DB: overrides storage.path
//   - LIVECHAT_LOG_LEVEL: overrides logging.level
//   - LIVECHAT_LOCALE: overrides ui.locale
//   - LIVECHAT_PAGE_SIZE: overrides storage.page_size
func (c *Config) ApplyEnvOverrides() {
	if id := os.Getenv("LIVECHAT_USER_ID"); id != "" {
		c.User.ID = id
	}

	if db := os.Getenv("LIVECHAT_DB"); db != "" {
		c.Storage.Path = db
	}

	if level := os.Getenv("LIVECHAT_LOG_LEVEL"); level != "" {
		c.Logging.Level = strings.ToLower(level)
	}

	if locale := os.Getenv("LIVECHAT_LOCALE"); locale != "" {
		c.UI.Locale = locale
	}

	if size := os.Getenv("LIVECHAT_PAGE_SIZE"); size != "" {
		if n, err := strconv.Atoi(size); err == nil {
			c.Storage.PageSize = n
		} else {
			fmt.Fprintf(os.Stderr, "Warning: ignoring LIVECHAT_PAGE_SIZE=%q: %v\n", size, err)
		}
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g.,
// "scroll.bottom_threshold").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation. String values are
// converted to the field's type.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct || field.Type() == durationType {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a section", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field
// equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type
// conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if field.Type() == durationType {
		switch v := value.(type) {
		case string:
			var d Duration
			if err := d.UnmarshalText([]byte(v)); err != nil {
				return err
			}
			field.Set(reflect.ValueOf(d))
			return nil
		case time.Duration:
			field.Set(reflect.ValueOf(D(v)))
			return nil
		}
	}

	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			boolVal := strVal == "1" || strings.ToLower(strVal) == "true" || strings.ToLower(strVal) == "yes"
			field.SetBool(boolVal)
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) && val.Kind() != reflect.String {
		field.Set(val.Convert(field.Type()))
		return nil
	}

	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// GetAllKeys returns all configuration keys in dot notation, in declaration
// order.
func GetAllKeys() []string {
	var keys []string
	var walk func(t reflect.Type, prefix string)
	walk = func(t reflect.Type, prefix string) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			name := strings.Split(f.Tag.Get("toml"), ",")[0]
			if name == "" || name == "-" {
				continue
			}
			if f.Type.Kind() == reflect.Struct && f.Type != durationType {
				walk(f.Type, prefix+name+".")
				continue
			}
			keys = append(keys, prefix+name)
		}
	}
	walk(reflect.TypeOf(Config{}), "")
	return keys
}

// Clone creates a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns a JSON representation of the config for debugging.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}
