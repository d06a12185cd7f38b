package internal

import (
	"fmt"
	"log/slog"
	"runtime"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/noteprops/internal/frontmatter"
	"github.com/starford/noteprops/internal/pipeline"
	"github.com/starford/noteprops/internal/render"
	"github.com/starford/noteprops/internal/visibility"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App        ApplicationConfig `yaml:"app" toml:"app"`
	Content    PathConfig        `yaml:"content" toml:"content"`
	Output     PathConfig        `yaml:"output" toml:"output"`
	SQLite     PathConfig        `yaml:"sqlite" toml:"sqlite"`
	Auth       AuthConfig        `yaml:"auth" toml:"auth"`
	Properties PropertiesConfig  `yaml:"properties" toml:"properties"`
	Component  ComponentConfig   `yaml:"component" toml:"component"`
	Build      BuildConfig       `yaml:"build" toml:"build"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Content.Validate(); err != nil {
		return fmt.Errorf("content: %w", err)
	}
	if err := c.Output.Validate(); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	if err := c.SQLite.Validate(); err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	if err := c.Properties.Validate(); err != nil {
		return err
	}
	if err := c.Component.Validate(); err != nil {
		return err
	}
	c.Build.normalize()
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level" toml:"log_level"`
	HTTP     HTTPConfig `yaml:"http" toml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port" toml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// PathConfig holds a file-system location.
type PathConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// Validate validates the path configuration.
func (c *PathConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode" toml:"mode"`
	Token string `yaml:"token" toml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// PropertiesConfig selects the frontmatter format and the fields the
// properties panel shows.
type PropertiesConfig struct {
	IncludeAll         bool                   `yaml:"include_all" toml:"include_all"`
	IncludedProperties []string               `yaml:"included_properties" toml:"included_properties"`
	ExcludedProperties []string               `yaml:"excluded_properties" toml:"excluded_properties"`
	HidePropertiesView bool                   `yaml:"hide_properties_view" toml:"hide_properties_view"`
	Delimiters         frontmatter.Delimiters `yaml:"delimiters" toml:"delimiters"`
	Language           frontmatter.Language   `yaml:"language" toml:"language"`
}

// Validate validates the properties configuration.
func (c *PropertiesConfig) Validate() error {
	if c.Language == "" {
		c.Language = frontmatter.YAML
	}
	if c.Delimiters.Open == "" {
		c.Delimiters.Open = frontmatter.DefaultDelimiter
	}
	if c.Delimiters.Close == "" {
		c.Delimiters.Close = c.Delimiters.Open
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Language, validation.In(frontmatter.YAML, frontmatter.TOML)),
	); err != nil {
		return fmt.Errorf("properties: %w", err)
	}
	return nil
}

// PipelineOptions converts the section into per-document processing options.
func (c *PropertiesConfig) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		Parse: frontmatter.Options{
			Delimiters: c.Delimiters,
			Language:   c.Language,
		},
		Visibility: visibility.Options{
			IncludeAll:         c.IncludeAll,
			IncludedProperties: c.IncludedProperties,
			ExcludedProperties: c.ExcludedProperties,
		},
		HidePropertiesView: c.HidePropertiesView,
	}
}

// ComponentConfig holds the properties panel settings.
type ComponentConfig struct {
	Collapsed    bool   `yaml:"collapsed" toml:"collapsed"`
	Locale       string `yaml:"locale" toml:"locale"`
	DisplayClass string `yaml:"display_class" toml:"display_class"`
}

// Validate validates the component configuration.
func (c *ComponentConfig) Validate() error {
	if c.Locale == "" {
		c.Locale = render.DefaultLocale
	}
	return nil
}

// BuildConfig tunes the parallel build.
type BuildConfig struct {
	Workers int `yaml:"workers" toml:"workers"`
}

func (c *BuildConfig) normalize() {
	if c.Workers < 1 {
		c.Workers = runtime.NumCPU()
	}
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Content: PathConfig{Path: "./content"},
		Output:  PathConfig{Path: "./public"},
		SQLite:  PathConfig{Path: "./noteprops.db"},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Properties: PropertiesConfig{
			IncludedProperties: append([]string(nil), visibility.DefaultIncluded...),
			ExcludedProperties: append([]string(nil), visibility.DefaultExcluded...),
			Delimiters:         frontmatter.Delimiters{Open: frontmatter.DefaultDelimiter, Close: frontmatter.DefaultDelimiter},
			Language:           frontmatter.YAML,
		},
		Component: ComponentConfig{
			Locale: render.DefaultLocale,
		},
		Build: BuildConfig{
			Workers: runtime.NumCPU(),
		},
	}
}
