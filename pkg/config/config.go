package config

import (
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/blimu-dev/elmgen/pkg/errors"
	"github.com/blimu-dev/elmgen/pkg/naming"
	"github.com/kballard/go-shellquote"
	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration for Elm generation
type Config struct {
	Spec    string   `yaml:"spec" toml:"spec"`
	Modules []Module `yaml:"modules" toml:"modules"`

	// path is the file the config was loaded from, if any.
	path string
}

// Module represents one generated Elm module
type Module struct {
	// Name is the Elm module name, e.g. Api.Types.
	Name string `yaml:"name" toml:"name"`
	// Out is the path of the generated .elm file.
	Out string `yaml:"out" toml:"out"`
	// IncludeTypes and ExcludeTypes are regex patterns over component
	// schema names. An empty include list selects every component.
	IncludeTypes []string `yaml:"includeTypes" toml:"includeTypes"`
	ExcludeTypes []string `yaml:"excludeTypes" toml:"excludeTypes"`
	// QueryTypes selects the components that also get a urlEncode function.
	QueryTypes []string `yaml:"queryTypes" toml:"queryTypes"`
	// PostCommand is an optional command to run after the module is written.
	// Uses Docker Compose array format: ["elm-format", "--yes", "Types.elm"]
	// The command will be executed in the output directory.
	PostCommand []string `yaml:"postCommand" toml:"postCommand"`
	// PostCommandLine is PostCommand written as a single shell-quoted line.
	PostCommandLine string `yaml:"postCommandLine" toml:"postCommandLine"`
	// Check makes generation fail instead of writing when the file on disk
	// differs from the generated text.
	Check bool `yaml:"check" toml:"check"`
}

// Path returns the file the config was loaded from.
func (c *Config) Path() string {
	return c.path
}

// GetPostCommand returns the post-generation command to execute.
func (m *Module) GetPostCommand() ([]string, error) {
	if len(m.PostCommand) > 0 {
		return m.PostCommand, nil
	}
	if strings.TrimSpace(m.PostCommandLine) == "" {
		return nil, nil
	}
	words, err := shellquote.Split(m.PostCommandLine)
	if err != nil {
		return nil, errors.Wrapf(err, "module %s: postCommandLine", m.Name)
	}
	return words, nil
}

// Filter is the compiled form of a module's type patterns.
type Filter struct {
	include []*regexp.Regexp
	exclude []*regexp.Regexp
	query   []*regexp.Regexp
}

// Filter compiles the module's include, exclude and query patterns.
func (m *Module) Filter() (*Filter, error) {
	var f Filter
	var err error
	if f.include, err = compile("includeTypes", m.IncludeTypes); err != nil {
		return nil, err
	}
	if f.exclude, err = compile("excludeTypes", m.ExcludeTypes); err != nil {
		return nil, err
	}
	if f.query, err = compile("queryTypes", m.QueryTypes); err != nil {
		return nil, err
	}
	return &f, nil
}

// Keep reports whether the component called name belongs in the module.
func (f *Filter) Keep(name string) bool {
	if len(f.include) > 0 && !matchAny(f.include, name) {
		return false
	}
	return !matchAny(f.exclude, name)
}

// Query reports whether the component called name gets a query encoder.
func (f *Filter) Query(name string) bool {
	return matchAny(f.query, name)
}

func compile(field string, patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		r, err := regexp.Compile(p)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid %s pattern %q", field, p)
		}
		out = append(out, r)
	}
	return out, nil
}

func matchAny(patterns []*regexp.Regexp, s string) bool {
	for _, r := range patterns {
		if r.MatchString(s) {
			return true
		}
	}
	return false
}

// Load loads configuration from a YAML or TOML file, chosen by extension.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, errors.Wrapf(err, "parse %s", path)
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrapf(err, "parse %s", path)
		}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	cfg.path = abs
	if err := cfg.Normalize(filepath.Dir(abs)); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates the config and makes its paths absolute against base.
func (c *Config) Normalize(base string) error {
	if c.Spec == "" {
		return errors.New("config.spec is required")
	}
	if len(c.Modules) == 0 {
		return errors.New("config.modules must name at least one module")
	}
	for i := range c.Modules {
		m := &c.Modules[i]
		if m.Name == "" || m.Out == "" {
			return errors.Newf("modules[%d] missing required fields (name, out)", i)
		}
		if err := naming.ValidateModule(m.Name); err != nil {
			return errors.Wrapf(err, "modules[%d]", i)
		}
		m.Out = absolutize(base, m.Out)
	}
	// Do not absolutize when spec is an HTTP(S) URL
	if !IsURL(c.Spec) {
		c.Spec = absolutize(base, c.Spec)
	}
	return nil
}

// IsURL reports whether spec names an HTTP(S) document rather than a file.
func IsURL(spec string) bool {
	u, err := url.Parse(spec)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https")
}

func absolutize(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
