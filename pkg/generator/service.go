// Package generator drives Elm module generation from an OpenAPI document:
// load the config, convert the selected component schemas to shapes, render
// one Elm module per configured module and write it to disk.
package generator

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/blimu-dev/elmgen/pkg/config"
	"github.com/blimu-dev/elmgen/pkg/errors"
	"github.com/blimu-dev/elmgen/pkg/generator/elm"
	"github.com/blimu-dev/elmgen/pkg/openapi"
	"github.com/getkin/kin-openapi/openapi3"
	"go.uber.org/zap"
)

// GenerateOptions contains options for Elm module generation
type GenerateOptions struct {
	ConfigPath   string
	SingleModule string
	// Check forces check mode on every module.
	Check    bool
	Fallback FallbackOptions
}

// FallbackOptions contains fallback options when no config file is provided
type FallbackOptions struct {
	Spec         string
	ModuleName   string
	Out          string
	IncludeTypes []string
	ExcludeTypes []string
	QueryTypes   []string
}

// Result describes one generated module.
type Result struct {
	Module  string
	Out     string
	Roots   int
	Changed bool
}

// CommandRunner runs a post-generation command in workDir.
type CommandRunner func(command []string, workDir, label string) error

// Service provides high-level Elm generation functionality
type Service struct {
	logger *zap.Logger
	run    CommandRunner
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCommandRunner replaces the runner used for post-generation commands.
func WithCommandRunner(run CommandRunner) ServiceOption {
	return func(s *Service) {
		if run != nil {
			s.run = run
		}
	}
}

// NewService creates a new generator service
func NewService(opts ...ServiceOption) *Service {
	s := &Service{
		logger: zap.NewNop(),
		run:    executeCommand,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the configuration described by opts: the config file when
// one is given, otherwise a single module built from the fallback options.
func (s *Service) Config(opts GenerateOptions) (*config.Config, error) {
	var cfg *config.Config
	if opts.ConfigPath == "" {
		f := opts.Fallback
		if f.Spec == "" || f.ModuleName == "" || f.Out == "" {
			return nil, errors.New("either config path or all fallback options (spec, module name, out) must be provided")
		}
		cfg = &config.Config{
			Spec: f.Spec,
			Modules: []config.Module{{
				Name:         f.ModuleName,
				Out:          f.Out,
				IncludeTypes: f.IncludeTypes,
				ExcludeTypes: f.ExcludeTypes,
				QueryTypes:   f.QueryTypes,
			}},
		}
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		if err := cfg.Normalize(wd); err != nil {
			return nil, err
		}
	} else {
		var err error
		if cfg, err = config.Load(opts.ConfigPath); err != nil {
			return nil, err
		}
	}

	if opts.Check {
		for i := range cfg.Modules {
			cfg.Modules[i].Check = true
		}
	}
	return cfg, nil
}

// Generate generates Elm modules based on the provided options
func (s *Service) Generate(opts GenerateOptions) ([]Result, error) {
	cfg, err := s.Config(opts)
	if err != nil {
		return nil, err
	}
	return s.GenerateFromConfig(cfg, opts.SingleModule)
}

// GenerateFromConfig generates every module of cfg, or only the module named
// onlyModule when it is not empty.
func (s *Service) GenerateFromConfig(cfg *config.Config, onlyModule string) ([]Result, error) {
	doc, err := openapi.LoadDocument(cfg.Spec)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", cfg.Spec)
	}

	var results []Result
	for _, m := range cfg.Modules {
		if onlyModule != "" && m.Name != onlyModule {
			continue
		}
		r, err := s.GenerateModule(doc, cfg.Spec, m)
		if err != nil {
			return results, errors.Wrapf(err, "module %s", m.Name)
		}
		results = append(results, r)
	}

	if onlyModule != "" && len(results) == 0 {
		return nil, errors.Newf("module %q not found in config", onlyModule)
	}
	return results, nil
}

// RenderModule renders the Elm text of one module without touching the
// filesystem. It returns the text and the number of root types.
func (s *Service) RenderModule(doc *openapi3.T, source string, m config.Module) ([]byte, int, error) {
	filter, err := m.Filter()
	if err != nil {
		return nil, 0, err
	}
	shapes, err := openapi.Convert(doc, filter.Keep)
	if err != nil {
		return nil, 0, err
	}

	roots := make([]elm.Root, 0, len(shapes))
	for _, sh := range shapes {
		if filter.Query(sh.Name) {
			roots = append(roots, elm.WithQuery(sh))
		} else {
			roots = append(roots, elm.JSON(sh))
		}
	}

	out, err := elm.Render(m.Name, roots, elm.WithSource(source))
	if err != nil {
		return nil, 0, err
	}
	return out, len(roots), nil
}

// GenerateModule renders one module, writes it (or checks it in check mode)
// and runs its post-generation command.
func (s *Service) GenerateModule(doc *openapi3.T, source string, m config.Module) (Result, error) {
	out, roots, err := s.RenderModule(doc, source, m)
	if err != nil {
		return Result{}, err
	}
	if roots == 0 {
		s.logger.Warn("no component schemas selected", zap.String("module", m.Name))
	}

	changed, err := writeModule(m.Out, out, m.Check)
	if err != nil {
		return Result{}, err
	}
	s.logger.Info("generated Elm module",
		zap.String("module", m.Name),
		zap.String("out", m.Out),
		zap.Int("roots", roots),
		zap.Bool("changed", changed),
		zap.Bool("check", m.Check))

	if !m.Check {
		command, err := m.GetPostCommand()
		if err != nil {
			return Result{}, err
		}
		if len(command) > 0 {
			s.logger.Debug("running post-command",
				zap.String("module", m.Name),
				zap.Strings("command", command))
			if err := s.run(command, filepath.Dir(m.Out), "post-command"); err != nil {
				return Result{}, err
			}
		}
	}

	return Result{Module: m.Name, Out: m.Out, Roots: roots, Changed: changed}, nil
}

// executeCommand executes a single command in Docker Compose array format
func executeCommand(command []string, workDir, label string) error {
	if len(command) == 0 {
		return nil
	}

	cmd := exec.Command(command[0], command[1:]...)
	cmd.Dir = workDir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "%s (%s) failed", label, strings.Join(command, " "))
	}
	return nil
}
