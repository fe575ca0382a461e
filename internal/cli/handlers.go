package cli

import (
	"path/filepath"

	"github.com/blimu-dev/elmgen/pkg/generator"
	"github.com/blimu-dev/elmgen/pkg/generator/elm"
	"github.com/pterm/pterm"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the CLI logger: development output with --verbose,
// production JSON with --log-json, warnings only otherwise.
func NewLogger(verbose, jsonLogs bool) (*zap.Logger, error) {
	var cfg zap.Config
	switch {
	case jsonLogs:
		cfg = zap.NewProductionConfig()
	case verbose:
		cfg = zap.NewDevelopmentConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		cfg.DisableStacktrace = true
	}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	elm.SetLogger(logger.Named("elm"))
	return logger, nil
}

func printResults(results []generator.Result, check bool) {
	for _, r := range results {
		switch {
		case check:
			pterm.Success.Printfln("%s is up to date (%s)", r.Module, r.Out)
		case r.Changed:
			pterm.Success.Printfln("Generated %s with %d types -> %s", r.Module, r.Roots, r.Out)
		default:
			pterm.Info.Printfln("%s unchanged (%s)", r.Module, r.Out)
		}
	}
}

// utility
func absPath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	abs, _ := filepath.Abs(p)
	return abs
}
