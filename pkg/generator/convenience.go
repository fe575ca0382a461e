package generator

import (
	"github.com/blimu-dev/elmgen/pkg/config"
	"github.com/blimu-dev/elmgen/pkg/openapi"
)

// GenerateElm is a convenience function for generating Elm modules with minimal configuration
func GenerateElm(opts GenerateElmOptions) ([]Result, error) {
	return NewService().Generate(GenerateOptions{
		ConfigPath:   opts.ConfigPath,
		SingleModule: opts.SingleModule,
		Check:        opts.Check,
		Fallback: FallbackOptions{
			Spec:         opts.Spec,
			ModuleName:   opts.ModuleName,
			Out:          opts.Out,
			IncludeTypes: opts.IncludeTypes,
			ExcludeTypes: opts.ExcludeTypes,
			QueryTypes:   opts.QueryTypes,
		},
	})
}

// GenerateElmOptions contains options for the convenience GenerateElm function
type GenerateElmOptions struct {
	// ConfigPath is the path to the configuration file (optional)
	ConfigPath string

	// SingleModule generates only the named module from config (optional)
	SingleModule string

	// Check fails instead of writing when a module is out of date
	Check bool

	// Fallback options when no config file is provided
	Spec         string   // OpenAPI spec file or URL
	ModuleName   string   // Elm module name, e.g. Api.Types
	Out          string   // Output .elm file
	IncludeTypes []string // Regex patterns for component names to include
	ExcludeTypes []string // Regex patterns for component names to exclude
	QueryTypes   []string // Regex patterns for components that get query encoders
}

// GenerateFromConfig is a convenience function for generating from a config file
func GenerateFromConfig(configPath string, singleModule ...string) ([]Result, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	onlyModule := ""
	if len(singleModule) > 0 {
		onlyModule = singleModule[0]
	}
	return NewService().GenerateFromConfig(cfg, onlyModule)
}

// ValidateSpec validates an OpenAPI specification
func ValidateSpec(specPath string) error {
	return openapi.ValidateDocument(specPath)
}
