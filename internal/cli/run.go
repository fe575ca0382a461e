package cli

import (
	"context"

	"github.com/blimu-dev/elmgen/pkg/errors"
	"github.com/blimu-dev/elmgen/pkg/generator"
	"github.com/blimu-dev/elmgen/pkg/openapi"
	"github.com/pterm/pterm"
	"go.uber.org/zap"
)

type FallbackParams struct {
	Spec         string
	ModuleName   string
	Out          string
	IncludeTypes []string
	ExcludeTypes []string
	QueryTypes   []string
}

type RunGenerateParams struct {
	ConfigPath   string
	SingleModule string
	Check        bool
	Fallback     FallbackParams
}

func RunValidate(input string) error {
	if input == "" {
		return errors.New("--input (or ELMGEN_INPUT) is required")
	}
	if err := openapi.ValidateDocument(input); err != nil {
		return err
	}
	pterm.Success.Printfln("%s is valid and every component schema has an Elm binding", input)
	return nil
}

func RunGenerate(logger *zap.Logger, p RunGenerateParams) error {
	opts := generator.GenerateOptions{
		ConfigPath:   p.ConfigPath,
		SingleModule: p.SingleModule,
		Check:        p.Check,
	}
	if p.ConfigPath == "" {
		opts.Fallback = generator.FallbackOptions{
			Spec:         p.Fallback.Spec,
			ModuleName:   p.Fallback.ModuleName,
			Out:          absPath(p.Fallback.Out),
			IncludeTypes: p.Fallback.IncludeTypes,
			ExcludeTypes: p.Fallback.ExcludeTypes,
			QueryTypes:   p.Fallback.QueryTypes,
		}
	}

	results, err := generator.NewService(generator.WithLogger(logger)).Generate(opts)
	if err != nil {
		return err
	}
	printResults(results, p.Check)
	return nil
}

func RunWatch(ctx context.Context, logger *zap.Logger, configPath string) error {
	svc := generator.NewService(generator.WithLogger(logger))
	w, err := generator.NewWatcher(svc, configPath, func(results []generator.Result, err error) {
		if err != nil {
			pterm.Error.Println(err)
			return
		}
		printResults(results, false)
	})
	if err != nil {
		return err
	}

	pterm.Info.Printfln("Watching %s (Ctrl+C to stop)", configPath)
	return w.Run(ctx)
}
