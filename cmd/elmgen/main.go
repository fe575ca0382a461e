package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	cli "github.com/blimu-dev/elmgen/internal/cli"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	root := &cobra.Command{
		Use:           "elmgen",
		Short:         "Generate Elm types, JSON encoders and decoders from OpenAPI specs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().Bool("verbose", false, "Enable debug logging")
	root.PersistentFlags().Bool("log-json", false, "Log as JSON")

	root.AddCommand(newGenerateCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newWatchCmd())

	if err := root.Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

// settings binds the command's flags to ELMGEN_* environment variables.
// Flags set on the command line win over the environment.
func settings(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("ELMGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}
	if err := v.BindPFlags(cmd.InheritedFlags()); err != nil {
		return nil, err
	}
	return v, nil
}

func logger(v *viper.Viper) (*zap.Logger, error) {
	return cli.NewLogger(v.GetBool("verbose"), v.GetBool("log-json"))
}

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate Elm modules",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := settings(cmd)
			if err != nil {
				return err
			}
			log, err := logger(v)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			return cli.RunGenerate(log, cli.RunGenerateParams{
				ConfigPath:   v.GetString("config"),
				SingleModule: v.GetString("module"),
				Check:        v.GetBool("check"),
				Fallback: cli.FallbackParams{
					Spec:         v.GetString("input"),
					ModuleName:   v.GetString("module-name"),
					Out:          v.GetString("out"),
					IncludeTypes: v.GetStringSlice("types"),
					ExcludeTypes: v.GetStringSlice("exclude-types"),
					QueryTypes:   v.GetStringSlice("query"),
				},
			})
		},
	}

	cmd.Flags().StringP("config", "c", "", "Path to elmgen.yaml or elmgen.toml config")
	cmd.Flags().String("module", "", "Generate only the named module from config")
	cmd.Flags().Bool("check", false, "Fail instead of writing when a module is out of date")
	// Fallback single-module flags
	cmd.Flags().String("input", "", "OpenAPI spec file (yaml/json) or URL")
	cmd.Flags().String("module-name", "", "Elm module name, e.g. Api.Types")
	cmd.Flags().String("out", "", "Output .elm file")
	cmd.Flags().StringArray("types", nil, "Regex patterns for component schemas to include")
	cmd.Flags().StringArray("exclude-types", nil, "Regex patterns for component schemas to exclude")
	cmd.Flags().StringArray("query", nil, "Regex patterns for component schemas that get query encoders")

	return cmd
}

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate an OpenAPI spec and check that its schemas have Elm bindings",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := settings(cmd)
			if err != nil {
				return err
			}
			return cli.RunValidate(v.GetString("input"))
		},
	}
	cmd.Flags().String("input", "", "OpenAPI spec file (yaml/json) or URL")
	return cmd
}

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Regenerate Elm modules whenever the config or spec changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := settings(cmd)
			if err != nil {
				return err
			}
			log, err := logger(v)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return cli.RunWatch(ctx, log, v.GetString("config"))
		},
	}
	cmd.Flags().StringP("config", "c", "elmgen.yaml", "Path to elmgen.yaml or elmgen.toml config")
	return cmd
}
