// Package cli holds the root command and the settings shared by every
// gonuget-vs command.
package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/willibrandon/gonuget-vs/cmd/gonuget-vs/output"
	"github.com/willibrandon/gonuget-vs/observability"
)

// EnvPrefix prefixes the environment variables that override flags, e.g.
// GONUGETVS_VERBOSITY.
const EnvPrefix = "GONUGETVS"

// Setting keys.
const (
	KeyVerbosity     = "verbosity"
	KeyConfigFile    = "configfile"
	KeyTraceExporter = "trace-exporter"
	KeyOTLPEndpoint  = "otlp-endpoint"
)

var rootCmd = &cobra.Command{
	Use:   "gonuget-vs",
	Short: "Manage packages.config packages of a solution",
	Long: `gonuget-vs installs, uninstalls, updates and restores packages for the
projects of a Visual Studio solution that use packages.config.

Packages are installed once into the solution's packages folder and
referenced by every project that uses them.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return Shutdown(cmd.Context())
	},
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// Console is the global console for CLI commands
var Console *output.Console

var tracer *sdktrace.TracerProvider

// Execute runs the root command
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	Console = output.DefaultConsole()

	flags := rootCmd.PersistentFlags()
	flags.String(KeyConfigFile, "", "NuGet configuration file to use")
	flags.String(KeyVerbosity, "normal", "Display verbosity (quiet, normal, detailed, diagnostic)")
	flags.String(KeyTraceExporter, observability.ExporterNone, "Trace exporter (none, stdout, otlp)")
	flags.String(KeyOTLPEndpoint, "localhost:4317", "OTLP gRPC endpoint used by the otlp exporter")

	for _, key := range []string{KeyConfigFile, KeyVerbosity, KeyTraceExporter, KeyOTLPEndpoint} {
		_ = viper.BindPFlag(key, flags.Lookup(key))
	}
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func setup(cmd *cobra.Command, args []string) error {
	Console.SetVerbosity(output.ParseVerbosity(viper.GetString(KeyVerbosity)))

	exporter := viper.GetString(KeyTraceExporter)
	if exporter == "" || exporter == observability.ExporterNone {
		return nil
	}
	cfg := observability.DefaultTracerConfig()
	cfg.ServiceName = "gonuget-vs"
	cfg.ServiceVersion = Version
	cfg.ExporterType = exporter
	cfg.OTLPEndpoint = viper.GetString(KeyOTLPEndpoint)

	tp, err := observability.SetupTracing(cmd.Context(), cfg)
	if err != nil {
		Console.Warning("tracing disabled: %v", err)
		return nil
	}
	tracer = tp
	return nil
}

// Shutdown flushes and stops tracing started for the running command.
func Shutdown(ctx context.Context) error {
	if tracer == nil {
		return nil
	}
	err := observability.ShutdownTracing(ctx, tracer)
	tracer = nil
	return err
}

// SetupVersion configures version information after variables are set
func SetupVersion() {
	rootCmd.SetVersionTemplate(GetFullVersion() + "\n")
	rootCmd.Version = GetVersion()
}

// AddCommand adds a command to the root command
func AddCommand(cmd *cobra.Command) {
	rootCmd.AddCommand(cmd)
}

// Root returns the root command.
func Root() *cobra.Command { return rootCmd }
