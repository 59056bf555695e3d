// Command sintegrate runs registered connectors against the Sintegrate
// portal: it looks up the extractor for a type slug, pulls observations
// from the provider, and delivers them to the sensors API or the message
// bus.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sintegrate/connector-sdk/pkg/config"
	"github.com/sintegrate/connector-sdk/pkg/connector/base"
	"github.com/sintegrate/connector-sdk/pkg/connector/core"
	"github.com/sintegrate/connector-sdk/pkg/connector/registry"
	"github.com/sintegrate/connector-sdk/pkg/logger"
	"github.com/sintegrate/connector-sdk/pkg/observability"
	"github.com/sintegrate/connector-sdk/pkg/portal"
	"github.com/sintegrate/connector-sdk/pkg/publisher"
	"github.com/sintegrate/connector-sdk/pkg/routing"
)

var version = "0.1.0"

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "sintegrate",
		Short: "Sintegrate connector runner",
		Long: `sintegrate runs data source connectors against the Sintegrate portal.
Connectors extract observations from external providers and deliver them
to the sensors API, or to the message bus when pub/sub is enabled.`,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("sintegrate v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List registered connectors",
		Run: func(cmd *cobra.Command, args []string) {
			slugs := registry.List()
			if len(slugs) == 0 {
				fmt.Println("No connectors registered.")
				return
			}
			fmt.Println("Registered connectors:")
			for _, slug := range slugs {
				fmt.Printf("  - %s\n", slug)
			}
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "topics",
		Short: "Show the message bus topic layout",
		Run: func(cmd *cobra.Command, args []string) {
			for _, topic := range routing.Topics() {
				fmt.Println(topic)
			}
		},
	})

	var timeout time.Duration
	var logLevel string
	var configFile string
	runCmd := &cobra.Command{
		Use:   "run <type-slug>",
		Short: "Run one extract-load pass for a connector",
		Long: `Run the connector registered for the given integration type slug.
Settings come from the environment (see the package documentation for the
variable list); a .env file in the working directory is honored, and a YAML
settings file given with --config is applied on top. ${VAR} references in
the file are expanded from the environment.

Example:
  sintegrate run my_tracker --timeout 10m --config settings.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConnector(args[0], configFile, timeout, logLevel)
		},
	}
	runCmd.Flags().DurationVar(&timeout, "timeout", 30*time.Minute, "Overall execution timeout")
	runCmd.Flags().StringVar(&logLevel, "log-level", "", "Override the configured log level (debug, info, warn, error)")
	runCmd.Flags().StringVar(&configFile, "config", "", "YAML settings file applied over environment settings")
	root.AddCommand(runCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runConnector(typeSlug, configFile string, timeout time.Duration, logLevel string) error {
	settings, err := config.LoadSettings()
	if err != nil {
		return err
	}
	if configFile != "" {
		if err := config.Load(configFile, settings); err != nil {
			return err
		}
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	if logLevel != "" {
		settings.Observability.LogLevel = logLevel
	}

	if err := logger.Init(logger.Config{
		Level:    settings.Observability.LogLevel,
		Encoding: "json",
	}); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get().With(zap.String("type_slug", typeSlug))

	if settings.Observability.EnableTracing {
		tc := observability.DefaultTracingConfig(settings.Observability.ServiceName)
		tc.SamplingRate = settings.Observability.TracingSampleRate
		if err := observability.Init(tc); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	extractor, err := registry.Create(typeSlug, settings)
	if err != nil {
		return err
	}

	bc, err := base.NewBaseConnector(extractor.Name(), typeSlug, settings)
	if err != nil {
		return err
	}
	defer func() { _ = bc.Close() }()

	portalClient := portal.NewClient(&settings.Portal, bc.HTTPClient(), log)

	var sink core.Sink
	if settings.PubSub.Enabled {
		pub, err := publisher.New(&settings.PubSub, log)
		if err != nil {
			return err
		}
		sink = base.NewPublisherSink(pub, bc.Metrics(), log)
	} else {
		sink = base.NewAPISink(&settings.Portal, portalClient, bc.HTTPClient(), bc.Metrics(), log)
	}
	defer func() { _ = sink.Close() }()

	runner := base.NewRunner(extractor, portalClient, sink, &settings.Runner, bc.Metrics())
	summary, err := runner.Run(ctx)
	if settings.Observability.EnableTracing {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		_ = observability.Shutdown(shutdownCtx)
		shutdownCancel()
	}
	if err != nil {
		return err
	}

	out, _ := json.MarshalIndent(summary, "", "  ")
	fmt.Println(string(out))
	return nil
}
