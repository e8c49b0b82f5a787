package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/alvesdmateus/publify/internal/domains"
	"github.com/alvesdmateus/publify/internal/netlify"
	"github.com/alvesdmateus/publify/internal/observability"
	"github.com/alvesdmateus/publify/internal/sites"
	"github.com/alvesdmateus/publify/pkg/config"
)

// Version is set at build time with -ldflags "-X github.com/alvesdmateus/publify/internal/cli/commands.Version=..."
var Version = "dev"

// annotationOffline marks commands that never talk to the API
const annotationOffline = "publify/offline"

const shutdownTimeout = 5 * time.Second

type runFunc func(ctx context.Context, cmd *cobra.Command, args []string) error

// app holds global flags and the dependencies built for API commands
type app struct {
	configFile string
	logLevel   string
	debug      bool
	minify     bool

	baseLogger zerolog.Logger
	logger     zerolog.Logger
	cfg        *config.Config
	tracer     *observability.Tracer
	metrics    *observability.Metrics
	registry   *sites.Registry
}

// NewRootCmd builds the pub command tree. logger is the process logger;
// its level is adjusted from flags and configuration.
func NewRootCmd(logger zerolog.Logger) *cobra.Command {
	a := &app{baseLogger: logger, logger: logger}

	root := &cobra.Command{
		Use:   "pub [root_dir] [custom_domain]",
		Short: "publify - publish static sites to Netlify",
		Long: `publify publishes a local directory as a new Netlify site and manages
the custom domains of your existing sites.

The directory must contain a folder named "folder" with an index.html in it.
Set NETLIFY_TOKEN to a personal access token, and NETLIFY_DOMAINS to a
comma-separated list of your custom domains to use bare labels like "blog".`,
		Example: `  pub ./my-site
  pub ./my-site blog
  pub list
  pub delete brave-curie`,
		Args:              cobra.RangeArgs(0, 2),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		RunE: a.run("deploy", func(ctx context.Context, cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return a.deploy(ctx, cmd, args)
		}),
	}
	root.CompletionOptions.DisableDefaultCmd = true

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default ./publify.yaml or $HOME/.config/publify/publify.yaml)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.BoolVar(&a.debug, "debug", false, "enable debug logging")
	root.Flags().BoolVar(&a.minify, "minify", false, "minify HTML, CSS, JS, JSON and SVG files before upload")

	root.AddCommand(newDeployCmd(a))
	root.AddCommand(newListCmd(a))
	root.AddCommand(newCustomCmd(a))
	root.AddCommand(newRemoveCustomCmd(a))
	root.AddCommand(newDeleteCmd(a))
	root.AddCommand(newVersionCmd())

	return root
}

// Execute runs the command tree with the process arguments and exits non-zero on failure
func Execute(ctx context.Context, logger zerolog.Logger) {
	if err := Run(ctx, NewRootCmd(logger), os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

// Run executes root with args. A failure is printed as a single line on the
// command's error output and returned.
func Run(ctx context.Context, root *cobra.Command, args []string) error {
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(root.ErrOrStderr(), describeError(err))
	}
	return err
}

// setup loads configuration and wires the API client for commands that need it
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if offline(cmd, args) {
		a.logger = a.configureLogger("", "")
		return nil
	}

	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = a.configureLogger(cfg.Log.Level, cfg.Log.Format)

	if err := cfg.Validate(); err != nil {
		return err
	}

	tracer, err := observability.NewTracer(cmd.Context(), observability.TracingConfig{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: Version,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		SampleRate:     cfg.Tracing.SampleRate,
		Insecure:       cfg.Tracing.Insecure,
	})
	if err != nil {
		a.logger.Warn().Err(err).Msg("Failed to initialize tracing, continuing without it")
		tracer = observability.NoopTracer()
	}
	a.tracer = tracer
	a.metrics = observability.NewMetrics("publify")

	userAgent := cfg.Netlify.UserAgent
	if userAgent != "" && !strings.Contains(userAgent, "/") {
		userAgent += "/" + Version
	}

	client, err := netlify.NewClient(netlify.Options{
		BaseURL:   cfg.Netlify.APIURL,
		Token:     cfg.Netlify.Token,
		UserAgent: userAgent,
		Timeout:   cfg.Netlify.Timeout,
		Limiter: netlify.NewLimiter(netlify.RateLimitConfig{
			Enabled:           cfg.RateLimit.Enabled,
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}),
		Tracer:  a.tracer,
		Metrics: a.metrics,
		Logger:  a.logger,
	})
	if err != nil {
		return fmt.Errorf("create netlify client: %w", err)
	}

	suffixes := domains.Parse(cfg.Netlify.Domains...)
	a.registry = sites.NewRegistry(client, sites.Options{
		Suffixes:       suffixes,
		ProviderDomain: cfg.Netlify.ProviderDomain,
		TempDir:        cfg.Deploy.TempDir,
		Tracer:         a.tracer,
		Metrics:        a.metrics,
		Logger:         a.logger,
	})

	a.logger.Debug().
		Str("api_url", cfg.Netlify.APIURL).
		Int("custom_domains", suffixes.Len()).
		Bool("tracing", a.tracer.IsEnabled()).
		Msg("Configuration loaded")

	return nil
}

// run wraps a command body with a span, command metrics and cleanup
func (a *app) run(name string, fn runFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		if a.registry == nil {
			return fn(cmd.Context(), cmd, args)
		}

		ctx, span := a.tracer.StartSpan(cmd.Context(), "pub "+name)
		defer func() {
			if err != nil {
				span.RecordError(err)
			}
			span.End()
			a.finish(name, err)
		}()

		return fn(ctx, cmd, args)
	}
}

func (a *app) finish(name string, err error) {
	a.metrics.RecordCommand(name, err)
	if err := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
		a.logger.Warn().Err(err).Str("path", a.cfg.Metrics.Textfile).Msg("Failed to write metrics")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.tracer.Shutdown(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to flush traces")
	}
}

// configureLogger applies --debug, then --log-level, then the configured level
func (a *app) configureLogger(configLevel, format string) zerolog.Logger {
	logger := a.baseLogger
	if format == "json" {
		logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	levelName := configLevel
	if a.logLevel != "" {
		levelName = a.logLevel
	}
	if a.debug {
		levelName = "debug"
	}
	if levelName == "" {
		return logger
	}

	level, err := zerolog.ParseLevel(levelName)
	if err != nil {
		logger.Warn().Str("level", levelName).Msg("Unknown log level, using warn")
		level = zerolog.WarnLevel
	}
	return logger.Level(level)
}

// offline reports whether cmd can run without a token
func offline(cmd *cobra.Command, args []string) bool {
	if cmd.Annotations[annotationOffline] == "true" || cmd.Name() == "help" {
		return true
	}
	return !cmd.HasParent() && len(args) == 0
}
