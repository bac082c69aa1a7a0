package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/disk-span/internal/application"
	"github.com/eugenenazirov/disk-span/internal/config"
	"github.com/eugenenazirov/disk-span/internal/logging"
)

var signalNotify = signal.Notify

type cli struct {
	app *kingpin.Application

	plan  *kingpin.CmdClause
	serve *kingpin.CmdClause

	configFile *string
	logLevel   *string

	src      *string
	dest     *string
	size     *string
	output   *string
	manifest *string
	excludes *[]string

	port               *string
	rateLimitRPSFlag   *float64
	rateLimitBurstFlag *int
}

func newCLI() *cli {
	c := &cli{}
	c.app = kingpin.New("diskspan", "Distribute files into directories of a maximum size, similar to disc spanning, by generating a bash move script")
	c.configFile = c.app.Flag("config", "Path to YAML configuration file").String()
	c.logLevel = c.app.Flag("log-level", "Log level (debug, info, warn, error)").String()

	c.plan = c.app.Command("plan", "Plan the distribution of a directory and write the move script").Default()
	c.src = c.plan.Flag("src", "Directory containing the files to distribute").Short('s').String()
	c.dest = c.plan.Flag("dest", "Root of the output directories; disk000, disk001, ... are created below it").Short('d').String()
	c.size = c.plan.Flag("size", "Desired size of each disc in bytes (suffixes like 25GB or 4GiB are accepted)").String()
	c.output = c.plan.Flag("output", "Path of the generated script").Short('o').String()
	c.manifest = c.plan.Flag("manifest", "Optional path of a YAML manifest describing the plan").String()
	c.excludes = c.plan.Flag("exclude", "Glob matched against file and directory names to skip (repeatable)").Strings()

	c.serve = c.app.Command("serve", "Serve the packing API over HTTP")
	c.port = c.serve.Flag("port", "HTTP port exposed by the service").String()
	c.rateLimitRPSFlag = c.serve.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	c.rateLimitBurstFlag = c.serve.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()
	return c
}

// overrides converts parsed flags into config overrides; unset flags leave
// lower precedence sources in place.
func (c *cli) overrides() *config.CLIOverrides {
	o := &config.CLIOverrides{
		ConfigFile: *c.configFile,
		Excludes:   *c.excludes,
	}
	if *c.src != "" {
		o.Source = c.src
	}
	if *c.dest != "" {
		o.Destination = c.dest
	}
	if *c.size != "" {
		o.CapacityStr = c.size
	}
	if *c.output != "" {
		o.Output = c.output
	}
	if *c.manifest != "" {
		o.ManifestPath = c.manifest
	}
	if *c.logLevel != "" {
		o.LogLevel = c.logLevel
	}
	if *c.port != "" {
		o.Port = c.port
	}
	if *c.rateLimitRPSFlag >= 0 {
		o.RateLimitRPS = c.rateLimitRPSFlag
	}
	if *c.rateLimitBurstFlag >= 0 {
		o.RateLimitBurst = c.rateLimitBurstFlag
	}
	return o
}

func main() {
	c := newCLI()
	command := kingpin.MustParse(c.app.Parse(os.Args[1:]))

	cfg, err := config.Load(c.overrides())
	if err != nil {
		c.app.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		c.app.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	switch command {
	case c.serve.FullCommand():
		runServe(cfg, logger)
	default:
		if err := runPlan(cfg, logger, os.Stdout); err != nil {
			logger.Error("plan failed", zap.Error(err))
			_ = logger.Sync()
			os.Exit(1)
		}
	}
}

func runPlan(cfg config.Config, logger *zap.Logger, out io.Writer) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err := application.RunPlan(ctx, cfg, logger, out)
	return err
}

func runServe(cfg config.Config, logger *zap.Logger) {
	app, err := application.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}

	if err := app.Start(); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	shutdown(app.Server(), cfg.ShutdownGracePeriod, logger)
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
