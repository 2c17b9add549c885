// Command wizard runs one guided action wizard in the terminal. Scans and
// commands are read from stdin, one per line.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/goliatone/go-wizard"
	"github.com/goliatone/go-wizard/config"
	"github.com/goliatone/go-wizard/engine"
	"github.com/goliatone/go-wizard/metrics"
	"github.com/goliatone/go-wizard/remote"
	"github.com/goliatone/go-wizard/resolver"
	"github.com/goliatone/go-wizard/taskcache"
	"github.com/goliatone/go-wizard/wizardtest"
)

type CLI struct {
	Config   string `help:"YAML configuration file." short:"c" type:"path"`
	Task     string `help:"Task id." required:""`
	Action   string `help:"Planned action id." required:""`
	Server   string `help:"Task server base URL, overrides server.base_url."`
	Tasks    string `help:"YAML task file, overrides tasks.file." type:"path"`
	Offline  bool   `help:"Use built-in sample data instead of the task server."`
	LogLevel string `help:"Log level, overrides log.level."`
	Metrics  bool   `help:"Expose Prometheus metrics on metrics.addr."`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("wizard"),
		kong.Description("Guided warehouse action wizard."),
		kong.UsageOnError(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, cli, os.Stdin, os.Stdout, os.Stderr)
	kctx.FatalIfErrorf(err)
}

// settings merges the config file with command line overrides.
func (cli CLI) settings() (config.Config, error) {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return config.Config{}, err
	}
	if cli.Server != "" {
		cfg.Server.BaseURL = cli.Server
	}
	if cli.Tasks != "" {
		cfg.Tasks.File = cli.Tasks
	}
	if cli.LogLevel != "" {
		cfg.Log.Level = cli.LogLevel
	}
	if cli.Metrics {
		cfg.Metrics.Enabled = true
	}
	return cfg, cfg.Validate()
}

type backend struct {
	dir       wizard.Directory
	submitter wizard.Submitter
	source    taskcache.TaskSource
}

func (cli CLI) backend(cfg config.Config, logger wizard.Logger) (backend, error) {
	var b backend
	switch {
	case cli.Offline:
		b.dir = wizardtest.NewFixture().Directory()
		b.submitter = offlineSubmitter{fake: &wizardtest.Submitter{}, logger: logger}
		b.source = taskcache.TaskSourceFunc(func(context.Context) ([]wizard.Task, error) {
			return sampleTasks(), nil
		})
	case cfg.Server.BaseURL == "":
		return b, fmt.Errorf("no task server configured, use --server or --offline")
	default:
		opts := []remote.Option{
			remote.WithTimeout(cfg.Server.Timeout),
			remote.WithMaxRetries(cfg.Server.MaxRetries),
			remote.WithLogger(logger),
		}
		if cfg.Server.Token != "" {
			opts = append(opts, remote.WithHeader("Authorization", "Bearer "+cfg.Server.Token))
		}
		client, err := remote.New(cfg.Server.BaseURL, opts...)
		if err != nil {
			return b, err
		}
		b.dir = client.Directory()
		b.submitter = client
		b.source = client
	}
	if cfg.Tasks.File != "" {
		b.source = taskcache.FileSource(cfg.Tasks.File)
	}
	return b, nil
}

func run(ctx context.Context, cli CLI, in io.Reader, out, logOut io.Writer) error {
	cfg, err := cli.settings()
	if err != nil {
		return err
	}
	logger := newLogger(logOut, cfg.Log.Level, cfg.Log.Format)

	b, err := cli.backend(cfg, logger)
	if err != nil {
		return err
	}

	cache := taskcache.NewMemory()
	refresher := taskcache.NewRefresher(cache, b.source, taskcache.RefreshConfig{
		Expression: cfg.Tasks.Refresh,
		Timeout:    cfg.Server.Timeout,
		MaxRetries: cfg.Server.MaxRetries,
	}, logger)
	if cfg.Tasks.Refresh != "" && !cli.Offline {
		if err := refresher.Start(ctx); err != nil {
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = refresher.Stop(stopCtx)
		}()
	} else if err := refresher.Refresh(ctx); err != nil {
		return err
	}

	opts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithDebounce(cfg.Scan.Debounce),
		engine.WithSignalHandler(func(s engine.Signal) {
			switch s.Kind {
			case engine.SignalMessage:
				fmt.Fprintf(out, "\n! %s\n", s.Message)
			case engine.SignalAbort:
				fmt.Fprintf(out, "\naborted: %s\n", s.Message)
			case engine.SignalCompleted:
				fmt.Fprintf(out, "\naction %s done\n", s.ActionID)
			}
		}),
	}
	if cfg.Metrics.Enabled {
		prom := metrics.NewPrometheus()
		server := prom.Serve(cfg.Metrics.Addr, func(err error) {
			logger.Error("metrics endpoint: %v", err)
		})
		defer server.Close()
		opts = append(opts, engine.WithMetrics(prom))
	}

	registry := resolver.NewDefaultRegistry(b.dir)
	ctrl, err := engine.Initialize(ctx, cache, b.submitter, registry, cli.Task, cli.Action, opts...)
	if err != nil {
		return err
	}
	defer ctrl.Cancel()

	con := &console{ctrl: ctrl, out: out}
	return con.run(ctx, in)
}
