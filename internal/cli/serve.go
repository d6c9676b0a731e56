package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"listd/internal/catalog"
	"listd/internal/config"
	"listd/internal/journal"
	"listd/internal/order"
	"listd/internal/store"
	"listd/internal/web"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(app *App) *cobra.Command {
	var (
		addr        string
		size        int
		strategy    string
		journalPath string
		noJournal   bool
		logLevel    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the list HTTP server",
		Long: strings.TrimSpace(`
Run the list HTTP server.

Configuration is read from defaults, then the config file, then LISTD_* environment
variables, then the flags below. State lives in memory for the lifetime of the process;
the write journal is optional and only records history.
`),
		Example: strings.TrimSpace(`
listd serve --addr :8080
listd serve --catalog-size 10000 --strategy index --log-level debug
listd serve --journal-path ~/.listd/journal.db
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(app.ConfigPath)
			if err != nil {
				return writeErr(cmd, err)
			}
			f := cmd.Flags()
			if f.Changed("addr") {
				cfg.Server.Addr = addr
			}
			if f.Changed("catalog-size") {
				cfg.Catalog.Size = size
			}
			if f.Changed("strategy") {
				cfg.Ordering.Strategy = strategy
			}
			if f.Changed("journal-path") {
				cfg.Journal.Path = journalPath
			}
			if noJournal {
				cfg.Journal.Enabled = false
			}
			if f.Changed("log-level") {
				cfg.Log.Level = logLevel
			}
			if err := cfg.Validate(); err != nil {
				return writeErr(cmd, err)
			}

			logger, err := newLogger(cfg.Log, cmd.ErrOrStderr())
			if err != nil {
				return writeErr(cmd, err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv, closeFn, err := buildServer(ctx, cfg, logger)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeFn()

			ln, err := net.Listen("tcp", cfg.Server.Addr)
			if err != nil {
				return writeErr(cmd, err)
			}
			logger.WithFields(logrus.Fields{
				"addr":     ln.Addr().String(),
				"items":    cfg.Catalog.Size,
				"strategy": cfg.Ordering.Strategy,
				"journal":  cfg.Journal.Enabled,
			}).Info("listd serving")

			if err := runServer(ctx, srv.HTTPServer(), ln, cfg.Server.ShutdownTimeout, logger); err != nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", config.DefaultAddr, "Bind address (host:port or :port)")
	cmd.Flags().IntVar(&size, "catalog-size", catalog.DefaultSize, "Number of generated items")
	cmd.Flags().StringVar(&strategy, "strategy", string(order.StrategyLayered), "Ordering strategy (layered|index|anchor)")
	cmd.Flags().StringVar(&journalPath, "journal-path", "", "SQLite file for the write journal (empty: in memory)")
	cmd.Flags().BoolVar(&noJournal, "no-journal", false, "Disable the write journal")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug|info|warn|error)")
	return cmd
}

func newLogger(cfg config.LogConfig, w io.Writer) (*logrus.Logger, error) {
	l := logrus.New()
	l.SetOutput(w)
	level := strings.TrimSpace(cfg.Level)
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	l.SetLevel(lvl)
	switch strings.ToLower(cfg.Format) {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l, nil
}

// buildServer wires catalog, store, journal and metrics into a web server.
// The returned func closes the journal.
func buildServer(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*web.Server, func(), error) {
	noop := func() {}

	started := time.Now()
	cat, err := catalog.New(cfg.Catalog.Size,
		catalog.WithValuePrefix(cfg.Catalog.ValuePrefix),
		catalog.WithFilterCacheSize(cfg.Catalog.FilterCacheSize),
	)
	if err != nil {
		return nil, noop, err
	}
	logger.WithFields(logrus.Fields{"items": cat.Len(), "took": time.Since(started).String()}).Debug("catalog generated")

	st, err := store.New(cat, store.Options{
		Strategy:          order.Strategy(cfg.Ordering.Strategy),
		MoveLogCapacity:   cfg.Ordering.MoveLogCapacity,
		MaxScopes:         cfg.Ordering.MaxScopes,
		ResolverCacheSize: cfg.Ordering.ResolverCacheSize,
		OnScopeEvicted: func(key string) {
			logger.WithField("scope", key).Debug("evicted scoped order")
		},
	})
	if err != nil {
		return nil, noop, err
	}

	var jr *journal.Journal
	if cfg.Journal.Enabled {
		jr, err = journal.Open(ctx, journal.Options{
			Path:       cfg.Journal.Path,
			MaxEntries: cfg.Journal.MaxEntries,
			Logger:     logger,
		})
		if err != nil {
			return nil, noop, fmt.Errorf("open journal: %w", err)
		}
	}
	closeFn := func() {
		if jr == nil {
			return
		}
		if err := jr.Close(); err != nil {
			logger.WithError(err).Warn("close journal")
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srv, err := web.NewServer(web.ServerConfig{
		Addr:         cfg.Server.Addr,
		Store:        st,
		Journal:      jr,
		Logger:       logger,
		Registry:     reg,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		CORSOrigins:  cfg.Server.CORSOrigins,
		Limits: web.Limits{
			PageDefault:  cfg.Page.DefaultLimit,
			PageMax:      cfg.Page.MaxLimit,
			IDsDefault:   cfg.IDs.DefaultSize,
			IDsMax:       cfg.IDs.MaxSize,
			SliceDefault: cfg.OrderSlice.DefaultCount,
			SliceMax:     cfg.OrderSlice.MaxCount,
		},
	})
	if err != nil {
		closeFn()
		return nil, noop, err
	}
	return srv, closeFn, nil
}

// runServer serves on ln until ctx is done, then shuts down within timeout.
func runServer(ctx context.Context, hs *http.Server, ln net.Listener, timeout time.Duration, logger logrus.FieldLogger) error {
	if timeout <= 0 {
		timeout = config.DefaultShutdownTimeout
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := hs.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return hs.Shutdown(sctx)
	})
	return g.Wait()
}
