package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/go-chi/docgen"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/SergeyParamoshkin/newsportal/internal/auth"
	"github.com/SergeyParamoshkin/newsportal/internal/cache"
	"github.com/SergeyParamoshkin/newsportal/internal/config"
	"github.com/SergeyParamoshkin/newsportal/internal/store"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type options struct {
	configPath   string
	dev          bool
	databasePath string
	addr         string
	diagAddr     string
	cacheBackend string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          ServiceName,
		Short:        "News portal API server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/newsportal/config.yaml)")
	pf.BoolVar(&opts.dev, "dev", false, "development mode: debug logging and a built-in token secret")
	pf.StringVar(&opts.databasePath, "db", "", "SQLite database path")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the API and diag listeners",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
	for _, c := range []*cobra.Command{root, serve} {
		c.Flags().StringVar(&opts.addr, "addr", "", "application address (default :3333)")
		c.Flags().StringVar(&opts.diagAddr, "diag-addr", "", "diag address (default :9999)")
		c.Flags().StringVar(&opts.cacheBackend, "cache", "", "cache backend: redis or memory")
	}

	root.AddCommand(
		serve,
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or upgrade the database schema",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMigrate(cmd, opts)
			},
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Insert the demo user and articles",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runSeed(cmd, opts)
			},
		},
		&cobra.Command{
			Use:   "routes",
			Short: "Print the router documentation as markdown",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runRoutes(cmd, opts)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), ServiceName, version)
			},
		},
	)

	return root
}

// loadConfig layers command-line flags over the file and environment.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("dev") {
		cfg.Dev = opts.dev
	}
	if flags.Changed("db") {
		cfg.DatabasePath = opts.databasePath
	}
	if flags.Changed("addr") {
		cfg.Addr = opts.addr
	}
	if flags.Changed("diag-addr") {
		cfg.DiagAddr = opts.diagAddr
	}
	if flags.Changed("cache") {
		cfg.Cache.Backend = opts.cacheBackend
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func newLogger(dev bool) (*zap.SugaredLogger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if dev {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}

	return logger.Sugar(), nil
}

func runServe(cmd *cobra.Command, opts *options) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	sugar, err := newLogger(cfg.Dev)
	if err != nil {
		return err
	}
	defer sugar.Sync() // flushes buffer, if any

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := NewApp(ctx, cfg, sugar)
	if err != nil {
		return err
	}

	return a.Serve(ctx)
}

func runMigrate(cmd *cobra.Command, opts *options) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Migrate(cmd.Context()); err != nil {
		return err
	}
	v, err := st.SchemaVersion(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: schema version %d\n", cfg.DatabasePath, v)

	return nil
}

// runSeed inserts the demo data and flushes cached reads so the new
// articles show up at once.
func runSeed(cmd *cobra.Command, opts *options) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	sugar, err := newLogger(cfg.Dev)
	if err != nil {
		return err
	}
	defer sugar.Sync()

	ctx := cmd.Context()
	a, err := NewApp(ctx, cfg, sugar)
	if err != nil {
		return err
	}
	defer a.Close()

	hash, err := auth.NewBcrypt(cfg.Auth.BcryptCost).Hash(store.DemoPassword)
	if err != nil {
		return err
	}
	res, err := a.store.Seed(ctx, hash)
	if err != nil {
		return err
	}
	if _, err := a.reader.Flush(ctx); err != nil {
		sugar.Warnw("flushing cache after seed", "error", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d users and %d articles (login %s / %s)\n",
		res.Users, res.Articles, store.DemoEmail, store.DemoPassword)

	return nil
}

// runRoutes builds the router against a throwaway database and prints its
// documentation.
func runRoutes(cmd *cobra.Command, opts *options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	dir, err := os.MkdirTemp("", "newsportal-routes")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	cfg.DatabasePath = filepath.Join(dir, "routes.db")
	cfg.Cache.Backend = cache.BackendMemory
	cfg.Dev = true
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	a, err := NewApp(context.Background(), cfg, zap.NewNop().Sugar())
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Fprintln(cmd.OutOrStdout(), docgen.MarkdownRoutesDoc(a.Router(), docgen.MarkdownOpts{
		ProjectPath: "github.com/SergeyParamoshkin/newsportal",
		Intro:       "Generated documentation for the newsportal API.",
	}))

	return nil
}
