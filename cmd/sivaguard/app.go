package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/codeGROOVE-dev/sivaguard/pkg/audit"
	"github.com/codeGROOVE-dev/sivaguard/pkg/config"
	"github.com/codeGROOVE-dev/sivaguard/pkg/httpcache"
	"github.com/codeGROOVE-dev/sivaguard/pkg/sivaguard"
)

// app holds the resources shared by every command that evaluates.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	cache  *httpcache.Cache
	client *httpcache.Client
	audit  *audit.Log
}

type appOptions struct {
	offline bool
	noCache bool
	audit   bool
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if v, err := cmd.Flags().GetBool("verbose"); err == nil && v {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Resolve(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newApp(cmd *cobra.Command, opts appOptions) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if opts.noCache {
		cfg.NoCache = true
	}
	a := &app{cfg: cfg, logger: newLogger(cmd)}

	if !opts.offline {
		if !cfg.NoCache && cfg.CacheDir != "" {
			c, err := httpcache.NewWithPath(cfg.CacheTTL, cfg.CacheDir)
			if err != nil {
				a.logger.Warn("failed to initialize cache, continuing without cache", "error", err)
			} else {
				a.cache = c
				a.logger.Debug("HTTP cache initialized", "dir", cfg.CacheDir, "ttl", cfg.CacheTTL.String())
			}
		}
		clientOpts := []httpcache.Option{
			httpcache.WithLogger(a.logger),
			httpcache.WithTimeout(cfg.Timeout),
			httpcache.WithMinDelay(cfg.RateDelay),
			httpcache.WithMaxBytes(cfg.MaxBodyBytes),
			httpcache.WithPrivateHosts(cfg.AllowPrivateHosts),
		}
		if a.cache != nil {
			clientOpts = append(clientOpts, httpcache.WithCache(a.cache))
		}
		a.client = httpcache.NewClient(clientOpts...)
	}

	if opts.audit {
		dir := cfg.AuditDir
		if dir == "" {
			dir = config.DataDir()
		}
		l, err := audit.Open(dir)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open audit log: %w", err)
		}
		a.audit = l
	}
	return a, nil
}

func (a *app) guard() *sivaguard.Guard {
	opts := []sivaguard.Option{
		sivaguard.WithLogger(a.logger),
		sivaguard.WithMaxNextSteps(a.cfg.MaxNextSteps),
		sivaguard.WithMaxStages(a.cfg.MaxStages),
		sivaguard.WithCollectionLimits(a.cfg.Concurrency, a.cfg.MaxExternalLinks, a.cfg.MaxReverseLinks),
	}
	if a.client != nil {
		opts = append(opts, sivaguard.WithHTTPClient(a.client))
	}
	if a.audit != nil {
		opts = append(opts, sivaguard.WithAuditor(a.audit))
	}
	return sivaguard.New(opts...)
}

// Close releases the cache and audit log.
func (a *app) Close() {
	var errs []error
	if a.cache != nil {
		errs = append(errs, a.cache.Close())
	}
	if a.audit != nil {
		errs = append(errs, a.audit.Close())
	}
	if err := errors.Join(errs...); err != nil {
		fmt.Fprintln(os.Stderr, "close:", err)
	}
}
