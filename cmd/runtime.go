package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"chanfinder/pkg/bus"
	"chanfinder/pkg/catalog"
	"chanfinder/pkg/config"
	"chanfinder/pkg/datadir"
	"chanfinder/pkg/logger"
	"chanfinder/pkg/match"
	"chanfinder/pkg/moderation"
	"chanfinder/pkg/router"
)

// runtime is the state every subcommand starts from.
type runtime struct {
	cfg *config.Config
	log *slog.Logger
	dir datadir.Dir
}

func loadRuntime(component string) (*runtime, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	appLogger, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	slog.SetDefault(appLogger)

	dir, err := datadir.Resolve(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory: %w", err)
	}

	return &runtime{
		cfg: cfg,
		log: appLogger.With("component", component),
		dir: dir,
	}, nil
}

func (rt *runtime) catalogPath() string {
	return rt.cfg.CatalogPath(rt.dir.Root())
}

// openCatalog opens the configured store and inserts missing builtins unless
// seeding is turned off. A failed seed is logged; the store stays usable.
func (rt *runtime) openCatalog(ctx context.Context) (*catalog.Store, error) {
	path := rt.catalogPath()
	store, err := catalog.Open(rt.cfg.Catalog.Backend, path, rt.log)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}

	if rt.cfg.Catalog.SkipSeed {
		return store, nil
	}

	added, err := seedCatalog(ctx, store)
	if err != nil {
		rt.log.Warn("Catalog seeding skipped", "path", path, "error", err)
		return store, nil
	}
	if len(added) > 0 {
		rt.log.Info("Catalog seeded", "path", path, "added", len(added))
	}

	return store, nil
}

func seedCatalog(ctx context.Context, store *catalog.Store) ([]string, error) {
	builtins, err := catalog.Builtins()
	if err != nil {
		return nil, err
	}
	return store.EnsureSeeded(ctx, builtins)
}

func newEngine(cfg config.RouterConfig) (*match.Engine, error) {
	var opts []match.Option

	if len(cfg.Strategies) > 0 {
		strategies, err := parseStrategies(cfg.Strategies)
		if err != nil {
			return nil, err
		}
		opts = append(opts, match.WithStrategies(strategies...))
	}
	if len(cfg.RequestPrefixes) > 0 {
		opts = append(opts, match.WithRequestPrefixes(cfg.RequestPrefixes...))
	}
	if len(cfg.RequestSuffixes) > 0 {
		opts = append(opts, match.WithRequestSuffixes(cfg.RequestSuffixes...))
	}

	return match.New(opts...), nil
}

func parseStrategies(values []string) ([]match.Strategy, error) {
	out := make([]match.Strategy, 0, len(values))
	for _, value := range values {
		strategy := match.Strategy(strings.ToLower(strings.TrimSpace(value)))
		if !slices.Contains(match.Cascade, strategy) {
			return nil, fmt.Errorf("unknown match strategy %q", value)
		}
		out = append(out, strategy)
	}
	return out, nil
}

func (rt *runtime) newRouter(store *catalog.Store, mb *bus.MessageBus) (*router.Router, *match.Engine, error) {
	engine, err := newEngine(rt.cfg.Router)
	if err != nil {
		return nil, nil, err
	}

	r := router.New(store, engine, moderation.New(), mb, router.Options{
		AdminUserIDs: rt.cfg.Router.AdminUserIDs,
	}, slog.Default())
	return r, engine, nil
}

func strategyNames(strategies []match.Strategy) string {
	names := make([]string, 0, len(strategies))
	for _, s := range strategies {
		names = append(names, string(s))
	}
	return strings.Join(names, ",")
}
