package cmd

import (
	"context"
	"path/filepath"
	"testing"

	"chanfinder/pkg/catalog"
	"chanfinder/pkg/config"
	"chanfinder/pkg/datadir"
	"chanfinder/pkg/logger"
	"chanfinder/pkg/match"
)

func TestParseStrategies(t *testing.T) {
	t.Parallel()

	got, err := parseStrategies([]string{" Keyword ", "exact_name"})
	if err != nil {
		t.Fatalf("parseStrategies: %v", err)
	}
	if len(got) != 2 || got[0] != match.StrategyKeyword || got[1] != match.StrategyExactName {
		t.Fatalf("parseStrategies = %v", got)
	}

	if _, err := parseStrategies([]string{"fuzzy"}); err == nil {
		t.Fatal("expected unknown strategy to fail")
	}
}

func TestNewEngineAppliesRouterConfig(t *testing.T) {
	t.Parallel()

	engine, err := newEngine(config.RouterConfig{Strategies: []string{"literal", "exact_name"}})
	if err != nil {
		t.Fatalf("newEngine: %v", err)
	}
	if got := strategyNames(engine.Strategies()); got != "exact_name,literal" {
		t.Fatalf("strategies = %q, want cascade order", got)
	}

	engine, err = newEngine(config.RouterConfig{})
	if err != nil {
		t.Fatalf("newEngine: %v", err)
	}
	if len(engine.Strategies()) != len(match.Cascade) {
		t.Fatalf("default engine should run the whole cascade, got %v", engine.Strategies())
	}

	if _, err := newEngine(config.RouterConfig{Strategies: []string{"nope"}}); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}

func TestOpenCatalogSeedsBuiltins(t *testing.T) {
	t.Parallel()

	dir, err := datadir.Resolve(t.TempDir())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	cfg := config.Default()
	rt := &runtime{cfg: &cfg, log: logger.Discard(), dir: dir}

	ctx := context.Background()
	store, err := rt.openCatalog(ctx)
	if err != nil {
		t.Fatalf("openCatalog: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	builtins, err := catalog.Builtins()
	if err != nil {
		t.Fatalf("builtins: %v", err)
	}
	cat, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cat) != len(builtins) {
		t.Fatalf("seeded %d entries, want %d", len(cat), len(builtins))
	}
	if rt.catalogPath() != filepath.Join(dir.Root(), "filters.json") {
		t.Fatalf("catalogPath = %q", rt.catalogPath())
	}
}

func TestOpenCatalogSkipSeed(t *testing.T) {
	t.Parallel()

	dir, err := datadir.Resolve(t.TempDir())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	cfg := config.Default()
	cfg.Catalog.SkipSeed = true
	cfg.Catalog.Backend = catalog.BackendBolt
	rt := &runtime{cfg: &cfg, log: logger.Discard(), dir: dir}

	store, err := rt.openCatalog(context.Background())
	if err != nil {
		t.Fatalf("openCatalog: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if got := store.LoadAll(context.Background()); len(got) != 0 {
		t.Fatalf("skip_seed catalog has %d entries, want 0", len(got))
	}
}
