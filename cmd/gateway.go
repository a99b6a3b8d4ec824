package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"chanfinder/pkg/bus"
	"chanfinder/pkg/channel"
	"chanfinder/pkg/channel/telegram"
	"chanfinder/pkg/config"
	"chanfinder/pkg/gateway"
	"chanfinder/pkg/router"
	"chanfinder/pkg/supervisor"

	"github.com/spf13/cobra"
)

const telegramChannelName = "telegram"

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Run the bot",
	Long:  "Connects the enabled channels to the router and serves health and readiness endpoints.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		rt, err := loadRuntime("cmd.gateway")
		if err != nil {
			fmt.Println(err)
			return
		}
		log := rt.log

		lock, err := supervisor.AcquireLock(rt.dir.GatewayLock())
		if err != nil {
			log.Error("Gateway not started", "error", err)
			return
		}
		defer func() { _ = lock.Release() }()

		runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, err := rt.openCatalog(runCtx)
		if err != nil {
			log.Error("Failed to open catalog", "error", err)
			return
		}
		defer func() { _ = store.Close() }()

		mb := bus.NewMessageBus()
		defer mb.Close()

		r, engine, err := rt.newRouter(store, mb)
		if err != nil {
			log.Error("Router configuration invalid", "error", err)
			return
		}

		adapters, err := enabledAdapters(rt.cfg, mb, log)
		if err != nil {
			log.Error("Gateway configuration invalid", "error", err)
			return
		}

		svc, err := gateway.NewService(rt.cfg, gateway.Deps{
			Handler:    r.Handle,
			Catalog:    store,
			Events:     mb,
			Moderation: r.Moderation(),
			Adapters:   adapters,
		}, log)
		if err != nil {
			log.Error("Failed to initialize gateway service", "error", err)
			return
		}

		log.Info("Gateway started",
			"channels", enabledChannelNames(adapters),
			"catalog", rt.catalogPath(),
			"backend", rt.cfg.Catalog.Backend,
			"strategies", strategyNames(engine.Strategies()),
		)
		if err := svc.Run(runCtx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Error("Gateway runtime failed", "error", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(gatewayCmd)
}

func enabledAdapters(cfg *config.Config, mb *bus.MessageBus, log *slog.Logger) ([]channel.Adapter, error) {
	adapters := make([]channel.Adapter, 0, 1)

	if cfg.Channels.Telegram.Enabled {
		adapter, err := telegram.NewAdapter(cfg.Channels.Telegram, log,
			telegram.WithCommands(router.Commands()),
			telegram.WithEvents(mb),
		)
		if err != nil {
			return nil, fmt.Errorf("configure %s channel: %w", telegramChannelName, err)
		}
		adapters = append(adapters, adapter)
	}

	if len(adapters) == 0 {
		return nil, errors.New("no channels are enabled")
	}

	return adapters, nil
}

func enabledChannelNames(adapters []channel.Adapter) string {
	names := make([]string, 0, len(adapters))
	for _, adapter := range adapters {
		names = append(names, adapter.Name())
	}

	return strings.Join(names, ",")
}
