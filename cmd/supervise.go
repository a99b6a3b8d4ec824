package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chanfinder/pkg/supervisor"

	"github.com/spf13/cobra"
)

var superviseCmd = &cobra.Command{
	Use:   "supervise",
	Short: "Run the gateway and restart it when it exits",
	Long:  "Starts `chanfinder gateway` as a child process and restarts it with exponential back-off until interrupted.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		rt, err := loadRuntime("cmd.supervise")
		if err != nil {
			fmt.Println(err)
			return
		}
		log := rt.log

		lock, err := supervisor.AcquireLock(rt.dir.SupervisorLock())
		if err != nil {
			log.Error("Supervisor not started", "error", err)
			return
		}
		defer func() { _ = lock.Release() }()

		exe, err := os.Executable()
		if err != nil {
			log.Error("Cannot locate own executable", "error", err)
			return
		}

		grace := time.Duration(rt.cfg.Supervisor.ShutdownGraceSeconds) * time.Second
		start := supervisor.Command(exe, []string{gatewayCmd.Name()}, grace, os.Stdout, os.Stderr)
		sup := supervisor.New(start, supervisor.OptionsFromConfig(rt.cfg.Supervisor), log)

		runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := sup.Run(runCtx); err != nil {
			log.Error("Supervisor failed", "error", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(superviseCmd)
}
