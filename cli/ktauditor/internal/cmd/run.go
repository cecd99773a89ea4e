package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coniks-sys/coniks-selfaudit/cli"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = cli.NewRunCommand("ktauditor", run)

func init() {
	RootCmd.AddCommand(runCmd)
}

func run(cmd *cobra.Command, args []string) error {
	a, err := loadAuditor(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	// run the self-audit until receiving an interrupt signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	interval := time.Duration(a.conf.Policies.SelfAuditInterval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	a.logger.Info("Starting self-audit", "user", a.conf.UserID, "interval", interval)
	for {
		if _, err := a.audit(ctx, false); err != nil && ctx.Err() == nil {
			a.logger.Error("Cannot run self-audit", "error", err)
		}
		select {
		case <-ctx.Done():
			a.logger.Info("Stopping self-audit")
			return nil
		case <-ticker.C:
		}
	}
}
