package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/driftline/tidecall/internal/combat"
	"github.com/driftline/tidecall/internal/config"
	"github.com/driftline/tidecall/internal/dice"
	"github.com/driftline/tidecall/internal/logging"
	"github.com/driftline/tidecall/internal/registry"
	"github.com/driftline/tidecall/internal/relay"
)

var coordinatorCmd = &cobra.Command{
	Use:   "coordinator",
	Short: "Run the privileged coordinator process",
	Long: `Runs the privileged worker that executes despawn, spawn and attack
requests arriving on the session bus. Exactly one coordinator should be
active per session.`,
	RunE: runCoordinator,
}

func init() {
	rootCmd.AddCommand(coordinatorCmd)
}

func runCoordinator(cmd *cobra.Command, args []string) error {
	logging.New()
	cfg := config.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus, store := buildSession(cfg)
	defer bus.Close()

	reg := registry.New()

	var damage combat.DamageCalculator
	if cfg.DamageScriptPath != "" {
		calc, err := combat.NewScriptCalculator(afero.NewOsFs(), cfg.DamageScriptPath)
		if err != nil {
			return err
		}
		go func() {
			if err := calc.Watch(ctx); err != nil && err != context.Canceled {
				slog.Error("Damage script watcher stopped", "error", err)
			}
		}()
		damage = calc
	}

	manual := combat.NewManualResolver(store, dice.NewRandomRoller(), damage)

	// This process is the privileged role for its whole lifetime; sessions
	// that transfer privilege at runtime plug in a live role check here.
	coord := relay.NewCoordinator(bus, store, reg, func() bool { return true }, manual, slog.Default())
	if err := coord.Start(ctx); err != nil {
		return err
	}

	slog.Info("Coordinator running", "participant_id", cfg.ParticipantID, "channel", relay.Channel)
	<-ctx.Done()
	slog.Info("Coordinator shutting down")
	return nil
}
