package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lazypower/cadence/internal/config"
	"github.com/lazypower/cadence/internal/momentum"
	"github.com/lazypower/cadence/internal/store"
)

var sweepWeekly bool

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run the missed-habit sweep once and exit",
	Long:  "Runs the daily missed-habit pass (and with --weekly, the weekly close as well) against the configured database. Intended for external schedulers; the serve command runs the same sweep on an internal timer.",
	RunE:  runSweep,
}

func init() {
	sweepCmd.Flags().BoolVar(&sweepWeekly, "weekly", false, "also run the weekly close pass")
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return fmt.Errorf("resolve db path: %w", err)
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	svc := momentum.NewService(db, log)

	res, err := svc.SweepDaily()
	if err != nil {
		return fmt.Errorf("daily sweep: %w", err)
	}
	fmt.Printf("daily sweep: processed=%d errors=%d\n", res.Processed, res.Errors)

	if sweepWeekly {
		res, err = svc.SweepWeekly()
		if err != nil {
			return fmt.Errorf("weekly sweep: %w", err)
		}
		fmt.Printf("weekly sweep: processed=%d errors=%d\n", res.Processed, res.Errors)
	}
	return nil
}
