/*
Package cli is the caseload command line.

COMMAND STRUCTURE:
  caseload                          Root command
  ├── serve                         Start the HTTP API (and scheduler)
  ├── deactivate <worker>           Round-robin the worker's due items away
  ├── reactivate <worker>           Restore items from the last deactivation
  ├── onboard <worker>              Skim items from every other worker
  ├── import -f cases.json          Least-loaded placement of new cases
  ├── rebalance                     Even out the whole active backlog
  ├── workload                      Open items per active worker
  ├── history <worker>              History entries about a worker
  └── scenario <id>                 Reset the database to a demo scenario

GLOBAL FLAGS:
  --config, -c   YAML config file (optional; CASELOAD_* env still applies)
  --actor        User recorded as the trigger's actor (default: system)

OUTPUT:
  Trigger commands print their result as indented JSON on stdout. Logs go
  to stderr.

EXAMPLES:
  caseload scenario deactivation
  caseload deactivate U4 --actor admin
  caseload import -f new-cases.json
  caseload serve -c caseload.yaml

SEE ALSO:
  - serve.go: HTTP server lifecycle
  - config/config.go: Configuration sources
*/
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/warp/caseload-engine/config"
	"github.com/warp/caseload-engine/logging"
	"github.com/warp/caseload-engine/store/sqlite"
	"github.com/warp/caseload-engine/workload"
)

// Version is set at build time.
var Version = "dev"

type rootOptions struct {
	configFile string
	actor      string
}

// BuildCLI returns the root command.
func BuildCLI() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "caseload",
		Short: "Caseload distribution and rebalancing engine",
		Long: `caseload assigns open cases to workers and keeps queues balanced:
- round-robin redistribution when a worker is deactivated
- restoration when they come back
- percentage skim when a worker is onboarded
- least-loaded placement of imported cases
- full rebalance on demand or on a schedule`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&opts.actor, "actor", "", "user recorded as actor (default: system)")

	rootCmd.AddCommand(buildServeCommand(opts))
	rootCmd.AddCommand(buildDeactivateCommand(opts))
	rootCmd.AddCommand(buildReactivateCommand(opts))
	rootCmd.AddCommand(buildOnboardCommand(opts))
	rootCmd.AddCommand(buildImportCommand(opts))
	rootCmd.AddCommand(buildRebalanceCommand(opts))
	rootCmd.AddCommand(buildWorkloadCommand(opts))
	rootCmd.AddCommand(buildHistoryCommand(opts))
	rootCmd.AddCommand(buildScenarioCommand(opts))

	return rootCmd
}

// =============================================================================
// BOOTSTRAP
// =============================================================================

// app is everything a command needs, built from config.
type app struct {
	cfg    config.Config
	logger *logging.SlogLogger
	store  *sqlite.Store
	engine *workload.Engine
}

func (o *rootOptions) open(cmd *cobra.Command, extra ...workload.Option) (*app, error) {
	return o.openWith(cmd, nil, extra...)
}

// openWith applies override (flag values) on top of the loaded config.
func (o *rootOptions) openWith(cmd *cobra.Command, override func(*config.Config), extra ...workload.Option) (*app, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if override != nil {
		override(&cfg)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	logger := logging.NewWriter(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)

	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	fraction, err := cfg.SkimFraction()
	if err != nil {
		store.Close()
		return nil, err
	}
	opts := append([]workload.Option{
		workload.WithLogger(logger),
		workload.WithSkimFraction(fraction),
		workload.WithApplyConcurrency(cfg.Engine.ApplyConcurrency),
	}, extra...)

	engine, err := workload.New(store, opts...)
	if err != nil {
		store.Close()
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, store: store, engine: engine}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

func (o *rootOptions) actorID() *workload.WorkerID {
	if o.actor == "" {
		return nil
	}
	id := workload.WorkerID(o.actor)
	return &id
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
