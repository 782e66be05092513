package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/warp/caseload-engine/api"
	"github.com/warp/caseload-engine/workload"
)

// =============================================================================
// WORKER TRIGGERS
// =============================================================================

func buildDeactivateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <worker>",
		Short: "Redistribute a worker's due items round-robin and mark them inactive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.engine.DeactivateWorker(cmd.Context(), workload.WorkerID(args[0]), opts.actorID())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), api.DeactivationResponse{TasksMoved: res.TasksMoved, ToUsers: res.ToUsers})
		},
	}
}

func buildReactivateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reactivate <worker>",
		Short: "Restore the items moved by a worker's last deactivation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.engine.ReactivateWorker(cmd.Context(), workload.WorkerID(args[0]), opts.actorID())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), api.RestoreResponse{TasksRestored: res.TasksRestored})
		},
	}
}

func buildOnboardCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "onboard <worker>",
		Short: "Seed a new worker with a fraction of every other worker's items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.engine.OnboardWorker(cmd.Context(), workload.WorkerID(args[0]), opts.actorID())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), api.SkimResponse{TasksMoved: res.TasksMoved, FromUsers: res.FromUsers})
		},
	}
}

// =============================================================================
// IMPORT AND REBALANCE
// =============================================================================

func buildImportCommand(opts *rootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Record new cases and place them least-loaded first",
		Long: `Reads a JSON array of cases:
  [{"id": "N1", "title": "Broken login", "priority": 2}, ...]`,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", file, err)
			}
			var cases []api.ImportCaseDTO
			if err := json.Unmarshal(data, &cases); err != nil {
				return fmt.Errorf("failed to parse %s: %w", file, err)
			}

			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			items := make([]workload.ImportItem, len(cases))
			for i, c := range cases {
				if c.ID == "" {
					return errors.New("every case needs an id")
				}
				items[i] = workload.ImportItem{CaseID: workload.CaseID(c.ID), Priority: c.Priority}
			}
			if err := a.engine.ValidateImport(ctx, items); err != nil {
				return err
			}
			for _, c := range cases {
				existing, err := a.store.GetCase(ctx, workload.CaseID(c.ID))
				if err != nil {
					return err
				}
				if existing != nil {
					continue
				}
				if err := a.store.SaveCase(ctx, workload.Case{ID: workload.CaseID(c.ID), Title: c.Title}); err != nil {
					return err
				}
			}

			res, err := a.engine.DistributeImport(ctx, items, opts.actorID())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), api.ImportResponse{TasksAssigned: res.TasksAssigned, ByUser: res.ByUser})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file with the cases to import")
	cmd.MarkFlagRequired("file")
	return cmd
}

func buildRebalanceCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rebalance",
		Short: "Move surplus items so every active worker is within one of the others",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.engine.Rebalance(cmd.Context(), opts.actorID())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), api.RebalanceResponse{
				TasksMoved: res.TasksMoved,
				ByUser:     res.ByUser,
				Targets:    res.Targets,
			})
		},
	}
}

// =============================================================================
// READS
// =============================================================================

func buildWorkloadCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "workload",
		Short: "Show open items per active worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := a.engine.Workload(cmd.Context())
			if err != nil {
				return err
			}
			out := make([]api.WorkloadDTO, len(stats))
			for i, s := range stats {
				out[i] = api.WorkloadDTO{WorkerID: string(s.WorkerID), Email: s.Email, OpenItems: s.OpenItems}
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func buildHistoryCommand(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <worker>",
		Short: "List history entries about a worker, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.engine.History(cmd.Context(), workload.WorkerID(args[0]), limit)
			if err != nil {
				return err
			}
			out := make([]api.HistoryEntryDTO, len(entries))
			for i, e := range entries {
				out[i] = api.ToHistoryDTO(e)
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum entries (0 = all)")
	return cmd
}

func buildScenarioCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "scenario <deactivation|onboarding|import|uneven>",
		Short: "Reset the database and load a demo scenario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := api.LoadScenario(cmd.Context(), a.store, args[0], time.Now().UTC()); err != nil {
				return err
			}
			a.logger.Info("scenario loaded", "scenario", args[0], "db", a.cfg.Database.Path)
			return nil
		},
	}
}
