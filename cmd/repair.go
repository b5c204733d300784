/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"

	"github.com/mautops/timesheet-gin/internal/api"
	"github.com/mautops/timesheet-gin/internal/config"
	"github.com/mautops/timesheet-gin/internal/container"
	"github.com/mautops/timesheet-gin/internal/service"
	"github.com/spf13/cobra"
)

// repairCmd represents the repair command
var repairCmd = &cobra.Command{
	Use:   "repair [procedure]",
	Short: "Run data repair procedures",
	Long: `Run maintenance procedures that repair data inconsistencies.
Without arguments all procedures run in order:

  orphan_cleanup                     remove timesheets whose owner was deleted
  missing_approval_backfill          recreate missing approval records
  manager_self_approval_correction   skip the manager tier for self-managed projects
  freeze_consistency                 align frozen flags with the approved status

Pass a single procedure name to run just that one. Every procedure is
idempotent, so re-running is always safe.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger, err := api.NewLoggerFromConfig(&cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		ctr, err := container.NewContainer(cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize container: %w", err)
		}
		defer ctr.Close()

		ctx := context.Background()
		svc := ctr.RepairService()

		if len(args) == 0 {
			results, err := svc.RunAll(ctx)
			if err != nil {
				return fmt.Errorf("repair failed: %w", err)
			}
			for _, r := range results {
				printRepairResult(r)
			}
			return nil
		}

		var result *service.RepairResult
		switch args[0] {
		case "orphan_cleanup":
			result, err = svc.OrphanCleanup(ctx)
		case "missing_approval_backfill":
			result, err = svc.BackfillMissingApprovals(ctx)
		case "manager_self_approval_correction":
			result, err = svc.CorrectManagerSelfApproval(ctx)
		case "freeze_consistency":
			result, err = svc.EnforceFreezeConsistency(ctx)
		default:
			return fmt.Errorf("unknown repair procedure: %s", args[0])
		}
		if err != nil {
			return fmt.Errorf("repair failed: %w", err)
		}
		printRepairResult(result)
		return nil
	},
}

func printRepairResult(r *service.RepairResult) {
	fmt.Printf("%-36s inspected=%d fixed=%d\n", r.Procedure, r.Inspected, r.Fixed)
}

func init() {
	rootCmd.AddCommand(repairCmd)

	repairCmd.Flags().String("config", "", "Config file path (default: config.yaml)")
}
