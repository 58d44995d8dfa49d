package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kilianp07/railopt/app"
	"github.com/kilianp07/railopt/core/model"
	"github.com/kilianp07/railopt/core/schedule"
)

var (
	conflictsPath  string
	disruptionPath string
	schedulePath   string
	compareAll     bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Decide which competing trains proceed and which hold",
	RunE:  resolve,
}

var reoptimizeCmd = &cobra.Command{
	Use:   "reoptimize",
	Short: "Reschedule the sections affected by a disruption",
	RunE:  reoptimize,
}

func init() {
	resolveCmd.Flags().StringVarP(&conflictsPath, "conflicts", "i", "", "file with trains and conflicts")
	_ = resolveCmd.MarkFlagRequired("conflicts")

	reoptimizeCmd.Flags().StringVarP(&snapshotPath, "snapshot", "s", "", "snapshot file")
	reoptimizeCmd.Flags().StringVarP(&disruptionPath, "disruption", "d", "", "disruption file")
	reoptimizeCmd.Flags().StringVar(&schedulePath, "schedule", "", "current schedule (defaults to the planned timetable)")
	reoptimizeCmd.Flags().BoolVar(&compareAll, "all", false, "run every strategy and keep the best")
	_ = reoptimizeCmd.MarkFlagRequired("snapshot")
	_ = reoptimizeCmd.MarkFlagRequired("disruption")

	rootCmd.AddCommand(resolveCmd, reoptimizeCmd)
}

func resolve(cmd *cobra.Command, args []string) error {
	var in conflictInput
	if err := readFile(conflictsPath, cmd.InOrStdin(), &in); err != nil {
		return err
	}
	return oneShot(func(ctx context.Context, svc *app.Service) error {
		// a failed audit write still yields the decisions
		b, err := svc.Decisions.Resolve(ctx, in.Conflicts, in.trainMap())
		if werr := writeJSON(cmd.OutOrStdout(), b); werr != nil {
			return werr
		}
		return err
	})
}

func reoptimize(cmd *cobra.Command, args []string) error {
	snap, err := readSnapshot(snapshotPath, cmd.InOrStdin())
	if err != nil {
		return err
	}
	var d model.Disruption
	if err := readFile(disruptionPath, cmd.InOrStdin(), &d); err != nil {
		return err
	}
	var current schedule.Schedule
	if schedulePath != "" {
		var entries []schedule.Entry
		if err := readFile(schedulePath, cmd.InOrStdin(), &entries); err != nil {
			return err
		}
		current = make(schedule.Schedule)
		for _, e := range entries {
			current[e.TrainID] = append(current[e.TrainID], e)
		}
	}
	return oneShot(func(ctx context.Context, svc *app.Service) error {
		run := svc.Reoptimizer.Reoptimize
		if compareAll {
			run = svc.Reoptimizer.ReoptimizeAllMethods
		}
		out, err := run(ctx, snap, d, current)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), out)
	})
}
