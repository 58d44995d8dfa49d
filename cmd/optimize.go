package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/railopt/app"
	"github.com/kilianp07/railopt/core/optimizer"
	"github.com/kilianp07/railopt/pkg/export"
)

var (
	snapshotPath string
	methodName   string
	outFormat    string
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Optimize a snapshot with one strategy",
	RunE:  optimize,
}

var runAllCmd = &cobra.Command{
	Use:   "run-all",
	Short: "Run every strategy on a snapshot and report the best result",
	RunE:  runAll,
}

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Print the priority ranking of the trains of a snapshot",
	RunE:  rank,
}

func init() {
	for _, c := range []*cobra.Command{optimizeCmd, runAllCmd, rankCmd} {
		c.Flags().StringVarP(&snapshotPath, "snapshot", "s", "", "snapshot file (json or yaml, - for stdin)")
		_ = c.MarkFlagRequired("snapshot")
	}
	optimizeCmd.Flags().StringVarP(&methodName, "method", "m", string(optimizer.MethodHybrid),
		"heuristic, ga, aco, milp, rl or comprehensive_hybrid")
	optimizeCmd.Flags().StringVarP(&outFormat, "format", "f", "json", "json, schedule-json or csv")
	rootCmd.AddCommand(optimizeCmd, runAllCmd, rankCmd)
}

func optimize(cmd *cobra.Command, args []string) error {
	method, err := optimizer.ParseMethod(methodName)
	if err != nil {
		return err
	}
	snap, err := readSnapshot(snapshotPath, cmd.InOrStdin())
	if err != nil {
		return err
	}
	return oneShot(func(ctx context.Context, svc *app.Service) error {
		res, err := svc.Orchestrator.Optimize(ctx, snap, method)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		switch outFormat {
		case "json":
			return writeJSON(w, res)
		case "schedule-json":
			return export.WriteJSON(w, res.Schedule)
		case "csv":
			return export.WriteCSV(w, res.Schedule)
		default:
			return fmt.Errorf("unknown format %q", outFormat)
		}
	})
}

type runAllOutput struct {
	Best    *optimizer.Result  `json:"best"`
	Results []optimizer.Result `json:"results"`
}

func runAll(cmd *cobra.Command, args []string) error {
	snap, err := readSnapshot(snapshotPath, cmd.InOrStdin())
	if err != nil {
		return err
	}
	return oneShot(func(ctx context.Context, svc *app.Service) error {
		results, err := svc.Orchestrator.RunAll(ctx, snap)
		if err != nil {
			return err
		}
		out := runAllOutput{Results: results}
		if best, ok := optimizer.GetBest(results); ok {
			out.Best = &best
		}
		return writeJSON(cmd.OutOrStdout(), out)
	})
}

func rank(cmd *cobra.Command, args []string) error {
	snap, err := readSnapshot(snapshotPath, cmd.InOrStdin())
	if err != nil {
		return err
	}
	return oneShot(func(ctx context.Context, svc *app.Service) error {
		return writeJSON(cmd.OutOrStdout(), svc.Priority.Rank(snap.Trains))
	})
}
