package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pacrepack/internal/app"
)

type sweepOptions struct {
	WorkRoot string
	KeepLast int
	KeepDays int
	Protect  []string
	DryRun   bool
}

func newSweepCommand() *cobra.Command {
	opts := sweepOptions{}
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Sweep leftover staging directories based on retention policy",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSweep(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.WorkRoot, "work-root", "", "Staging work root (default: system temp)")
	cmd.Flags().IntVar(&opts.KeepLast, "keep-last", 0, "Keep last N staging directories per package")
	cmd.Flags().IntVar(&opts.KeepDays, "keep-days", 0, "Keep staging directories newer than N days")
	cmd.Flags().StringSliceVar(&opts.Protect, "protect", nil, "Protect packages from sweeping")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", true, "Only report sweep actions without deleting")

	_ = viper.BindPFlag("work_root", cmd.Flags().Lookup("work-root"))
	_ = viper.BindPFlag("keep_last", cmd.Flags().Lookup("keep-last"))
	_ = viper.BindPFlag("keep_days", cmd.Flags().Lookup("keep-days"))
	_ = viper.BindPFlag("protect", cmd.Flags().Lookup("protect"))
	_ = viper.BindPFlag("dry_run", cmd.Flags().Lookup("dry-run"))

	return cmd
}

func runSweep(ctx context.Context, cmd *cobra.Command, opts sweepOptions) error {
	ctx = log.Logger.WithContext(ctx)
	service := newAppService()
	result, err := service.SweepStaging(ctx, app.SweepRequest{
		WorkRoot: resolveString(cmd, opts.WorkRoot, "work_root", "work-root"),
		KeepLast: resolveInt(cmd, opts.KeepLast, "keep_last", "keep-last"),
		KeepDays: resolveInt(cmd, opts.KeepDays, "keep_days", "keep-days"),
		Protect:  resolveStrings(cmd, opts.Protect, "protect", "protect"),
		DryRun:   resolveBool(cmd, opts.DryRun, "dry_run", "dry-run"),
	})
	if err != nil {
		return err
	}
	if result.DryRun {
		fmt.Printf("dry-run: keep=%d delete=%d\n", result.KeepCount, result.DeleteCount)
		return nil
	}
	fmt.Printf("swept staging directories: %d\n", result.DeleteCount)
	for _, path := range result.Removed {
		fmt.Printf("removed: %s\n", path)
	}
	return nil
}

func resolveStrings(cmd *cobra.Command, value []string, key string, flagName string) []string {
	if cmd == nil {
		if len(value) > 0 {
			return value
		}
		return viper.GetStringSlice(key)
	}
	if flagChanged(cmd, flagName) {
		return value
	}
	if fromViper := viper.GetStringSlice(key); len(fromViper) > 0 {
		return fromViper
	}
	return value
}

func resolveBool(cmd *cobra.Command, value bool, key string, flagName string) bool {
	if cmd == nil {
		return value
	}
	if flagChanged(cmd, flagName) {
		return value
	}
	return viper.GetBool(key)
}
