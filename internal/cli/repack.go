package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pacrepack/internal/app"
	"pacrepack/internal/types"
)

type repackOptions struct {
	OutputDir        string
	WorkRoot         string
	Compression      string
	Workers          int
	CopyFailureLimit int
	Sudo             string
	Cleanup          string
	OverridesPath    string
}

func newRepackCommand() *cobra.Command {
	opts := repackOptions{}
	cmd := &cobra.Command{
		Use:   "repack <package>",
		Short: "Rebuild an installable archive from an installed package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepack(cmd.Context(), cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.OutputDir, "output", ".", "Output directory for the archive")
	cmd.Flags().StringVar(&opts.WorkRoot, "work-root", "", "Staging work root (default: system temp)")
	cmd.Flags().StringVar(&opts.Compression, "compression", "default", "Compression level (fastest|default|better|best)")
	cmd.Flags().IntVar(&opts.Workers, "workers", 1, "Parallel copy workers")
	cmd.Flags().IntVar(&opts.CopyFailureLimit, "copy-failure-limit", 0, "Tolerated per-path copy failures (-1 for unlimited)")
	cmd.Flags().StringVar(&opts.Sudo, "sudo", "auto", "Privilege escalation for protected paths (auto|always|never)")
	cmd.Flags().StringVar(&opts.Cleanup, "cleanup", "ask", "Staging directory disposal (ask|keep|remove)")
	cmd.Flags().StringVar(&opts.OverridesPath, "meta-overrides", "", "Metadata overrides file (yaml)")

	_ = viper.BindPFlag("output", cmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("work_root", cmd.Flags().Lookup("work-root"))
	_ = viper.BindPFlag("compression", cmd.Flags().Lookup("compression"))
	_ = viper.BindPFlag("workers", cmd.Flags().Lookup("workers"))
	_ = viper.BindPFlag("copy_failure_limit", cmd.Flags().Lookup("copy-failure-limit"))
	_ = viper.BindPFlag("sudo", cmd.Flags().Lookup("sudo"))
	_ = viper.BindPFlag("cleanup", cmd.Flags().Lookup("cleanup"))
	_ = viper.BindPFlag("meta_overrides", cmd.Flags().Lookup("meta-overrides"))

	return cmd
}

func runRepack(ctx context.Context, cmd *cobra.Command, name string, opts repackOptions) error {
	ctx = log.Logger.WithContext(ctx)
	service := newAppService()
	result, err := service.Repack(ctx, app.RepackRequest{
		Package:          name,
		OutputDir:        resolveString(cmd, opts.OutputDir, "output", "output"),
		WorkRoot:         resolveString(cmd, opts.WorkRoot, "work_root", "work-root"),
		Compression:      types.CompressionLevel(resolveString(cmd, opts.Compression, "compression", "compression")),
		Workers:          resolveInt(cmd, opts.Workers, "workers", "workers"),
		CopyFailureLimit: resolveInt(cmd, opts.CopyFailureLimit, "copy_failure_limit", "copy-failure-limit"),
		Sudo:             types.SudoMode(resolveString(cmd, opts.Sudo, "sudo", "sudo")),
		Cleanup:          types.CleanupMode(resolveString(cmd, opts.Cleanup, "cleanup", "cleanup")),
		OverridesPath:    resolveString(cmd, opts.OverridesPath, "meta_overrides", "meta-overrides"),
	})
	if err != nil {
		return err
	}

	fmt.Printf("rebuilt %s %s (%s)\n", result.Package, result.Version, result.Arch)
	fmt.Printf("archive: %s\n", result.ArchivePath)
	fmt.Printf("checksum: %s (md5 %s)\n", result.ChecksumPath, result.MD5)
	fmt.Printf("entries: %d, payload size: %d bytes\n", result.EntryCount, result.TotalSize)
	if result.Skipped > 0 {
		fmt.Printf("skipped paths: %d\n", result.Skipped)
	}
	if result.Failures > 0 {
		fmt.Printf("tolerated copy failures: %d\n", result.Failures)
	}
	return nil
}

func resolveString(cmd *cobra.Command, value string, key string, flagName string) string {
	if cmd == nil {
		if value != "" {
			return value
		}
		return viper.GetString(key)
	}
	if flagChanged(cmd, flagName) {
		return value
	}
	return viper.GetString(key)
}

func resolveInt(cmd *cobra.Command, value int, key string, flagName string) int {
	if cmd == nil {
		return value
	}
	if flagChanged(cmd, flagName) {
		return value
	}
	return viper.GetInt(key)
}

func flagChanged(cmd *cobra.Command, name string) bool {
	if cmd == nil || name == "" {
		return false
	}
	if flag := cmd.Flags().Lookup(name); flag != nil {
		return flag.Changed
	}
	if flag := cmd.PersistentFlags().Lookup(name); flag != nil {
		return flag.Changed
	}
	return false
}
