package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"pacrepack/internal/app"
)

func newInspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <archive>",
		Short: "Verify a rebuilt archive against its embedded manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd.Context(), args[0])
		},
	}
	return cmd
}

func runInspect(ctx context.Context, archivePath string) error {
	ctx = log.Logger.WithContext(ctx)
	service := newAppService()
	result, err := service.Inspect(ctx, app.InspectRequest{ArchivePath: archivePath})
	if len(result.Mismatches) > 0 {
		fmt.Println("mismatches:")
		for _, mismatch := range result.Mismatches {
			fmt.Printf("- %s\n", mismatch)
		}
	}
	if err != nil {
		return err
	}

	fmt.Printf("%s %s (%s)\n", result.Meta.Name, result.Meta.Version, result.Meta.Arch)
	if result.Meta.Description != "" {
		fmt.Println(result.Meta.Description)
	}
	fmt.Printf("entries: %d, payload size: %d bytes\n", result.EntryCount, result.TotalSize)
	if len(result.Meta.Depends) > 0 {
		fmt.Printf("depends: %s\n", strings.Join(result.Meta.Depends, ", "))
	}
	return nil
}
