package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/caffeineduck/gopad/platform"
)

var platformsCmd = &cobra.Command{
	Use:   "platforms",
	Short: "List available build targets",
	Run: func(cmd *cobra.Command, args []string) {
		for _, p := range platform.List() {
			note := ""
			if p.NeedsVersion {
				note = " (requires --go-version)"
			}
			if p.SelfContained {
				note = fmt.Sprintf(" (runs under %s)", p.LauncherPath)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-14s %s/%s%s\n", p.Name, p.OS, p.Arch, note)
		}
	},
}

func init() {
	rootCmd.AddCommand(platformsCmd)
}
