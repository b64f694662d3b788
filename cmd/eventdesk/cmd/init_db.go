package cmd

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/jmcleod/eventdesk/storage"
)

var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Create the schema in the configured store and show the settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Initializing %s...\n", storeLocation(cfg))
		repo, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		defer repo.Close()
		fmt.Fprintln(out, "Schema applied")
		return printSettings(cmd, out, repo)
	},
}

func printSettings(cmd *cobra.Command, out io.Writer, repo storage.SettingStore) error {
	settings, err := repo.ListSettings(cmd.Context())
	if err != nil {
		return fmt.Errorf("reading settings: %w", err)
	}
	fmt.Fprintln(out, "Current settings:")
	for _, k := range slices.Sorted(maps.Keys(settings)) {
		fmt.Fprintf(out, "  - %s: %s\n", k, settings[k])
	}
	return nil
}

func init() {
	rootCmd.AddCommand(initDBCmd)
	addStoreFlags(initDBCmd)
}
