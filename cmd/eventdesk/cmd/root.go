package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is overridden at build time with -ldflags.
var Version = "dev"

var envFile string

var rootCmd = &cobra.Command{
	Use:   "eventdesk",
	Short: "EventDesk runs the event RSVP and activity backend",
	Long: `RSVPs, activity proposals, announcements and a password-protected admin API.
Complete documentation is available at https://github.com/jmcleod/eventdesk`,
	SilenceUsage: true,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to a .env file loaded before reading the environment")
}
