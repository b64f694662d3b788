package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmcleod/eventdesk/auth"
)

const minPasswordLength = 8

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password <password>",
	Short: "Print a bcrypt hash of the admin password for ADMIN_PASSWORD_HASH",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return writePasswordHash(cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0])
	},
}

func writePasswordHash(out, errOut io.Writer, password string) error {
	if password == "" {
		return fmt.Errorf("password is required")
	}
	if len(password) < minPasswordLength {
		fmt.Fprintf(errOut, "Warning: password should be at least %d characters long\n", minPasswordLength)
	}
	hash, err := auth.HashPassword(password, auth.DefaultCost)
	if err != nil {
		return err
	}
	rule := strings.Repeat("-", 80)
	fmt.Fprintln(out, "Add this to your .env file:")
	fmt.Fprintln(out, rule)
	fmt.Fprintf(out, "ADMIN_PASSWORD_HASH=%s\n", hash)
	fmt.Fprintln(out, rule)
	fmt.Fprintln(out, "Set SESSION_SECRET as well; `eventdesk generate-secrets` can create one.")
	return nil
}

func init() {
	rootCmd.AddCommand(hashPasswordCmd)
}
