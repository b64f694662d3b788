package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jmcleod/eventdesk/auth"
	"github.com/jmcleod/eventdesk/internal/util"
)

// sessionSecretBytes is the amount of randomness in a generated
// SESSION_SECRET (hex encoded, so twice as many characters).
const sessionSecretBytes = 64

var generateSecretsCmd = &cobra.Command{
	Use:   "generate-secrets <admin-password>",
	Short: "Generate ADMIN_PASSWORD_HASH and SESSION_SECRET for a deployment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeSecrets(cmd.OutOrStdout(), args[0])
	},
}

func writeSecrets(out io.Writer, password string) error {
	if password == "" {
		return fmt.Errorf("admin password is required")
	}
	hash, err := auth.HashPassword(password, auth.MinCost)
	if err != nil {
		return err
	}
	secret, err := util.RandomHex(sessionSecretBytes)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "=== PRODUCTION SECRETS ===")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "ADMIN_PASSWORD_HASH=%s\n", hash)
	fmt.Fprintf(out, "SESSION_SECRET=%s\n", secret)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Store these securely and never commit them to version control.")
	return nil
}

func init() {
	rootCmd.AddCommand(generateSecretsCmd)
}
