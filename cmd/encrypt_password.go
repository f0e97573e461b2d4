package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sparkload/internal/config"
	"sparkload/internal/ui"
)

func newEncryptPasswordCmd(a *app) *cobra.Command {
	var (
		fromStdin  bool
		useKeyring bool
	)

	cmd := &cobra.Command{
		Use:   "encrypt-password",
		Short: "Encrypt the warehouse password for dwh.cfg",
		Long: `Encrypt a password with AES-256-GCM and print the ENC[...] value to
paste into CLUSTER.DB_PASSWORD.

The encryption key is derived from:
1. SPARKLOAD_ENCRYPTION_KEY environment variable (if set)
2. Machine-specific identifier (hostname + home directory)

With --keyring the password is stored in the OS keyring for the configured
DB_USER and HOST instead; leave DB_PASSWORD empty to use it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				password string
				err      error
			)
			if fromStdin {
				line, readErr := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if readErr != nil && line == "" {
					return fmt.Errorf("failed to read password from stdin: %w", readErr)
				}
				password = strings.TrimRight(line, "\r\n")
			} else {
				password, err = ui.Password("Warehouse password:", "Value for CLUSTER.DB_PASSWORD")
				if err != nil {
					return err
				}
			}
			if password == "" {
				return fmt.Errorf("password is empty")
			}

			if useKeyring {
				cfg, err := a.load()
				if err != nil {
					return err
				}
				if err := config.StorePassword(cfg, password); err != nil {
					return err
				}
				ui.ShowSuccess(fmt.Sprintf("Password stored in the OS keyring for %s",
					config.KeyringAccountFor(cfg)))
				return nil
			}

			encrypted, err := config.EncryptPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(ui.Output(), encrypted)
			return nil
		},
	}

	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "read the password from the first line of stdin")
	cmd.Flags().BoolVar(&useKeyring, "keyring", false, "store the password in the OS keyring instead of printing it")
	return cmd
}
