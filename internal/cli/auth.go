package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MJE43/galactic-survival/internal/warehouseauth"
)

// NewAuthCommand creates the auth command group for the warehouse token.
func NewAuthCommand(rootOpts *RootOptions) *cobra.Command {
	var host string

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the SQL warehouse access token",
	}
	cmd.PersistentFlags().StringVar(&host, "host", "", "workspace host (default DATABRICKS_HOST)")

	resolveHost := func() (string, error) {
		h := host
		if h == "" {
			h = rootOpts.Config.WarehouseHost
		}
		if strings.TrimSpace(h) == "" {
			return "", NewExitError(ExitCommandError, "no host: pass --host or set DATABRICKS_HOST")
		}
		return h, nil
	}
	keyring := func() *warehouseauth.KeyringStore {
		return warehouseauth.NewKeyringStore(warehouseauth.DefaultService, warehouseauth.DefaultFallbackPath())
	}

	var token string
	set := &cobra.Command{
		Use:   "set",
		Short: "Store a token in the OS keychain (reads stdin when --token is absent)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := resolveHost()
			if err != nil {
				return err
			}
			tok := token
			if tok == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return WrapExitError(ExitCommandError, "read token from stdin", err)
				}
				tok = strings.TrimSpace(line)
			}
			if err := keyring().SetToken(h, tok); err != nil {
				return WrapExitError(ExitFailure, "store token", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Token stored for %s\n", h)
			return nil
		},
	}
	set.Flags().StringVar(&token, "token", "", "access token")

	del := &cobra.Command{
		Use:   "delete",
		Short: "Remove the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := resolveHost()
			if err != nil {
				return err
			}
			if err := keyring().DeleteToken(h); err != nil {
				return WrapExitError(ExitFailure, "delete token", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Token removed for %s\n", h)
			return nil
		},
	}

	cmd.AddCommand(set, del)
	return cmd
}
