package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// TokenCommand prints the proxy access token a client needs to talk to
// this server, generating the Config the same way `serve` would.
func TokenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Print the proxy access token",
		Long: `Print the access token clients must send as "x-api-key" or
"Authorization: Bearer <token>" when calling /v1/messages.

If PROXY_ACCESS_TOKEN is not set in the environment, a new token is
generated on every invocation — set it explicitly to keep it stable
across restarts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfigOrExit()
			if cfg == nil {
				return fmt.Errorf("failed to load configuration")
			}
			fmt.Println("Proxy access token:")
			fmt.Println(cfg.ProxyAccessToken)
			fmt.Println()
			fmt.Println("Usage:")
			fmt.Println("  x-api-key:", cfg.ProxyAccessToken)
			fmt.Println("  Authorization: Bearer", cfg.ProxyAccessToken)
			return nil
		},
	}
}
