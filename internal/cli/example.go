package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ExampleCommand prints a ready-to-run curl example against /v1/messages.
func ExampleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "example",
		Short: "Print an example curl command for testing the proxy",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfigOrExit()
			if cfg == nil {
				return fmt.Errorf("failed to load configuration")
			}

			endpoint := fmt.Sprintf("http://localhost:%d/v1/messages", cfg.ProxyPort)

			fmt.Println("Make sure the server is running:")
			fmt.Println("  cc-launcher serve")
			fmt.Println()
			fmt.Println("Then test with curl:")
			fmt.Println("```bash")
			fmt.Printf("curl -X POST %s \\\n", endpoint)
			fmt.Println("  -H \"Content-Type: application/json\" \\")
			fmt.Printf("  -H \"x-api-key: %s\" \\\n", cfg.ProxyAccessToken)
			fmt.Println("  -d '{")
			fmt.Println("    \"model\": \"claude-sonnet-4-20250514\",")
			fmt.Println("    \"max_tokens\": 256,")
			fmt.Println("    \"messages\": [")
			fmt.Println("      {\"role\": \"user\", \"content\": \"Hello, how are you?\"}")
			fmt.Println("    ]")
			fmt.Println("  }'")
			fmt.Println("```")
			fmt.Println()
			fmt.Println("Streaming responses:")
			fmt.Println("  add \"stream\": true to the request body")
			fmt.Println()
			fmt.Println("Token usage estimate without calling the target endpoint:")
			fmt.Printf("  curl -X POST http://localhost:%d/v1/messages/count_tokens \\\n", cfg.ProxyPort)
			fmt.Printf("    -H \"x-api-key: %s\" -d '{\"model\": \"claude-sonnet-4-20250514\", \"messages\": [...]}'\n", cfg.ProxyAccessToken)

			return nil
		},
	}
}
