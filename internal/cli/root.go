// Package cli wires the cobra commands exposed by the cc-launcher binary.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexwday/cc-launcher/internal/config"
)

// RootCommand builds the top-level "cc-launcher" command tree.
func RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "cc-launcher",
		Short: "Launch Claude Code against any OpenAI-compatible model endpoint",
		Long: `cc-launcher runs a local reverse proxy that translates between
Anthropic's /v1/messages API and an OpenAI-compatible /chat/completions
endpoint, so Claude Code can be pointed at gateways that only speak the
OpenAI wire format.`,
	}

	root.AddCommand(ServeCommand())
	root.AddCommand(TokenCommand())
	root.AddCommand(ProbeCommand())
	root.AddCommand(ExampleCommand())

	return root
}

func loadConfigOrExit() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Configuration error:", err)
		return nil
	}
	return cfg
}
