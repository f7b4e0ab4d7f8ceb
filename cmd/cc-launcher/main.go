// Command cc-launcher runs a local reverse proxy that lets Claude Code
// talk to OpenAI-compatible model endpoints.
package main

import (
	"fmt"
	"os"

	"github.com/alexwday/cc-launcher/internal/cli"
)

func main() {
	if err := cli.RootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
