package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// ProbeCommand issues a single minimal chat-completion request against a
// candidate endpoint from the command line, the same check the dashboard's
// POST /dashboard/probe endpoint runs, so an operator can validate TARGET_ENDPOINT and
// TARGET_API_KEY before pointing Claude Code at the proxy.
func ProbeCommand() *cobra.Command {
	var apiBase, apiKey, model string

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Test connectivity to a target endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			if apiBase == "" || apiKey == "" {
				cfg := loadConfigOrExit()
				if cfg == nil {
					return fmt.Errorf("failed to load configuration")
				}
				if apiBase == "" {
					apiBase = cfg.TargetEndpoint
				}
				if apiKey == "" {
					apiKey = cfg.TargetAPIKey
				}
			}
			if apiBase == "" || apiKey == "" {
				return fmt.Errorf("an api base and api key are required; pass --api-base/--api-key or set TARGET_ENDPOINT/TARGET_API_KEY")
			}
			if model == "" {
				model = "gpt-4o-mini"
			}

			fmt.Printf("Probing %s with model %s...\n", apiBase, model)

			payload, _ := json.Marshal(map[string]interface{}{
				"model": model,
				"messages": []map[string]interface{}{
					{"role": "user", "content": "hi"},
				},
				"max_tokens": 16,
			})

			ctx, cancel := context.WithTimeout(cmd.Context(), 20*time.Second)
			defer cancel()

			url := strings.TrimRight(apiBase, "/") + "/chat/completions"
			httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
			if err != nil {
				return fmt.Errorf("build request: %w", err)
			}
			httpReq.Header.Set("Content-Type", "application/json")
			httpReq.Header.Set("Authorization", "Bearer "+apiKey)

			start := time.Now()
			resp, err := http.DefaultClient.Do(httpReq)
			elapsed := time.Since(start).Milliseconds()
			if err != nil {
				fmt.Printf("  failed (%dms): %v\n", elapsed, err)
				return nil
			}
			defer resp.Body.Close()

			body, _ := io.ReadAll(resp.Body)

			if resp.StatusCode >= 400 {
				fmt.Printf("  failed (%dms): status %d: %s\n", elapsed, resp.StatusCode, string(body))
				return nil
			}

			fmt.Printf("  success (%dms): status %d\n", elapsed, resp.StatusCode)
			return nil
		},
	}

	cmd.Flags().StringVar(&apiBase, "api-base", "", "candidate endpoint base URL (default: TARGET_ENDPOINT)")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "candidate endpoint API key (default: TARGET_API_KEY)")
	cmd.Flags().StringVar(&model, "model", "", "model to probe with (default: gpt-4o-mini)")

	return cmd
}
