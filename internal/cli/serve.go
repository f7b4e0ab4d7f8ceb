package cli

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/alexwday/cc-launcher/internal/config"
	"github.com/alexwday/cc-launcher/internal/launcher"
	"github.com/alexwday/cc-launcher/internal/logging"
	"github.com/alexwday/cc-launcher/internal/oauth"
	"github.com/alexwday/cc-launcher/internal/server"
	"github.com/alexwday/cc-launcher/internal/usage"
)

// ServeCommand starts the proxy server and dashboard.
func ServeCommand() *cobra.Command {
	var launchClaude bool
	var workDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the proxy server and dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}

			logging.Configure(logging.Options{Level: envOr("LOG_LEVEL", "info")})

			pidManager := config.NewPIDManager(os.TempDir())
			if pidManager.IsRunning() {
				return fmt.Errorf("cc-launcher already running (pid file: %s)", pidManager.GetPIDFilePath())
			}
			if err := pidManager.CreatePIDFile(); err != nil {
				return fmt.Errorf("create pid file: %w", err)
			}
			defer func() {
				if err := pidManager.RemovePIDFile(); err != nil {
					fmt.Println("warning: failed to remove pid file:", err)
				}
			}()

			mapper, err := config.NewModelMapper(cfg.ModelMapping, cfg.ModelMappingFile)
			if err != nil {
				return fmt.Errorf("build model mapper: %w", err)
			}
			if cfg.ModelMappingFile != "" {
				watcher, err := config.NewMappingWatcher(mapper, cfg.ModelMapping, cfg.ModelMappingFile)
				if err != nil {
					return fmt.Errorf("start model mapping watcher: %w", err)
				}
				if err := watcher.Start(); err != nil {
					return fmt.Errorf("start model mapping watcher: %w", err)
				}
				defer watcher.Stop()
			}

			tracker := usage.NewTracker(cfg.UsageBufferSize)

			var tokenCache *oauth.Cache
			if cfg.IsOAuthConfigured() && !cfg.DevMode {
				tokenCache = oauth.NewCache(cfg.OAuthTokenURL, cfg.OAuthClientID, cfg.OAuthClientSecret, cfg.OAuthScope, cfg.OAuthRefreshMins)
				fmt.Println("Attempting initial OAuth token fetch...")
				if _, err := tokenCache.GetToken(cmd.Context()); err != nil {
					fmt.Println("  warning: initial OAuth token fetch failed:", err)
				} else {
					fmt.Println("  OAuth token obtained successfully")
				}
			}

			srv := server.New(cfg, mapper, tracker, tokenCache)

			printBanner(cfg)

			if cfg.AutoOpenBrowser {
				go func() {
					time.Sleep(1500 * time.Millisecond)
					launcher.OpenDashboard(fmt.Sprintf("http://localhost:%d", cfg.ProxyPort))
				}()
			}

			if launchClaude {
				l := launcher.New(cfg.ProxyPort, cfg.ProxyAccessToken)
				go func() {
					time.Sleep(2 * time.Second)
					if err := l.Launch(workDir); err != nil {
						fmt.Println("claude launch failed:", err)
					}
				}()
			}

			addr := ":" + strconv.Itoa(cfg.ProxyPort)
			return http.ListenAndServe(addr, srv.Engine())
		},
	}

	cmd.Flags().BoolVar(&launchClaude, "launch", false, "also launch the claude CLI pointed at this proxy")
	cmd.Flags().StringVar(&workDir, "workdir", "", "working directory for the launched claude process (default: home directory)")

	return cmd
}

func printBanner(cfg *config.Config) {
	mode := "Proxy"
	if cfg.UsePlaceholder {
		mode = "Placeholder"
	}
	ssl := "Disabled"
	if !cfg.SkipSSLVerify {
		ssl = "Enabled"
	}

	bar := strings.Repeat("=", 60)

	fmt.Println()
	fmt.Println(bar)
	fmt.Println("  cc-launcher - Claude Code Launcher & Proxy Dashboard")
	fmt.Println(bar)
	fmt.Println()
	fmt.Printf("  Dashboard:  http://localhost:%d\n", cfg.ProxyPort)
	fmt.Printf("  Proxy URL:  http://localhost:%d/v1/messages\n", cfg.ProxyPort)
	fmt.Println()
	fmt.Printf("  Target:     %s\n", cfg.TargetEndpoint)
	fmt.Printf("  Mode:       %s\n", mode)
	fmt.Printf("  SSL:        %s\n", ssl)
	fmt.Println()
	fmt.Println("  To use with Claude Code, set these environment variables:")
	fmt.Println()
	fmt.Printf("    export ANTHROPIC_BASE_URL='http://localhost:%d'\n", cfg.ProxyPort)
	fmt.Printf("    export ANTHROPIC_API_KEY='%s'\n", cfg.ProxyAccessToken)
	fmt.Println()
	fmt.Println(bar)
	fmt.Println()
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
