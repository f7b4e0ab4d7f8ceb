// Package launcher spawns the downstream `claude` CLI pointed at this
// proxy, installing it via npm first if it isn't already on PATH.
package launcher

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Launcher holds the connection details handed to the spawned claude
// process.
type Launcher struct {
	ProxyPort  int
	ProxyToken string
}

// New creates a Launcher for the given proxy port and access token.
func New(proxyPort int, proxyToken string) *Launcher {
	return &Launcher{ProxyPort: proxyPort, ProxyToken: proxyToken}
}

// Launch starts `claude` in workingDirectory (defaulting to the user's home
// directory), installing it via npm first if necessary. It blocks for the
// duration of the claude process, inheriting the parent's stdio.
func (l *Launcher) Launch(workingDirectory string) error {
	if !isClaudeInstalled() {
		if err := l.installClaudeCode(); err != nil {
			return err
		}
		if !isClaudeInstalled() {
			return fmt.Errorf("installation completed but 'claude' command not found; you may need to restart your shell or add npm's global bin directory to PATH")
		}
	}

	if workingDirectory == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home directory: %w", err)
		}
		workingDirectory = home
	}

	cmd := exec.Command("claude")
	cmd.Dir = workingDirectory
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("ANTHROPIC_BASE_URL=http://localhost:%d", l.ProxyPort),
		// claude uses ANTHROPIC_AUTH_TOKEN for custom endpoints; API_KEY is
		// set too as a fallback for older CLI versions.
		"ANTHROPIC_AUTH_TOKEN="+l.ProxyToken,
		"ANTHROPIC_API_KEY="+l.ProxyToken,
		"DISABLE_AUTOUPDATER=1",
		"DISABLE_TELEMETRY=1",
	)

	return cmd.Run()
}

func isClaudeInstalled() bool {
	_, err := exec.LookPath("claude")
	return err == nil
}

func (l *Launcher) installClaudeCode() error {
	if _, err := exec.LookPath("npm"); err != nil {
		return fmt.Errorf("npm not found; install Node.js first: https://nodejs.org/")
	}

	cmd := exec.Command("npm", "install", "-g", "@anthropic-ai/claude-code")
	done := make(chan error, 1)
	var output strings.Builder
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start npm install: %w", err)
	}
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		if err == nil {
			return nil
		}
		msg := output.String()
		lower := strings.ToLower(msg)
		if strings.Contains(msg, "EACCES") || strings.Contains(lower, "permission denied") {
			return fmt.Errorf("permission denied; try: sudo npm install -g @anthropic-ai/claude-code")
		}
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return fmt.Errorf("npm install failed: %s", msg)
	case <-time.After(2 * time.Minute):
		_ = cmd.Process.Kill()
		return fmt.Errorf("installation timed out; install manually: npm install -g @anthropic-ai/claude-code")
	}
}

// LaunchCommand returns the shell snippet a user can run to manually start
// claude against this proxy, for display when auto-launch is disabled.
func (l *Launcher) LaunchCommand() string {
	return fmt.Sprintf(`export ANTHROPIC_BASE_URL='http://localhost:%d'
export ANTHROPIC_AUTH_TOKEN='%s'
export ANTHROPIC_API_KEY='%s'
claude`, l.ProxyPort, l.ProxyToken, l.ProxyToken)
}
