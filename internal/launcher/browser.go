package launcher

import (
	"github.com/pkg/browser"
	"github.com/sirupsen/logrus"
)

// OpenDashboard best-effort opens the dashboard URL in the user's default
// browser. Failure is logged, never fatal — headless environments are
// expected to fail here.
func OpenDashboard(url string) {
	if err := browser.OpenURL(url); err != nil {
		logrus.Debugf("could not auto-open browser: %v", err)
	}
}
