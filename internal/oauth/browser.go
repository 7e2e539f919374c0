package oauth

import (
	"fmt"

	"github.com/skratchdot/open-golang/open"
)

// OpenBrowser opens the specified URL in the default web browser. Launch
// failure is not fatal to a login flow; the caller falls back to printing
// the URL for manual use.
func OpenBrowser(url string) error {
	if err := open.Start(url); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}
