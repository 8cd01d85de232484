package recallcli

import (
	"context"
	"fmt"
	"io"
	"os"
)

// VersionCheckEnv is the environment variable name used to suppress version mismatch warnings.
// Set to any non-empty value to disable warnings (useful for scripts and CI).
const VersionCheckEnv = "RECALL_SUPPRESS_VERSION_CHECK"

// CheckVersionMismatch checks if the daemon version matches the expected CLI version.
// If there's a mismatch, it prints a warning to w but does not block execution.
//
// Set RECALL_SUPPRESS_VERSION_CHECK environment variable to suppress warnings.
func (c *Client) CheckVersionMismatch(ctx context.Context, w io.Writer, expectedVersion string) {
	if expectedVersion == "" {
		return
	}

	// Allow suppression via environment variable for scripts and CI
	if os.Getenv(VersionCheckEnv) != "" {
		return
	}

	daemonVersion, err := c.GetDaemonVersion(ctx)
	if err != nil {
		// Don't fail on version check errors - just warn
		fmt.Fprintf(w, "Warning: could not verify daemon version: %v\n", err)
		return
	}

	if daemonVersion.Version != expectedVersion {
		fmt.Fprintf(w, "Warning: CLI version (%s) differs from daemon version (%s)\n",
			expectedVersion, daemonVersion.Version)
		fmt.Fprintf(w, "Run 'recall stop' to restart the daemon with the new version.\n")
	}
}
