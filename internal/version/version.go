// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the current release. Populated via ldflags by the build system.
	Version = "v0.3.0"

	// Commit is the git short hash of the build.
	Commit = "unknown"

	// Date is the build timestamp.
	Date = "unknown"
)

// UserAgent returns the default User-Agent header value for outgoing queries.
func UserAgent() string {
	return "apiai-go/" + Version
}

// String renders the build information on one line.
func String() string {
	return fmt.Sprintf("apiai %s (commit %s, built %s, %s/%s)", Version, Commit, Date, runtime.GOOS, runtime.GOARCH)
}
