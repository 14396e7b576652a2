package main

import (
	"fmt"
	"io"
)

// Set with -ldflags "-X main.buildVersion=... -X main.buildTime=...".
var (
	buildTime    = "unknown"
	buildVersion = "dev"
)

func showVersion(w io.Writer) {
	fmt.Fprintf(w, "%s (built: %s)\n", buildVersion, buildTime)
}
