// main is the entry point of the gitlegend CLI.
package main

import (
	"context"
	"os"
	"time"

	"github.com/gitlegend/gitlegend/cmd"
	"github.com/gitlegend/gitlegend/internal/contract"
	"github.com/gitlegend/gitlegend/internal/iocache"
)

// shutdownTimeout bounds how long in-flight analyses get to record their state on exit.
const shutdownTimeout = 10 * time.Second

func main() {
	err := cmd.Execute()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	if serr := cmd.Shutdown(ctx); serr != nil {
		contract.LogWarn("Failed to stop running analyses", serr)
	}
	cancel()
	iocache.CloseStore()

	if err != nil {
		contract.LogWarn("Command failed", err)
		os.Exit(1)
	}
}
