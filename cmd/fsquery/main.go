// Command fsquery indexes directory trees into a snapshot database and
// searches them with find(1)-style expressions.
//
//	fsquery index ~/src
//	fsquery find -- -name '*.go' -size +10k
//	fsquery find report 2024
//	fsquery explain -- -contains TODO -name '*.go'
package main

import (
	"context"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
