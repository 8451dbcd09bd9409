// Command mtzip builds ZIP archives using all available cores.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/fang"

	"github.com/meigma/mtzip/internal/cmd"
	"github.com/meigma/mtzip/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := fang.Execute(ctx, cmd.NewRootCmd(), fang.WithVersion(version.Get().String()))
	stop()
	if err != nil {
		os.Exit(1)
	}
}
