package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dl-alexandre/gitdrive/internal/cli"
	"github.com/dl-alexandre/gitdrive/internal/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx)
	stop()
	os.Exit(utils.ExitCodeFor(err))
}
