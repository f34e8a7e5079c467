package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ecavalidator/internal/hook"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := hook.NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(hook.ExitCodeOf(err))
	}
}
