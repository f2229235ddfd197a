package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.dw1.io/rhscache/internal/command"
	mylog "go.dw1.io/rhscache/internal/log"
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	mylog.InitLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := command.InitApp(os.Stdout).Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	return 0
}
