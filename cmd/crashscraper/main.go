package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"crashscraper/internal/cli"
)

func main() {
	// Ctrl-C でクロールを中断し、保存済みの記事はそのまま残す
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
