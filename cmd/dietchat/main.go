// Command dietchat is an interactive terminal client for dietagent.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Protocol-Lattice/diet-agent/pkg/chat"
	"github.com/Protocol-Lattice/diet-agent/pkg/config"
	"github.com/Protocol-Lattice/diet-agent/pkg/logging"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "dietchat: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	env, err := config.Environ(".env")
	if err != nil {
		return err
	}
	cfg, err := config.LoadClient(args, env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := logging.New(stderr, level, cfg.NoColor)

	client, err := chat.NewClient(cfg.BaseURL, cfg.AppName, &http.Client{Timeout: cfg.Timeout})
	if err != nil {
		return err
	}
	conv := chat.NewConversation(client, chat.UserID(cfg.UserEmail), chat.WithLogger(logger))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repl := chat.NewREPL(stdin, chat.NewRenderer(stdout, ""), conv, cfg.UserName)
	return repl.Run(ctx)
}
