package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/alnah/go-chunkscribe/internal/cli"
	"github.com/alnah/go-chunkscribe/internal/interrupt"
	"github.com/alnah/go-chunkscribe/internal/logging"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load .env file if present (ignore error if missing).
	_ = godotenv.Load()

	// Signal messages go to stderr before logging flags are parsed.
	signalLogger, _, _ := logging.New(os.Stderr, logging.Options{})
	handler, ctx := interrupt.NewHandler(context.Background(), signalLogger)
	defer handler.Stop()

	env := cli.DefaultEnv()
	defer func() { _ = env.Close() }()

	root := cli.RootCmd(env, fmt.Sprintf("%s (commit: %s)", version, commit))

	err := root.ExecuteContext(ctx)
	if err == nil {
		return cli.ExitOK
	}
	if handler.WasInterrupted() {
		env.Logger.Warn().Err(err).Msg("run interrupted")
		return cli.ExitInterrupt
	}

	fmt.Fprintln(os.Stderr, "Error:", err)
	return cli.ExitCode(err)
}
