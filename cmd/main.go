package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args, os.Stdout, os.Stderr))
}

// run executes the CLI with the given args (including the program name) and
// returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	app := newApp(stdout, stderr)
	if err := app.Run(ctx, args); err != nil {
		fmt.Fprintf(stderr, "ollama-worker: %v\n", err)
		return 1
	}
	return 0
}

func newApp(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "ollama-worker",
		Usage:     "Serverless job handler that forwards prompts to a local Ollama server",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env",
				Usage: "path of the .env file to load (a missing file is ignored)",
				Value: ".env",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "handle a single job from --test-input, --test-input-file or ./test_input.json and print the result",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "test-input",
						Usage: `job JSON, e.g. '{"input": {"prompt": "hi"}}'`,
					},
					&cli.StringFlag{
						Name:  "test-input-file",
						Usage: "path of a job JSON file",
						Value: "test_input.json",
					},
				},
				Action: runAction,
			},
			{
				Name:  "serve",
				Usage: "start the local API (POST /runsync, GET /health)",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "listen address",
						Value: "localhost:8000",
					},
				},
				Action: serveAction,
			},
			{
				Name:   "worker",
				Usage:  "poll the RunPod job queue and handle jobs one at a time",
				Action: workerAction,
			},
		},
	}
}
