package main

import (
	"authenta/internal/app"
	"authenta/internal/config"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

const usage = `Usage: authenta <command> [flags] [args]

Commands:
  process <file>       upload, process and wait, then save artefacts
  status <mid>         print the current status document
  wait <mid>           poll until the record is terminal
  resume <mid> [file]  retry the upload of a record from the local ledger
  list                 list records on the server
  delete <mid>         delete a record on the server and locally
  heatmap <mid>        download heatmap image or videos
  bbox <mid> <src>     render bounding boxes over the source video
  history              list records from the local ledger

Run "authenta <command> -h" for the flags of a command.
`

func main() {
	if len(os.Args) < 2 || os.Args[1] == "-h" || os.Args[1] == "help" {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cmd, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	if err := run(cmd, os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func run(cmd command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	application, err := app.NewApp(cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	application.Start()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return cmd(ctx, application, args)
}
