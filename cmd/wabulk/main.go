package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"wabulk/internal/app"
)

const usage = `usage: wabulk <command> [flags]

commands:
  send      message every contact in the spreadsheet through WhatsApp Web
  enter     press Enter on a timer in the focused window
  history   list recorded runs, or the deliveries of one run

run "wabulk <command> -h" for flags.
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}
	// Missing .env is fine; it only supplies secrets.
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cmd, rest := args[0], args[1:]
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	var cfgPath string
	fs.StringVar(&cfgPath, "config", "./wabulk.yaml", "path to config (yaml or json); optional")

	var err error
	switch cmd {
	case "send":
		var opt app.SendOptions
		fs.StringVar(&opt.Contacts, "contacts", "", "contacts file (.xlsx or .csv); overrides send.contacts")
		fs.StringVar(&opt.StartAt, "at", "", `start time: cron ("0 9 * * 1-5"), HH:MM, or duration ("30m")`)
		fs.BoolVar(&opt.DryRun, "dry-run", false, "print each contact's link without opening a browser")
		if fs.Parse(rest) != nil {
			return 2
		}
		err = withApp(cfgPath, func(a *app.App) error {
			_, err := a.RunSend(ctx, opt)
			return err
		})
	case "enter":
		if fs.Parse(rest) != nil {
			return 2
		}
		err = withApp(cfgPath, func(a *app.App) error {
			_, err := a.RunEnter(ctx)
			return err
		})
	case "history":
		limit := fs.Int("n", 20, "number of runs to list")
		if fs.Parse(rest) != nil {
			return 2
		}
		err = withApp(cfgPath, func(a *app.App) error {
			return a.History(ctx, fs.Arg(0), *limit)
		})
	case "-h", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return 130
		}
		fmt.Fprintln(os.Stderr, "fatal:", err)
		return 1
	}
	return 0
}

func withApp(cfgPath string, fn func(a *app.App) error) error {
	a, err := app.New(cfgPath)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
