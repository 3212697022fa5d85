package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fzft/go-relay/cli"
	"github.com/fzft/go-relay/version"
)

func main() {
	host := flag.String("h", cli.DefaultHost, "Relay hostname")
	port := flag.Int("p", 0, "Relay port")
	history := flag.String("history", cli.HistoryPath(cli.HistoryFileEnv, cli.HistoryFileDefault),
		"History file for interactive mode (empty disables it)")
	showVersion := flag.Bool("version", false, "Output version and exit")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "relay-cli %s\n\nUsage: relay-cli [-h host] -p port [-history file]\n", version.String())
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Printf("relay-cli %s\n", version.String())
		return
	}
	if *port < 1 || *port > 65535 || flag.NArg() != 0 {
		flag.Usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := cli.New(&cli.Config{Host: *host, Port: *port, HistoryFile: *history}, os.Stdout, os.Stderr)
	if err := c.Connect(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer c.Close()

	if err := c.Run(ctx, os.Stdin); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
