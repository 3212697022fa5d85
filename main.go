package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fzft/go-relay/config"
	"github.com/fzft/go-relay/log"
	"github.com/fzft/go-relay/node"
	"github.com/fzft/go-relay/version"
	"go.uber.org/zap"
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [-config file.yaml] [-version] <port>\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", "", "path to an optional YAML config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Println("relay", version.String())
		return
	}

	if flag.NArg() != 1 {
		usage()
		os.Exit(1)
	}

	cfg, err := loadConfig(*configPath, flag.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, config.ErrConfiguration) {
			usage()
		}
		os.Exit(1)
	}

	if err := log.InitLogger(cfg.Log.Level, cfg.Log.Development); err != nil {
		fmt.Fprintln(os.Stderr, "init logger:", err)
		os.Exit(1)
	}
	defer log.Logger.Sync()

	log.Logger.Info("starting relay",
		zap.String("version", version.String()),
		zap.Int("port", cfg.Port),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		sig := <-sigCh
		log.Logger.Info("received shutdown signal", zap.Stringer("signal", sig))
		cancel()
	}()

	if err := node.NewServer(cfg).Run(ctx); err != nil {
		log.Logger.Error("server stopped with error", zap.Error(err))
		log.Logger.Sync()
		os.Exit(1)
	}
}

// loadConfig merges the optional config file with the positional port and
// validates the result before any socket is opened.
func loadConfig(path, portArg string) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.LoadWithDefaults(path); err != nil {
			return nil, err
		}
	}

	port, err := config.ParsePort(portArg)
	if err != nil {
		return nil, err
	}
	cfg.Port = port

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
