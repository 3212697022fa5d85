// Package cli is a small interactive client for a broadcast relay.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fzft/go-relay/log"
	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"
	"go.uber.org/zap"
)

var (
	KeepAliveInterval  = 15 * time.Second
	DialTimeout        = 5 * time.Second
	HistoryFileEnv     = "RELAYCLI_HISTFILE"
	HistoryFileDefault = ".relaycli_history"
)

const DefaultHost = "127.0.0.1"

type Config struct {
	Host        string
	Port        int
	Prompt      string // derived from Host and Port when empty
	HistoryFile string // empty disables persistent history
}

// RelayCli sends lines typed (or piped) on stdin to a relay and prints
// everything the relay sends back.
type RelayCli struct {
	cfg    *Config
	out    io.Writer
	errOut io.Writer

	mu   sync.Mutex
	conn *net.TCPConn
}

func New(cfg *Config, out, errOut io.Writer) *RelayCli {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Prompt == "" {
		cfg.Prompt = fmt.Sprintf("relay://%s> ", net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)))
	}
	return &RelayCli{cfg: cfg, out: out, errOut: errOut}
}

// Connect dials the relay. Calling it again replaces the current connection.
func (cli *RelayCli) Connect() error {
	addr := net.JoinHostPort(cli.cfg.Host, strconv.Itoa(cli.cfg.Port))
	c, err := net.DialTimeout("tcp", addr, DialTimeout)
	if err != nil {
		return fmt.Errorf("could not connect to relay at %s: %w", addr, err)
	}
	conn := c.(*net.TCPConn)
	if err := conn.SetKeepAlive(true); err != nil {
		fmt.Fprintf(cli.errOut, "Failed to set SO_KEEPALIVE: %s\n", err)
	} else {
		_ = conn.SetKeepAlivePeriod(KeepAliveInterval)
	}

	cli.mu.Lock()
	old := cli.conn
	cli.conn = conn
	cli.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}

	log.Logger.Debug("connected", zap.String("addr", addr), zap.Stringer("local", conn.LocalAddr()))
	return nil
}

func (cli *RelayCli) Close() error {
	cli.mu.Lock()
	defer cli.mu.Unlock()
	if cli.conn == nil {
		return nil
	}
	err := cli.conn.Close()
	cli.conn = nil
	return err
}

func (cli *RelayCli) current() (*net.TCPConn, error) {
	cli.mu.Lock()
	defer cli.mu.Unlock()
	if cli.conn == nil {
		return nil, errors.New("not connected")
	}
	return cli.conn, nil
}

// Run picks the mode from stdin: a prompt with history for a terminal,
// a plain pipe otherwise.
func (cli *RelayCli) Run(ctx context.Context, in *os.File) error {
	if isatty.IsTerminal(in.Fd()) || isatty.IsCygwinTerminal(in.Fd()) {
		return cli.Interactive(ctx)
	}
	return cli.Pipe(ctx, in)
}

// Pipe streams in to the relay while printing what comes back. Once in is
// exhausted the write side is shut down; the relay answers by closing the
// connection, which ends Pipe. Pipe does not wait for a read of in that
// is still blocked when the connection ends.
func (cli *RelayCli) Pipe(ctx context.Context, in io.Reader) error {
	conn, err := cli.current()
	if err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	sent := make(chan error, 1)
	go func() {
		if _, err := io.Copy(conn, in); err != nil {
			sent <- fmt.Errorf("send: %w", err)
			_ = conn.Close()
			return
		}
		sent <- conn.CloseWrite()
	}()

	err = cli.receive(conn)
	if ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return err
	}
	select {
	case err = <-sent:
		return err
	default:
		return nil
	}
}

// Interactive runs the prompt until quit, EOF or Ctrl-C, or until the relay
// hangs up.
func (cli *RelayCli) Interactive(ctx context.Context) error {
	conn, err := cli.current()
	if err != nil {
		return err
	}

	line := newLineEditor()
	defer line.Close()
	if cli.cfg.HistoryFile != "" {
		if err := line.HistoryLoad(cli.cfg.HistoryFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(cli.errOut, "Failed to load history: %s\n", err)
		}
	}

	received := make(chan error, 1)
	go func() { received <- cli.receive(conn) }()
	// liner cannot be interrupted mid-prompt, so a hangup only ends the
	// session once the caller exits.
	typed := make(chan error, 1)
	go func() { typed <- cli.repl(line) }()

	select {
	case err = <-typed:
	case err = <-received:
		if err == nil {
			fmt.Fprintln(cli.errOut, "connection closed by relay")
		}
	case <-ctx.Done():
	}
	_ = cli.Close()
	return err
}

func (cli *RelayCli) repl(line *lineEditor) error {
	for {
		text, err := line.Prompt(cli.cfg.Prompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		switch strings.ToLower(strings.TrimSpace(text)) {
		case "":
			continue
		case "quit", "exit":
			return nil
		case "clear":
			_ = line.ClearScreen(cli.out)
			continue
		}

		line.AppendHistory(text)
		if cli.cfg.HistoryFile != "" {
			if err := line.HistorySave(cli.cfg.HistoryFile); err != nil {
				log.Logger.Debug("history save failed", zap.Error(err))
			}
		}
		if err := cli.Send(text); err != nil {
			return err
		}
	}
}

// Send writes text to the relay as one line.
func (cli *RelayCli) Send(text string) error {
	conn, err := cli.current()
	if err != nil {
		return err
	}
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	if _, err := io.WriteString(conn, text); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

// receive copies relay output to cli.out until the relay closes the
// connection or it is closed locally.
func (cli *RelayCli) receive(conn net.Conn) error {
	_, err := io.Copy(cli.out, conn)
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// HistoryPath resolves the history file: envOverride wins, "/dev/null"
// disables history, otherwise dotFilename in $HOME.
func HistoryPath(envOverride, dotFilename string) string {
	if path := os.Getenv(envOverride); path != "" {
		if path == "/dev/null" {
			return ""
		}
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, dotFilename)
}
