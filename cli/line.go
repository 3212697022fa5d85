package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/peterh/liner"
)

// lineEditor adds file-backed history to a liner prompt.
type lineEditor struct {
	*liner.State
}

// newLineEditor takes over the terminal until Close is called.
func newLineEditor() *lineEditor {
	s := liner.NewLiner()
	s.SetCtrlCAborts(true)
	return &lineEditor{s}
}

func (ln *lineEditor) HistoryLoad(filepath string) error {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return err
	}
	_, err = ln.ReadHistory(bytes.NewReader(content))
	return err
}

func (ln *lineEditor) HistorySave(filepath string) error {
	var buf bytes.Buffer
	if _, err := ln.WriteHistory(&buf); err != nil {
		return err
	}
	return os.WriteFile(filepath, buf.Bytes(), 0600)
}

func (ln *lineEditor) ClearScreen(w io.Writer) error {
	_, err := fmt.Fprint(w, "\x1b[H\x1b[2J")
	return err
}
