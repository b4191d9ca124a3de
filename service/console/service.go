package console

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
)

const transcriptPrefix = "spotto-setup-"

// NewService opens a fresh transcript file in dir, named with the start
// timestamp, and tees all console output into it.
func NewService(dir string) (*service, error) {
	path := filepath.Join(dir, transcriptPrefix+time.Now().Format("20060102-150405")+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript %s: %w", path, err)
	}

	return &service{
		out:        io.MultiWriter(os.Stdout, f),
		screen:     os.Stdout,
		transcript: f,
		path:       path,
	}, nil
}

func (s *service) Printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

func (s *service) Infof(format string, args ...any) {
	fmt.Fprintf(s.out, " %s\n", text.FgHiCyan.Sprintf(format, args...))
}

func (s *service) Successf(format string, args ...any) {
	fmt.Fprintf(s.out, " %s %s\n", text.FgHiGreen.Sprint("✔"), text.FgGreen.Sprintf(format, args...))
}

func (s *service) Warnf(format string, args ...any) {
	fmt.Fprintf(s.out, " %s %s\n", text.FgHiYellow.Sprint("⚠"), text.FgYellow.Sprintf(format, args...))
}

func (s *service) Errorf(format string, args ...any) {
	fmt.Fprintf(s.out, " %s %s\n", text.FgHiRed.Sprint("✖"), text.FgRed.Sprintf(format, args...))
}

func (s *service) Writer() io.Writer {
	return s.out
}

// Screen bypasses the transcript; secret values are only ever printed here.
func (s *service) Screen() io.Writer {
	return s.screen
}

// Path returns the transcript file location for the final summary
func (s *service) Path() string {
	return s.path
}

func (s *service) Close() error {
	return s.transcript.Close()
}
