package console

import "io"

type service struct {
	out        io.Writer
	screen     io.Writer
	transcript io.WriteCloser
	path       string
}

// ConsoleService writes operator-visible output. Everything printed through
// it lands on stdout and in the append-only transcript file for the run,
// except what goes to Screen, which stays off the transcript.
type ConsoleService interface {
	Printf(format string, args ...any)
	Infof(format string, args ...any)
	Successf(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Writer() io.Writer
	Screen() io.Writer
	Close() error
}
