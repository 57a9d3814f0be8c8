package logger

import (
	"fmt"
	"io"
	"log"
	"os"
)

// New returns a stdlib-backed logger with component prefix. Third-party
// libraries that expect a Printf-style logger (robfig/cron) get one of these.
func New(component string) *log.Logger {
	return NewWithWriter(os.Stdout, component)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, component string) *log.Logger {
	prefix := fmt.Sprintf("[%s] ", component)
	return log.New(w, prefix, log.LstdFlags|log.Lmsgprefix)
}
