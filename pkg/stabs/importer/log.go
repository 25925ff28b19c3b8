package importer

import (
	"fmt"
	"io"
)

// MessageLog is the run's diagnostics sink. Item-level failures are
// appended here and never abort the run; callers inspect the log after
// the fact. A MessageLog is not safe for concurrent use, matching the
// single-threaded import pipeline.
type MessageLog struct {
	messages []string
	echo     io.Writer
}

// NewMessageLog creates an empty message log.
func NewMessageLog() *MessageLog {
	return &MessageLog{}
}

// SetEcho makes every appended message also be written to w, one message
// per line. Pass nil to disable.
func (l *MessageLog) SetEcho(w io.Writer) { l.echo = w }

// AppendMsg records a formatted diagnostic message.
func (l *MessageLog) AppendMsg(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.messages = append(l.messages, msg)
	if l.echo != nil {
		fmt.Fprintln(l.echo, msg)
	}
}

// AppendError records an error with a short context prefix.
func (l *MessageLog) AppendError(context string, err error) {
	l.AppendMsg("%s: %v", context, err)
}

// Messages returns all recorded diagnostics in order.
func (l *MessageLog) Messages() []string { return l.messages }

// Len returns the number of recorded diagnostics.
func (l *MessageLog) Len() int { return len(l.messages) }
