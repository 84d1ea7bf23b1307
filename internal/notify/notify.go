// Package notify carries one-line user notices produced by mutations.
package notify

import (
	"errors"
	"strings"
	"sync"
)

// Level is the severity shown to the user.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelError   Level = "error"
)

// Notice is a single user-visible message.
type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Notifier receives notices.
type Notifier interface {
	Notify(n Notice)
}

// messageError is satisfied by errors that carry a user-facing message,
// such as the API client's *APIError.
type messageError interface {
	UserMessage() string
}

// duplicateMarkers identify "already present" conditions reported by the
// backend; they are informational rather than failures.
var duplicateMarkers = []string{"already", "exists", "duplicate"}

// FromError builds the notice for a failed mutation. Duplicate-entry messages
// become info notices; anything else is an error notice. fallback is used
// when the error carries no message of its own.
func FromError(err error, fallback string) Notice {
	msg := fallback
	var me messageError
	if errors.As(err, &me) && strings.TrimSpace(me.UserMessage()) != "" {
		msg = me.UserMessage()
	}
	msg = firstLine(msg)
	if IsDuplicate(err) {
		return Notice{Level: LevelInfo, Message: msg}
	}
	return Notice{Level: LevelError, Message: msg}
}

// IsDuplicate reports whether err describes an entry that is already present.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	text := strings.ToLower(err.Error())
	var me messageError
	if errors.As(err, &me) {
		text = strings.ToLower(me.UserMessage())
	}
	for _, m := range duplicateMarkers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}

// Queue buffers notices until the next response drains them.
type Queue struct {
	mu      sync.Mutex
	notices []Notice
}

// Notify appends n.
func (q *Queue) Notify(n Notice) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.notices = append(q.notices, n)
}

// Drain returns and clears the buffered notices. It never returns nil.
func (q *Queue) Drain() []Notice {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.notices
	q.notices = nil
	if out == nil {
		out = []Notice{}
	}
	return out
}

// Discard is a Notifier that drops everything.
type Discard struct{}

// Notify does nothing.
func (Discard) Notify(Notice) {}
