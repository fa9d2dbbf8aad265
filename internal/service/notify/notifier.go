package notify

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Level distinguishes success toasts from error toasts.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notifier surfaces transient, user-facing outcomes of dashboard actions.
type Notifier interface {
	Success(message string)
	Error(message string)
}

// Notification is one transient message.
type Notification struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// LogNotifier writes notifications to a zap logger.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier wires a logging notifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Success(message string) {
	n.logger.Info("notification", zap.String("level", string(LevelSuccess)), zap.String("message", message))
}

func (n *LogNotifier) Error(message string) {
	n.logger.Warn("notification", zap.String("level", string(LevelError)), zap.String("message", message))
}

// Feed keeps the most recent notifications until a reader drains them.
type Feed struct {
	mu    sync.Mutex
	items []Notification
	limit int
	now   func() time.Time
}

// NewFeed creates a feed retaining at most limit undrained notifications.
func NewFeed(limit int) *Feed {
	if limit <= 0 {
		limit = 50
	}
	return &Feed{limit: limit, now: time.Now}
}

func (f *Feed) Success(message string) { f.push(LevelSuccess, message) }

func (f *Feed) Error(message string) { f.push(LevelError, message) }

func (f *Feed) push(level Level, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.items = append(f.items, Notification{Level: level, Message: message, At: f.now()})
	if over := len(f.items) - f.limit; over > 0 {
		f.items = append([]Notification(nil), f.items[over:]...)
	}
}

// Drain returns pending notifications oldest first and clears the feed.
func (f *Feed) Drain() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := f.items
	f.items = nil
	if out == nil {
		out = []Notification{}
	}
	return out
}

// Multi fans notifications out to several notifiers.
type Multi []Notifier

func (m Multi) Success(message string) {
	for _, n := range m {
		n.Success(message)
	}
}

func (m Multi) Error(message string) {
	for _, n := range m {
		n.Error(message)
	}
}
