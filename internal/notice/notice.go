package notice

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindInfo    Kind = "info"
	KindWarning Kind = "warning"
)

// Notice is a short user-visible message (toast).
type Notice struct {
	Kind    Kind      `json:"kind"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

type Notifier interface {
	Notify(n Notice)
}

func Success(msg string) Notice { return Notice{Kind: KindSuccess, Message: msg, At: time.Now()} }
func Info(msg string) Notice    { return Notice{Kind: KindInfo, Message: msg, At: time.Now()} }
func Warning(msg string) Notice { return Notice{Kind: KindWarning, Message: msg, At: time.Now()} }

// Discard drops every notice.
type Discard struct{}

func (Discard) Notify(Notice) {}

// LogNotifier writes notices to a zap logger.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (l *LogNotifier) Notify(n Notice) {
	l.log.Info("notice", zap.String("kind", string(n.Kind)), zap.String("message", n.Message))
}

// Buffer keeps the most recent notices so a UI can poll them.
type Buffer struct {
	mu      sync.Mutex
	size    int
	notices []Notice
	next    Notifier
}

// NewBuffer keeps up to size notices and forwards each one to next, if set.
func NewBuffer(size int, next Notifier) *Buffer {
	if size <= 0 {
		size = 20
	}
	return &Buffer{size: size, next: next}
}

func (b *Buffer) Notify(n Notice) {
	b.mu.Lock()
	b.notices = append(b.notices, n)
	if len(b.notices) > b.size {
		b.notices = b.notices[len(b.notices)-b.size:]
	}
	b.mu.Unlock()

	if b.next != nil {
		b.next.Notify(n)
	}
}

// Drain returns the buffered notices oldest first and empties the buffer.
func (b *Buffer) Drain() []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.notices
	b.notices = nil
	if out == nil {
		return []Notice{}
	}
	return out
}
