package ui

import (
	"sync"
	"time"

	"github.com/segmentio/ksuid"
	"go.uber.org/zap"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Toast is a transient notification. Transaction toasts carry the full hash,
// its shortened form and an explorer link.
type Toast struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message,omitempty"`
	TxHash    string    `json:"tx_hash,omitempty"`
	ShortHash string    `json:"short_hash,omitempty"`
	URL       string    `json:"url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Notifier interface {
	Success(msg string)
	Error(msg string)
	Transaction(hash string)
}

func newToast(level Level, msg string) Toast {
	return Toast{
		ID:        ksuid.New().String(),
		Level:     level,
		Message:   msg,
		CreatedAt: time.Now(),
	}
}

func txToast(explorerPrefix, hash string) Toast {
	t := newToast(LevelSuccess, "")
	t.TxHash = hash
	t.ShortHash = DisplayableHash(hash)
	t.URL = ExplorerURL(explorerPrefix, hash)
	return t
}

// LogNotifier reports toasts through the logger. Used by the CLI.
type LogNotifier struct {
	logger         *zap.Logger
	explorerPrefix string
}

func NewLogNotifier(logger *zap.Logger, explorerPrefix string) *LogNotifier {
	return &LogNotifier{logger: logger, explorerPrefix: explorerPrefix}
}

func (n *LogNotifier) Success(msg string) {
	n.logger.Info(msg)
}

func (n *LogNotifier) Error(msg string) {
	n.logger.Error(msg)
}

func (n *LogNotifier) Transaction(hash string) {
	n.logger.Info("Transaction submitted",
		zap.String("tx", DisplayableHash(hash)),
		zap.String("url", ExplorerURL(n.explorerPrefix, hash)))
}

// Queue collects toasts for a browser session until they are drained. The
// oldest toasts are dropped once limit is reached.
type Queue struct {
	mu             sync.Mutex
	toasts         []Toast
	limit          int
	explorerPrefix string
}

func NewQueue(explorerPrefix string, limit int) *Queue {
	if limit <= 0 {
		limit = 8
	}
	return &Queue{explorerPrefix: explorerPrefix, limit: limit}
}

func (q *Queue) Success(msg string) {
	q.push(newToast(LevelSuccess, msg))
}

func (q *Queue) Error(msg string) {
	q.push(newToast(LevelError, msg))
}

func (q *Queue) Transaction(hash string) {
	q.push(txToast(q.explorerPrefix, hash))
}

func (q *Queue) push(t Toast) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.toasts = append(q.toasts, t)
	if over := len(q.toasts) - q.limit; over > 0 {
		q.toasts = q.toasts[over:]
	}
}

// Drain returns the pending toasts and clears the queue.
func (q *Queue) Drain() []Toast {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.toasts
	q.toasts = nil
	return out
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.toasts)
}
