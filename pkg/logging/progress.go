package logging

import (
	"sync"

	"github.com/rs/zerolog"
)

// Progress logs the progress of a batch of tasks, emitting one entry every
// modulo completions and always for the final one. Safe for concurrent use.
type Progress struct {
	logger  *zerolog.Logger
	total   int
	message string
	modulo  int

	mu    sync.Mutex
	count int
}

// NewProgress creates a Progress for total tasks that logs the given message
// with done/total counts every modulo completions. A modulo of zero logs
// every completion.
func NewProgress(logger *zerolog.Logger, total int, message string, modulo int) *Progress {
	if logger == nil {
		logger = Default()
	}
	return &Progress{
		logger:  logger,
		total:   total,
		message: message,
		modulo:  modulo,
	}
}

// Done signals that one task finished.
func (p *Progress) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.count++
	if p.modulo <= 1 || p.count%p.modulo == 0 || p.count >= p.total {
		p.logger.Info().Int("done", p.count).Int("total", p.total).Msg(p.message)
	}
}

// Count returns the number of completed tasks.
func (p *Progress) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}
