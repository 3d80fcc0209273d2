package logpipe

import (
	"sync"
	"time"

	"github.com/dshaw/letl-go/domain"
)

// dedupWindow is how long an identical message from the same logger is
// suppressed after it was last emitted.
const dedupWindow = 10 * time.Second

// dedupCapacity is how many distinct messages per logger retain a
// last-emitted timestamp before the oldest entry is evicted.
const dedupCapacity = 30

// Producer is a domain.Logger that enqueues onto a Pipeline, throttling and
// deduplicating messages before they ever reach the channel so that a
// runaway job can't flood the Log Store.
type Producer struct {
	name     string
	minLevel domain.Level
	pipeline *Pipeline

	mu       sync.Mutex
	lastSeen map[string]time.Time
	order    []string // insertion order, for capacity eviction
}

// NewProducer returns a logger named name that forwards records at or
// above minLevel to pipeline.
func NewProducer(name string, minLevel domain.Level, pipeline *Pipeline) *Producer {
	return &Producer{
		name:     name,
		minLevel: minLevel,
		pipeline: pipeline,
		lastSeen: make(map[string]time.Time),
	}
}

func (p *Producer) Name() string { return p.name }

func (p *Producer) Debug(msg string) { p.emit(domain.LevelDebug, msg) }
func (p *Producer) Info(msg string)  { p.emit(domain.LevelInfo, msg) }
func (p *Producer) Error(msg string) { p.emit(domain.LevelError, msg) }

func (p *Producer) Exception(err error) {
	if err == nil {
		return
	}
	p.emit(domain.LevelError, domain.ParseError(err).Text())
}

func (p *Producer) emit(level domain.Level, msg string) {
	if level < p.minLevel {
		return
	}
	if p.throttled(msg) {
		return
	}
	p.pipeline.enqueue(domain.LogRecord{
		LoggerName: p.name,
		Level:      level,
		Message:    msg,
		Timestamp:  time.Now(),
	})
}

// throttled reports whether msg was already emitted by this logger within
// dedupWindow, and records the emission otherwise.
func (p *Producer) throttled(msg string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	if last, ok := p.lastSeen[msg]; ok && now.Sub(last) < dedupWindow {
		return true
	}

	if _, existed := p.lastSeen[msg]; !existed {
		p.order = append(p.order, msg)
		if len(p.order) > dedupCapacity {
			oldest := p.order[0]
			p.order = p.order[1:]
			delete(p.lastSeen, oldest)
		}
	}
	p.lastSeen[msg] = now
	return false
}
