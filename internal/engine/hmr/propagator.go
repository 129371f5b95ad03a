package hmr

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"rds/internal/core/errors"
	"rds/internal/engine/graph"
	"rds/internal/shared/observability"
)

// Broadcaster delivers a message to every connected client and reports how
// many received it.
type Broadcaster interface {
	Broadcast(Message) int
}

// URLSource re-runs the transform of a module and returns its fresh
// content-hashed URL.
type URLSource interface {
	HashedURL(ctx context.Context, url string) (string, error)
}

// Propagator turns graph changes into socket messages.
type Propagator struct {
	graph *graph.Graph
	urls  URLSource

	mu       sync.Mutex
	out      Broadcaster
	buffered *Message
	failed   bool
	entryErr bool
}

func NewPropagator(g *graph.Graph, urls URLSource) *Propagator {
	return &Propagator{graph: g, urls: urls}
}

// SetBroadcaster attaches the socket hub. Messages sent before are dropped,
// except errors, which are buffered.
func (p *Propagator) SetBroadcaster(b Broadcaster) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out = b
}

// Changed decides between a granular update and a full reload after url's
// cached output was invalidated, and broadcasts the result.
func (p *Propagator) Changed(ctx context.Context, url string) Message {
	ctx, span := observability.Tracer.Start(ctx, "hmr.Changed")
	defer span.End()

	updates, deadEnd := p.graph.Propagate(url)
	if deadEnd {
		slog.Debug("hmr dead end", "path", url)
		return p.recovered(Reload())
	}

	paths := make([]string, 0, len(updates))
	for _, u := range updates {
		hashed, err := p.urls.HashedURL(ctx, u)
		if err != nil {
			observability.Fail(span, err)
			return p.Fail(err)
		}
		paths = append(paths, hashed)
	}
	if len(paths) == 0 {
		return Message{}
	}
	return p.recovered(Update(paths))
}

// recovered sends msg, or a reload when the last error came from the entry
// module, whose failed load left nothing to hot-update.
func (p *Propagator) recovered(msg Message) Message {
	p.mu.Lock()
	if p.failed && p.entryErr {
		msg = Reload()
	}
	p.failed, p.entryErr = false, false
	p.buffered = nil
	p.mu.Unlock()
	p.send(msg)
	return msg
}

// Fail reports a compile error to the overlay. With no client connected the
// message is kept for the next one.
func (p *Propagator) Fail(err error) Message {
	msg := Error(err)

	entry := p.graph.Entry()
	file := SourceFile(err)

	p.mu.Lock()
	p.failed = true
	p.entryErr = entry != "" && file == entry
	p.mu.Unlock()

	if errors.IsUserFacing(err) {
		slog.Warn("compile error", "file", msg.Error.File, "message", msg.Error.Message)
	} else {
		slog.Error("transform failed", "error", err)
	}

	if p.send(msg) == 0 {
		p.mu.Lock()
		p.buffered = &msg
		p.mu.Unlock()
	}
	return msg
}

// Prune broadcasts the removal of stylesheets.
func (p *Propagator) Prune(urls []string) Message {
	if len(urls) == 0 {
		return Message{}
	}
	msg := Prune(urls)
	p.send(msg)
	return msg
}

// Reload forces every client to reload.
func (p *Propagator) Reload() Message {
	msg := Reload()
	p.send(msg)
	return msg
}

// Update broadcasts an update for already hashed URLs.
func (p *Propagator) Update(paths []string) Message {
	return p.recovered(Update(paths))
}

// Greeting returns the messages for a newly connected client: the handshake
// and any error buffered while nobody was listening.
func (p *Propagator) Greeting() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := []Message{Connected()}
	if p.buffered != nil {
		out = append(out, *p.buffered)
		p.buffered = nil
	}
	for _, m := range out {
		observability.HMRMessagesTotal.WithLabelValues(string(m.Type)).Inc()
	}
	return out
}

// Failing reports whether the overlay currently shows an error.
func (p *Propagator) Failing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failed
}

func (p *Propagator) send(msg Message) int {
	if msg.Type == "" {
		return 0
	}
	p.mu.Lock()
	out := p.out
	p.mu.Unlock()

	observability.HMRMessagesTotal.WithLabelValues(string(msg.Type)).Inc()
	if out == nil {
		return 0
	}
	return out.Broadcast(msg)
}

// SourceFile returns the file a compile error points at, without the
// line and column suffix.
func SourceFile(err error) string {
	file := errors.ToPayload(err).File
	if i := strings.LastIndex(file, ":"); i > 0 && isDigits(file[i+1:]) {
		file = file[:i]
		if j := strings.LastIndex(file, ":"); j > 0 && isDigits(file[j+1:]) {
			file = file[:j]
		}
	}
	return file
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
