package editor

import (
	"sync"

	"github.com/jonathan/resume-builder/internal/types"
	"github.com/sirupsen/logrus"
)

// Renderer turns the document into preview markup.
type Renderer interface {
	Render(doc *types.ResumeDocument) (string, error)
}

// RenderFunc adapts a plain function to the Renderer interface.
type RenderFunc func(doc *types.ResumeDocument) (string, error)

// Render calls f(doc).
func (f RenderFunc) Render(doc *types.ResumeDocument) (string, error) {
	return f(doc)
}

// Snapshot is the observable state after a mutation.
type Snapshot struct {
	Revision   uint64 `json:"revision"`
	Completion int    `json:"completion"`
	Markup     string `json:"markup,omitempty"`
}

// Session is the single owner of the resume document. Every mutation and the
// re-render that follows it run under one lock, so a reader never observes a
// partially updated entry.
type Session struct {
	mu       sync.Mutex
	doc      *types.ResumeDocument
	ids      map[Kind][]string
	renderer Renderer
	logger   *logrus.Logger

	revision   uint64
	markup     string
	renderErr  error
	completion int

	subscribers map[chan Snapshot]struct{}
}

// NewSession creates a session around doc and renders it once.
// A nil doc starts from the seed document.
func NewSession(doc *types.ResumeDocument, renderer Renderer, logger *logrus.Logger) *Session {
	if doc == nil {
		doc = types.SeedDocument()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	s := &Session{
		doc:         doc.Clone(),
		renderer:    renderer,
		logger:      logger,
		subscribers: make(map[chan Snapshot]struct{}),
	}
	s.ids = newIdentities(s.doc)

	s.mu.Lock()
	s.refreshLocked()
	s.mu.Unlock()
	return s
}

// Document returns a deep copy of the current document.
func (s *Session) Document() *types.ResumeDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// Snapshot returns the latest render state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Markup returns the latest rendered markup and the error of the last render, if any.
func (s *Session) Markup() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markup, s.renderErr
}

// Subscribe registers for snapshots published after each mutation. Slow
// subscribers only see the newest snapshot. The returned func unsubscribes.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, ch)
			s.mu.Unlock()
		})
	}
}

// mutate applies fn to the document and re-renders. fn must leave the document
// unchanged when it returns an error.
func (s *Session) mutate(fn func(doc *types.ResumeDocument) error) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(s.doc); err != nil {
		return s.snapshotLocked(), err
	}
	s.refreshLocked()
	return s.snapshotLocked(), nil
}

// refreshLocked re-renders, recomputes completion and notifies subscribers.
func (s *Session) refreshLocked() {
	s.revision++
	s.completion = Completion(s.doc)

	if s.renderer != nil {
		markup, err := s.renderer.Render(s.doc)
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"revision": s.revision,
				"template": s.doc.Template,
			}).WithError(err).Error("Render failed, keeping previous preview")
			s.renderErr = err
		} else {
			s.markup = markup
			s.renderErr = nil
		}
	}

	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		publish(ch, snap)
	}
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		Revision:   s.revision,
		Completion: s.completion,
		Markup:     s.markup,
	}
}

// publish delivers snap, replacing an undelivered older snapshot.
func publish(ch chan Snapshot, snap Snapshot) {
	select {
	case ch <- snap:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}
