package assist

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jonathan/resume-builder/internal/editor"
	"github.com/jonathan/resume-builder/internal/types"
	"github.com/sirupsen/logrus"
)

// Request parameters sent with every completion
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 300
)

// Store is the document session as seen by the controller.
type Store interface {
	Document() *types.ResumeDocument
	SetField(field, value string) (editor.Snapshot, error)
	UpdateEntryByID(kind editor.Kind, id, field, value string) (editor.Snapshot, error)
}

// Controller runs one generation at a time against a Store.
type Controller struct {
	store     Store
	completer Completer
	view      View
	fallback  *Fallback
	logger    *logrus.Logger

	temperature float64
	maxTokens   int

	mu          sync.Mutex
	state       State
	lastOutcome State
}

// Option configures a Controller.
type Option func(*Controller)

// WithView sets the presentation surface.
func WithView(v View) Option {
	return func(c *Controller) { c.view = v }
}

// WithFallback sets the offline generator.
func WithFallback(f *Fallback) Option {
	return func(c *Controller) { c.fallback = f }
}

// WithLogger sets the logger.
func WithLogger(l *logrus.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithSampling overrides temperature and token budget.
func WithSampling(temperature float64, maxTokens int) Option {
	return func(c *Controller) {
		c.temperature = temperature
		c.maxTokens = maxTokens
	}
}

// NewController creates a controller. A nil completer always falls back.
func NewController(store Store, completer Completer, opts ...Option) *Controller {
	c := &Controller{
		store:       store,
		completer:   completer,
		view:        nopView{},
		temperature: DefaultTemperature,
		maxTokens:   DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.fallback == nil {
		c.fallback = NewFallback(nil)
	}
	if c.logger == nil {
		c.logger = logrus.StandardLogger()
	}
	return c
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastOutcome returns Success or Fallback for the last finished generation,
// or Idle if none has finished.
func (c *Controller) LastOutcome() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastOutcome
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
	if s == StateSuccess || s == StateFallback {
		c.lastOutcome = s
	}
}

// Generate writes AI or offline text into target. Completion failures never
// surface as errors: they switch to the offline generator and post a notice.
// Only ErrBusy, ErrInvalidTarget and store failures are returned.
func (c *Controller) Generate(ctx context.Context, target Target, tone, keywords string) (Result, error) {
	if err := target.Validate(); err != nil {
		return Result{}, err
	}

	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return Result{}, ErrBusy
	}
	c.state = StateRequesting
	c.mu.Unlock()

	c.view.Open(target)
	c.view.SetBusy(true, BusyLabel)
	defer func() {
		c.view.SetBusy(false, IdleLabel)
		c.setState(StateIdle)
	}()

	doc := c.store.Document()
	log := c.logger.WithFields(logrus.Fields{
		"target": target.Kind,
		"tone":   tone,
	})

	result := Result{Source: SourceAI}
	text, err := c.complete(ctx, target.Kind, doc.Title, tone, keywords)
	if err == nil {
		text = Clean(text)
		if text == "" {
			err = errors.New("completion was empty")
		}
	}
	if err != nil {
		log.WithError(err).Warn("Completion failed, using offline suggestion")
		text = c.fallback.Generate(tone, keywords, doc)
		result.Source = SourceFallback
		c.view.Notify(FallbackNotice)
		c.setState(StateFallback)
	} else {
		c.setState(StateSuccess)
	}
	result.Text = text

	snap, applied, err := c.write(target, text)
	if err != nil {
		return result, err
	}
	result.Applied = applied
	result.Revision = snap.Revision
	if !applied {
		log.WithField("entry_id", target.ID).Info("Target entry removed, dropping generated text")
	}

	c.view.Dismiss()
	return result, nil
}

// complete builds the prompt and calls the completer, converting panics to errors.
func (c *Controller) complete(ctx context.Context, kind Kind, title, tone, keywords string) (text string, err error) {
	if c.completer == nil {
		return "", errors.New("no completer configured")
	}

	prompt, err := BuildPrompt(kind, title, tone, keywords)
	if err != nil {
		return "", err
	}

	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("completer panicked: %v", r)
		}
	}()
	return c.completer.Complete(ctx, prompt, c.temperature, c.maxTokens)
}

// write stores text in the target field. A removed experience entry is a no-op.
func (c *Controller) write(target Target, text string) (editor.Snapshot, bool, error) {
	if target.Kind == KindSummary {
		snap, err := c.store.SetField("summary", text)
		if err != nil {
			return snap, false, fmt.Errorf("failed to write summary: %w", err)
		}
		return snap, true, nil
	}

	snap, err := c.store.UpdateEntryByID(editor.KindExperience, target.ID, "desc", text)
	if errors.Is(err, editor.ErrEntryNotFound) {
		return snap, false, nil
	}
	if err != nil {
		return snap, false, fmt.Errorf("failed to write experience description: %w", err)
	}
	return snap, true, nil
}
