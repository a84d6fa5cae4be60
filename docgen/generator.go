// Package docgen simulates a multi-agent documentation generator. A run
// validates a GitHub URL, reports a fixed sequence of agent steps with
// randomised pacing and finishes with a canned Markdown document.
package docgen

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/gemfashion/storefront/core"
)

// RepositoryPrefix is the only accepted repository URL prefix
const RepositoryPrefix = "https://github.com/"

// InvalidURLMessage is the user-facing text for a rejected URL
const InvalidURLMessage = "Invalid URL. Please provide a valid public GitHub repository URL."

// Delays paces a run
type Delays struct {
	InvalidURL time.Duration // before an invalid URL is rejected
	StepMin    time.Duration // minimum pause before each step
	StepJitter time.Duration // random extra pause, [0, StepJitter)
	Finalize   time.Duration // after the last step, before the result
}

// DefaultDelays returns the production pacing
func DefaultDelays() Delays {
	return Delays{
		InvalidURL: 500 * time.Millisecond,
		StepMin:    700 * time.Millisecond,
		StepJitter: 500 * time.Millisecond,
		Finalize:   time.Second,
	}
}

// Scale multiplies every delay by f
func (d Delays) Scale(f float64) Delays {
	s := func(v time.Duration) time.Duration { return time.Duration(float64(v) * f) }
	return Delays{InvalidURL: s(d.InvalidURL), StepMin: s(d.StepMin), StepJitter: s(d.StepJitter), Finalize: s(d.Finalize)}
}

// Event reports one completed step
type Event struct {
	Index int  `json:"index"`
	Total int  `json:"total"`
	Step  Step `json:"step"`
}

// Result is the generated documentation
type Result struct {
	Markdown string `json:"markdown"`
}

// Generator runs simulated documentation jobs
type Generator struct {
	delays    Delays
	logger    core.Logger
	telemetry core.Telemetry

	mu  sync.Mutex
	rnd *rand.Rand
}

// Option configures a Generator
type Option func(*Generator)

// WithDelays overrides the pacing
func WithDelays(d Delays) Option {
	return func(g *Generator) { g.delays = d }
}

// WithSeed makes the step pacing reproducible
func WithSeed(seed int64) Option {
	return func(g *Generator) { g.rnd = rand.New(rand.NewSource(seed)) }
}

// WithLogger sets the logger
func WithLogger(logger core.Logger) Option {
	return func(g *Generator) { g.logger = core.ForComponent(logger, "storefront/docgen") }
}

// WithTelemetry sets telemetry for run spans
func WithTelemetry(t core.Telemetry) Option {
	return func(g *Generator) {
		if t != nil {
			g.telemetry = t
		}
	}
}

// NewGenerator creates a generator with production pacing
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		delays:    DefaultDelays(),
		logger:    &core.NoOpLogger{},
		telemetry: &core.NoOpTelemetry{},
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) stepDelay() time.Duration {
	if g.delays.StepJitter <= 0 {
		return g.delays.StepMin
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.delays.StepMin + time.Duration(g.rnd.Int63n(int64(g.delays.StepJitter)))
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Generate runs the pipeline for url, calling emit after each step. An
// invalid URL fails with ErrInvalidRepositoryURL after the InvalidURL delay.
// Cancelling ctx aborts the run.
func (g *Generator) Generate(ctx context.Context, url string, emit func(Event)) (*Result, error) {
	ctx, span := g.telemetry.StartSpan(ctx, "docgen.generate")
	defer span.End()
	span.SetAttribute("docgen.url", url)

	if emit == nil {
		emit = func(Event) {}
	}

	if !strings.HasPrefix(url, RepositoryPrefix) {
		if err := sleep(ctx, g.delays.InvalidURL); err != nil {
			return nil, err
		}
		err := core.ValidationError("docgen.Generate", InvalidURLMessage, core.ErrInvalidRepositoryURL)
		span.RecordError(err)
		g.logger.InfoWithContext(ctx, "Rejected repository URL", map[string]interface{}{
			"url": url,
		})
		return nil, err
	}

	start := time.Now()
	steps := Steps()
	for i, step := range steps {
		if err := sleep(ctx, g.stepDelay()); err != nil {
			span.RecordError(err)
			return nil, err
		}
		emit(Event{Index: i, Total: len(steps), Step: step})
	}
	if err := sleep(ctx, g.delays.Finalize); err != nil {
		span.RecordError(err)
		return nil, err
	}

	g.telemetry.RecordMetric("storefront.docgen.run.duration_ms", float64(time.Since(start).Milliseconds()), nil)
	g.logger.InfoWithContext(ctx, "Documentation generated", map[string]interface{}{
		"url":         url,
		"steps":       len(steps),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return &Result{Markdown: Markdown}, nil
}
