package submit

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/diewo77/go-fatura/i18n"
	"github.com/diewo77/go-fatura/internal/invoice"
	"go.uber.org/zap"
)

var (
	// ErrNoProducts is returned when no row qualifies for submission.
	ErrNoProducts = errors.New("add at least one product")
	// ErrInProgress is returned when the same form is already submitting.
	ErrInProgress = errors.New("submission already in progress")
)

// State is the phase of a form's submission.
type State int

const (
	StateIdle State = iota
	StateCollecting
	StateSubmitting
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCollecting:
		return "collecting"
	case StateSubmitting:
		return "submitting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Outcome labels a finished submission attempt.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeFailed   Outcome = "failed"
	OutcomeRejected Outcome = "rejected"
	OutcomeBusy     Outcome = "busy"
)

// Download is the file handed to the user after a successful submission.
type Download struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Presenter is the user-facing side of a submission.
type Presenter interface {
	ShowLoading()
	HideLoading()
	Alert(msg string)
	Download(d Download) error
}

// Generator turns a multipart body into a PDF document.
type Generator interface {
	Generate(ctx context.Context, body []byte, contentType string) (*Document, error)
}

// Observer receives submission lifecycle events. Started and Stopped
// bracket the wait on the PDF service.
type Observer interface {
	Started()
	Stopped()
	Finished(outcome Outcome, elapsed time.Duration)
}

// Request is one submit of the invoice form.
type Request struct {
	// Key identifies the form instance; concurrent submits with the same
	// non-empty key are refused.
	Key    string
	Lang   string
	Fields url.Values
	Files  []File
	Rows   []invoice.ProductRow
}

// Pipeline runs the collect, encode, send and deliver sequence.
type Pipeline struct {
	gen      Generator
	log      *zap.Logger
	observer Observer
	now      func() time.Time

	mu     sync.Mutex
	states map[string]formState
	retain time.Duration
}

type formState struct {
	state State
	at    time.Time
}

func (s State) terminal() bool { return s == StateSucceeded || s == StateFailed }

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithObserver registers an observer for lifecycle events.
func WithObserver(o Observer) PipelineOption {
	return func(p *Pipeline) { p.observer = o }
}

// WithRetention sets how long a finished submission's state stays
// observable through State.
func WithRetention(d time.Duration) PipelineOption {
	return func(p *Pipeline) {
		if d > 0 {
			p.retain = d
		}
	}
}

// WithClock overrides the clock used for download filenames and state
// retention.
func WithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) { p.now = now }
}

// NewPipeline returns a pipeline sending through gen.
func NewPipeline(gen Generator, log *zap.Logger, opts ...PipelineOption) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Pipeline{
		gen:      gen,
		log:      log.Named("submit"),
		observer: nopObserver{},
		now:      time.Now,
		states:   map[string]formState{},
		retain:   10 * time.Minute,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State reports where the submission for key currently is. A finished
// submission reports StateSucceeded or StateFailed until the next submit of
// the same form or until the retention period passes.
func (p *Pipeline) State(key string) State {
	p.mu.Lock()
	defer p.mu.Unlock()
	fs, ok := p.states[key]
	if !ok || p.expired(fs) {
		return StateIdle
	}
	return fs.state
}

// Filename returns the download name for a document generated at t.
func Filename(t time.Time) string {
	return fmt.Sprintf("invoice_%d.pdf", t.UnixMilli())
}

// Submit runs one submission. Validation and service failures are reported
// through pres.Alert and returned; the loading indicator is always hidden
// once shown.
func (p *Pipeline) Submit(ctx context.Context, req Request, pres Presenter) error {
	start := time.Now()
	if !p.begin(req.Key) {
		p.log.Warn("submission refused, already in progress", zap.String("form_id", req.Key))
		p.observer.Finished(OutcomeBusy, 0)
		pres.Alert(i18n.T(req.Lang, "submit_in_progress"))
		return ErrInProgress
	}
	defer p.end(req.Key)

	p.transition(req.Key, StateCollecting)
	products := Collect(req.Rows)
	if len(products) == 0 {
		p.log.Info("submission rejected, no valid products", zap.Int("rows", len(req.Rows)))
		p.observer.Finished(OutcomeRejected, time.Since(start))
		pres.Alert(i18n.T(req.Lang, "add_at_least_one_product"))
		return ErrNoProducts
	}

	err := p.send(ctx, req, products, pres)
	if err != nil {
		p.transition(req.Key, StateFailed)
		p.log.Error("pdf submission failed", zap.Error(err), zap.Int("products", len(products)))
		p.observer.Finished(OutcomeFailed, time.Since(start))
		pres.Alert(i18n.T(req.Lang, "pdf_generation_failed") + p.errorText(req.Lang, err))
		return err
	}
	p.transition(req.Key, StateSucceeded)
	p.log.Info("pdf delivered", zap.Int("products", len(products)), zap.Duration("elapsed", time.Since(start)))
	p.observer.Finished(OutcomeSuccess, time.Since(start))
	return nil
}

func (p *Pipeline) send(ctx context.Context, req Request, products []Product, pres Presenter) error {
	body, contentType, err := EncodeMultipart(req.Fields, req.Files, products)
	if err != nil {
		return err
	}

	p.transition(req.Key, StateSubmitting)
	p.observer.Started()
	pres.ShowLoading()
	defer func() {
		pres.HideLoading()
		p.observer.Stopped()
	}()

	doc, err := p.gen.Generate(ctx, body, contentType)
	if err != nil {
		return err
	}
	ct := doc.ContentType
	if ct == "" {
		ct = "application/pdf"
	}
	return pres.Download(Download{
		Filename:    Filename(p.now()),
		ContentType: ct,
		Body:        doc.Body,
	})
}

func (p *Pipeline) errorText(lang string, err error) string {
	if errors.Is(err, ErrGeneration) {
		return i18n.T(lang, "pdf_generation_error")
	}
	return err.Error()
}

func (p *Pipeline) begin(key string) bool {
	if key == "" {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for k, fs := range p.states {
		if p.expired(fs) {
			delete(p.states, k)
		}
	}
	if fs, ok := p.states[key]; ok && !fs.state.terminal() && fs.state != StateIdle {
		return false
	}
	p.states[key] = formState{state: StateCollecting, at: p.now()}
	return true
}

// end releases the guard. Terminal states are kept for State; anything else
// goes back to idle.
func (p *Pipeline) end(key string) {
	if key == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if fs, ok := p.states[key]; ok && fs.state.terminal() {
		return
	}
	delete(p.states, key)
}

func (p *Pipeline) transition(key string, s State) {
	if key == "" {
		return
	}
	p.mu.Lock()
	p.states[key] = formState{state: s, at: p.now()}
	p.mu.Unlock()
}

func (p *Pipeline) expired(fs formState) bool {
	return fs.state.terminal() && p.now().Sub(fs.at) > p.retain
}

type nopObserver struct{}

func (nopObserver) Started()                        {}
func (nopObserver) Stopped()                        {}
func (nopObserver) Finished(Outcome, time.Duration) {}
