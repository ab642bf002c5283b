package conversation

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"sync"
	"testing"
	"time"

	contractx "github.com/tanpawarit/gram-sahayak/assistant/contract"
	"github.com/tanpawarit/gram-sahayak/assistant/extractor"
	nodex "github.com/tanpawarit/gram-sahayak/assistant/nodes"
	statex "github.com/tanpawarit/gram-sahayak/assistant/state"
)

var testNow = time.Date(2026, 3, 7, 9, 0, 0, 0, time.UTC)

// fakeExtractor parses reply the same way the real backends do.
type fakeExtractor struct {
	mu      sync.Mutex
	replies []string
	err     error
	block   bool
	calls   int
	reqs    []contractx.ExtractRequest
}

func (f *fakeExtractor) Extract(ctx context.Context, req contractx.ExtractRequest) (contractx.ProfileFields, error) {
	f.mu.Lock()
	f.calls++
	f.reqs = append(f.reqs, req)
	idx := f.calls - 1
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return contractx.ProfileFields{}, ctx.Err()
	}
	if f.err != nil {
		return contractx.ProfileFields{}, f.err
	}
	if idx >= len(f.replies) {
		return contractx.ProfileFields{}, errors.New("no fake reply left")
	}
	return extractor.ParseProfile(f.replies[idx])
}

type fakeLog struct {
	mu   sync.Mutex
	rows []contractx.Submission
	err  error
}

func (f *fakeLog) Append(ctx context.Context, sub contractx.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, sub)
	return nil
}

type fakeRenderer struct {
	apps []contractx.Application
	err  error
}

func (f *fakeRenderer) Render(ctx context.Context, app contractx.Application) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.apps = append(f.apps, app)
	return []byte("%PDF-1.3 fake"), nil
}

type fakeSpeaker struct {
	mu     sync.Mutex
	spoken []string
}

func (f *fakeSpeaker) Speak(ctx context.Context, locale, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spoken = append(f.spoken, text)
	return nil
}

type fakeNotifier struct {
	sent []contractx.Submission
	err  error
}

func (f *fakeNotifier) Notify(ctx context.Context, sub contractx.Submission) error {
	f.sent = append(f.sent, sub)
	return f.err
}

type harness struct {
	svc      *Service
	store    *statex.MemoryStore
	ext      *fakeExtractor
	log      *fakeLog
	renderer *fakeRenderer
	speaker  *fakeSpeaker
	notifier *fakeNotifier
}

func newHarness(t *testing.T, ext *fakeExtractor, cfg Config, opts ...Option) *harness {
	t.Helper()
	if cfg.Directive == "" {
		cfg.Directive = "Extract from this 7/12 document"
	}
	if cfg.DefaultLocale == "" {
		cfg.DefaultLocale = "en"
	}
	h := &harness{
		store:    statex.NewMemoryStore(),
		ext:      ext,
		log:      &fakeLog{},
		renderer: &fakeRenderer{},
		speaker:  &fakeSpeaker{},
		notifier: &fakeNotifier{},
	}
	opts = append([]Option{
		WithSpeaker(h.speaker),
		WithNotifier(h.notifier),
		WithClock(func() time.Time { return testNow }),
	}, opts...)
	svc, err := New(h.store, h.ext, h.log, h.renderer, cfg, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	h.svc = svc
	return h
}

func (h *harness) send(t *testing.T, ev nodex.Event) nodex.View {
	t.Helper()
	view, err := h.svc.HandleEvent(context.Background(), "s-1", ev)
	if err != nil {
		t.Fatalf("HandleEvent(%s) error = %v", ev.Kind, err)
	}
	return view
}

func (h *harness) stored(t *testing.T) *statex.Session {
	t.Helper()
	st, err := h.store.Load(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("store.Load() error = %v", err)
	}
	return st
}

// toScan drives a fresh session to ScanDocument with the five lakh tier.
func (h *harness) toScan(t *testing.T) nodex.View {
	t.Helper()
	h.send(t, nodex.Event{Kind: nodex.EventStart})
	return h.send(t, nodex.Event{Kind: nodex.EventUtterance, Text: "I need a loan of 5 Lakh rupees."})
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func extractEvent(t *testing.T) nodex.Event {
	return nodex.Event{Kind: nodex.EventExtract, Image: pngBytes(t)}
}
