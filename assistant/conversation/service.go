package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/gram-sahayak/assistant/contract"
	"github.com/tanpawarit/gram-sahayak/assistant/eligibility"
	"github.com/tanpawarit/gram-sahayak/assistant/locale"
	nodex "github.com/tanpawarit/gram-sahayak/assistant/nodes"
	statex "github.com/tanpawarit/gram-sahayak/assistant/state"
)

var (
	ErrInvalidSession = nodex.ErrInvalidSession
	ErrUnknownEvent   = nodex.ErrUnknownEvent
)

const ApplicationFileName = "Application.pdf"

type Config struct {
	DefaultLocale  string
	Directive      string
	ExtractTimeout time.Duration
}

type Option func(*Service)

func WithSpeaker(sp contractx.Speaker) Option {
	return func(s *Service) {
		if sp != nil {
			s.speaker = sp
		}
	}
}

func WithNotifier(n contractx.Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

func WithCatalog(c *eligibility.Catalog) Option {
	return func(s *Service) {
		if c != nil {
			s.deps.Catalog = c
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service runs guided application rounds. Rounds for the same session are
// serialized; different sessions run concurrently.
type Service struct {
	store    statex.Store
	renderer contractx.ApplicationRenderer
	speaker  contractx.Speaker
	notifier contractx.Notifier
	deps     nodex.Collaborators

	defaultLocale string
	locks         *keyedMutex

	graphRunner compose.Runnable[nodex.GraphInput, nodex.Outcome]

	now func() time.Time
}

func New(
	store statex.Store,
	extractor contractx.ProfileExtractor,
	submissions contractx.SubmissionLog,
	renderer contractx.ApplicationRenderer,
	cfg Config,
	opts ...Option,
) (*Service, error) {
	if store == nil {
		return nil, errors.New("state store is required")
	}
	if extractor == nil {
		return nil, errors.New("profile extractor is required")
	}
	if submissions == nil {
		return nil, errors.New("submission log is required")
	}
	if renderer == nil {
		return nil, errors.New("application renderer is required")
	}

	s := &Service{
		store:    store,
		renderer: renderer,
		speaker:  noopSpeaker{},
		notifier: noopNotifier{},
		deps: nodex.Collaborators{
			Catalog:        eligibility.Default(),
			Locales:        locale.Default(),
			Extractor:      extractor,
			SubmissionLog:  submissions,
			Directive:      strings.TrimSpace(cfg.Directive),
			ExtractTimeout: cfg.ExtractTimeout,
		},
		locks: newKeyedMutex(),
		now:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.deps.Directive == "" {
		return nil, fmt.Errorf("%w: extraction directive", contractx.ErrPromptMissing)
	}

	s.defaultLocale = s.deps.Locales.Resolve(cfg.DefaultLocale)

	graphRunner, err := s.compileRoundGraph(context.Background())
	if err != nil {
		return nil, err
	}
	s.graphRunner = graphRunner
	return s, nil
}

func (s *Service) Locales() *locale.Bundle { return s.deps.Locales }

func (s *Service) Catalog() *eligibility.Catalog { return s.deps.Catalog }

func (s *Service) DefaultLocale() string { return s.defaultLocale }

// HandleEvent runs one interaction round for sessionID and returns the view
// to render. Prompts are voiced and the confirmation is published only after
// the round has been saved.
func (s *Service) HandleEvent(ctx context.Context, sessionID string, ev nodex.Event) (nodex.View, error) {
	key := strings.TrimSpace(sessionID)
	unlock := s.locks.Lock(key)
	defer unlock()

	logger := log.With().Str("session_id", key).Str("event", string(ev.Kind)).Logger()

	out, err := s.graphRunner.Invoke(ctx, nodex.GraphInput{SessionID: key, Event: ev})
	if err != nil {
		logger.Debug().Err(err).Msg("round rejected")
		return nodex.View{}, err
	}
	logger.Debug().Str("step", out.View.StepName).Msg("round complete")

	for _, text := range out.View.Spoken {
		if err := s.speaker.Speak(ctx, out.View.Locale, text); err != nil {
			logger.Warn().Err(err).Msg("speak prompt")
		}
	}
	if out.Submission != nil {
		if err := s.notifier.Notify(ctx, *out.Submission); err != nil {
			logger.Warn().Err(err).Msg("submission confirmation not sent")
		}
	}
	return out.View, nil
}

// View returns the current view without running a round.
func (s *Service) View(ctx context.Context, sessionID string) (nodex.View, error) {
	st, err := s.store.Load(ctx, strings.TrimSpace(sessionID))
	if err != nil {
		return nodex.View{}, err
	}
	return nodex.BuildView(st, s.deps.Catalog, s.deps.Locales), nil
}

// Application renders the PDF for the current selection. A preview is
// available once schemes are shown; download requires a submitted application.
func (s *Service) Application(ctx context.Context, sessionID string, download bool) ([]byte, error) {
	key := strings.TrimSpace(sessionID)
	if key == "" {
		return nil, ErrInvalidSession
	}

	st, err := s.store.Load(ctx, key)
	if err != nil {
		if errors.Is(err, statex.ErrStateNotFound) {
			return nil, fmt.Errorf("%w: no session", contractx.ErrNotReady)
		}
		return nil, err
	}
	if st.Step != statex.StepPreviewAndSubmit {
		return nil, fmt.Errorf("%w: session is in %s", contractx.ErrNotReady, st.Step)
	}
	if download && !st.Submitted() {
		return nil, contractx.ErrNotReady
	}

	scheme, ok := s.deps.Catalog.Lookup(st.Selected)
	if !ok {
		return nil, fmt.Errorf("%w: selected scheme %q", contractx.ErrValidation, st.Selected)
	}

	doc, err := s.renderer.Render(ctx, contractx.Application{
		Name:       st.Profile.Name,
		Area:       st.Profile.LandHolding,
		Amount:     st.Loan.Display,
		SchemeName: scheme.Name,
		Date:       s.now(),
	})
	if err != nil {
		if errors.Is(err, contractx.ErrRender) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", contractx.ErrRender, err)
	}
	return doc, nil
}

type noopSpeaker struct{}

func (noopSpeaker) Speak(context.Context, string, string) error { return nil }

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, contractx.Submission) error { return nil }
