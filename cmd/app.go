package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/gram-sahayak/assistant/contract"
	"github.com/tanpawarit/gram-sahayak/assistant/conversation"
	"github.com/tanpawarit/gram-sahayak/assistant/extractor"
	"github.com/tanpawarit/gram-sahayak/assistant/llm"
	"github.com/tanpawarit/gram-sahayak/assistant/prompt"
	"github.com/tanpawarit/gram-sahayak/assistant/render"
	statex "github.com/tanpawarit/gram-sahayak/assistant/state"
	"github.com/tanpawarit/gram-sahayak/assistant/submission"
	configx "github.com/tanpawarit/gram-sahayak/pkg/config"
	qstashx "github.com/tanpawarit/gram-sahayak/pkg/qstash"
)

type AppConfig struct {
	HTTPAddr              string        `envconfig:"HTTP_ADDR" default:":8080"`
	SecureCookie          bool          `envconfig:"SECURE_COOKIE" default:"false"`
	ExtractorBackend      string        `envconfig:"EXTRACTOR_BACKEND" default:"eino"`
	ExtractTimeout        time.Duration `envconfig:"EXTRACT_TIMEOUT" default:"90s"`
	SubmissionBackend     string        `envconfig:"SUBMISSION_BACKEND" default:"csv"`
	SubmissionCSVPath     string        `envconfig:"SUBMISSION_CSV_PATH" default:"gram_sahayak_db.csv"`
	SubmissionPostgresDSN string        `envconfig:"SUBMISSION_POSTGRES_DSN"`
	SessionTTL            time.Duration `envconfig:"SESSION_TTL" default:"2h"`
	DefaultLocale         string        `envconfig:"DEFAULT_LOCALE" default:"mr"`
}

// app is the wired runtime shared by serve and chat.
type app struct {
	cfg   *AppConfig
	store *statex.MemoryStore
	svc   *conversation.Service
	log   submission.Log
}

// newApp loads configuration and wires every collaborator. Missing
// OpenRouter credentials are reported as ErrConfig before any session exists.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := configx.New[AppConfig]("")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrConfig, err)
	}
	llmCfg, err := configx.New[llm.Config]("OPENROUTER")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrConfig, err)
	}

	prompts := prompt.LoadPromptSet()
	if err := prompts.Validate(); err != nil {
		return nil, err
	}

	ext, err := extractor.New(ctx, cfg.ExtractorBackend, *llmCfg, prompts.Extract)
	if err != nil {
		return nil, err
	}

	subLog, err := submission.Open(ctx, cfg.SubmissionBackend, cfg.SubmissionCSVPath, cfg.SubmissionPostgresDSN)
	if err != nil {
		return nil, err
	}

	store := statex.NewMemoryStore(statex.WithTTL(cfg.SessionTTL))
	svc, err := conversation.New(store, ext, subLog, render.NewPDFRenderer(render.WithAuthor("Gram Sahayak")),
		conversation.Config{
			DefaultLocale:  cfg.DefaultLocale,
			Directive:      prompts.Extract,
			ExtractTimeout: cfg.ExtractTimeout,
		},
		conversation.WithSpeaker(conversation.LogSpeaker{}),
		conversation.WithNotifier(loadNotifier()),
	)
	if err != nil {
		return nil, errors.Join(err, subLog.Close())
	}

	log.Info().
		Str("extractor", cfg.ExtractorBackend).
		Str("submissions", cfg.SubmissionBackend).
		Str("default_locale", svc.DefaultLocale()).
		Msg("gram sahayak ready")

	return &app{cfg: cfg, store: store, svc: svc, log: subLog}, nil
}

// loadNotifier returns nil unless QSTASH_TOKEN and QSTASH_DESTINATION are set.
func loadNotifier() contractx.Notifier {
	cfg, err := configx.New[qstashx.Config]("QSTASH")
	if err != nil {
		log.Warn().Err(err).Msg("qstash config ignored")
		return nil
	}
	if !cfg.Enabled() {
		return nil
	}
	client, err := qstashx.NewClient(*cfg)
	if err != nil {
		log.Warn().Err(err).Msg("qstash notifier disabled")
		return nil
	}
	return submission.NewQStashNotifier(client)
}

// sweep evicts idle sessions until ctx is done.
func (a *app) sweep(ctx context.Context) {
	if a.cfg.SessionTTL <= 0 {
		return
	}
	interval := a.cfg.SessionTTL / 4
	if interval < time.Minute {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.store.Sweep(); n > 0 {
				log.Debug().Int("evicted", n).Msg("idle sessions evicted")
			}
		}
	}
}

func (a *app) Close() error {
	return a.log.Close()
}
