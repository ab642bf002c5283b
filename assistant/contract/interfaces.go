package contract

import "context"

// ProfileExtractor reads farmer name and land area from a land-record image.
type ProfileExtractor interface {
	Extract(ctx context.Context, req ExtractRequest) (ProfileFields, error)
}

type ApplicationRenderer interface {
	Render(ctx context.Context, app Application) ([]byte, error)
}

// SubmissionLog is an append-only sink for submitted applications.
type SubmissionLog interface {
	Append(ctx context.Context, sub Submission) error
}

type Speaker interface {
	Speak(ctx context.Context, locale string, text string) error
}

type Notifier interface {
	Notify(ctx context.Context, sub Submission) error
}
