package submission

import (
	"context"

	contractx "github.com/tanpawarit/gram-sahayak/assistant/contract"
	qstashx "github.com/tanpawarit/gram-sahayak/pkg/qstash"
)

type confirmation struct {
	Event     string `json:"event"`
	SessionID string `json:"session_id,omitempty"`
	Name      string `json:"name"`
	Scheme    string `json:"scheme"`
	Amount    string `json:"amount"`
	Timestamp string `json:"timestamp"`
}

// QStashNotifier publishes a confirmation for each submission so a webhook
// can text the farmer.
type QStashNotifier struct {
	client *qstashx.Client
}

var _ contractx.Notifier = (*QStashNotifier)(nil)

func NewQStashNotifier(client *qstashx.Client) *QStashNotifier {
	return &QStashNotifier{client: client}
}

func (n *QStashNotifier) Notify(ctx context.Context, sub contractx.Submission) error {
	_, err := n.client.Publish(ctx, "", confirmation{
		Event:     "application.submitted",
		SessionID: sub.SessionID,
		Name:      sub.Name,
		Scheme:    sub.Scheme,
		Amount:    sub.Amount,
		Timestamp: sub.Timestamp.UTC().Format(TimestampLayout),
	})
	return err
}
