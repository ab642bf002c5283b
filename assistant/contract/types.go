package contract

import "time"

type ExtractRequest struct {
	Image     []byte `json:"-"`
	MIMEType  string `json:"mime_type"`
	Directive string `json:"directive"`
}

// ProfileFields is the validated shape of an extraction reply.
type ProfileFields struct {
	Name string `json:"name"`
	Area string `json:"area"`
}

type Application struct {
	Name       string
	Area       string
	Amount     string
	SchemeName string
	Date       time.Time
}

type Submission struct {
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id,omitempty"`
	Name      string    `json:"name"`
	Area      string    `json:"area"`
	Scheme    string    `json:"scheme"`
	Amount    string    `json:"amount"`
}
