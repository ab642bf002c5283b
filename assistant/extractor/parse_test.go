package extractor

import (
	"errors"
	"testing"

	contractx "github.com/tanpawarit/gram-sahayak/assistant/contract"
)

func TestParseProfile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		reply     string
		want      contractx.ProfileFields
		wantError error
	}{
		{
			name:  "plain json",
			reply: `{"name":"Ramesh Patil","area":"2.5"}`,
			want:  contractx.ProfileFields{Name: "Ramesh Patil", Area: "2.5"},
		},
		{
			name:  "prose around fragment",
			reply: "Here is the data you asked for:\n{\"name\": \"Sita Jadhav\", \"area\": \"1.20 Hectare\"}\nLet me know if anything else is needed.",
			want:  contractx.ProfileFields{Name: "Sita Jadhav", Area: "1.20 Hectare"},
		},
		{
			name:  "fenced block",
			reply: "```json\n{\"name\": \"Ganesh More\", \"area\": \"0.81\"}\n```",
			want:  contractx.ProfileFields{Name: "Ganesh More", Area: "0.81"},
		},
		{
			name:  "numeric area",
			reply: `{"name":"Ramesh Patil","area":2.50}`,
			want:  contractx.ProfileFields{Name: "Ramesh Patil", Area: "2.50"},
		},
		{
			name:  "devanagari values",
			reply: `{"name":"रमेश पाटील","area":"२.५ हे."}`,
			want:  contractx.ProfileFields{Name: "रमेश पाटील", Area: "२.५ हे."},
		},
		{
			name:      "missing area",
			reply:     `{"name":"Ramesh Patil"}`,
			wantError: contractx.ErrSchemaViolation,
		},
		{
			name:      "empty name",
			reply:     `{"name":"  ","area":"2"}`,
			wantError: contractx.ErrSchemaViolation,
		},
		{
			name:      "placeholder echo",
			reply:     `{"name": "...", "area": "..."}`,
			wantError: contractx.ErrSchemaViolation,
		},
		{
			name:      "numeric name",
			reply:     `{"name":42,"area":"2"}`,
			wantError: contractx.ErrSchemaViolation,
		},
		{
			name:      "no object",
			reply:     "I could not read the document.",
			wantError: contractx.ErrSchemaViolation,
		},
		{
			name:      "broken fragment",
			reply:     `result: {"name": "Ramesh", "area": }`,
			wantError: contractx.ErrSchemaViolation,
		},
		{
			name:      "empty",
			reply:     "   ",
			wantError: contractx.ErrSchemaViolation,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseProfile(tt.reply)
			if tt.wantError != nil {
				if !errors.Is(err, tt.wantError) {
					t.Fatalf("expected %v, got %v (fields=%+v)", tt.wantError, err, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseProfile() error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("ParseProfile() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
