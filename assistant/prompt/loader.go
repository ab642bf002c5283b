package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/gram-sahayak/assistant/contract"
)

//go:embed template/extract_712.txt
var extractRaw string

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Extract string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Extract: strings.TrimSpace(extractRaw),
	}
}

func (p PromptSet) Validate() error {
	if p.Extract == "" {
		return fmt.Errorf("%w: land record extraction directive", contractx.ErrPromptMissing)
	}
	return nil
}
