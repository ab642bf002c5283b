package nodes

import (
	"fmt"

	contractx "github.com/tanpawarit/gram-sahayak/assistant/contract"
	"github.com/tanpawarit/gram-sahayak/assistant/eligibility"
	"github.com/tanpawarit/gram-sahayak/assistant/locale"
	statex "github.com/tanpawarit/gram-sahayak/assistant/state"
)

func FinalizeView(in *GraphState, catalog *eligibility.Catalog, locales *locale.Bundle) (Outcome, error) {
	if in == nil || in.Session == nil {
		return Outcome{}, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	view := BuildView(in.Session, catalog, locales)
	view.Spoken = append([]string(nil), in.Spoken...)
	return Outcome{View: view, Submission: in.Submission}, nil
}

// BuildView projects a session for rendering. It never mutates st.
func BuildView(st *statex.Session, catalog *eligibility.Catalog, locales *locale.Bundle) View {
	view := View{
		SessionID:  st.ID,
		Locale:     st.Locale,
		Step:       st.Step,
		StepName:   st.Step.String(),
		Transcript: append([]statex.Entry(nil), st.Transcript...),
		Profile:    st.Profile,
		Selected:   st.Selected,
		NoMatch:    st.NoMatch,
		Submitted:  st.Submitted(),
	}
	if st.Loan != nil {
		l := *st.Loan
		view.Loan = &l
	}
	for _, id := range st.Eligible {
		if s, ok := catalog.Lookup(id); ok {
			view.Eligible = append(view.Eligible, s)
		}
	}
	if st.Notice != nil {
		view.Notice = &ViewNotice{
			Level:   st.Notice.Level,
			Key:     st.Notice.Key,
			Message: locales.T(st.Locale, st.Notice.Key, "area", st.Profile.LandHolding),
			Detail:  st.Notice.Detail,
		}
	}
	return view
}
