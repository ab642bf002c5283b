package nodes

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/gram-sahayak/assistant/contract"
	"github.com/tanpawarit/gram-sahayak/assistant/eligibility"
	"github.com/tanpawarit/gram-sahayak/assistant/locale"
	statex "github.com/tanpawarit/gram-sahayak/assistant/state"
)

// SettleStep runs the per-step side effects that every round re-evaluates.
// Each one is gated by a one-shot flag, so settling the same step again is a
// no-op. ShowEligibility advances on its own, hence the loop.
func SettleStep(in *GraphState, catalog *eligibility.Catalog, locales *locale.Bundle) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	for i, n := 0, len(stepEvents); i < n; i++ {
		before := in.Session.Step
		if err := settleOnce(in, catalog, locales); err != nil {
			return nil, err
		}
		if in.Session.Step == before {
			break
		}
	}
	return in, nil
}

func settleOnce(in *GraphState, catalog *eligibility.Catalog, locales *locale.Bundle) error {
	st := in.Session

	switch st.Step {
	case statex.StepScanDocument:
		if st.MarkOnce(statex.FlagScanIntroSpoken) {
			in.speak(locales.T(st.Locale, "scan_intro"))
		}

	case statex.StepVerifyExtraction:
		if st.MarkOnce(statex.FlagVerificationSpoken) {
			msg := locales.T(st.Locale, "verify", "name", st.Profile.Name, "area", st.Profile.LandHolding)
			st.Say(msg)
			in.speak(msg)
		}

	case statex.StepShowEligibility:
		return settleEligibility(in, catalog, locales)

	case statex.StepPreviewAndSubmit:
		if st.MarkOnce(statex.FlagPreviewSpoken) {
			in.speak(locales.T(st.Locale, "preview"))
		}
	}
	return nil
}

func settleEligibility(in *GraphState, catalog *eligibility.Catalog, locales *locale.Bundle) error {
	st := in.Session
	matches := catalog.Evaluate(st.Profile.Eligibility())

	ids := make([]eligibility.SchemeID, 0, len(matches))
	for _, s := range matches {
		ids = append(ids, s.ID)
	}
	st.SetEligible(ids)

	if len(matches) == 0 {
		msg := locales.T(st.Locale, NoticeNoMatch, "area", st.Profile.LandHolding)
		if st.MarkOnce(statex.FlagSchemesListed) {
			st.Say(msg)
			in.speak(msg)
		}
		st.SetNotice(statex.NoticeInfo, NoticeNoMatch, "")
		return nil
	}

	if st.MarkOnce(statex.FlagSchemesListed) {
		msg := locales.T(st.Locale, "eligible", "area", st.Profile.LandHolding)
		st.Say(schemeListing(msg, matches))
		in.speak(msg)
	}
	return st.Advance(statex.StepPreviewAndSubmit, in.Now)
}

// schemeListing renders the announcement as markdown with one bullet per scheme.
func schemeListing(msg string, schemes []eligibility.Scheme) string {
	var b strings.Builder
	b.WriteString("**")
	b.WriteString(msg)
	b.WriteString("**\n")
	for _, s := range schemes {
		b.WriteString("\n- ")
		b.WriteString(s.Name)
	}
	return b.String()
}
