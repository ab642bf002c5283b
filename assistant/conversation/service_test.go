package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	contractx "github.com/tanpawarit/gram-sahayak/assistant/contract"
	"github.com/tanpawarit/gram-sahayak/assistant/eligibility"
	"github.com/tanpawarit/gram-sahayak/assistant/locale"
	nodex "github.com/tanpawarit/gram-sahayak/assistant/nodes"
	statex "github.com/tanpawarit/gram-sahayak/assistant/state"
)

func countEntries(transcript []statex.Entry, substr string) int {
	n := 0
	for _, e := range transcript {
		if strings.Contains(e.Text, substr) {
			n++
		}
	}
	return n
}

func schemeIDs(schemes []eligibility.Scheme) []eligibility.SchemeID {
	out := make([]eligibility.SchemeID, 0, len(schemes))
	for _, s := range schemes {
		out = append(out, s.ID)
	}
	return out
}

func TestHappyPathWritesOneRow(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeExtractor{replies: []string{`{"name":"Ramesh Patil","area":"2.5"}`}}, Config{})

	view := h.send(t, nodex.Event{Kind: nodex.EventStart})
	if view.Step != statex.StepCaptureAmount {
		t.Fatalf("expected capture_amount, got %s", view.Step)
	}

	view = h.send(t, nodex.Event{Kind: nodex.EventUtterance, Text: "I need a loan of 5 Lakh rupees."})
	if view.Step != statex.StepScanDocument {
		t.Fatalf("expected scan_document, got %s", view.Step)
	}
	if view.Loan == nil || view.Loan.Amount != 500000 || view.Loan.Display != "₹ 5,00,000" {
		t.Fatalf("unexpected loan: %+v", view.Loan)
	}

	view = h.send(t, extractEvent(t))
	if view.Step != statex.StepVerifyExtraction {
		t.Fatalf("expected verify_extraction, got %s", view.Step)
	}
	if view.Profile.Name != "Ramesh Patil" || view.Profile.Hectares != 2.5 {
		t.Fatalf("unexpected profile: %+v", view.Profile)
	}
	if h.ext.reqs[0].MIMEType != "image/png" || h.ext.reqs[0].Directive == "" {
		t.Fatalf("unexpected extract request: %+v", h.ext.reqs[0])
	}

	view = h.send(t, nodex.Event{Kind: nodex.EventConfirm})
	if view.Step != statex.StepPreviewAndSubmit {
		t.Fatalf("expected preview_and_submit, got %s", view.Step)
	}
	got := schemeIDs(view.Eligible)
	want := []eligibility.SchemeID{"kcc", "pmfby", "aif"}
	if len(got) != len(want) {
		t.Fatalf("eligible = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("eligible = %v, want %v", got, want)
		}
	}
	if view.Selected != "kcc" {
		t.Fatalf("expected default selection kcc, got %s", view.Selected)
	}

	view = h.send(t, nodex.Event{Kind: nodex.EventSelect, Scheme: "aif"})
	if view.Selected != "aif" || view.Step != statex.StepPreviewAndSubmit {
		t.Fatalf("select changed more than the selection: %+v", view)
	}

	if _, err := h.svc.Application(context.Background(), "s-1", false); err != nil {
		t.Fatalf("preview Application() error = %v", err)
	}
	if _, err := h.svc.Application(context.Background(), "s-1", true); !errors.Is(err, contractx.ErrNotReady) {
		t.Fatalf("expected ErrNotReady before submit, got %v", err)
	}

	view = h.send(t, nodex.Event{Kind: nodex.EventSubmit})
	if !view.Submitted {
		t.Fatal("expected submitted view")
	}
	view = h.send(t, nodex.Event{Kind: nodex.EventSubmit})

	if len(h.log.rows) != 1 {
		t.Fatalf("expected exactly one row, got %d", len(h.log.rows))
	}
	row := h.log.rows[0]
	if row.Name != "Ramesh Patil" || row.Area != "2.5" || row.Amount != "₹ 5,00,000" || row.Scheme != "Agriculture Infrastructure Fund (AIF)" {
		t.Fatalf("unexpected row: %+v", row)
	}
	if !row.Timestamp.Equal(testNow) {
		t.Fatalf("unexpected timestamp: %s", row.Timestamp)
	}
	if len(h.notifier.sent) != 1 {
		t.Fatalf("expected one confirmation, got %d", len(h.notifier.sent))
	}
	if countEntries(view.Transcript, "submitted successfully") != 1 {
		t.Fatalf("expected one success entry, transcript=%v", view.Transcript)
	}

	doc, err := h.svc.Application(context.Background(), "s-1", true)
	if err != nil {
		t.Fatalf("download Application() error = %v", err)
	}
	if !strings.HasPrefix(string(doc), "%PDF") {
		t.Fatalf("unexpected document %q", doc)
	}
	last := h.renderer.apps[len(h.renderer.apps)-1]
	if last.SchemeName != "Agriculture Infrastructure Fund (AIF)" || last.Amount != "₹ 5,00,000" || last.Area != "2.5" {
		t.Fatalf("unexpected rendered application: %+v", last)
	}

	spokenOnce := []string{"Welcome!", "I heard you need", "upload your 7/12", "analyzing", "Analysis Complete", "Congratulations!", "created your application", "submitted successfully"}
	for _, s := range spokenOnce {
		n := 0
		for _, text := range h.speaker.spoken {
			if strings.Contains(text, s) {
				n++
			}
		}
		if n != 1 {
			t.Fatalf("expected %q to be spoken once, got %d (spoken=%v)", s, n, h.speaker.spoken)
		}
	}
}

func TestExtractionWithSurroundingProse(t *testing.T) {
	t.Parallel()

	reply := "Sure! I read the document carefully.\n```json\n{\"name\": \"Ramesh Patil\", \"area\": \"2.5\"}\n```\nThe area looks like irrigated land."
	h := newHarness(t, &fakeExtractor{replies: []string{reply}}, Config{})
	h.toScan(t)

	view := h.send(t, extractEvent(t))
	if view.Step != statex.StepVerifyExtraction {
		t.Fatalf("expected verify_extraction, got %s (notice=%+v)", view.Step, view.Notice)
	}
	if view.Profile.Name != "Ramesh Patil" || view.Profile.LandHolding != "2.5" {
		t.Fatalf("unexpected profile: %+v", view.Profile)
	}
}

func TestNoMatchStopsAtEligibility(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeExtractor{replies: []string{`{"name":"Small Holder","area":"0.1"}`}}, Config{})
	h.toScan(t)
	h.send(t, extractEvent(t))

	view := h.send(t, nodex.Event{Kind: nodex.EventConfirm})
	if view.Step != statex.StepShowEligibility {
		t.Fatalf("expected show_eligibility, got %s", view.Step)
	}
	if !view.NoMatch || len(view.Eligible) != 0 || view.Selected != "" {
		t.Fatalf("expected empty result, got %+v", view)
	}
	if view.Notice == nil || view.Notice.Key != nodex.NoticeNoMatch || view.Notice.Level != statex.NoticeInfo {
		t.Fatalf("expected no_match notice, got %+v", view.Notice)
	}

	for i := 0; i < 3; i++ {
		view = h.send(t, nodex.Event{Kind: nodex.EventRefresh})
	}
	if view.Step != statex.StepShowEligibility {
		t.Fatalf("refresh must not advance, got %s", view.Step)
	}
	if n := countEntries(view.Transcript, "do not match any scheme"); n != 1 {
		t.Fatalf("expected one no-match entry, got %d", n)
	}

	_, err := h.svc.HandleEvent(context.Background(), "s-1", nodex.Event{Kind: nodex.EventSubmit})
	if !errors.Is(err, contractx.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if _, err := h.svc.Application(context.Background(), "s-1", false); !errors.Is(err, contractx.ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
	if len(h.log.rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(h.log.rows))
	}
}

func TestSchemeListingAppendedOnce(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeExtractor{replies: []string{`{"name":"Ramesh Patil","area":"2.5"}`}}, Config{})
	h.toScan(t)
	h.send(t, extractEvent(t))
	h.send(t, nodex.Event{Kind: nodex.EventConfirm})

	var view nodex.View
	for i := 0; i < 3; i++ {
		view = h.send(t, nodex.Event{Kind: nodex.EventRefresh})
	}
	if n := countEntries(view.Transcript, "Congratulations!"); n != 1 {
		t.Fatalf("expected one listing entry, got %d", n)
	}
	listing := view.Transcript[len(view.Transcript)-1].Text
	for _, name := range []string{"- Kisan Credit Card (KCC)", "- Pradhan Mantri Fasal Bima Yojana (PMFBY)", "- Agriculture Infrastructure Fund (AIF)"} {
		if !strings.Contains(listing, name) {
			t.Fatalf("listing missing %q: %s", name, listing)
		}
	}
	if strings.Contains(listing, "SMAM") {
		t.Fatalf("listing must not contain SMAM: %s", listing)
	}
}

func TestRejectClearsExtractedValues(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeExtractor{replies: []string{
		`{"name":"Wrong Name","area":"9"}`,
		`{"name":"Ramesh Patil","area":"2.5"}`,
	}}, Config{})
	h.toScan(t)
	h.send(t, extractEvent(t))

	view := h.send(t, nodex.Event{Kind: nodex.EventReject})
	if view.Step != statex.StepScanDocument {
		t.Fatalf("expected scan_document, got %s", view.Step)
	}
	if view.Profile.Name != "" || view.Profile.LandHolding != "" || view.Profile.Hectares != 0 {
		t.Fatalf("expected cleared profile, got %+v", view.Profile)
	}
	if h.stored(t).HasFlag(statex.FlagVerificationSpoken) {
		t.Fatal("expected verification flag cleared")
	}

	view = h.send(t, extractEvent(t))
	if view.Profile.Name != "Ramesh Patil" || view.Profile.Hectares != 2.5 {
		t.Fatalf("stale values after retry: %+v", view.Profile)
	}
	if n := countEntries(view.Transcript, "Name: Ramesh Patil"); n != 1 {
		t.Fatalf("expected fresh verification entry, got %d", n)
	}
}

func TestInvalidTransitionLeavesSessionUntouched(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeExtractor{}, Config{})

	_, err := h.svc.HandleEvent(context.Background(), "s-1", nodex.Event{Kind: nodex.EventUtterance, Text: "5 lakh"})
	if !errors.Is(err, contractx.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if _, err := h.store.Load(context.Background(), "s-1"); !errors.Is(err, statex.ErrStateNotFound) {
		t.Fatalf("rejected round must not create a session, got %v", err)
	}

	h.toScan(t)
	before := h.stored(t)

	for _, ev := range []nodex.Event{
		{Kind: nodex.EventConfirm},
		{Kind: nodex.EventStart},
		{Kind: nodex.EventSubmit},
		{Kind: nodex.EventSelect, Scheme: "kcc"},
	} {
		_, err := h.svc.HandleEvent(context.Background(), "s-1", ev)
		if !errors.Is(err, contractx.ErrInvalidTransition) {
			t.Fatalf("%s: expected ErrInvalidTransition, got %v", ev.Kind, err)
		}
	}

	after := h.stored(t)
	if after.Step != before.Step || len(after.Transcript) != len(before.Transcript) || !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Fatalf("session changed: before=%+v after=%+v", before, after)
	}
}

func TestLocaleChangeResetsSession(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeExtractor{}, Config{})
	h.toScan(t)

	view := h.send(t, nodex.Event{Kind: nodex.EventLocale, Locale: "en"})
	if view.Step != statex.StepScanDocument {
		t.Fatalf("same locale must keep the session, got %s", view.Step)
	}

	view = h.send(t, nodex.Event{Kind: nodex.EventLocale, Locale: "hi"})
	if view.Step != statex.StepWelcome || view.Locale != "hi" || len(view.Transcript) != 0 || view.Loan != nil {
		t.Fatalf("expected fresh hindi session, got %+v", view)
	}

	view = h.send(t, nodex.Event{Kind: nodex.EventStart})
	if want := locale.Default().T("hi", "greeting"); view.Transcript[0].Text != want {
		t.Fatalf("expected hindi greeting, got %q", view.Transcript[0].Text)
	}

	_, err := h.svc.HandleEvent(context.Background(), "s-1", nodex.Event{Kind: nodex.EventLocale, Locale: "fr"})
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation for unsupported locale, got %v", err)
	}
}

func TestResetReturnsToWelcome(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeExtractor{}, Config{DefaultLocale: "mr"})
	h.toScan(t)

	view := h.send(t, nodex.Event{Kind: nodex.EventReset})
	if view.Step != statex.StepWelcome || view.Locale != "mr" || len(view.Transcript) != 0 {
		t.Fatalf("unexpected view after reset: %+v", view)
	}
}

func TestExtractionFailureKeepsScanStep(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeExtractor{err: errors.New("upstream unavailable")}, Config{})
	h.toScan(t)

	view := h.send(t, extractEvent(t))
	if view.Step != statex.StepScanDocument {
		t.Fatalf("expected scan_document, got %s", view.Step)
	}
	if view.Notice == nil || view.Notice.Key != nodex.NoticeExtractFailed || view.Notice.Level != statex.NoticeError {
		t.Fatalf("expected extraction notice, got %+v", view.Notice)
	}
	if view.Notice.Message == "" || view.Notice.Message == nodex.NoticeExtractFailed {
		t.Fatalf("expected translated notice, got %q", view.Notice.Message)
	}

	view = h.send(t, nodex.Event{Kind: nodex.EventRefresh})
	if view.Notice != nil {
		t.Fatalf("notice must not outlive its round, got %+v", view.Notice)
	}
}

func TestSchemaViolationIsRecoverable(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeExtractor{replies: []string{`{"name":"Ramesh Patil"}`, `{"name":"Ramesh Patil","area":"2.5"}`}}, Config{})
	h.toScan(t)

	view := h.send(t, extractEvent(t))
	if view.Step != statex.StepScanDocument || view.Notice == nil {
		t.Fatalf("expected recoverable failure, got %+v", view)
	}
	view = h.send(t, extractEvent(t))
	if view.Step != statex.StepVerifyExtraction {
		t.Fatalf("expected retry to succeed, got %s", view.Step)
	}
}

func TestUnsupportedUploadIsRecoverable(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeExtractor{}, Config{})
	h.toScan(t)

	view := h.send(t, nodex.Event{Kind: nodex.EventExtract, Image: []byte("%PDF-1.4")})
	if view.Notice == nil || view.Notice.Key != nodex.NoticeBadImage {
		t.Fatalf("expected bad image notice, got %+v", view.Notice)
	}
	if h.ext.calls != 0 {
		t.Fatalf("extractor must not be called for a bad upload, calls=%d", h.ext.calls)
	}
}

func TestExtractTimeout(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeExtractor{block: true}, Config{ExtractTimeout: 20 * time.Millisecond})
	h.toScan(t)

	view := h.send(t, extractEvent(t))
	if view.Step != statex.StepScanDocument || view.Notice == nil || view.Notice.Key != nodex.NoticeExtractFailed {
		t.Fatalf("expected timeout notice, got %+v", view)
	}
}

func TestSubmissionFailureKeepsState(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeExtractor{replies: []string{`{"name":"Ramesh Patil","area":"2.5"}`}}, Config{})
	h.toScan(t)
	h.send(t, extractEvent(t))
	h.send(t, nodex.Event{Kind: nodex.EventConfirm})

	h.log.err = errors.New("disk full")
	view := h.send(t, nodex.Event{Kind: nodex.EventSubmit})
	if view.Submitted || view.Notice == nil || view.Notice.Key != nodex.NoticeSubmitFailed {
		t.Fatalf("expected failed submission notice, got %+v", view)
	}
	if len(h.notifier.sent) != 0 {
		t.Fatal("no confirmation may be sent for a failed submission")
	}

	h.log.err = nil
	view = h.send(t, nodex.Event{Kind: nodex.EventSubmit})
	if !view.Submitted || len(h.log.rows) != 1 {
		t.Fatalf("expected retry to submit once, submitted=%v rows=%d", view.Submitted, len(h.log.rows))
	}

	_, err := h.svc.HandleEvent(context.Background(), "s-1", nodex.Event{Kind: nodex.EventSelect, Scheme: "pmfby"})
	if !errors.Is(err, contractx.ErrInvalidTransition) {
		t.Fatalf("expected selection to be locked after submit, got %v", err)
	}
}

func TestSelectRejectsIneligibleScheme(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeExtractor{replies: []string{`{"name":"Ramesh Patil","area":"2.5"}`}}, Config{})
	h.toScan(t)
	h.send(t, extractEvent(t))
	h.send(t, nodex.Event{Kind: nodex.EventConfirm})

	_, err := h.svc.HandleEvent(context.Background(), "s-1", nodex.Event{Kind: nodex.EventSelect, Scheme: "smam"})
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if h.stored(t).Selected != "kcc" {
		t.Fatalf("selection changed after rejected select: %s", h.stored(t).Selected)
	}
}

func TestRenderFailureIsRecoverable(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeExtractor{replies: []string{`{"name":"Ramesh Patil","area":"2.5"}`}}, Config{})
	h.toScan(t)
	h.send(t, extractEvent(t))
	h.send(t, nodex.Event{Kind: nodex.EventConfirm})

	h.renderer.err = errors.New("font missing")
	if _, err := h.svc.Application(context.Background(), "s-1", false); !errors.Is(err, contractx.ErrRender) {
		t.Fatalf("expected ErrRender, got %v", err)
	}
	if h.stored(t).Step != statex.StepPreviewAndSubmit {
		t.Fatal("render failure must not change the session")
	}
}

func TestHandleEventValidation(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeExtractor{}, Config{})

	if _, err := h.svc.HandleEvent(context.Background(), " ", nodex.Event{Kind: nodex.EventStart}); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
	if _, err := h.svc.HandleEvent(context.Background(), "s-1", nodex.Event{Kind: "dance"}); !errors.Is(err, ErrUnknownEvent) {
		t.Fatalf("expected ErrUnknownEvent, got %v", err)
	}
	if _, err := h.svc.HandleEvent(context.Background(), "s-1", nodex.Event{Kind: nodex.EventUtterance, Text: "  "}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if _, err := h.svc.HandleEvent(context.Background(), "s-1", nodex.Event{Kind: nodex.EventExtract}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation for missing image, got %v", err)
	}
}

func TestConcurrentRoundsOnOneSession(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeExtractor{}, Config{})
	h.send(t, nodex.Event{Kind: nodex.EventStart})

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.svc.HandleEvent(context.Background(), "s-1", nodex.Event{Kind: nodex.EventRefresh}); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent refresh error = %v", err)
	}
	if n := countEntries(h.stored(t).Transcript, "Welcome!"); n != 1 {
		t.Fatalf("expected one greeting, got %d", n)
	}
	if h.svc.locks.size() != 0 {
		t.Fatalf("expected lock table to drain, got %d", h.svc.locks.size())
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	t.Parallel()

	store := statex.NewMemoryStore()
	if _, err := New(nil, &fakeExtractor{}, &fakeLog{}, &fakeRenderer{}, Config{Directive: "d"}); err == nil {
		t.Fatal("expected error for nil store")
	}
	if _, err := New(store, &fakeExtractor{}, &fakeLog{}, &fakeRenderer{}, Config{}); !errors.Is(err, contractx.ErrPromptMissing) {
		t.Fatalf("expected ErrPromptMissing, got %v", err)
	}
}

func TestCustomCatalog(t *testing.T) {
	t.Parallel()

	catalog, err := eligibility.NewCatalog([]eligibility.Scheme{
		{ID: "micro", Name: "Micro Irrigation Fund", MinHectares: 0.05, Occupations: []string{"Farmer"}},
	})
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}

	h := newHarness(t, &fakeExtractor{replies: []string{`{"name":"Small Holder","area":"0.1"}`}}, Config{}, WithCatalog(catalog))
	h.toScan(t)
	h.send(t, extractEvent(t))

	view := h.send(t, nodex.Event{Kind: nodex.EventConfirm})
	if view.Step != statex.StepPreviewAndSubmit || view.Selected != "micro" {
		t.Fatalf("expected the custom scheme, got %+v", view)
	}
	h.send(t, nodex.Event{Kind: nodex.EventSubmit})
	if len(h.log.rows) != 1 || h.log.rows[0].Scheme != "Micro Irrigation Fund" {
		t.Fatalf("unexpected rows: %+v", h.log.rows)
	}
}
