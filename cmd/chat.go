package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	contractx "github.com/tanpawarit/gram-sahayak/assistant/contract"
	"github.com/tanpawarit/gram-sahayak/assistant/conversation"
	"github.com/tanpawarit/gram-sahayak/assistant/locale"
	nodex "github.com/tanpawarit/gram-sahayak/assistant/nodes"
	statex "github.com/tanpawarit/gram-sahayak/assistant/state"
)

var (
	chatLocale string
	chatOutDir string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Run one guided application in the terminal",
	Long: `Runs the same conversation as the web assistant on stdin/stdout.
Type :reset to start over, :lang <code> to switch language and :quit to leave.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if noColorFlag {
			color.NoColor = true
		}
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		t := &terminal{
			svc:     a.svc,
			locales: a.svc.Locales(),
			in:      bufio.NewReader(cmd.InOrStdin()),
			out:     cmd.OutOrStdout(),
			session: uuid.NewString(),
			outDir:  chatOutDir,
		}
		return t.run(ctx, chatLocale)
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatLocale, "lang", "", "conversation language (en, mr, hi)")
	chatCmd.Flags().StringVar(&chatOutDir, "out", ".", "directory for the downloaded application")
}

var (
	assistantColor = color.New(color.FgGreen)
	userColor      = color.New(color.FgCyan)
	infoColor      = color.New(color.FgYellow)
	errorColor     = color.New(color.FgRed, color.Bold)
	promptColor    = color.New(color.Bold)
)

var errQuit = errors.New("quit")

type terminal struct {
	svc     *conversation.Service
	locales *locale.Bundle
	in      *bufio.Reader
	out     io.Writer
	session string
	outDir  string

	shown int
}

func (t *terminal) run(ctx context.Context, lang string) error {
	view, err := t.send(ctx, nodex.Event{Kind: nodex.EventRefresh})
	if err != nil {
		return err
	}
	if lang != "" && lang != view.Locale {
		if view, err = t.send(ctx, nodex.Event{Kind: nodex.EventLocale, Locale: lang}); err != nil {
			return err
		}
	}

	for {
		ev, err := t.next(ctx, view)
		if errors.Is(err, errQuit) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		next, err := t.send(ctx, ev)
		switch {
		case err == nil:
			view = next
		case errors.Is(err, contractx.ErrInvalidTransition), errors.Is(err, contractx.ErrValidation):
			errorColor.Fprintln(t.out, t.locales.T(view.Locale, "error_transition"), "("+err.Error()+")")
		default:
			return err
		}
	}
}

// send runs one round and prints what changed.
func (t *terminal) send(ctx context.Context, ev nodex.Event) (nodex.View, error) {
	var sp *spinner.Spinner
	if ev.Kind == nodex.EventExtract {
		sp = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
		sp.Suffix = " reading land record"
		sp.Start()
	}
	view, err := t.svc.HandleEvent(ctx, t.session, ev)
	if sp != nil {
		sp.Stop()
	}
	if err != nil {
		return view, err
	}

	if len(view.Transcript) < t.shown {
		t.shown = 0
	}
	for _, e := range view.Transcript[t.shown:] {
		if e.Role == statex.RoleUser {
			userColor.Fprintf(t.out, "you> %s\n", e.Text)
			continue
		}
		assistantColor.Fprintf(t.out, "%s\n", e.Text)
	}
	t.shown = len(view.Transcript)

	if n := view.Notice; n != nil {
		c := infoColor
		if n.Level == statex.NoticeError {
			c = errorColor
		}
		c.Fprintln(t.out, n.Message)
	}
	return view, nil
}

// next reads input until it maps to an event for the current step.
func (t *terminal) next(ctx context.Context, view nodex.View) (nodex.Event, error) {
	lc := view.Locale
	for {
		switch view.Step {
		case statex.StepWelcome:
			promptColor.Fprintf(t.out, "[%s] ", t.locales.T(lc, "start_btn"))
		case statex.StepCaptureAmount:
			promptColor.Fprintf(t.out, "%s\n> ", t.locales.T(lc, "speak_info"))
		case statex.StepScanDocument:
			promptColor.Fprintf(t.out, "%s (path)> ", t.locales.T(lc, "upload_label"))
		case statex.StepVerifyExtraction:
			promptColor.Fprintf(t.out, "%s [y] / %s [n]> ", t.locales.T(lc, "btn_yes"), t.locales.T(lc, "btn_no"))
		case statex.StepShowEligibility:
			promptColor.Fprintf(t.out, "%s [:reset] / [:quit]> ", t.locales.T(lc, "restart_btn"))
		case statex.StepPreviewAndSubmit:
			t.printPreview(view)
		}

		line, err := t.in.ReadString('\n')
		line = strings.TrimSpace(line)
		if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
			return nodex.Event{}, err
		}

		if ev, ok, err := t.command(line); ok || err != nil {
			return ev, err
		}

		ev, ok := t.stepEvent(ctx, view, line)
		if ok {
			return ev, nil
		}
	}
}

func (t *terminal) command(line string) (nodex.Event, bool, error) {
	switch {
	case line == ":quit" || line == ":q":
		return nodex.Event{}, false, errQuit
	case line == ":reset":
		return nodex.Event{Kind: nodex.EventReset}, true, nil
	case strings.HasPrefix(line, ":lang "):
		return nodex.Event{Kind: nodex.EventLocale, Locale: strings.TrimSpace(strings.TrimPrefix(line, ":lang "))}, true, nil
	}
	return nodex.Event{}, false, nil
}

func (t *terminal) stepEvent(ctx context.Context, view nodex.View, line string) (nodex.Event, bool) {
	switch view.Step {
	case statex.StepWelcome:
		return nodex.Event{Kind: nodex.EventStart}, true

	case statex.StepCaptureAmount:
		if line == "" {
			line = t.locales.T(view.Locale, "sample_utterance")
		}
		return nodex.Event{Kind: nodex.EventUtterance, Text: line}, true

	case statex.StepScanDocument:
		if line == "" {
			return nodex.Event{}, false
		}
		data, err := os.ReadFile(line)
		if err != nil {
			errorColor.Fprintln(t.out, err)
			return nodex.Event{}, false
		}
		return nodex.Event{Kind: nodex.EventExtract, Image: data}, true

	case statex.StepVerifyExtraction:
		switch strings.ToLower(line) {
		case "y", "yes":
			return nodex.Event{Kind: nodex.EventConfirm}, true
		case "n", "no":
			return nodex.Event{Kind: nodex.EventReject}, true
		}

	case statex.StepPreviewAndSubmit:
		return t.previewEvent(ctx, view, line)
	}
	return nodex.Event{}, false
}

func (t *terminal) printPreview(view nodex.View) {
	lc := view.Locale
	if !view.Submitted {
		promptColor.Fprintln(t.out, t.locales.T(lc, "select_label"))
		for i, s := range view.Eligible {
			marker := " "
			if s.ID == view.Selected {
				marker = "*"
			}
			fmt.Fprintf(t.out, " %s %d) %s\n", marker, i+1, s.Name)
		}
		promptColor.Fprintf(t.out, "[1-%d] / %s [s] / preview [p]> ", len(view.Eligible), t.locales.T(lc, "submit_btn"))
		return
	}
	if s, ok := view.SelectedScheme(); ok {
		fmt.Fprintf(t.out, " %s\n", s.Name)
	}
	promptColor.Fprintf(t.out, "%s [d] / %s [:reset] / [:quit]> ", t.locales.T(lc, "download_btn"), t.locales.T(lc, "restart_btn"))
}

func (t *terminal) previewEvent(ctx context.Context, view nodex.View, line string) (nodex.Event, bool) {
	switch strings.ToLower(line) {
	case "s":
		return nodex.Event{Kind: nodex.EventSubmit}, true
	case "p":
		t.saveApplication(ctx, "Preview.pdf", false)
		return nodex.Event{}, false
	case "d":
		t.saveApplication(ctx, conversation.ApplicationFileName, true)
		return nodex.Event{}, false
	}
	if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(view.Eligible) {
		return nodex.Event{Kind: nodex.EventSelect, Scheme: view.Eligible[n-1].ID}, true
	}
	return nodex.Event{}, false
}

func (t *terminal) saveApplication(ctx context.Context, name string, download bool) {
	doc, err := t.svc.Application(ctx, t.session, download)
	if err != nil {
		errorColor.Fprintln(t.out, err)
		return
	}
	path := filepath.Join(t.outDir, name)
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		errorColor.Fprintln(t.out, err)
		return
	}
	infoColor.Fprintf(t.out, "saved %s\n", path)
}
