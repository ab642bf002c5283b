package nodes

import (
	"context"
	"errors"
	"fmt"

	contractx "github.com/tanpawarit/gram-sahayak/assistant/contract"
	statex "github.com/tanpawarit/gram-sahayak/assistant/state"
)

// LoadOrCreateSession attaches the stored session, or a fresh one in
// defaultLocale when none exists. The previous round's notice is dropped.
func LoadOrCreateSession(
	ctx context.Context,
	in *GraphState,
	store statex.Store,
	defaultLocale string,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	st, err := store.Load(ctx, in.SessionID)
	switch {
	case err == nil:
	case errors.Is(err, statex.ErrStateNotFound):
		st = statex.NewSession(in.SessionID, defaultLocale, in.Now)
	default:
		return nil, err
	}

	st.Notice = nil
	in.Session = st
	return in, nil
}
