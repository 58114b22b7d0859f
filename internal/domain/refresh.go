package domain

import "fmt"

// RefreshState tracks whether a cached view can be served as is.
type RefreshState string

const (
	// RefreshStale is the initial state and the state after an invalidation.
	RefreshStale   RefreshState = "stale"
	RefreshLoading RefreshState = "loading"
	RefreshFresh   RefreshState = "fresh"
	RefreshError   RefreshState = "error"
)

// RefreshEvent drives RefreshState transitions.
type RefreshEvent string

const (
	EventInvalidate     RefreshEvent = "invalidate"
	EventBeginFetch     RefreshEvent = "begin_fetch"
	EventFetchSucceeded RefreshEvent = "fetch_succeeded"
	EventFetchFailed    RefreshEvent = "fetch_failed"
)

var refreshTransitions = map[RefreshState]map[RefreshEvent]RefreshState{
	RefreshStale: {
		EventInvalidate: RefreshStale,
		EventBeginFetch: RefreshLoading,
		// A fetch completing after an invalidation carries data older than
		// the change, so the view stays stale.
		EventFetchSucceeded: RefreshStale,
		EventFetchFailed:    RefreshStale,
	},
	RefreshLoading: {
		EventInvalidate:     RefreshStale,
		EventBeginFetch:     RefreshLoading,
		EventFetchSucceeded: RefreshFresh,
		EventFetchFailed:    RefreshError,
	},
	RefreshFresh: {
		EventInvalidate:     RefreshStale,
		EventBeginFetch:     RefreshLoading,
		EventFetchSucceeded: RefreshFresh,
		EventFetchFailed:    RefreshError,
	},
	RefreshError: {
		EventInvalidate:     RefreshStale,
		EventBeginFetch:     RefreshLoading,
		EventFetchSucceeded: RefreshFresh,
		EventFetchFailed:    RefreshError,
	},
}

func (s RefreshState) Valid() bool {
	_, ok := refreshTransitions[s]
	return ok
}

// ParseRefreshState maps stored text back to a state. Empty input is the
// initial state.
func ParseRefreshState(s string) (RefreshState, error) {
	if s == "" {
		return RefreshStale, nil
	}
	state := RefreshState(s)
	if !state.Valid() {
		return "", fmt.Errorf("unknown refresh state %q", s)
	}
	return state, nil
}

// Next returns the state after event. Every state defines every event.
func (s RefreshState) Next(event RefreshEvent) (RefreshState, error) {
	events, ok := refreshTransitions[s]
	if !ok {
		return "", fmt.Errorf("unknown refresh state %q", s)
	}
	next, ok := events[event]
	if !ok {
		return "", fmt.Errorf("unknown refresh event %q", event)
	}
	return next, nil
}

// NeedsFetch reports whether a reader must go to the lending api.
func (s RefreshState) NeedsFetch() bool {
	return s == RefreshStale || s == RefreshError
}

// LegacyRefreshState maps the mobile client's firstView/dataChanged flags onto
// a state. A first view always fetches, as does any view after a change.
func LegacyRefreshState(firstView, dataChanged bool) RefreshState {
	if firstView || dataChanged {
		return RefreshStale
	}
	return RefreshFresh
}
