// Package guard decides whether a protected view may render. ViewGuard runs
// on the client side of a view; Paths is the matching server policy.
package guard

import (
	"context"
	"sync"

	"github.com/jrsteele09/hr-console/auth"
	"github.com/jrsteele09/hr-console/sessions"
)

// State of a guarded view.
type State int

const (
	Resolving State = iota
	Authenticated
	Unauthenticated
)

func (s State) String() string {
	switch s {
	case Resolving:
		return "resolving"
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Decision taken for one session state.
type Decision int

const (
	NoDecision Decision = iota
	Render
	Redirect
)

// Navigator replaces the current history entry with path.
type Navigator interface {
	Replace(path string)
}

// NavigatorFunc adapts a function to a Navigator.
type NavigatorFunc func(path string)

func (f NavigatorFunc) Replace(path string) {
	f(path)
}

// StateSource publishes session states, see auth.SessionContext.
type StateSource interface {
	Subscribe() (<-chan sessions.State, func())
}

var _ StateSource = (*auth.SessionContext)(nil)

type evaluation struct {
	loading       bool
	authenticated bool
}

// ViewGuard guards one mounted protected view. It decides once per distinct
// (loading, authenticated) pair, so a repeated identical state never causes
// a second redirect and nothing is decided while the session is loading.
type ViewGuard struct {
	mu        sync.Mutex
	nav       Navigator
	loginPath string
	state     State
	last      *evaluation
}

func NewViewGuard(nav Navigator) *ViewGuard {
	return &ViewGuard{
		nav:       nav,
		loginPath: auth.LoginRoute,
		state:     Resolving,
	}
}

func (g *ViewGuard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Evaluate applies one session state. The navigator is called when the
// decision is Redirect.
func (g *ViewGuard) Evaluate(st sessions.State) (State, Decision) {
	g.mu.Lock()
	defer g.mu.Unlock()

	current := evaluation{loading: st.Loading, authenticated: st.Authenticated}
	if g.last != nil && *g.last == current {
		return g.state, NoDecision
	}
	g.last = &current

	switch {
	case st.Loading:
		g.state = Resolving
		return g.state, NoDecision
	case st.Authenticated:
		g.state = Authenticated
		return g.state, Render
	default:
		g.state = Unauthenticated
		g.nav.Replace(g.loginPath)
		return g.state, Redirect
	}
}

// Watch evaluates every state published by src until ctx is done or the
// source is torn down. onRender, when set, is called for each Render decision.
func (g *ViewGuard) Watch(ctx context.Context, src StateSource, onRender func(sessions.State)) {
	states, unsubscribe := src.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-states:
			if !ok {
				return
			}
			if _, d := g.Evaluate(st); d == Render && onRender != nil {
				onRender(st)
			}
		}
	}
}
