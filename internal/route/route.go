// Package route holds the types shared by the host and client halves
// of the interception protocol (SPEC_FULL.md §5, spec §3-4.3-4.4):
// the matcher algebra, the wire request shape, and the per-request
// state machine that enforces exactly-one-terminal-transition.
package route

import (
	"net/url"
	"regexp"

	"github.com/wrightplay/wrightplay/internal/route/glob"
)

// Matcher decides whether a handler applies to a request URL. An
// empty-string pattern matches any URL (spec's "match any").
type Matcher struct {
	kind      matcherKind
	glob      *regexp.Regexp
	regex     *regexp.Regexp
	predicate func(*url.URL) bool
	source    string // original pattern or regex source, for unroute-by-equality
}

type matcherKind int

const (
	matcherAny matcherKind = iota
	matcherGlob
	matcherRegex
	matcherPredicate
)

// MatchAny returns a matcher that matches every request, corresponding
// to an empty-string pattern.
func MatchAny() Matcher { return Matcher{kind: matcherAny} }

// MatchGlob compiles pattern as route-glob syntax.
func MatchGlob(pattern string) (Matcher, error) {
	re, err := glob.Compile(pattern)
	if err != nil {
		return Matcher{}, err
	}
	return Matcher{kind: matcherGlob, glob: re, source: pattern}, nil
}

// MatchRegex wraps a pre-compiled regular expression matcher.
func MatchRegex(re *regexp.Regexp) Matcher {
	return Matcher{kind: matcherRegex, regex: re, source: re.String()}
}

// MatchPredicate wraps an arbitrary URL predicate.
func MatchPredicate(fn func(*url.URL) bool) Matcher {
	return Matcher{kind: matcherPredicate, predicate: fn}
}

// Matches reports whether m applies to the given URL.
func (m Matcher) Matches(u *url.URL) bool {
	switch m.kind {
	case matcherAny:
		return true
	case matcherGlob:
		if m.glob.MatchString(u.String()) {
			return true
		}
		// A pattern written as a path ("/route") is also tried against
		// the URL's path and query, so it matches on any origin.
		return len(m.source) > 0 && m.source[0] == '/' && m.glob.MatchString(u.RequestURI())
	case matcherRegex:
		return m.regex.MatchString(u.String())
	case matcherPredicate:
		return m.predicate != nil && m.predicate(u)
	default:
		return false
	}
}

// Equal reports whether two matchers were constructed from the same
// source, for contextUnroute(matcher, handler?) lookups by equality
// rather than by identity.
func (m Matcher) Equal(other Matcher) bool {
	if m.kind != other.kind {
		return false
	}
	switch m.kind {
	case matcherAny:
		return true
	case matcherGlob, matcherRegex:
		return m.source == other.source
	case matcherPredicate:
		return false // function identity can't be compared across the wire
	default:
		return false
	}
}

// RequestOverrides carries the optional field overrides a fallback or
// continue call may apply before the request proceeds, independent of
// any specific automation engine's override type.
type RequestOverrides struct {
	URL      string
	Method   string
	Headers  [][2]string
	PostData []byte
}

// RequestFulfill is the synthetic response a fulfill() terminal
// action serves, independent of any specific automation engine's
// response type.
type RequestFulfill struct {
	Status      int
	Headers     [][2]string
	Body        []byte
	ContentType string
}

// RequestMeta is the metadata frame the host forwards for an
// intercepted request (spec §4.3 step 3).
type RequestMeta struct {
	ID                   string
	URL                  string
	Method               string
	Headers              [][2]string
	ResourceType         string
	IsNavigationRequest  bool
	HasBody              bool
}

// TerminalAction identifies which of the three terminal operations
// ended a request's state machine.
type TerminalAction int

const (
	ActionNone TerminalAction = iota
	ActionAbort
	ActionContinue
	ActionFulfill
)

// ErrAlreadyHandled is returned (and, per spec §7, thrown synchronously
// to the handler callback) when a second terminal action or a fallback
// after a terminal action is attempted on the same request.
type ErrAlreadyHandled struct{ RequestID string }

func (e *ErrAlreadyHandled) Error() string {
	return "route: request " + e.RequestID + " already handled"
}

// State is the per-request state machine described in spec §3:
// fresh -> handling_i -> {fresh (fallback), terminal}.
type State struct {
	RequestID string
	handling  bool
	terminal  TerminalAction
}

// NewState starts a request in the fresh state.
func NewState(requestID string) *State {
	return &State{RequestID: requestID}
}

// BeginHandling transitions fresh -> handling_i for the next matcher
// in the stack.
func (s *State) BeginHandling() {
	s.handling = true
}

// Fallback transitions handling_i -> fresh, passing control to the
// next matcher. It is an error once a terminal action has already run.
func (s *State) Fallback() error {
	if s.terminal != ActionNone {
		return &ErrAlreadyHandled{RequestID: s.RequestID}
	}
	s.handling = false
	return nil
}

// Terminate transitions to a terminal state. Calling it twice is an
// error regardless of which action either call used.
func (s *State) Terminate(action TerminalAction) error {
	if s.terminal != ActionNone {
		return &ErrAlreadyHandled{RequestID: s.RequestID}
	}
	s.terminal = action
	s.handling = false
	return nil
}

// IsTerminal reports whether a terminal action has already completed
// this request.
func (s *State) IsTerminal() bool {
	return s.terminal != ActionNone
}

// Terminal reports which terminal action ended the request, or
// ActionNone if still fresh/handling.
func (s *State) Terminal() TerminalAction {
	return s.terminal
}
