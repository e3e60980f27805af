// Package obslog centralizes structured logging for the runner,
// bundle server, and bridge, replacing the teacher's bracketed-prefix
// stderr writes (e.g. "[gasoline] ...") with logrus fields so log
// lines are consistently attributable to a component and session.
package obslog

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds a component-scoped logger. Every call site gets its own
// entry carrying "component" so multiplexed runner/bundle/bridge
// output stays attributable when run in watch mode with a live
// rebuild loop alongside a live browser session.
func New(component string) *logrus.Entry {
	return Root().WithField("component", component)
}

var root = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if os.Getenv("WRIGHTPLAY_DEBUG") != "" {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}()

// Root returns the shared base logger, for callers that need to
// change global settings (e.g. cmd/wrightplay's --debug flag raising
// verbosity at startup).
func Root() *logrus.Logger {
	return root
}

// SetDebug toggles debug-level verbosity on the shared logger.
func SetDebug(on bool) {
	if on {
		root.SetLevel(logrus.DebugLevel)
	} else {
		root.SetLevel(logrus.InfoLevel)
	}
}
