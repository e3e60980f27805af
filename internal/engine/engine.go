// Package engine declares the narrow surface this module needs from a
// browser-automation engine: launching a browser, opening a context
// and page, routing network requests, and evaluating script. The
// specific engine (its process model, protocol, installation) is an
// external collaborator; adapters implement this package's
// interfaces against it.
package engine

import "context"

// Browser is a launched browser instance.
type Browser interface {
	NewContext(ctx context.Context, opts ContextOptions) (BrowsingContext, error)
	Close(ctx context.Context) error
}

// ContextOptions configures a new browsing context.
type ContextOptions struct {
	BaseURL string
	Headless bool
}

// BrowsingContext groups pages that share cookies/storage, and is
// where route interception is installed (spec §4.3: "attach a
// universal matcher on the browsing context").
type BrowsingContext interface {
	NewPage(ctx context.Context) (Page, error)
	Route(ctx context.Context, handler func(context.Context, InterceptedRoute)) error
	Unroute(ctx context.Context) error
	Close(ctx context.Context) error
}

// Page is a single browser tab.
type Page interface {
	Goto(ctx context.Context, url string) error
	Evaluate(ctx context.Context, expression string, arg any) (any, error)
	Close(ctx context.Context) error
}

// Request is the host-visible view of an intercepted network request.
type Request interface {
	URL() string
	Method() string
	Headers() [][2]string
	ResourceType() string
	IsNavigationRequest() bool
	PostData() ([]byte, bool)
}

// RequestOverrides carries the optional field overrides a fallback or
// continue call may apply before the request proceeds.
type RequestOverrides struct {
	URL     string
	Method  string
	Headers [][2]string
	PostData []byte
}

// FulfillResponse is the response a fulfill() terminal action serves
// in place of the network round trip.
type FulfillResponse struct {
	Status      int
	Headers     [][2]string
	Body        []byte
	ContentType string
}

// InterceptedRoute is the host-side handle for a single intercepted
// request, parked until a terminal decision arrives from the bridge.
type InterceptedRoute interface {
	Request() Request
	Continue(ctx context.Context, overrides *RequestOverrides) error
	Abort(ctx context.Context, errorCode string) error
	Fulfill(ctx context.Context, resp FulfillResponse) error
}

// Launcher starts a named browser. Adapters register themselves for
// "chromium", "firefox", "webkit".
type Launcher interface {
	Launch(ctx context.Context, opts LaunchOptions) (Browser, error)
}

// LaunchOptions configures a browser launch, including the raw
// pass-through JSON a user supplied via --browser-server-options.
type LaunchOptions struct {
	Headless bool
	Devtools bool
	RawOptions []byte
}
