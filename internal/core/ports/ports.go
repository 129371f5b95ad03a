package ports

import (
	"context"
	"net/url"
	"time"

	"rds/internal/engine/hmr"
)

// ResponseKind tells the HTTP layer how to answer a routed request.
type ResponseKind int

const (
	// ResponseFile carries a payload to write.
	ResponseFile ResponseKind = iota
	// ResponseHandled means the request was consumed by a side-effecting
	// endpoint and only needs an empty success.
	ResponseHandled
	// ResponseNotFound maps to a 404.
	ResponseNotFound
	// ResponseRedirect sends the browser to Location.
	ResponseRedirect
)

func (k ResponseKind) String() string {
	switch k {
	case ResponseHandled:
		return "handled"
	case ResponseNotFound:
		return "not_found"
	case ResponseRedirect:
		return "redirect"
	default:
		return "file"
	}
}

// Response is the outcome of routing one dev request.
type Response struct {
	Kind     ResponseKind
	Content  []byte
	MIME     string
	Location string
	// Cacheable is set when the URL carries the current content hash, so
	// the browser may keep the payload indefinitely.
	Cacheable bool
}

// DependencyLocator maps a bare import specifier to the URL of a
// browser-ready ES module.
type DependencyLocator interface {
	Locate(ctx context.Context, specifier string) (string, error)
}

// HealthStatus summarises the dev server state.
type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Modules    int               `json:"modules"`
	Edges      int               `json:"edges"`
	Clients    int               `json:"clients"`
	Failing    bool              `json:"failing"`
	Components map[string]string `json:"components"`
}

// DevService is the surface the HTTP binding drives.
type DevService interface {
	Route(ctx context.Context, urlPath string, query url.Values) (Response, error)
	// Devtools feeds class names observed in the browser.
	Devtools(classes []string) Response
	Greeting() []hmr.Message
	Health(ctx context.Context) HealthStatus
}
