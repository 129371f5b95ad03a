package hmr

import (
	"rds/internal/core/errors"
)

// Type is the discriminator of a socket message.
type Type string

const (
	TypeConnected Type = "connected"
	TypeUpdate    Type = "update"
	TypePrune     Type = "prune"
	TypeReload    Type = "reload"
	TypeError     Type = "error"
)

// Message is the JSON frame pushed to browsers.
type Message struct {
	Type  Type            `json:"type"`
	Paths []string        `json:"paths,omitempty"`
	Error *errors.Payload `json:"error,omitempty"`
}

func Connected() Message { return Message{Type: TypeConnected} }

func Reload() Message { return Message{Type: TypeReload} }

// Update asks clients to re-import each hashed URL in order.
func Update(paths []string) Message {
	return Message{Type: TypeUpdate, Paths: dedupe(paths)}
}

// Prune asks clients to drop the stylesheets injected for paths.
func Prune(paths []string) Message {
	return Message{Type: TypePrune, Paths: dedupe(paths)}
}

// Error wraps err into an overlay message.
func Error(err error) Message {
	p := errors.ToPayload(err)
	return Message{Type: TypeError, Error: &p}
}

func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
