// Package video provisions meeting links for sessions. The real provider is
// an external collaborator; this adapter keeps the session manager decoupled
// from it.
package video

import (
	"context"
	"fmt"
	"strings"

	"github.com/korobprog/supermock-matcher/internal/domain/model"
	"github.com/korobprog/supermock-matcher/internal/domain/session"
)

// defaultBaseURL is a Jitsi-style room host; any <base>/<room> scheme works.
const defaultBaseURL = "https://meet.jit.si"

// Option applies a configuration option to the RoomProvisioner.
type Option func(*RoomProvisioner)

// WithBaseURL sets the meeting host rooms are created under.
func WithBaseURL(base string) Option {
	return func(p *RoomProvisioner) {
		if base != "" {
			p.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// RoomProvisioner derives a room URL from the session id. Room creation on
// the provider side is lazy, so the link is immediately usable.
type RoomProvisioner struct {
	baseURL string
}

// NewRoomProvisioner creates a provisioner with the given options.
func NewRoomProvisioner(opts ...Option) *RoomProvisioner {
	p := &RoomProvisioner{baseURL: defaultBaseURL}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Provision returns an active link for the session.
func (p *RoomProvisioner) Provision(ctx context.Context, sessionID string) (session.Link, error) {
	if sessionID == "" {
		return session.Link{}, fmt.Errorf("provision: empty session id")
	}
	return session.Link{
		URL:    p.baseURL + "/supermock-" + sessionID,
		Status: model.VideoPending,
	}, nil
}
