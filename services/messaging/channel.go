package messaging

import (
	"context"
	"fmt"
	"strings"
)

// Provider action signals. Chat platforms with button support deliver these
// directly; on text-only platforms the same intents arrive as free text and
// go through the price evaluator instead.
const (
	ActionAccept  = "accept"
	ActionReject  = "reject"
	ActionCounter = "counter"
)

// Channel sends negotiation messages to providers over one chat platform.
// Identities are opaque strings prefixed with the platform name, e.g.
// "telegram:523189" or "whatsapp:+919876543210".
type Channel interface {
	Name() string
	// CanSend reports whether this channel serves the given identity.
	CanSend(identity string) bool
	// Send delivers free text to the provider behind identity. Implementations
	// retry transient failures; a returned error means delivery gave up.
	Send(ctx context.Context, identity, text string) error
	// SendWithActions delivers text along with accept/reject controls where
	// the platform supports them. Platforms without buttons fall back to Send.
	SendWithActions(ctx context.Context, identity, text string) error
}

// Sender is the outbound side consumed by negotiation logic. *Router is the
// production implementation.
type Sender interface {
	Send(ctx context.Context, identity, text string) error
	SendWithActions(ctx context.Context, identity, text string) error
}

// Router dispatches outbound messages to the channel owning the identity's
// platform prefix.
type Router struct {
	channels []Channel
}

func NewRouter(channels ...Channel) *Router {
	return &Router{channels: channels}
}

func (r *Router) Send(ctx context.Context, identity, text string) error {
	ch, err := r.channelFor(identity)
	if err != nil {
		return err
	}
	return ch.Send(ctx, identity, text)
}

func (r *Router) SendWithActions(ctx context.Context, identity, text string) error {
	ch, err := r.channelFor(identity)
	if err != nil {
		return err
	}
	return ch.SendWithActions(ctx, identity, text)
}

func (r *Router) channelFor(identity string) (Channel, error) {
	for _, ch := range r.channels {
		if ch.CanSend(identity) {
			return ch, nil
		}
	}
	return nil, fmt.Errorf("no channel for identity %q", identity)
}

// SplitIdentity breaks "<platform>:<handle>" into its parts.
func SplitIdentity(identity string) (platform, handle string, err error) {
	platform, handle, ok := strings.Cut(identity, ":")
	if !ok || platform == "" || handle == "" {
		return "", "", fmt.Errorf("malformed messaging identity %q", identity)
	}
	return platform, handle, nil
}
