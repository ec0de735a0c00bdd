// Package provider contains the outbound channel gateways the dispatcher
// delivers through. Every channel implements the same Provider interface;
// the dispatcher neither knows nor cares what sits behind it.
package provider

import (
	"context"
	"fmt"

	"estate_crm_backend/internal/domain"
)

// Message is one outbound communication, already resolved to a concrete
// recipient address for the channel (email address or E.164 number).
type Message struct {
	Recipient  string
	Subject    string
	Body       string
	TemplateID string
}

// Result is what a gateway reports back after accepting a message.
type Result struct {
	// ProviderMessageID is the gateway's id for the message, used to match
	// delivery-status callbacks. Empty when the gateway doesn't issue ids.
	ProviderMessageID string
}

// Provider delivers messages on one channel.
type Provider interface {
	Channel() domain.Channel
	Deliver(ctx context.Context, msg Message) (Result, error)
}

// Registry holds the configured providers keyed by channel.
type Registry struct {
	providers map[domain.Channel]Provider
}

// NewRegistry builds a registry from the given providers. Nil entries
// (unconfigured gateways) are skipped.
func NewRegistry(providers ...Provider) *Registry {
	reg := &Registry{providers: make(map[domain.Channel]Provider)}
	for _, p := range providers {
		if p == nil {
			continue
		}
		reg.providers[p.Channel()] = p
	}
	return reg
}

// For returns the provider for a channel.
func (r *Registry) For(channel domain.Channel) (Provider, error) {
	p, ok := r.providers[channel]
	if !ok {
		return nil, fmt.Errorf("no provider configured for channel %q", channel)
	}
	return p, nil
}

// Channels lists the channels with a configured provider.
func (r *Registry) Channels() []domain.Channel {
	channels := make([]domain.Channel, 0, len(r.providers))
	for channel := range r.providers {
		channels = append(channels, channel)
	}
	return channels
}
