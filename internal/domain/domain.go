// Package domain holds the vocabulary shared by every CRM bounded context:
// channels, lead lifecycle enums, interaction outcomes, and the outreach
// attempt state machine. Each enum has exactly one definition here; modules
// map to and from wire/storage representations at their own boundaries.
package domain

import "fmt"

// Channel is the communication medium for interactions and outreach.
type Channel string

const (
	ChannelCall     Channel = "call"
	ChannelSMS      Channel = "sms"
	ChannelEmail    Channel = "email"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelTelegram Channel = "telegram"
)

// Channels lists every supported channel.
func Channels() []Channel {
	return []Channel{ChannelCall, ChannelSMS, ChannelEmail, ChannelWhatsApp, ChannelTelegram}
}

// ParseChannel validates and returns the channel for a raw string.
func ParseChannel(raw string) (Channel, error) {
	switch Channel(raw) {
	case ChannelCall, ChannelSMS, ChannelEmail, ChannelWhatsApp, ChannelTelegram:
		return Channel(raw), nil
	}
	return "", fmt.Errorf("unknown channel %q", raw)
}

// LeadStatus is the sales funnel position of a lead.
type LeadStatus string

const (
	LeadStatusNew         LeadStatus = "new"
	LeadStatusContacted   LeadStatus = "contacted"
	LeadStatusQualified   LeadStatus = "qualified"
	LeadStatusProposal    LeadStatus = "proposal"
	LeadStatusNegotiation LeadStatus = "negotiation"
	LeadStatusClosed      LeadStatus = "closed"
	LeadStatusLost        LeadStatus = "lost"
)

// LeadStatuses lists every funnel status in order.
func LeadStatuses() []LeadStatus {
	return []LeadStatus{
		LeadStatusNew, LeadStatusContacted, LeadStatusQualified,
		LeadStatusProposal, LeadStatusNegotiation, LeadStatusClosed, LeadStatusLost,
	}
}

// ParseLeadStatus validates and returns the status for a raw string.
func ParseLeadStatus(raw string) (LeadStatus, error) {
	switch LeadStatus(raw) {
	case LeadStatusNew, LeadStatusContacted, LeadStatusQualified,
		LeadStatusProposal, LeadStatusNegotiation, LeadStatusClosed, LeadStatusLost:
		return LeadStatus(raw), nil
	}
	return "", fmt.Errorf("unknown lead status %q", raw)
}

// LeadSource is the acquisition channel a lead came from.
type LeadSource string

const (
	LeadSourceWebsite  LeadSource = "website"
	LeadSourceReferral LeadSource = "referral"
	LeadSourceSocial   LeadSource = "social"
	LeadSourceDirect   LeadSource = "direct"
	LeadSourceOther    LeadSource = "other"
)

// ParseLeadSource validates and returns the source for a raw string.
// Empty input maps to LeadSourceOther.
func ParseLeadSource(raw string) (LeadSource, error) {
	if raw == "" {
		return LeadSourceOther, nil
	}
	switch LeadSource(raw) {
	case LeadSourceWebsite, LeadSourceReferral, LeadSourceSocial, LeadSourceDirect, LeadSourceOther:
		return LeadSource(raw), nil
	}
	return "", fmt.Errorf("unknown lead source %q", raw)
}

// ListingStatus is the publication state of a property listing.
type ListingStatus string

const (
	ListingStatusDraft      ListingStatus = "draft"
	ListingStatusActive     ListingStatus = "active"
	ListingStatusUnderOffer ListingStatus = "under_offer"
	ListingStatusSold       ListingStatus = "sold"
	ListingStatusWithdrawn  ListingStatus = "withdrawn"
)

// ParseListingStatus validates and returns the listing status for a raw string.
func ParseListingStatus(raw string) (ListingStatus, error) {
	switch ListingStatus(raw) {
	case ListingStatusDraft, ListingStatusActive, ListingStatusUnderOffer,
		ListingStatusSold, ListingStatusWithdrawn:
		return ListingStatus(raw), nil
	}
	return "", fmt.Errorf("unknown listing status %q", raw)
}

// InteractionOutcome is the result of a single contact attempt or response.
type InteractionOutcome string

const (
	OutcomeSuccess    InteractionOutcome = "success"
	OutcomeFailed     InteractionOutcome = "failed"
	OutcomePending    InteractionOutcome = "pending"
	OutcomeNoResponse InteractionOutcome = "no_response"
)

// ParseInteractionOutcome validates and returns the outcome for a raw string.
func ParseInteractionOutcome(raw string) (InteractionOutcome, error) {
	switch InteractionOutcome(raw) {
	case OutcomeSuccess, OutcomeFailed, OutcomePending, OutcomeNoResponse:
		return InteractionOutcome(raw), nil
	}
	return "", fmt.Errorf("unknown interaction outcome %q", raw)
}
