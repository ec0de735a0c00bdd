// Package service assembles the analytics reports. The independent
// aggregates of one report are computed concurrently; the numbers are
// reporting-grade, not transactionally consistent with each other.
package service

import (
	"context"
	"time"

	"estate_crm_backend/internal/analytics/repository"
	"estate_crm_backend/internal/domain"
	"estate_crm_backend/platform/apperr"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type Service struct {
	repo *repository.Repository
}

func New(repo *repository.Repository) *Service {
	return &Service{repo: repo}
}

// FunnelStage is one step of the conversion funnel, in funnel order.
type FunnelStage struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// FunnelReport is the conversion funnel with its closed-over-total ratio.
type FunnelReport struct {
	Stages         []FunnelStage `json:"stages"`
	TotalLeads     int           `json:"totalLeads"`
	ConversionRate float64       `json:"conversionRate"`
}

// ChannelPerformance is one channel's aggregate over the window.
type ChannelPerformance struct {
	Channel            string   `json:"channel"`
	Total              int      `json:"total"`
	SuccessRate        float64  `json:"successRate"`
	AvgResponseSeconds *float64 `json:"avgResponseSeconds,omitempty"`
}

// SourceShare is one acquisition source's share of the window's leads.
type SourceShare struct {
	Source string  `json:"source"`
	Count  int     `json:"count"`
	Share  float64 `json:"share"`
}

// TimelinePoint is one day of interaction activity.
type TimelinePoint struct {
	Day          time.Time `json:"day"`
	Interactions int       `json:"interactions"`
}

// Report is the full analytics rollup for a window.
type Report struct {
	From     time.Time            `json:"from"`
	To       time.Time            `json:"to"`
	Funnel   FunnelReport         `json:"funnel"`
	Channels []ChannelPerformance `json:"channels"`
	Sources  []SourceShare        `json:"sources"`
	Timeline []TimelinePoint      `json:"timeline"`
}

// Build computes all four aggregates of the report concurrently.
func (s *Service) Build(ctx context.Context, tenantID uuid.UUID, window repository.Window) (Report, error) {
	report := Report{From: window.From, To: window.To}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		counts, err := s.repo.FunnelCounts(groupCtx, tenantID, window)
		if err != nil {
			return err
		}
		report.Funnel = buildFunnel(counts)
		return nil
	})

	group.Go(func() error {
		stats, err := s.repo.ChannelPerformance(groupCtx, tenantID, window)
		if err != nil {
			return err
		}
		report.Channels = buildChannels(stats)
		return nil
	})

	group.Go(func() error {
		counts, err := s.repo.SourceDistribution(groupCtx, tenantID, window)
		if err != nil {
			return err
		}
		report.Sources = buildSources(counts)
		return nil
	})

	group.Go(func() error {
		days, err := s.repo.ActivityTimeline(groupCtx, tenantID, window)
		if err != nil {
			return err
		}
		report.Timeline = buildTimeline(days)
		return nil
	})

	if err := group.Wait(); err != nil {
		return Report{}, apperr.Wrap(apperr.KindInternal, "build analytics report", err)
	}
	return report, nil
}

func buildFunnel(counts []repository.StatusCount) FunnelReport {
	byStatus := make(map[string]int, len(counts))
	total := 0
	for _, item := range counts {
		byStatus[item.Status] = item.Count
		total += item.Count
	}

	stages := make([]FunnelStage, 0, len(domain.LeadStatuses()))
	for _, status := range domain.LeadStatuses() {
		stages = append(stages, FunnelStage{
			Status: string(status),
			Count:  byStatus[string(status)],
		})
	}

	conversion := 0.0
	if total > 0 {
		conversion = float64(byStatus[string(domain.LeadStatusClosed)]) / float64(total)
	}

	return FunnelReport{Stages: stages, TotalLeads: total, ConversionRate: conversion}
}

func buildChannels(stats []repository.ChannelStats) []ChannelPerformance {
	out := make([]ChannelPerformance, 0, len(stats))
	for _, item := range stats {
		successRate := 0.0
		if item.Total > 0 {
			successRate = float64(item.Successes) / float64(item.Total)
		}
		out = append(out, ChannelPerformance{
			Channel:            item.Channel,
			Total:              item.Total,
			SuccessRate:        successRate,
			AvgResponseSeconds: item.AvgDurationSeconds,
		})
	}
	return out
}

func buildSources(counts []repository.SourceCount) []SourceShare {
	total := 0
	for _, item := range counts {
		total += item.Count
	}

	out := make([]SourceShare, 0, len(counts))
	for _, item := range counts {
		share := 0.0
		if total > 0 {
			share = float64(item.Count) / float64(total)
		}
		out = append(out, SourceShare{Source: item.Source, Count: item.Count, Share: share})
	}
	return out
}

func buildTimeline(days []repository.DayActivity) []TimelinePoint {
	out := make([]TimelinePoint, 0, len(days))
	for _, item := range days {
		out = append(out, TimelinePoint{Day: item.Day, Interactions: item.Interactions})
	}
	return out
}
