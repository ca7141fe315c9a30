// Shelfmark - Book Catalog and Library Management API
// Copyright 2026 The Shelfmark Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfmark/shelfmark

package services

import (
	"context"
	"time"

	"github.com/shelfmark/shelfmark/internal/logging"
	"github.com/shelfmark/shelfmark/internal/metrics"
)

// Pinger is a reachability check for one backing dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthProbeService periodically pings backing dependencies and
// publishes their reachability to the dependency_up gauge. Probe
// failures are logged but never crash the service.
type HealthProbeService struct {
	targets  map[string]Pinger
	interval time.Duration
}

// NewHealthProbeService probes each named target every interval.
func NewHealthProbeService(targets map[string]Pinger, interval time.Duration) *HealthProbeService {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &HealthProbeService{
		targets:  targets,
		interval: interval,
	}
}

// Serve implements suture.Service.
func (s *HealthProbeService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.probe(ctx)
		}
	}
}

func (s *HealthProbeService) probe(ctx context.Context) {
	for name, target := range s.targets {
		probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := target.Ping(probeCtx)
		cancel()

		metrics.SetDependencyUp(name, err == nil)
		if err != nil {
			logging.Warn().Str("dependency", name).Err(err).Msg("Dependency probe failed")
		}
	}
}

// String identifies the service in supervisor logs.
func (s *HealthProbeService) String() string {
	return "health-probe"
}
