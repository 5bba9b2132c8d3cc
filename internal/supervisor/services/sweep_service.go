// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

package services

import (
	"context"
	"time"

	"github.com/tomtom215/prodledger/internal/logging"
)

// SweepService calls sweep on a fixed interval until ctx is canceled.
// sweep returns the number of items it removed.
type SweepService struct {
	name     string
	interval time.Duration
	sweep    func() int
}

// NewSweepService creates a periodic sweeper. A non-positive interval defaults to one minute.
func NewSweepService(name string, interval time.Duration, sweep func() int) *SweepService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SweepService{name: name, interval: interval, sweep: sweep}
}

// Serve implements suture.Service.
func (s *SweepService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if removed := s.sweep(); removed > 0 {
				logging.Debug().Str("service", s.name).Int("removed", removed).Msg("Sweep completed")
			}
		}
	}
}

func (s *SweepService) String() string {
	return s.name
}
