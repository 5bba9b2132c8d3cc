// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

package database

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/prodledger/internal/apperr"
	"github.com/tomtom215/prodledger/internal/cache"
	"github.com/tomtom215/prodledger/internal/database/query"
	"github.com/tomtom215/prodledger/internal/logging"
	"github.com/tomtom215/prodledger/internal/models"
)

// partial is one partition's pre-aggregate. Averages are never computed from
// partials; they are derived after merging.
type partial struct {
	count    int64
	produced float64
	rejected float64
	downtime float64
	minDate  string
	maxDate  string
}

func (p *partial) merge(o partial) {
	if o.count == 0 {
		return
	}
	if p.count == 0 || o.minDate < p.minDate {
		p.minDate = o.minDate
	}
	if o.maxDate > p.maxDate {
		p.maxDate = o.maxDate
	}
	p.count += o.count
	p.produced += o.produced
	p.rejected += o.rejected
	p.downtime += o.downtime
}

func (p partial) averages() (avgProduced, avgDowntime, rejectRate float64) {
	if p.count > 0 {
		avgProduced = p.produced / float64(p.count)
		avgDowntime = p.downtime / float64(p.count)
	}
	if p.produced > 0 {
		rejectRate = p.rejected / p.produced
	}
	return avgProduced, avgDowntime, rejectRate
}

// Summarize returns totals and averages over every record matching filter,
// merged across the selected partitions.
func (s *Store) Summarize(ctx context.Context, filter models.RecordFilter) (*models.Summary, error) {
	target := PickTargets(filter.From, filter.To, s.cfg.Cutoff)
	obs := observation{op: OpSummarize, target: target.String(), start: time.Now()}

	sum, lookup, err := cache.Fetch(ctx, s.cache, OpSummarize, aggParams{Filter: filter, Target: target.String()}, s.cfg.AggregateTTL,
		func(ctx context.Context) (*models.Summary, error) {
			return s.summarize(ctx, target, filter)
		})
	obs.lookup = lookup
	if sum != nil {
		obs.used, obs.rows, obs.degraded = sum.PartitionsUsed, 1, sum.Degraded
	}
	s.finish(ctx, obs, err)
	if err != nil {
		return nil, err
	}
	return sum, nil
}

// SummarizeByLine is Summarize grouped by production line, ordered by line.
func (s *Store) SummarizeByLine(ctx context.Context, filter models.RecordFilter) (*models.LineSummaries, error) {
	target := PickTargets(filter.From, filter.To, s.cfg.Cutoff)
	obs := observation{op: OpSummarizeByLine, target: target.String(), start: time.Now()}

	res, lookup, err := cache.Fetch(ctx, s.cache, OpSummarizeByLine, aggParams{Filter: filter, Target: target.String()}, s.cfg.AggregateTTL,
		func(ctx context.Context) (*models.LineSummaries, error) {
			return s.summarizeByLine(ctx, target, filter)
		})
	obs.lookup = lookup
	if res != nil {
		obs.used, obs.rows, obs.degraded = res.PartitionsUsed, len(res.Lines), res.Degraded
	}
	s.finish(ctx, obs, err)
	if err != nil {
		return nil, err
	}
	return res, nil
}

type aggParams struct {
	Filter models.RecordFilter `json:"filter"`
	Target string              `json:"target"`
}

func (s *Store) summarize(ctx context.Context, target Target, filter models.RecordFilter) (*models.Summary, error) {
	var out *models.Summary
	err := s.mgr.WithWorker(ctx, func(w *Worker) error {
		handles, degraded, err := s.aggregateHandles(ctx, w, target)
		if err != nil {
			return err
		}

		where, args := buildWhere(filter).Build()
		sqlText := query.BuildPartial("main", s.mgr.Table(), where, false)

		partials := make([]partial, len(handles))
		g, gctx := errgroup.WithContext(ctx)
		for i, h := range handles {
			g.Go(func() error {
				p, err := scanPartial(gctx, h.DB, sqlText, args)
				if err != nil {
					return wrapQueryError(h.Partition, err)
				}
				partials[i] = p
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		var merged partial
		for _, p := range partials {
			merged.merge(p)
		}
		avgP, avgD, rate := merged.averages()
		out = &models.Summary{
			RecordCount:    merged.count,
			TotalProduced:  merged.produced,
			TotalRejected:  merged.rejected,
			TotalDowntime:  merged.downtime,
			AvgProduced:    avgP,
			AvgDowntime:    avgD,
			RejectRate:     rate,
			FirstDate:      merged.minDate,
			LastDate:       merged.maxDate,
			PartitionsUsed: handleNames(handles),
			Degraded:       degraded,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) summarizeByLine(ctx context.Context, target Target, filter models.RecordFilter) (*models.LineSummaries, error) {
	var out *models.LineSummaries
	err := s.mgr.WithWorker(ctx, func(w *Worker) error {
		handles, degraded, err := s.aggregateHandles(ctx, w, target)
		if err != nil {
			return err
		}

		where, args := buildWhere(filter).Build()
		sqlText := query.BuildPartial("main", s.mgr.Table(), where, true)

		grouped := make([]map[string]partial, len(handles))
		g, gctx := errgroup.WithContext(ctx)
		for i, h := range handles {
			g.Go(func() error {
				m, err := scanGroupedPartials(gctx, h.DB, sqlText, args)
				if err != nil {
					return wrapQueryError(h.Partition, err)
				}
				grouped[i] = m
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		merged := make(map[string]*partial)
		for _, m := range grouped {
			for line, p := range m {
				acc, ok := merged[line]
				if !ok {
					acc = &partial{}
					merged[line] = acc
				}
				acc.merge(p)
			}
		}

		lines := make([]models.LineSummary, 0, len(merged))
		for line, p := range merged {
			avgP, avgD, rate := p.averages()
			lines = append(lines, models.LineSummary{
				Line:          line,
				RecordCount:   p.count,
				TotalProduced: p.produced,
				TotalRejected: p.rejected,
				TotalDowntime: p.downtime,
				AvgProduced:   avgP,
				AvgDowntime:   avgD,
				RejectRate:    rate,
				FirstDate:     p.minDate,
				LastDate:      p.maxDate,
			})
		}
		sort.Slice(lines, func(i, j int) bool { return lines[i].Line < lines[j].Line })

		out = &models.LineSummaries{Lines: lines, PartitionsUsed: handleNames(handles), Degraded: degraded}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// aggregateHandles acquires one handle per partition of target, sequentially,
// on the worker's own connections. For Both an absent partition degrades to
// the other one; both absent is PartitionUnavailable.
func (s *Store) aggregateHandles(ctx context.Context, w *Worker, target Target) ([]*Handle, bool, error) {
	handles := make([]*Handle, 0, 2)
	degraded := false
	var absent error

	for _, p := range target.Partitions() {
		h, err := w.Conn(ctx, p)
		if err != nil {
			if target == TargetBoth && errors.Is(err, apperr.ErrPartitionUnavailable) {
				logging.Ctx(ctx).Warn().Str("partition", p.String()).Msg("Partition unavailable, aggregating the other only")
				degraded = true
				if absent == nil {
					absent = err
				}
				continue
			}
			return nil, false, err
		}
		handles = append(handles, h)
	}
	if len(handles) == 0 && absent != nil {
		return nil, false, absent
	}
	return handles, degraded, nil
}

func handleNames(hs []*Handle) []string {
	out := make([]string, len(hs))
	for i, h := range hs {
		out[i] = h.Partition.String()
	}
	return out
}

func scanPartial(ctx context.Context, db *sql.DB, sqlText string, args []interface{}) (partial, error) {
	var (
		out              partial
		minDate, maxDate sql.NullString
	)
	err := db.QueryRowContext(ctx, sqlText, args...).Scan(
		&out.produced, &out.rejected, &out.downtime, &out.count, &minDate, &maxDate)
	if err != nil {
		return partial{}, err
	}
	out.minDate, out.maxDate = minDate.String, maxDate.String
	return out, nil
}

func scanGroupedPartials(ctx context.Context, db *sql.DB, sqlText string, args []interface{}) (map[string]partial, error) {
	rows, err := db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, err
	}
	defer closeWithLog(rows, "partial rows")

	out := make(map[string]partial)
	for rows.Next() {
		var (
			line             string
			p                partial
			minDate, maxDate sql.NullString
		)
		if err := rows.Scan(&line, &p.produced, &p.rejected, &p.downtime, &p.count, &minDate, &maxDate); err != nil {
			return nil, err
		}
		p.minDate, p.maxDate = minDate.String, maxDate.String
		out[line] = p
	}
	return out, rows.Err()
}
