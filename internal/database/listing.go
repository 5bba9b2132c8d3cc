// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/tomtom215/prodledger/internal/apperr"
	"github.com/tomtom215/prodledger/internal/cache"
	"github.com/tomtom215/prodledger/internal/database/query"
	"github.com/tomtom215/prodledger/internal/logging"
	"github.com/tomtom215/prodledger/internal/models"
)

// listParams is the cache identity of a listing request.
type listParams struct {
	Filter models.RecordFilter `json:"filter"`
	After  *models.Cursor      `json:"after,omitempty"`
	Limit  int                 `json:"limit"`
	Target string              `json:"target"`
}

// ListRecords returns one page of records matching filter in
// (production_date DESC, source_partition DESC, row_id DESC) order, starting
// after cursor when it is non-empty.
//
// A malformed cursor fails with InvalidCursor. When a range spanning both
// partitions finds one of them absent, the page is served from the other and
// marked Degraded. An archive that exists but cannot be attached fails with
// ConnectionError.
func (s *Store) ListRecords(ctx context.Context, filter models.RecordFilter, cursor string, limit int) (*models.RecordPage, error) {
	target := PickTargets(filter.From, filter.To, s.cfg.Cutoff)
	obs := observation{op: OpListRecords, target: target.String(), start: time.Now()}

	var after *models.Cursor
	if cursor != "" {
		c, err := DecodeCursor(cursor)
		if err != nil {
			s.finish(ctx, obs, err)
			return nil, err
		}
		after = &c
	}
	limit = s.clampLimit(limit)

	params := listParams{Filter: filter, After: after, Limit: limit, Target: target.String()}
	page, lookup, err := cache.Fetch(ctx, s.cache, OpListRecords, params, s.cfg.ListingTTL,
		func(ctx context.Context) (*models.RecordPage, error) {
			return s.listRecords(ctx, target, filter, after, limit)
		})
	obs.lookup = lookup
	if page != nil {
		obs.used, obs.rows, obs.degraded = page.PartitionsUsed, len(page.Records), page.Degraded
	}
	s.finish(ctx, obs, err)
	if err != nil {
		return nil, err
	}
	return page, nil
}

// listPlan is the connection and union branches a listing runs on.
type listPlan struct {
	handle   *Handle
	branches []query.Branch
	used     []Partition
	degraded bool
}

// planListing picks the handle for target. Both runs on the live handle with
// the archive attached; archive alone runs on the archive handle.
func (s *Store) planListing(ctx context.Context, w *Worker, target Target) (listPlan, error) {
	tracker := w.mgr.Tracker()
	if target == TargetBoth && !tracker.Available(PartitionLive) && tracker.Available(PartitionArchive) {
		logging.Ctx(ctx).Warn().Msg("Live partition unavailable, serving archive only")
		plan, err := archivePlan(ctx, w)
		plan.degraded = true
		return plan, err
	}

	switch target {
	case TargetArchive:
		return archivePlan(ctx, w)

	case TargetLive:
		h, err := w.Conn(ctx, PartitionLive)
		if err != nil {
			return listPlan{}, err
		}
		return listPlan{
			handle:   h,
			branches: []query.Branch{{Schema: "main", Source: models.SourceLive}},
			used:     []Partition{PartitionLive},
		}, nil

	default:
		h, err := w.Conn(ctx, PartitionLive)
		if err != nil {
			return listPlan{}, err
		}
		plan := listPlan{
			handle:   h,
			branches: []query.Branch{{Schema: "main", Source: models.SourceLive}},
			used:     []Partition{PartitionLive},
		}
		if !h.ArchiveAttached {
			if tracker.Available(PartitionArchive) {
				// Retry the ATTACH on the next request.
				w.drop(PartitionLive)
				cause := h.AttachErr
				if cause == nil {
					cause = errors.New("archive not attached")
				}
				return listPlan{}, apperr.Connection(PartitionArchive.String(), cause)
			}
			logging.Ctx(ctx).Warn().Msg("Archive partition unavailable, serving live only")
			plan.degraded = true
			return plan, nil
		}
		plan.branches = append(plan.branches, query.Branch{Schema: archiveAlias, Source: models.SourceArchive})
		plan.used = append(plan.used, PartitionArchive)
		return plan, nil
	}
}

func archivePlan(ctx context.Context, w *Worker) (listPlan, error) {
	h, err := w.Conn(ctx, PartitionArchive)
	if err != nil {
		return listPlan{}, err
	}
	return listPlan{
		handle:   h,
		branches: []query.Branch{{Schema: "main", Source: models.SourceArchive}},
		used:     []Partition{PartitionArchive},
	}, nil
}

func (s *Store) listRecords(ctx context.Context, target Target, filter models.RecordFilter, after *models.Cursor, limit int) (*models.RecordPage, error) {
	var page *models.RecordPage

	err := s.mgr.WithWorker(ctx, func(w *Worker) error {
		plan, err := s.planListing(ctx, w, target)
		if err != nil {
			return err
		}

		where, whereArgs := buildWhere(filter).Build()
		listing := query.BuildListing(s.mgr.Table(), plan.branches, where, whereArgs, after, limit+1)

		records, err := queryRecords(ctx, plan.handle.DB, listing)
		if err != nil {
			return wrapQueryError(plan.handle.Partition, err)
		}

		page = &models.RecordPage{
			Records:        records,
			Limit:          limit,
			PartitionsUsed: partitionNames(plan.used),
			Degraded:       plan.degraded,
		}
		if len(records) > limit {
			page.Records = records[:limit]
			page.HasMore = true
			page.NextCursor = EncodeCursor(CursorFromRecord(page.Records[limit-1]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// buildWhere maps a RecordFilter onto the enumerated predicate fragments.
func buildWhere(f models.RecordFilter) *query.WhereBuilder {
	return query.NewWhereBuilder().
		AddDateRange(f.From, f.To).
		AddLine(f.Line).
		AddLines(f.Lines).
		AddProductCode(f.ProductCode).
		AddShift(f.Shift)
}

func queryRecords(ctx context.Context, db *sql.DB, l query.Listing) ([]models.ProductionRecord, error) {
	rows, err := db.QueryContext(ctx, l.SQL, l.Args...)
	if err != nil {
		return nil, err
	}
	defer closeWithLog(rows, "record rows")

	records := make([]models.ProductionRecord, 0)
	for rows.Next() {
		var (
			r                            models.ProductionRecord
			line, product, shift         sql.NullString
			produced, rejected, downtime sql.NullFloat64
		)
		if err := rows.Scan(&r.RowID, &r.ProductionDate, &line, &product, &shift,
			&produced, &rejected, &downtime, &r.SourcePartition); err != nil {
			return nil, err
		}
		r.Line, r.ProductCode, r.Shift = line.String, product.String, shift.String
		r.QuantityProduced, r.QuantityRejected, r.DowntimeMinutes = produced.Float64, rejected.Float64, downtime.Float64
		records = append(records, r)
	}
	return records, rows.Err()
}
