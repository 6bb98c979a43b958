package catalog

import (
	"context"
	"sort"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"vectortube/internal/errs"
)

// DefaultGrace keeps Reconcile away from files whose record may still be
// in flight.
const DefaultGrace = 10 * time.Minute

type ReconcileOptions struct {
	// Remove deletes orphan files instead of only reporting them.
	Remove bool
	// Grace is the minimum age of an unreferenced file before it counts as
	// an orphan. Zero means DefaultGrace; negative means no grace.
	Grace time.Duration
}

// Dangling is a record whose thumbnail file is missing.
type Dangling struct {
	ID        string `json:"id"`
	Thumbnail string `json:"thumbnail"`
}

type Report struct {
	Records  int        `json:"records"`
	Assets   int        `json:"assets"`
	Pending  int        `json:"pending"`
	Orphans  []string   `json:"orphans"`
	Dangling []Dangling `json:"dangling"`
	Removed  []string   `json:"removed"`
	Errors   []string   `json:"errors"`
}

// Reconcile compares the asset store against the record store. Orphan files
// are removed when opts.Remove is set; dangling records are only reported,
// since the record stays authoritative.
func (s *Service) Reconcile(ctx context.Context, opts ReconcileOptions) (Report, error) {
	grace := opts.Grace
	if grace == 0 {
		grace = DefaultGrace
	} else if grace < 0 {
		grace = 0
	}

	// assets before records: anything created in between shows up as a
	// fresh unreferenced file, which grace protects
	assets, err := s.assets.List(ctx)
	if err != nil {
		return Report{}, errs.Wrap(errs.IO, "reconcile", "failed to list assets", err)
	}
	recs, err := s.records.List(ctx)
	if err != nil {
		return Report{}, errs.Wrap(errs.Store, "reconcile", "failed to fetch videos", err)
	}

	report := Report{
		Records:  len(recs),
		Assets:   len(assets),
		Orphans:  []string{},
		Dangling: []Dangling{},
		Removed:  []string{},
		Errors:   []string{},
	}

	referenced := make(map[string]bool, len(recs))
	for _, rec := range recs {
		if rec.Thumbnail != "" {
			referenced[rec.Thumbnail] = true
		}
	}

	present := make(map[string]bool, len(assets))
	cutoff := s.now().Add(-grace)
	for _, a := range assets {
		present[a.Ref] = true
		if referenced[a.Ref] {
			continue
		}
		if a.ModTime.After(cutoff) {
			report.Pending++
			continue
		}
		report.Orphans = append(report.Orphans, a.Ref)
	}
	sort.Strings(report.Orphans)

	for _, rec := range recs {
		if rec.Thumbnail == "" || present[rec.Thumbnail] {
			continue
		}
		// the file may have been written after the asset listing
		ok, err := s.assets.Exists(ctx, rec.Thumbnail)
		if err == nil && ok {
			continue
		}
		report.Dangling = append(report.Dangling, Dangling{ID: rec.ID, Thumbnail: rec.Thumbnail})
	}

	if !opts.Remove {
		return report, nil
	}

	var removeErr error
	for _, ref := range report.Orphans {
		if err := s.assets.Delete(ctx, ref); err != nil {
			removeErr = multierr.Append(removeErr, err)
			report.Errors = append(report.Errors, err.Error())
			continue
		}
		report.Removed = append(report.Removed, ref)
	}

	s.log.Info("reconciled assets",
		zap.Int("orphans", len(report.Orphans)),
		zap.Int("removed", len(report.Removed)),
		zap.Int("dangling", len(report.Dangling)),
	)

	if removeErr != nil {
		return report, errs.Wrap(errs.IO, "reconcile", "failed to remove some orphans", removeErr)
	}
	return report, nil
}
