// Package availability decides which selected resources are blocked for a
// date range.
package availability

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"training-planner-backend/internal/metrics"
	"training-planner-backend/internal/model"
)

// ResourceRef is one selected resource as sent by the client.
type ResourceRef struct {
	ResourceID   int64  `json:"resource_id"`
	ResourceName string `json:"resource_name,omitempty"`
}

// Selections groups selected resources by category name.
type Selections map[string][]ResourceRef

// Conflict is a resource that already has an interval in the requested range.
type Conflict struct {
	ResourceID int64  `json:"id"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	Status     string `json:"status"`
}

// Candidate is a resource that may be written to the ledger.
type Candidate struct {
	ResourceID int64
	Name       string
	Category   string
}

// Report is the outcome of a check.
type Report struct {
	Conflicts  []Conflict
	Reservable []Candidate
	Inactive   []int64
	Unknown    []int64
}

// Blocked reports whether any resource conflicts.
func (r *Report) Blocked() bool { return len(r.Conflicts) > 0 }

// ResourceLookup loads generic resource rows by id.
type ResourceLookup interface {
	Resources(ctx context.Context, ids []int64) (map[int64]model.Resource, error)
}

// IntervalSource finds ledger intervals intersecting a range.
type IntervalSource interface {
	Overlapping(ctx context.Context, resourceID int64, start time.Time, end *time.Time) ([]model.ResourceStatusHistory, error)
}

// Checker validates resource selections against the ledger.
type Checker struct {
	resources ResourceLookup
	intervals IntervalSource
}

// New returns a checker reading from the given sources.
func New(resources ResourceLookup, intervals IntervalSource) *Checker {
	return &Checker{resources: resources, intervals: intervals}
}

// FindConflicts returns the active resources of sel that have any interval
// intersecting [start, end]. Inactive resources are never reported.
func (c *Checker) FindConflicts(ctx context.Context, sel Selections, start, end time.Time) ([]Conflict, error) {
	report, err := c.Check(ctx, sel, start, end)
	if err != nil {
		return nil, err
	}
	return report.Conflicts, nil
}

// Check classifies every selected resource. Any storage error aborts the
// whole check.
func (c *Checker) Check(ctx context.Context, sel Selections, start, end time.Time) (*Report, error) {
	categories := make([]string, 0, len(sel))
	for cat := range sel {
		categories = append(categories, cat)
	}
	sort.Strings(categories)

	var ids []int64
	seen := make(map[int64]bool)
	for _, cat := range categories {
		for _, ref := range sel[cat] {
			if ref.ResourceID <= 0 || seen[ref.ResourceID] {
				continue
			}
			seen[ref.ResourceID] = true
			ids = append(ids, ref.ResourceID)
		}
	}

	report := &Report{}
	if len(ids) == 0 {
		return report, nil
	}

	known, err := c.resources.Resources(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to read resource status: %w", err)
	}

	visited := make(map[int64]bool, len(ids))
	for _, cat := range categories {
		for _, ref := range sel[cat] {
			if ref.ResourceID <= 0 || visited[ref.ResourceID] {
				continue
			}
			visited[ref.ResourceID] = true

			res, ok := known[ref.ResourceID]
			if !ok {
				slog.Warn("selected resource does not exist, skipping", "resource_id", ref.ResourceID, "category", cat)
				report.Unknown = append(report.Unknown, ref.ResourceID)
				continue
			}
			if !res.Active() {
				report.Inactive = append(report.Inactive, ref.ResourceID)
				continue
			}

			endDay := end
			overlapping, err := c.intervals.Overlapping(ctx, ref.ResourceID, start, &endDay)
			if err != nil {
				return nil, fmt.Errorf("failed to check resource %d: %w", ref.ResourceID, err)
			}
			if len(overlapping) > 0 {
				report.Conflicts = append(report.Conflicts, Conflict{
					ResourceID: res.ID,
					Name:       res.Name,
					Category:   cat,
					Status:     res.Status,
				})
				continue
			}
			report.Reservable = append(report.Reservable, Candidate{ResourceID: res.ID, Name: res.Name, Category: cat})
		}
	}

	if len(report.Conflicts) > 0 {
		metrics.Conflicts.Add(float64(len(report.Conflicts)))
	}
	return report, nil
}
