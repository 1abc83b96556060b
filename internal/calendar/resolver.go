// Package calendar maps calendar dates to rows of the date dimension.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yukikurage/task-insights-api/internal/cache"
	"github.com/yukikurage/task-insights-api/internal/models"
	"github.com/yukikurage/task-insights-api/internal/repository"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// DateLayout is the canonical key format of a date row.
const DateLayout = "2006-01-02"

// Resolver resolves dates to dimension ids, creating rows on first
// reference. Concurrent first references to one date collapse into a single
// insert in-process; across processes the unique full_date index keeps one
// row.
type Resolver struct {
	repo  repository.DateDimensionRepository
	cache *cache.Store
	group singleflight.Group
}

// NewResolver creates a Resolver backed by the given repository and cache.
func NewResolver(repo repository.DateDimensionRepository, store *cache.Store) *Resolver {
	return &Resolver{repo: repo, cache: store}
}

// Resolve returns the dimension id for the calendar day of t, in t's location.
func (r *Resolver) Resolve(ctx context.Context, t time.Time) (uint64, error) {
	key := t.Format(DateLayout)
	if id, ok := cache.GetAs[uint64](r.cache, cache.DateIDKey(key)); ok {
		return id, nil
	}

	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		dim, err := r.findOrCreate(ctx, t)
		if err != nil {
			return nil, err
		}
		r.remember(*dim)
		return dim.ID, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(uint64), nil
}

// Lookup batch-loads date rows by id: cached rows first, then one query for
// the misses.
func (r *Resolver) Lookup(ctx context.Context, ids []uint64) (map[uint64]models.DateDimension, error) {
	result := make(map[uint64]models.DateDimension, len(ids))
	var missing []uint64
	for _, id := range uniqueIDs(ids) {
		if dim, ok := cache.GetAs[models.DateDimension](r.cache, cache.DateDimensionKey(id)); ok {
			result[id] = dim
			continue
		}
		missing = append(missing, id)
	}

	if len(missing) == 0 {
		return result, nil
	}

	dims, err := r.repo.FindByIDs(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("failed to load date dimensions: %w", err)
	}
	for _, dim := range dims {
		r.remember(dim)
		result[dim.ID] = dim
	}
	return result, nil
}

func (r *Resolver) findOrCreate(ctx context.Context, t time.Time) (*models.DateDimension, error) {
	key := t.Format(DateLayout)

	dim, err := r.repo.FindByFullDate(ctx, key)
	if err == nil {
		return dim, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to find date %s: %w", key, err)
	}

	row := Describe(t)
	if err := r.repo.InsertIfAbsent(ctx, &row); err != nil {
		return nil, fmt.Errorf("failed to create date %s: %w", key, err)
	}

	// Re-read: the insert may have lost a race to another writer.
	dim, err = r.repo.FindByFullDate(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to reload date %s: %w", key, err)
	}
	return dim, nil
}

func (r *Resolver) remember(dim models.DateDimension) {
	r.cache.Set(cache.DateIDKey(dim.FullDate), dim.ID, cache.DateTTL)
	r.cache.Set(cache.DateDimensionKey(dim.ID), dim, cache.DateTTL)
}

// Describe derives every attribute of the dimension row for t's calendar day.
func Describe(t time.Time) models.DateDimension {
	year, month, day := t.Date()
	_, week := t.ISOWeek()
	dow := DayOfWeek(t)

	return models.DateDimension{
		FullDate:   t.Format(DateLayout),
		Year:       year,
		Quarter:    (int(month)-1)/3 + 1,
		Month:      int(month),
		MonthName:  month.String(),
		WeekOfYear: week,
		DayOfMonth: day,
		DayOfWeek:  dow,
		DayName:    t.Weekday().String(),
		IsWeekend:  dow >= 6,
		IsHoliday:  false,
	}
}

// DayOfWeek maps t to Monday=1 .. Sunday=7.
func DayOfWeek(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// DayName returns the English day name for a Monday=1 .. Sunday=7 index.
func DayName(dayOfWeek int) string {
	if dayOfWeek < 1 || dayOfWeek > 7 {
		return ""
	}
	return time.Weekday(dayOfWeek % 7).String()
}

func uniqueIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	result := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}
