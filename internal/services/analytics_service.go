package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/yukikurage/task-insights-api/internal/cache"
	"github.com/yukikurage/task-insights-api/internal/calendar"
	"github.com/yukikurage/task-insights-api/internal/models"
	"github.com/yukikurage/task-insights-api/internal/repository"
)

// DefaultOnTimeWindow applies to tasks without an estimate.
const DefaultOnTimeWindow = 7 * 24 * time.Hour

const peakHourCount = 3

// CompletionStats summarizes completion over the user's tasks.
type CompletionStats struct {
	Total          int64   `json:"total"`
	Completed      int64   `json:"completed"`
	Pending        int64   `json:"pending"`
	InProgress     int64   `json:"in_progress"`
	CompletionRate float64 `json:"completion_rate"`
}

// DayOfWeekCount counts completions on one weekday.
type DayOfWeekCount struct {
	DayName   string `json:"day_name"`
	DayOfWeek int    `json:"day_of_week"`
	Count     int    `json:"count"`
}

// OnTimeStats compares completion durations against their allowed window.
type OnTimeStats struct {
	TotalCompleted   int     `json:"total_completed"`
	OnTimeCount      int     `json:"on_time_count"`
	LateCount        int     `json:"late_count"`
	OnTimePercentage float64 `json:"on_time_percentage"`
}

// CategoryTiming is the average completion duration of one category.
type CategoryTiming struct {
	CategoryID         uint64  `json:"category_id"`
	CategoryName       string  `json:"category_name"`
	AvgCompletionHours float64 `json:"avg_completion_hours"`
	AvgCompletionDays  float64 `json:"avg_completion_days"`
	TaskCount          int     `json:"task_count"`
}

// ProductivityMetrics summarizes throughput and timing.
type ProductivityMetrics struct {
	TasksPerDay            float64 `json:"tasks_per_day"`
	AvgCompletionTimeHours float64 `json:"avg_completion_time_hours"`
	MostProductiveDay      string  `json:"most_productive_day"`
	MostProductiveMonth    string  `json:"most_productive_month"`
	PeakHours              []int   `json:"peak_hours"`
}

// AnalyticsService computes read-only completion analytics per user.
type AnalyticsService struct {
	taskRepo      repository.TaskRepository
	changeLogRepo repository.ChangeLogRepository
	statuses      *StatusService
	categories    *CategoryService
	calendar      *calendar.Resolver
	cache         *cache.Store
	clock         Clock
}

// NewAnalyticsService creates a new AnalyticsService.
func NewAnalyticsService(
	taskRepo repository.TaskRepository,
	changeLogRepo repository.ChangeLogRepository,
	statuses *StatusService,
	categories *CategoryService,
	resolver *calendar.Resolver,
	store *cache.Store,
) *AnalyticsService {
	return &AnalyticsService{
		taskRepo:      taskRepo,
		changeLogRepo: changeLogRepo,
		statuses:      statuses,
		categories:    categories,
		calendar:      resolver,
		cache:         store,
	}
}

// SetClock replaces the time source.
func (s *AnalyticsService) SetClock(clock Clock) {
	s.clock = clock
}

// CompletionStats counts tasks created in the range by completion state.
func (s *AnalyticsService) CompletionStats(ctx context.Context, userID uint64, dr repository.DateRange) (*CompletionStats, error) {
	return cached(s, userID, "completion", dr, func() (*CompletionStats, error) {
		tasks, err := s.taskRepo.ListCreatedIn(ctx, userID, dr)
		if err != nil {
			return nil, fmt.Errorf("failed to load tasks: %w", err)
		}
		inProgress, err := s.statuses.ByName(ctx, models.StatusInProgress)
		if err != nil {
			return nil, err
		}

		stats := &CompletionStats{Total: int64(len(tasks))}
		for _, t := range tasks {
			switch {
			case t.IsCompleted:
				stats.Completed++
			case t.StatusID == inProgress.ID:
				stats.InProgress++
			default:
				stats.Pending++
			}
		}
		stats.CompletionRate = percentage(int(stats.Completed), int(stats.Total))
		return stats, nil
	})
}

// CompletionByDayOfWeek counts completions per weekday of the logged
// completion date, Monday first. Days without completions are omitted.
func (s *AnalyticsService) CompletionByDayOfWeek(ctx context.Context, userID uint64, dr repository.DateRange) ([]DayOfWeekCount, error) {
	return cached(s, userID, "day-of-week", dr, func() ([]DayOfWeekCount, error) {
		events, err := s.completionEvents(ctx, userID, dr)
		if err != nil {
			return nil, err
		}
		dims, err := s.completionDates(ctx, events)
		if err != nil {
			return nil, err
		}

		counts := make(map[int]int)
		for _, e := range events {
			counts[eventDate(e, dims).DayOfWeek]++
		}

		result := make([]DayOfWeekCount, 0, len(counts))
		for dow, count := range counts {
			result = append(result, DayOfWeekCount{
				DayName:   calendar.DayName(dow),
				DayOfWeek: dow,
				Count:     count,
			})
		}
		sort.Slice(result, func(i, j int) bool {
			return result[i].DayOfWeek < result[j].DayOfWeek
		})
		return result, nil
	})
}

// OnTimeCompletionStats classifies completed tasks as on time when they took
// no longer than their estimate, or DefaultOnTimeWindow without one.
func (s *AnalyticsService) OnTimeCompletionStats(ctx context.Context, userID uint64, dr repository.DateRange) (*OnTimeStats, error) {
	return cached(s, userID, "on-time", dr, func() (*OnTimeStats, error) {
		tasks, err := s.taskRepo.ListCompletedIn(ctx, userID, dr)
		if err != nil {
			return nil, fmt.Errorf("failed to load completed tasks: %w", err)
		}

		stats := &OnTimeStats{TotalCompleted: len(tasks)}
		for i := range tasks {
			window := DefaultOnTimeWindow
			if tasks[i].EstimatedHours != nil {
				window = hoursToDuration(*tasks[i].EstimatedHours)
			}
			if completionDuration(&tasks[i]) <= window {
				stats.OnTimeCount++
			} else {
				stats.LateCount++
			}
		}
		stats.OnTimePercentage = percentage(stats.OnTimeCount, stats.TotalCompleted)
		return stats, nil
	})
}

// CategoryCompletionTime averages completion duration per category, slowest first.
func (s *AnalyticsService) CategoryCompletionTime(ctx context.Context, userID uint64, dr repository.DateRange) ([]CategoryTiming, error) {
	return cached(s, userID, "category-time", dr, func() ([]CategoryTiming, error) {
		tasks, err := s.taskRepo.ListCompletedIn(ctx, userID, dr)
		if err != nil {
			return nil, fmt.Errorf("failed to load completed tasks: %w", err)
		}

		type bucket struct {
			hours float64
			count int
		}
		buckets := make(map[uint64]*bucket)
		var order []uint64
		for i := range tasks {
			if tasks[i].CategoryID == nil {
				continue
			}
			id := *tasks[i].CategoryID
			b, ok := buckets[id]
			if !ok {
				b = &bucket{}
				buckets[id] = b
				order = append(order, id)
			}
			b.hours += completionDuration(&tasks[i]).Hours()
			b.count++
		}

		categories, err := s.categories.Lookup(ctx, order)
		if err != nil {
			return nil, err
		}

		result := make([]CategoryTiming, 0, len(order))
		for _, id := range order {
			b := buckets[id]
			avg := b.hours / float64(b.count)
			result = append(result, CategoryTiming{
				CategoryID:         id,
				CategoryName:       categories[id].Name,
				AvgCompletionHours: avg,
				AvgCompletionDays:  avg / 24,
				TaskCount:          b.count,
			})
		}
		sort.SliceStable(result, func(i, j int) bool {
			return result[i].AvgCompletionHours > result[j].AvgCompletionHours
		})
		return result, nil
	})
}

// ProductivityMetrics reports throughput, average completion time and when
// completions tend to happen.
func (s *AnalyticsService) ProductivityMetrics(ctx context.Context, userID uint64, dr repository.DateRange) (*ProductivityMetrics, error) {
	return cached(s, userID, "productivity", dr, func() (*ProductivityMetrics, error) {
		created, err := s.taskRepo.ListCreatedIn(ctx, userID, dr)
		if err != nil {
			return nil, fmt.Errorf("failed to load tasks: %w", err)
		}
		days, err := s.daysInRange(ctx, userID, dr)
		if err != nil {
			return nil, err
		}

		completed, err := s.taskRepo.ListCompletedIn(ctx, userID, dr)
		if err != nil {
			return nil, fmt.Errorf("failed to load completed tasks: %w", err)
		}
		var totalHours float64
		for i := range completed {
			totalHours += completionDuration(&completed[i]).Hours()
		}

		metrics := &ProductivityMetrics{
			TasksPerDay: round2(float64(len(created)) / float64(days)),
			PeakHours:   []int{},
		}
		if len(completed) > 0 {
			metrics.AvgCompletionTimeHours = round2(totalHours / float64(len(completed)))
		}

		events, err := s.completionEvents(ctx, userID, dr)
		if err != nil {
			return nil, err
		}
		dims, err := s.completionDates(ctx, events)
		if err != nil {
			return nil, err
		}

		var dayNames, monthNames []string
		var hours []int
		for _, e := range events {
			dim := eventDate(e, dims)
			dayNames = append(dayNames, dim.DayName)
			monthNames = append(monthNames, dim.MonthName)
			hours = append(hours, e.CreatedAt.UTC().Hour())
		}
		metrics.MostProductiveDay = mode(dayNames)
		metrics.MostProductiveMonth = mode(monthNames)
		metrics.PeakHours = topN(hours, peakHourCount)

		return metrics, nil
	})
}

// completionEvents returns the latest completion log entry per task whose
// completion time falls inside the range. Entries whose task was deleted each
// count on their own. The range is checked against the latest entry only.
func (s *AnalyticsService) completionEvents(ctx context.Context, userID uint64, dr repository.DateRange) ([]models.TaskChangeLog, error) {
	entries, err := s.changeLogRepo.ListCompletionEvents(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load completion events: %w", err)
	}

	latest := make(map[uint64]int)
	reduced := make([]models.TaskChangeLog, 0, len(entries))
	for _, e := range entries {
		if e.TaskID == nil {
			reduced = append(reduced, e)
			continue
		}
		if idx, ok := latest[*e.TaskID]; ok {
			if !e.After(&reduced[idx]) {
				continue
			}
			reduced[idx] = e
			continue
		}
		latest[*e.TaskID] = len(reduced)
		reduced = append(reduced, e)
	}

	result := reduced[:0]
	for _, e := range reduced {
		if dr.Contains(*e.CompletedAt) {
			result = append(result, e)
		}
	}
	return result, nil
}


func (s *AnalyticsService) completionDates(ctx context.Context, events []models.TaskChangeLog) (map[uint64]models.DateDimension, error) {
	ids := make([]uint64, 0, len(events))
	for _, e := range events {
		if e.CompletedDateID != nil {
			ids = append(ids, *e.CompletedDateID)
		}
	}
	dims, err := s.calendar.Lookup(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load completion dates: %w", err)
	}
	return dims, nil
}

// daysInRange is the whole-day length of the range, at least 1. Open ends
// fall back to the user's first task and now.
func (s *AnalyticsService) daysInRange(ctx context.Context, userID uint64, dr repository.DateRange) (int, error) {
	now := s.clock.now()
	to := now
	if dr.To != nil {
		to = *dr.To
	}

	from := now
	if dr.From != nil {
		from = *dr.From
	} else {
		first, err := s.taskRepo.FirstCreatedAt(ctx, userID)
		if err != nil {
			return 0, fmt.Errorf("failed to load first task: %w", err)
		}
		if first != nil {
			from = *first
		}
	}

	days := int(math.Ceil(to.Sub(from).Hours() / 24))
	if days < 1 {
		days = 1
	}
	return days, nil
}

// cached serves an analytics result from the cache or computes and stores it.
func cached[T any](s *AnalyticsService, userID uint64, metric string, dr repository.DateRange, compute func() (T, error)) (T, error) {
	key := cache.AnalyticsKey(userID, metric, rangeFingerprint(dr))
	if v, ok := cache.GetAs[T](s.cache, key); ok {
		return v, nil
	}

	v, err := compute()
	if err != nil {
		return v, err
	}
	s.cache.Set(key, v, cache.StatsTTL)
	return v, nil
}

func rangeFingerprint(dr repository.DateRange) string {
	from, to := "-", "-"
	if dr.From != nil {
		from = dr.From.UTC().Format(time.RFC3339)
	}
	if dr.To != nil {
		to = dr.To.UTC().Format(time.RFC3339)
	}
	return from + "/" + to
}

// eventDate returns the calendar row of the logged completion date, deriving
// it from the completion timestamp when the row is unavailable.
func eventDate(e models.TaskChangeLog, dims map[uint64]models.DateDimension) models.DateDimension {
	if e.CompletedDateID != nil {
		if dim, ok := dims[*e.CompletedDateID]; ok {
			return dim
		}
	}
	return calendar.Describe(e.CompletedAt.UTC())
}

func completionDuration(t *models.Task) time.Duration {
	if t.CompletedAt == nil {
		return 0
	}
	return t.CompletedAt.Sub(t.CreatedAt)
}

// percentage returns part/total as a percentage rounded to 2 decimals, 0 for an empty total.
func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(part) / float64(total) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// mode returns the most frequent value; ties go to the value seen first.
func mode(values []string) string {
	counts := make(map[string]int)
	best, bestCount := "", 0
	for _, v := range values {
		counts[v]++
	}
	for _, v := range values {
		if counts[v] > bestCount {
			best, bestCount = v, counts[v]
		}
	}
	return best
}

// topN returns up to n most frequent values; ties go to the value seen first.
func topN(values []int, n int) []int {
	counts := make(map[int]int)
	var order []int
	for _, v := range values {
		if _, ok := counts[v]; !ok {
			order = append(order, v)
		}
		counts[v]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > n {
		order = order[:n]
	}
	return order
}
