package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
)

// holidayFeed mirrors the upstream holiday JSON: per-year holiday ranges
// plus the compensatory workdays attached to each holiday.
type holidayFeed struct {
	Years map[string][]struct {
		Name      string   `json:"Name"`
		StartDate string   `json:"StartDate"`
		EndDate   string   `json:"EndDate"`
		CompDays  []string `json:"CompDays"`
	} `json:"Years"`
}

// HolidayCalendar is the set of public holidays and compensatory workdays
// for the current year. It is consulted, never mutated, by normalization;
// Refresh replaces the whole set atomically.
type HolidayCalendar struct {
	feedURL string
	client  *http.Client
	cache   *ristretto.Cache

	mu       sync.RWMutex
	holidays map[string]struct{}
	compdays map[string]struct{}
}

const holidayCacheTTL = 12 * time.Hour

// NewHolidayCalendar creates an empty calendar backed by the given feed.
// client may be nil, in which case a plain client with a conservative
// timeout is used.
func NewHolidayCalendar(feedURL string, client *http.Client) (*HolidayCalendar, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,
		MaxCost:     1 << 24,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HolidayCalendar{
		feedURL:  feedURL,
		client:   client,
		cache:    cache,
		holidays: map[string]struct{}{},
		compdays: map[string]struct{}{},
	}, nil
}

const dateKeyFormat = "2006-01-02"

// Refresh fetches the feed and replaces the holiday set for the current
// year. The raw feed body is cached so repeated refreshes within the cache
// TTL do not hit the network.
func (hc *HolidayCalendar) Refresh(ctx context.Context, now time.Time) error {
	body, err := hc.fetchFeed(ctx)
	if err != nil {
		return fmt.Errorf("fetching holiday feed: %w", err)
	}

	var feed holidayFeed
	if err := json.Unmarshal(body, &feed); err != nil {
		return fmt.Errorf("decoding holiday feed: %w", err)
	}

	year := fmt.Sprintf("%d", now.Year())
	entries, ok := feed.Years[year]
	if !ok {
		return fmt.Errorf("holiday feed has no data for year %s", year)
	}

	holidays := make(map[string]struct{})
	compdays := make(map[string]struct{})
	for _, entry := range entries {
		start, err := time.Parse(dateKeyFormat, entry.StartDate)
		if err != nil {
			return fmt.Errorf("holiday %q start date: %w", entry.Name, err)
		}
		end, err := time.Parse(dateKeyFormat, entry.EndDate)
		if err != nil {
			return fmt.Errorf("holiday %q end date: %w", entry.Name, err)
		}
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			holidays[d.Format(dateKeyFormat)] = struct{}{}
		}
		for _, comp := range entry.CompDays {
			if _, err := time.Parse(dateKeyFormat, comp); err != nil {
				return fmt.Errorf("holiday %q comp day: %w", entry.Name, err)
			}
			compdays[comp] = struct{}{}
		}
	}

	hc.mu.Lock()
	hc.holidays = holidays
	hc.compdays = compdays
	hc.mu.Unlock()
	return nil
}

func (hc *HolidayCalendar) fetchFeed(ctx context.Context) ([]byte, error) {
	if cached, found := hc.cache.Get(hc.feedURL); found {
		return cached.([]byte), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, hc.feedURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := hc.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("holiday feed returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	hc.cache.SetWithTTL(hc.feedURL, body, int64(len(body)), holidayCacheTTL)
	return body, nil
}

// IsHoliday reports whether the local date of t is a public holiday.
func (hc *HolidayCalendar) IsHoliday(t time.Time) bool {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	_, ok := hc.holidays[t.Format(dateKeyFormat)]
	return ok
}

// IsCompDay reports whether the local date of t is a compensatory workday.
// Rescheduling holiday classes onto comp days is out of scope; this exists
// for callers that want to annotate such dates.
func (hc *HolidayCalendar) IsCompDay(t time.Time) bool {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	_, ok := hc.compdays[t.Format(dateKeyFormat)]
	return ok
}

// FilterHolidays drops every occurrence whose start date falls on a
// holiday. A pure post-filter: occurrences are never moved, and applying
// it twice equals applying it once.
func (hc *HolidayCalendar) FilterHolidays(courses []Course) []Course {
	out := make([]Course, 0, len(courses))
	for _, course := range courses {
		kept := make([]Occurrence, 0, len(course.Times))
		for _, occ := range course.Times {
			if hc.IsHoliday(occ.Start) {
				continue
			}
			kept = append(kept, occ)
		}
		course.Times = kept
		out = append(out, course)
	}
	return out
}
