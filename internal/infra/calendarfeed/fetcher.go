// Package calendarfeed reads busy periods from external iCalendar feeds.
package calendarfeed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"rentme/internal/app/policies"
)

const maxFeedBytes = 4 << 20

type Fetcher struct {
	client *http.Client
}

func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Fetcher{client: &http.Client{Timeout: timeout}}
}

func (f *Fetcher) Fetch(ctx context.Context, url string) ([]policies.FeedEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/calendar")
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calendarfeed: fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("calendarfeed: fetch %s: status %d", url, resp.StatusCode)
	}
	return Parse(io.LimitReader(resp.Body, maxFeedBytes))
}

// Parse extracts VEVENTs as whole days. Events without usable dates or with
// an end not after their start are skipped.
func Parse(r io.Reader) ([]policies.FeedEvent, error) {
	cal, err := ics.ParseCalendar(r)
	if err != nil {
		return nil, fmt.Errorf("calendarfeed: parse: %w", err)
	}
	var out []policies.FeedEvent
	for _, ev := range cal.Events() {
		start, err := ev.GetStartAt()
		if err != nil {
			continue
		}
		end, err := ev.GetEndAt()
		if err != nil {
			end = start.AddDate(0, 0, 1)
		}
		start, end = day(start), day(end)
		if !end.After(start) {
			continue
		}
		summary := ""
		if prop := ev.GetProperty(ics.ComponentPropertySummary); prop != nil {
			summary = strings.TrimSpace(prop.Value)
		}
		out = append(out, policies.FeedEvent{UID: ev.Id(), Summary: summary, Start: start, End: end})
	}
	return out, nil
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

var _ policies.CalendarFeedPort = (*Fetcher)(nil)
