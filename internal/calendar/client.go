package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client implements Provider against a Google-Calendar-shaped HTTP API:
// POST /calendars/{id}/freeBusy, GET /calendars/{id}/events with
// syncToken/pageToken pagination (410 signals an expired cursor), and
// PUT /calendars/{id}/events/{eventId} for idempotent upserts.
type Client struct {
	hc      *http.Client
	baseURL string
	token   string
}

func New(baseURL, token string) *Client {
	return &Client{
		hc:      &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
		token:   token,
	}
}

type wireTime struct {
	DateTime time.Time `json:"dateTime"`
}

type wireEvent struct {
	ID      string    `json:"id"`
	Status  string    `json:"status"`
	Etag    string    `json:"etag"`
	ICalUID string    `json:"iCalUID"`
	Summary string    `json:"summary"`
	Start   *wireTime `json:"start,omitempty"`
	End     *wireTime `json:"end,omitempty"`
}

func (w wireEvent) toEvent() Event {
	ev := Event{ID: w.ID, Status: w.Status, Etag: w.Etag, ICalUID: w.ICalUID, Summary: w.Summary}
	if w.Start != nil {
		ev.Start = w.Start.DateTime
	}
	if w.End != nil {
		ev.End = w.End.DateTime
	}
	return ev
}

func (c *Client) FreeBusy(ctx context.Context, calendarID string, from, to time.Time) ([]BusyWindow, error) {
	body := map[string]any{
		"timeMin": from.UTC().Format(time.RFC3339),
		"timeMax": to.UTC().Format(time.RFC3339),
	}
	status, b, err := c.do(ctx, http.MethodPost, "/calendars/"+url.PathEscape(calendarID)+"/freeBusy", nil, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if status >= 400 {
		return nil, apiError("freeBusy", status, b)
	}

	var res struct {
		Busy []struct {
			Start time.Time `json:"start"`
			End   time.Time `json:"end"`
		} `json:"busy"`
	}
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, fmt.Errorf("freeBusy: decode: %w", err)
	}
	out := make([]BusyWindow, 0, len(res.Busy))
	for _, w := range res.Busy {
		out = append(out, BusyWindow{Start: w.Start, End: w.End})
	}
	return out, nil
}

func (c *Client) Changes(ctx context.Context, calendarID string, q ChangeQuery) (ChangePage, error) {
	query := url.Values{}
	if q.SyncToken != "" {
		query.Set("syncToken", q.SyncToken)
	} else {
		query.Set("timeMin", q.From.UTC().Format(time.RFC3339))
		query.Set("timeMax", q.To.UTC().Format(time.RFC3339))
	}
	if q.PageToken != "" {
		query.Set("pageToken", q.PageToken)
	}

	status, b, err := c.do(ctx, http.MethodGet, "/calendars/"+url.PathEscape(calendarID)+"/events", query, nil)
	if err != nil {
		return ChangePage{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if status == http.StatusGone {
		return ChangePage{}, ErrCursorExpired
	}
	if status >= 400 {
		return ChangePage{}, apiError("events", status, b)
	}

	var res struct {
		Items         []wireEvent `json:"items"`
		NextPageToken string      `json:"nextPageToken"`
		NextSyncToken string      `json:"nextSyncToken"`
	}
	if err := json.Unmarshal(b, &res); err != nil {
		return ChangePage{}, fmt.Errorf("events: decode: %w", err)
	}
	page := ChangePage{NextPageToken: res.NextPageToken, NextSyncToken: res.NextSyncToken}
	for _, it := range res.Items {
		page.Events = append(page.Events, it.toEvent())
	}
	return page, nil
}

func (c *Client) UpsertEvent(ctx context.Context, calendarID string, ev Event) (Event, error) {
	w := wireEvent{
		ID:      ev.ID,
		Status:  ev.Status,
		Summary: ev.Summary,
		Start:   &wireTime{DateTime: ev.Start},
	}
	if !ev.End.IsZero() {
		w.End = &wireTime{DateTime: ev.End}
	}

	path := "/calendars/" + url.PathEscape(calendarID) + "/events/" + url.PathEscape(ev.ID)
	status, b, err := c.do(ctx, http.MethodPut, path, nil, w)
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if status >= 400 {
		return Event{}, apiError("upsert event", status, b)
	}

	var out wireEvent
	if err := json.Unmarshal(b, &out); err != nil {
		return Event{}, fmt.Errorf("upsert event: decode: %w", err)
	}
	return out.toEvent(), nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (int, []byte, error) {
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		buf = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, buf)
	if err != nil {
		return 0, nil, err
	}
	if query != nil {
		req.URL.RawQuery = query.Encode()
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	if err != nil {
		return res.StatusCode, nil, err
	}
	return res.StatusCode, b, nil
}

func apiError(op string, status int, body []byte) error {
	var r struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &r)
	if status >= 500 {
		if r.Message != "" {
			return fmt.Errorf("%w: %s: %s (status=%d)", ErrUnavailable, op, r.Message, status)
		}
		return fmt.Errorf("%w: %s (status=%d)", ErrUnavailable, op, status)
	}
	if r.Message != "" {
		return fmt.Errorf("calendar %s failed: %s (status=%d)", op, r.Message, status)
	}
	return fmt.Errorf("calendar %s failed (status=%d)", op, status)
}
