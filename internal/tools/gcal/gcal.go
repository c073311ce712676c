// Package gcal manages the user's primary Google Calendar: scheduling
// meetings, listing upcoming events and finding free slots.
package gcal

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// Scopes required by this adapter.
var Scopes = []string{calendar.CalendarScope}

// Planner operates on the authenticated user's primary calendar.
type Planner struct {
	svc *calendar.Service
	loc *time.Location
	now func() time.Time
}

// NewPlanner builds a Planner on top of an OAuth-authenticated HTTP client.
// Times are interpreted in the process-local timezone.
func NewPlanner(ctx context.Context, httpClient *http.Client) (*Planner, error) {
	svc, err := calendar.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return &Planner{svc: svc, loc: time.Local, now: time.Now}, nil
}

// Meeting describes an event to create.
type Meeting struct {
	Title       string
	Start       string // RFC 3339 or local "2006-01-02T15:04:05"
	End         string
	Attendees   []string
	Description string
	Location    string
}

// parseWhen accepts RFC 3339 timestamps and timezone-naive local times.
func (p *Planner) parseWhen(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02T15:04:05", s, p.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid datetime %q: use RFC 3339 or YYYY-MM-DDTHH:MM:SS", s)
	}
	return t, nil
}

// Schedule creates the event and returns a confirmation with the event link.
// Attendees, when present, get invitation updates.
func (p *Planner) Schedule(m Meeting) (string, error) {
	start, err := p.parseWhen(m.Start)
	if err != nil {
		return "", err
	}
	end, err := p.parseWhen(m.End)
	if err != nil {
		return "", err
	}
	if !end.After(start) {
		return "", fmt.Errorf("end time must be after start time")
	}

	event := &calendar.Event{
		Summary:     m.Title,
		Description: m.Description,
		Location:    m.Location,
		Start:       &calendar.EventDateTime{DateTime: start.Format(time.RFC3339), TimeZone: p.loc.String()},
		End:         &calendar.EventDateTime{DateTime: end.Format(time.RFC3339), TimeZone: p.loc.String()},
	}
	sendUpdates := "none"
	for _, email := range m.Attendees {
		event.Attendees = append(event.Attendees, &calendar.EventAttendee{Email: email})
		sendUpdates = "all"
	}

	created, err := p.svc.Events.Insert("primary", event).SendUpdates(sendUpdates).Do()
	if err != nil {
		return "", fmt.Errorf("schedule meeting: %w", err)
	}

	return fmt.Sprintf("Meeting '%s' scheduled successfully!\nEvent ID: %s\nStart: %s\nEnd: %s\nCalendar link: %s",
		m.Title, created.Id,
		start.Format("2006-01-02 03:04 PM MST"),
		end.Format("2006-01-02 03:04 PM MST"),
		created.HtmlLink), nil
}

// ListUpcoming renders the next events within daysAhead days.
func (p *Planner) ListUpcoming(maxResults, daysAhead int64) (string, error) {
	if maxResults <= 0 {
		maxResults = 10
	}
	if daysAhead <= 0 {
		daysAhead = 7
	}

	now := p.now().In(p.loc)
	result, err := p.svc.Events.List("primary").
		TimeMin(now.Format(time.RFC3339)).
		TimeMax(now.AddDate(0, 0, int(daysAhead)).Format(time.RFC3339)).
		MaxResults(maxResults).
		SingleEvents(true).
		OrderBy("startTime").
		Do()
	if err != nil {
		return "", fmt.Errorf("list events: %w", err)
	}

	if len(result.Items) == 0 {
		return fmt.Sprintf("No upcoming events found in the next %d days.", daysAhead), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Upcoming events (%d found):\n", len(result.Items))
	for _, event := range result.Items {
		start := event.Start.DateTime
		display := event.Start.Date // all-day fallback
		if start != "" {
			if t, err := time.Parse(time.RFC3339, start); err == nil {
				display = t.In(p.loc).Format("2006-01-02 03:04 PM MST")
			} else {
				display = start
			}
		}
		title := event.Summary
		if title == "" {
			title = "No title"
		}
		location := event.Location
		if location == "" {
			location = "No location"
		}
		fmt.Fprintf(&b, "• %s - %s (%s)\n", title, display, location)
	}
	return b.String(), nil
}

// Interval is a half-open [Start, End) time range.
type Interval struct {
	Start time.Time
	End   time.Time
}

// FindFreeTime reports gaps of at least durationMinutes on the given date
// (YYYY-MM-DD) within working hours.
func (p *Planner) FindFreeTime(date string, durationMinutes, startHour, endHour int) (string, error) {
	if durationMinutes <= 0 {
		durationMinutes = 60
	}
	if endHour <= startHour {
		return "", fmt.Errorf("invalid working hours: end_hour %d must be after start_hour %d", endHour, startHour)
	}

	day, err := time.ParseInLocation("2006-01-02", date, p.loc)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: use YYYY-MM-DD", date)
	}
	dayStart := day.Add(time.Duration(startHour) * time.Hour)
	dayEnd := day.Add(time.Duration(endHour) * time.Hour)

	result, err := p.svc.Events.List("primary").
		TimeMin(dayStart.Format(time.RFC3339)).
		TimeMax(dayEnd.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Do()
	if err != nil {
		return "", fmt.Errorf("list events: %w", err)
	}

	var busy []Interval
	for _, event := range result.Items {
		if event.Start.DateTime == "" || event.End.DateTime == "" {
			continue // skip all-day events
		}
		start, err1 := time.Parse(time.RFC3339, event.Start.DateTime)
		end, err2 := time.Parse(time.RFC3339, event.End.DateTime)
		if err1 != nil || err2 != nil {
			continue
		}
		busy = append(busy, Interval{Start: start, End: end})
	}

	slots := FreeSlots(busy, dayStart, dayEnd, time.Duration(durationMinutes)*time.Minute)
	if len(slots) == 0 {
		return fmt.Sprintf("No free %d-minute slots available on %s between %d:00 and %d:00.",
			durationMinutes, date, startHour, endHour), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Free time slots on %s (minimum %d minutes):\n", date, durationMinutes)
	for _, slot := range slots {
		fmt.Fprintf(&b, "• %s - %s (%d minutes available)\n",
			slot.Start.In(p.loc).Format("15:04"),
			slot.End.In(p.loc).Format("15:04"),
			int(slot.End.Sub(slot.Start).Minutes()))
	}
	return b.String(), nil
}

// FreeSlots computes the gaps between busy intervals inside [dayStart, dayEnd]
// that are at least minDuration long.
func FreeSlots(busy []Interval, dayStart, dayEnd time.Time, minDuration time.Duration) []Interval {
	sort.Slice(busy, func(i, j int) bool { return busy[i].Start.Before(busy[j].Start) })

	var free []Interval
	current := dayStart
	for _, b := range busy {
		if b.Start.Sub(current) >= minDuration {
			free = append(free, Interval{Start: current, End: b.Start})
		}
		if b.End.After(current) {
			current = b.End
		}
	}
	if dayEnd.Sub(current) >= minDuration {
		free = append(free, Interval{Start: current, End: dayEnd})
	}
	return free
}
