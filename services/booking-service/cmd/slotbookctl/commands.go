package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/slotbook/slotbook/services/booking-service/internal/availability"
	"github.com/slotbook/slotbook/services/booking-service/internal/booking"
	"github.com/slotbook/slotbook/services/booking-service/internal/model"
	"github.com/slotbook/slotbook/services/booking-service/internal/recurrence"
	"github.com/slotbook/slotbook/services/booking-service/internal/scheduling"
	"github.com/slotbook/slotbook/services/booking-service/internal/storage/memstore"
)

// Context is handed to every command's Run.
type Context struct {
	Out io.Writer
}

type ExpandCmd struct {
	Start    string   `required:"" help:"First occurrence start, RFC3339."`
	End      string   `required:"" help:"First occurrence end, RFC3339."`
	Pattern  string   `default:"weekly" enum:"once,daily,weekly,custom_weekly,monthly" help:"Recurrence pattern."`
	Weekdays []string `sep:"," help:"Days for custom_weekly (0-6 or names)."`
	Until    string   `help:"Inclusive end date, YYYY-MM-DD."`
	Max      int      `help:"Maximum number of occurrences."`
	Staff    string   `help:"Staff member the block applies to."`
	TZ       string   `name:"tz" default:"UTC" help:"IANA timezone the series repeats in."`
	Reason   string   `default:"blocked" help:"Block reason."`
	JSON     bool     `name:"json" help:"Print JSON instead of a table."`
}

func (c *ExpandCmd) Run(app *Context) error {
	start, err := time.Parse(time.RFC3339, c.Start)
	if err != nil {
		return fmt.Errorf("--start: %w", err)
	}
	end, err := time.Parse(time.RFC3339, c.End)
	if err != nil {
		return fmt.Errorf("--end: %w", err)
	}
	loc, err := time.LoadLocation(c.TZ)
	if err != nil {
		return fmt.Errorf("--tz: %w", err)
	}
	rule := recurrence.Rule{Pattern: c.Pattern, MaxOccurrences: c.Max}
	for _, d := range c.Weekdays {
		wd, err := recurrence.ParseWeekday(d)
		if err != nil {
			return fmt.Errorf("--weekdays: %w", err)
		}
		rule.Weekdays = append(rule.Weekdays, wd)
	}
	if c.Until != "" {
		if rule.EndDate, err = time.Parse("2006-01-02", c.Until); err != nil {
			return fmt.Errorf("--until: %w", err)
		}
	}

	occurrences, err := recurrence.Expand(recurrence.Request{
		BusinessID: "preview",
		StaffID:    c.Staff,
		Reason:     c.Reason,
		Anchor:     availability.Interval{Start: start.In(loc), End: end.In(loc)},
		Rule:       rule,
	})
	if err != nil {
		return err
	}
	if c.JSON {
		return writeJSON(app.Out, occurrences)
	}
	tw := tabwriter.NewWriter(app.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSTART\tEND\tWEEKDAY")
	for i, b := range occurrences {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, b.StartTime.Format(time.RFC3339), b.EndTime.Format(time.RFC3339), b.StartTime.Weekday())
	}
	return tw.Flush()
}

type SlotsCmd struct {
	Catalog  string   `required:"" type:"existingfile" env:"CATALOG_FILE" help:"YAML catalog with businesses and services."`
	Business string   `required:"" help:"Business id."`
	Service  string   `required:"" help:"Service id."`
	Date     string   `required:"" help:"Day to preview, YYYY-MM-DD in the business timezone."`
	Staff    string   `default:"preview" help:"Staff member."`
	Busy     []string `help:"Blocked ranges on that day, HH:MM-HH:MM (repeatable)."`
	Now      string   `help:"Pretend the current time is this RFC3339 instant."`
	Grid     bool     `help:"Print every candidate with its availability."`
	JSON     bool     `name:"json" help:"Print JSON."`
}

func (c *SlotsCmd) Run(app *Context) error {
	cf, err := scheduling.LoadCatalogFile(c.Catalog)
	if err != nil {
		return err
	}
	var opts []booking.Option
	if c.Now != "" {
		now, err := time.Parse(time.RFC3339, c.Now)
		if err != nil {
			return fmt.Errorf("--now: %w", err)
		}
		opts = append(opts, booking.WithClock(func() time.Time { return now }))
	}

	ctx := context.Background()
	blockStore := memstore.NewBlocks()
	svc := booking.NewService(memstore.NewAppointments(), blockStore, scheduling.NewStaticProvider(cf), opts...)

	if len(c.Busy) > 0 {
		window, err := svc.DayWindow(ctx, c.Business, c.Date)
		if err != nil {
			return err
		}
		var busy []model.ScheduleBlock
		for _, r := range c.Busy {
			iv, err := clockRange(window.Start, r)
			if err != nil {
				return fmt.Errorf("--busy %q: %w", r, err)
			}
			busy = append(busy, model.ScheduleBlock{
				BusinessID: c.Business, Reason: "busy", StartTime: iv.Start, EndTime: iv.End,
			})
		}
		if _, err := blockStore.BulkInsert(ctx, busy); err != nil {
			return err
		}
	}

	q := booking.SlotQuery{BusinessID: c.Business, StaffID: c.Staff, ServiceID: c.Service, Date: c.Date}
	if c.Grid {
		grid, err := svc.SlotGrid(ctx, q)
		if err != nil {
			return err
		}
		if c.JSON {
			return writeJSON(app.Out, grid)
		}
		for _, s := range grid {
			mark := "-"
			if s.Available {
				mark = "free"
			}
			fmt.Fprintf(app.Out, "%s  %s\n", s.Time, mark)
		}
		return nil
	}
	slots, err := svc.AvailableSlots(ctx, q)
	if err != nil {
		return err
	}
	if c.JSON {
		return writeJSON(app.Out, slots)
	}
	if len(slots) == 0 {
		fmt.Fprintln(app.Out, "no free slots")
		return nil
	}
	fmt.Fprintln(app.Out, strings.Join(slots, " "))
	return nil
}

type CatalogCmd struct {
	File string `arg:"" type:"existingfile" help:"Catalog file to check."`
}

func (c *CatalogCmd) Run(app *Context) error {
	cf, err := scheduling.LoadCatalogFile(c.File)
	if err != nil {
		return err
	}
	services := 0
	for _, b := range cf.Businesses {
		services += len(b.Services)
	}
	fmt.Fprintf(app.Out, "ok: %d businesses, %d services\n", len(cf.Businesses), services)
	return nil
}

// clockRange parses "HH:MM-HH:MM" on the day starting at midnight.
func clockRange(midnight time.Time, s string) (availability.Interval, error) {
	from, to, ok := strings.Cut(s, "-")
	if !ok {
		return availability.Interval{}, errors.New("want HH:MM-HH:MM")
	}
	start, err := clockOn(midnight, from)
	if err != nil {
		return availability.Interval{}, err
	}
	end, err := clockOn(midnight, to)
	if err != nil {
		return availability.Interval{}, err
	}
	return availability.NewInterval(start, end)
}

func clockOn(midnight time.Time, hhmm string) (time.Time, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(hhmm))
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := midnight.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, midnight.Location()), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
