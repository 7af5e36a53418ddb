package reports

import (
	"fmt"
	"io"
	"time"

	"sitesafe-api/models"
	"sitesafe-api/utils"
)

// SiteLogReport is a filtered set of visits, oldest first.
type SiteLogReport struct {
	// Scope describes the filter, e.g. "Leeds depot, 01/03/2026 to 31/03/2026".
	Scope string
	Logs  []models.SiteLog
}

// SiteLogTotals summarises a set of visits.
type SiteLogTotals struct {
	Visits  int
	Open    int
	Workers int
	OnSite  time.Duration
}

// Totals counts visits and workers and sums the time on site of closed visits.
func Totals(logs []models.SiteLog) SiteLogTotals {
	var t SiteLogTotals
	workers := make(map[int]struct{})
	for i := range logs {
		l := &logs[i]
		t.Visits++
		workers[l.WorkerID] = struct{}{}
		if l.IsOpen() {
			t.Open++
			continue
		}
		t.OnSite += l.Duration(*l.CheckOutAt)
	}
	t.Workers = len(workers)
	return t
}

// SiteLogPDF prints the visit register with a totals block.
func SiteLogPDF(w io.Writer, brand Branding, rep SiteLogReport, generated time.Time) error {
	d := NewLandscapeDocument(brand, "Site attendance", generated)
	d.Heading("Site attendance")
	if rep.Scope != "" {
		d.Paragraph(rep.Scope)
	}

	tot := Totals(rep.Logs)
	d.Fields([][2]string{
		{"Visits", fmt.Sprintf("%d (%d still on site)", tot.Visits, tot.Open)},
		{"Workers", fmt.Sprint(tot.Workers)},
		{"Time on site", utils.FormatDuration(tot.OnSite)},
	})

	if len(rep.Logs) == 0 {
		d.Paragraph("No visits match this filter.")
		return d.Write(w)
	}

	rows := make([][]string, len(rep.Logs))
	for i := range rep.Logs {
		l := &rep.Logs[i]
		out, dur := "On site", "-"
		if !l.IsOpen() {
			out = utils.FormatUKTime(*l.CheckOutAt)
			dur = utils.FormatDuration(l.Duration(*l.CheckOutAt))
		}
		method := humanize(l.Method)
		if l.CheckOutMethod != "" {
			method += " / " + humanize(l.CheckOutMethod)
		}
		site := l.Site.Name
		if site == "" {
			site = l.SiteID
		}
		rows[i] = []string{
			utils.FormatUKDate(l.CheckInAt),
			orDash(l.Worker.FullName()),
			site,
			utils.FormatUKTime(l.CheckInAt),
			out,
			dur,
			method,
			orDash(l.Notes),
		}
	}
	t := &Table{
		Columns: []Column{
			{Title: "Date", Width: 0.09},
			{Title: "Worker", Width: 0.16},
			{Title: "Site", Width: 0.18},
			{Title: "In", Width: 0.06, Align: "C"},
			{Title: "Out", Width: 0.07, Align: "C"},
			{Title: "Duration", Width: 0.08, Align: "R"},
			{Title: "Method", Width: 0.12},
			{Title: "Notes"},
		},
		Zebra: true,
		Status: func(row, col int) (Colour, bool) {
			if col == 4 && rep.Logs[row].IsOpen() {
				return colourAmber, true
			}
			return Colour{}, false
		},
	}
	t.Render(d, rows)
	return d.Write(w)
}
