package reports

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"sitesafe-api/models"
	"sitesafe-api/utils"
	"sitesafe-api/wizard"
)

// RamsReport is everything printed on a RAMS document.
type RamsReport struct {
	Rams              *models.Rams
	SiteName          string
	SubcontractorName string
	PreparedBy        string
	ApprovedBy        string
}

// RamsPDF prints every wizard step of a RAMS in order.
func RamsPDF(w io.Writer, brand Branding, rep RamsReport, generated time.Time) error {
	r := rep.Rams
	d := NewDocument(brand, "RAMS "+r.Reference, generated)

	d.Heading(r.Title)
	summary := [][2]string{
		{"Reference", r.Reference},
		{"Status", humanize(r.Status)},
		{"Site", orDash(rep.SiteName)},
		{"Subcontractor", orDash(rep.SubcontractorName)},
		{"Prepared by", orDash(rep.PreparedBy)},
		{"Review date", orDash(utils.FormatUKDatePtr(r.ReviewDate))},
	}
	if r.ApprovedAt != nil {
		summary = append(summary, [2]string{"Approved", strings.TrimSpace(rep.ApprovedBy + " " + utils.FormatUKDateTime(*r.ApprovedAt))})
	}
	d.Fields(summary)

	for _, step := range wizard.Rams.Steps {
		d.Heading(fmt.Sprintf("%d. %s", step.Number, step.Title))
		writeStep(d, step, r.StepPayload(step.Key))
	}
	return d.Write(w)
}

// writeStep prints a step payload field by field. Object lists become their
// own tables; everything else is collected into a label/value grid.
func writeStep(d *Document, step wizard.Step, payload map[string]interface{}) {
	if payload == nil {
		d.Paragraph("Not completed.")
		return
	}
	var pairs [][2]string
	for _, f := range step.Fields {
		if f.Kind != wizard.KindObjectList {
			pairs = append(pairs, [2]string{f.Label, fieldValue(f, payload[f.Name])})
			continue
		}
		d.Fields(pairs)
		pairs = nil
		d.SubHeading(f.Label)
		objectTable(d, f, wizard.Objects(payload, f.Name))
	}
	d.Fields(pairs)
}

func objectTable(d *Document, f wizard.Field, items []map[string]interface{}) {
	if len(items) == 0 {
		d.Paragraph("None recorded.")
		return
	}
	cols := make([]Column, len(f.Item))
	for i, it := range f.Item {
		cols[i] = Column{Title: it.Label}
		if it.Kind == wizard.KindNumber {
			cols[i].Align = "C"
			cols[i].Width = 0.1
		}
	}
	rows := make([][]string, len(items))
	for i, item := range items {
		row := make([]string, len(f.Item))
		for j, it := range f.Item {
			row[j] = fieldValue(it, item[it.Name])
		}
		rows[i] = row
	}
	t := &Table{Columns: cols, Zebra: true}
	t.Render(d, rows)
}

// fieldValue formats a stored wizard value for print.
func fieldValue(f wizard.Field, v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "-"
	case bool:
		if val {
			return "Yes"
		}
		return "No"
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case string:
		switch f.Kind {
		case wizard.KindDate:
			if t, err := utils.ParseDate(val); err == nil && t != nil {
				return utils.FormatUKDate(*t)
			}
		case wizard.KindSelect:
			return humanize(val)
		}
		return orDash(val)
	case []interface{}:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			s := fmt.Sprint(item)
			if f.Kind == wizard.KindMultiSelect {
				s = humanize(s)
			}
			parts = append(parts, s)
		}
		if len(parts) == 0 {
			return "-"
		}
		if f.Kind == wizard.KindList {
			return "- " + strings.Join(parts, "\n- ")
		}
		return strings.Join(parts, ", ")
	case []string:
		items := make([]interface{}, len(val))
		for i, s := range val {
			items[i] = s
		}
		return fieldValue(f, items)
	}
	return fmt.Sprint(v)
}
