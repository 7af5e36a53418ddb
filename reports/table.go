package reports

const (
	cellPadX = 1.5
	cellPadY = 1.2
	bodySize = 9.0
)

// Colour is an RGB fill.
type Colour struct{ R, G, B int }

var (
	colourHeader = Colour{222, 230, 240}
	colourZebra  = Colour{246, 246, 246}
	colourRed    = Colour{248, 215, 218}
	colourAmber  = Colour{255, 236, 179}
	colourGreen  = Colour{212, 237, 218}
	colourGrey   = Colour{233, 233, 233}
)

// StatusColour maps the status and band values used across the reports to
// a fill colour.
func StatusColour(status string) (Colour, bool) {
	switch status {
	case "expired", "missing", "overdue", "due", "high", "flagged":
		return colourRed, true
	case "expiring", "due_soon", "medium", "not_set":
		return colourAmber, true
	case "valid", "current", "low", "approved", "published":
		return colourGreen, true
	case "archived", "inactive":
		return colourGrey, true
	}
	return Colour{}, false
}

// Column widths are fractions of the printable width. Columns left at zero
// share whatever the others do not claim.
type Column struct {
	Title string
	Width float64
	Align string
}

// Table renders rows with wrapped cells. Each row is as tall as its tallest
// cell and the header is repeated at the top of every page the table spans.
type Table struct {
	Columns    []Column
	HideHeader bool
	Zebra      bool
	// LabelFirst prints the first column in bold.
	LabelFirst bool
	// Status, when set, may colour individual cells.
	Status func(row, col int) (Colour, bool)

	headers int
}

func (t *Table) widths(total float64) []float64 {
	out := make([]float64, len(t.Columns))
	claimed := 0.0
	open := 0
	for _, c := range t.Columns {
		if c.Width > 0 {
			claimed += c.Width
		} else {
			open++
		}
	}
	share := 0.0
	if open > 0 && claimed < 1 {
		share = (1 - claimed) / float64(open)
	}
	scale := claimed + share*float64(open)
	if scale <= 0 {
		scale = 1
	}
	for i, c := range t.Columns {
		w := c.Width
		if w <= 0 {
			w = share
		}
		out[i] = total * w / scale
	}
	return out
}

func (t *Table) lines(d *Document, text string, width float64) [][]byte {
	lines := d.pdf.SplitLines([]byte(d.text(text)), width-2*cellPadX)
	if len(lines) == 0 {
		return [][]byte{{}}
	}
	return lines
}

func (t *Table) rowHeight(d *Document, widths []float64, cells []string, style func(col int) string) float64 {
	n := 1
	for i, w := range widths {
		if i >= len(cells) {
			break
		}
		d.pdf.SetFont(fontFamily, style(i), bodySize)
		if l := len(t.lines(d, cells[i], w)); l > n {
			n = l
		}
	}
	return float64(n)*lineHeight + 2*cellPadY
}

func (t *Table) drawHeader(d *Document, widths []float64) {
	if t.HideHeader {
		return
	}
	titles := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		titles[i] = c.Title
	}
	h := t.rowHeight(d, widths, titles, boldCells)
	if d.remaining() < h+lineHeight+2*cellPadY {
		d.pdf.AddPage()
	}
	t.drawRow(d, widths, titles, h, &colourHeader, boldCells)
	t.headers++
}

func (t *Table) drawRow(d *Document, widths []float64, cells []string, h float64, fill *Colour, style func(col int) string) {
	pdf := d.pdf
	start, y := pdf.GetXY()
	x := start
	for c, w := range widths {
		cell := ""
		if c < len(cells) {
			cell = cells[c]
		}
		border := "D"
		if fill != nil {
			pdf.SetFillColor(fill.R, fill.G, fill.B)
			border = "FD"
		}
		pdf.SetDrawColor(200, 200, 200)
		pdf.Rect(x, y, w, h, border)

		align := "L"
		if c < len(t.Columns) && t.Columns[c].Align != "" {
			align = t.Columns[c].Align
		}
		pdf.SetFont(fontFamily, style(c), bodySize)
		for i, line := range t.lines(d, cell, w) {
			pdf.SetXY(x+cellPadX, y+cellPadY+float64(i)*lineHeight)
			pdf.CellFormat(w-2*cellPadX, lineHeight, string(line), "", 0, align, false, 0, "")
		}
		x += w
	}
	pdf.SetDrawColor(0, 0, 0)
	pdf.SetXY(start, y+h)
}

// Render draws the table at the current position.
func (t *Table) Render(d *Document, rows [][]string) {
	pdf := d.pdf
	widths := t.widths(d.printableWidth())

	// rows are paged by hand so a row never splits across pages
	pdf.SetAutoPageBreak(false, bottomMargin)
	defer pdf.SetAutoPageBreak(true, bottomMargin)

	style := func(c int) string {
		if t.LabelFirst && c == 0 {
			return "B"
		}
		return ""
	}

	t.drawHeader(d, widths)
	for r, row := range rows {
		h := t.rowHeight(d, widths, row, style)
		if d.remaining() < h {
			pdf.AddPage()
			t.drawHeader(d, widths)
		}

		var base *Colour
		if t.Zebra && r%2 == 1 {
			base = &colourZebra
		}
		left, _, _, _ := pdf.GetMargins()
		y := pdf.GetY()
		t.drawRow(d, widths, row, h, base, style)
		if t.Status != nil {
			t.paintStatus(d, widths, row, r, left, y, h)
		}
	}
	pdf.Ln(3)
}

// paintStatus redraws coloured cells over the plain row.
func (t *Table) paintStatus(d *Document, widths []float64, row []string, r int, left, y, h float64) {
	pdf := d.pdf
	x := left
	for c, w := range widths {
		if colour, ok := t.Status(r, c); ok {
			pdf.SetXY(x, y)
			cell := ""
			if c < len(row) {
				cell = row[c]
			}
			single := &Table{Columns: []Column{{Width: 1, Align: t.alignOf(c)}}}
			single.drawRow(d, []float64{w}, []string{cell}, h, &colour, plainCells)
		}
		x += w
	}
	pdf.SetXY(left, y+h)
}

func boldCells(int) string  { return "B" }
func plainCells(int) string { return "" }

func (t *Table) alignOf(c int) string {
	if c < len(t.Columns) && t.Columns[c].Align != "" {
		return t.Columns[c].Align
	}
	return "L"
}
