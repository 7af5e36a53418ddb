package reports

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"sitesafe-api/utils"

	"github.com/go-pdf/fpdf"
)

const (
	fontFamily   = "Helvetica"
	pageMargin   = 15.0
	bottomMargin = 20.0
	lineHeight   = 5.0
	logoHeight   = 12.0
	logoName     = "company-logo"
)

// Branding is the company identity printed in every page header.
type Branding struct {
	CompanyName string
	Address     string
	Phone       string
	Logo        []byte
	LogoMime    string
}

// Document wraps an A4 fpdf document with the shared header and footer.
type Document struct {
	pdf       *fpdf.Fpdf
	tr        func(string) string
	brand     Branding
	title     string
	generated time.Time
	logoW     float64
}

// NewDocument starts a portrait report.
func NewDocument(brand Branding, title string, generated time.Time) *Document {
	return newDocument(brand, title, generated, "P")
}

// NewLandscapeDocument starts a landscape report for wide tables.
func NewLandscapeDocument(brand Branding, title string, generated time.Time) *Document {
	return newDocument(brand, title, generated, "L")
}

func newDocument(brand Branding, title string, generated time.Time, orientation string) *Document {
	if strings.TrimSpace(brand.CompanyName) == "" {
		brand.CompanyName = "SiteSafe"
	}
	pdf := fpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, bottomMargin)
	pdf.AliasNbPages("")
	pdf.SetTitle(title, true)
	pdf.SetAuthor(brand.CompanyName, true)
	pdf.SetCreator("SiteSafe", true)
	pdf.SetCreationDate(generated)

	d := &Document{
		pdf:       pdf,
		tr:        pdf.UnicodeTranslatorFromDescriptor(""),
		brand:     brand,
		title:     title,
		generated: generated,
	}
	d.registerLogo()
	pdf.SetHeaderFunc(d.header)
	pdf.SetFooterFunc(d.footer)
	pdf.AddPage()
	return d
}

// registerLogo embeds the company logo. A logo fpdf cannot decode is
// skipped rather than failing the whole report.
func (d *Document) registerLogo() {
	if len(d.brand.Logo) == 0 {
		return
	}
	typ := "PNG"
	if strings.Contains(d.brand.LogoMime, "jpeg") || strings.Contains(d.brand.LogoMime, "jpg") {
		typ = "JPG"
	}
	info := d.pdf.RegisterImageOptionsReader(logoName, fpdf.ImageOptions{ImageType: typ}, bytes.NewReader(d.brand.Logo))
	if d.pdf.Err() || info == nil || info.Height() == 0 {
		d.pdf.ClearError()
		return
	}
	d.logoW = info.Width() * logoHeight / info.Height()
}

func (d *Document) header() {
	pdf := d.pdf
	left, top, right, _ := pdf.GetMargins()
	pageW, _ := pdf.GetPageSize()

	x := left
	if d.logoW > 0 {
		pdf.ImageOptions(logoName, left, top, d.logoW, logoHeight, false, fpdf.ImageOptions{}, 0, "")
		x = left + d.logoW + 4
	}

	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(left, top)
	pdf.SetFont(fontFamily, "", 8)
	pdf.CellFormat(pageW-left-right, 5, d.text("Generated "+utils.FormatUKDateTime(d.generated)), "", 0, "R", false, 0, "")

	pdf.SetXY(x, top)
	pdf.SetFont(fontFamily, "B", 13)
	pdf.CellFormat(pageW-right-x-45, 6, d.text(d.brand.CompanyName), "", 2, "L", false, 0, "")
	pdf.SetFont(fontFamily, "", 10)
	pdf.CellFormat(pageW-right-x-45, 5, d.text(d.title), "", 2, "L", false, 0, "")

	y := top + logoHeight + 2
	pdf.SetDrawColor(180, 180, 180)
	pdf.SetLineWidth(0.3)
	pdf.Line(left, y, pageW-right, y)
	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.2)
	pdf.SetXY(left, y+4)
}

func (d *Document) footer() {
	pdf := d.pdf
	left, _, _, _ := pdf.GetMargins()
	pdf.SetY(-12)
	pdf.SetFont(fontFamily, "I", 8)
	pdf.SetTextColor(110, 110, 110)
	footer := d.brand.CompanyName
	if d.brand.Address != "" {
		footer += " | " + d.brand.Address
	}
	if d.brand.Phone != "" {
		footer += " | " + d.brand.Phone
	}
	pdf.CellFormat(0, 5, d.text(footer), "", 0, "L", false, 0, "")
	pdf.SetX(left)
	pdf.CellFormat(0, 5, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
}

// text converts UTF-8 to the code page of the core fonts.
func (d *Document) text(s string) string {
	return d.tr(s)
}

func (d *Document) printableWidth() float64 {
	left, _, right, _ := d.pdf.GetMargins()
	pageW, _ := d.pdf.GetPageSize()
	return pageW - left - right
}

// remaining is the vertical space left before the automatic page break.
func (d *Document) remaining() float64 {
	_, pageH := d.pdf.GetPageSize()
	return pageH - bottomMargin - d.pdf.GetY()
}

// ensureSpace starts a new page unless h millimetres are still free.
func (d *Document) ensureSpace(h float64) {
	if d.remaining() < h {
		d.pdf.AddPage()
	}
}

// Heading writes a section title. It keeps the title with at least a few
// lines of the section that follows.
func (d *Document) Heading(s string) {
	d.ensureSpace(20)
	d.pdf.SetFont(fontFamily, "B", 12)
	d.pdf.SetTextColor(31, 56, 100)
	d.pdf.CellFormat(0, 7, d.text(s), "", 1, "L", false, 0, "")
	d.pdf.SetTextColor(0, 0, 0)
	d.pdf.Ln(1)
}

func (d *Document) SubHeading(s string) {
	d.ensureSpace(14)
	d.pdf.SetFont(fontFamily, "B", 10)
	d.pdf.CellFormat(0, 6, d.text(s), "", 1, "L", false, 0, "")
}

// Paragraph writes wrapped body text.
func (d *Document) Paragraph(s string) {
	d.pdf.SetFont(fontFamily, "", 10)
	d.pdf.MultiCell(0, lineHeight, d.text(s), "", "L", false)
	d.pdf.Ln(2)
}

// Fields prints label/value pairs as a borderless two-column grid.
func (d *Document) Fields(pairs [][2]string) {
	if len(pairs) == 0 {
		return
	}
	rows := make([][]string, len(pairs))
	for i, p := range pairs {
		rows[i] = []string{p[0], p[1]}
	}
	t := &Table{
		Columns:    []Column{{Width: 0.3}, {Width: 0.7}},
		HideHeader: true,
		LabelFirst: true,
	}
	t.Render(d, rows)
}

// PageCount is the number of pages produced so far.
func (d *Document) PageCount() int {
	return d.pdf.PageCount()
}

// Write closes the document and writes the PDF to w.
func (d *Document) Write(w io.Writer) error {
	if err := d.pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return d.pdf.Output(w)
}

// orDash replaces empty values in printed cells.
func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// humanize turns option values like "hi_vis_vest" into "Hi vis vest".
func humanize(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
