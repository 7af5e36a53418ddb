package reports

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"sitesafe-api/models"

	"github.com/go-pdf/fpdf"
	qrcode "github.com/skip2/go-qrcode"
)

const posterQRSize = 1024

// QRCodePNG encodes content as a PNG QR code of size x size pixels.
func QRCodePNG(content string, size int) ([]byte, error) {
	if size <= 0 {
		size = 512
	}
	return qrcode.Encode(content, qrcode.High, size)
}

// SitePosterPDF prints the A4 check-in poster displayed at the site entrance.
func SitePosterPDF(w io.Writer, brand Branding, site *models.Site, checkinURL string, generated time.Time) error {
	png, err := QRCodePNG(checkinURL, posterQRSize)
	if err != nil {
		return fmt.Errorf("encode qr: %w", err)
	}

	d := NewDocument(brand, "Site check-in", generated)
	pdf := d.pdf
	width := d.printableWidth()
	left, _, _, _ := pdf.GetMargins()

	pdf.SetFont(fontFamily, "B", 28)
	pdf.CellFormat(0, 14, d.text("SITE CHECK-IN"), "", 1, "C", false, 0, "")
	pdf.SetFont(fontFamily, "B", 18)
	pdf.MultiCell(0, 9, d.text(site.Name), "", "C", false)
	if site.Address != "" || site.Postcode != "" {
		pdf.SetFont(fontFamily, "", 11)
		pdf.MultiCell(0, 6, d.text(joinNonEmpty(", ", site.Address, site.Postcode)), "", "C", false)
	}
	pdf.Ln(4)

	pdf.RegisterImageOptionsReader("site-qr", fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(png))
	size := width * 0.65
	pdf.ImageOptions("site-qr", left+(width-size)/2, pdf.GetY(), size, size, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	pdf.SetY(pdf.GetY() + size + 4)

	pdf.SetFont(fontFamily, "", 8)
	pdf.CellFormat(0, 5, d.text(checkinURL), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont(fontFamily, "B", 12)
	pdf.CellFormat(0, 7, d.text("Every worker must check in and out"), "", 1, "C", false, 0, "")
	pdf.SetFont(fontFamily, "", 11)
	for i, step := range []string{
		"Open SiteSafe on your phone and choose Check in.",
		"Scan this code. Complete your health questionnaire if asked.",
		"Scan again when you leave site to check out.",
	} {
		pdf.CellFormat(0, 6, d.text(fmt.Sprintf("%d. %s", i+1, step)), "", 1, "C", false, 0, "")
	}
	if site.SiteManager != "" {
		pdf.Ln(3)
		pdf.SetFont(fontFamily, "", 10)
		pdf.CellFormat(0, 6, d.text("Site manager: "+joinNonEmpty(", ", site.SiteManager, site.ManagerPhone)), "", 1, "C", false, 0, "")
	}
	return d.Write(w)
}

func joinNonEmpty(sep string, parts ...string) string {
	var out string
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += sep
		}
		out += p
	}
	return out
}
