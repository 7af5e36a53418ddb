package reports

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"sitesafe-api/models"
	"sitesafe-api/services"
	"sitesafe-api/utils"
	"sitesafe-api/wizard"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var generated = time.Date(2026, time.March, 10, 9, 30, 0, 0, time.UTC)

func brand() Branding {
	return Branding{CompanyName: "Hartley Build Ltd", Address: "1 Wharf Street, Leeds", Phone: "0113 496 0000"}
}

func assertPDF(t *testing.T, buf *bytes.Buffer) {
	t.Helper()
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")), "output is not a PDF")
	assert.Contains(t, buf.String(), "%%EOF")
}

func TestTableWidthsShareTheRemainder(t *testing.T) {
	tbl := &Table{Columns: []Column{{Width: 0.5}, {}, {}}}
	w := tbl.widths(200)
	assert.InDeltaSlice(t, []float64{100, 50, 50}, w, 0.001)

	over := &Table{Columns: []Column{{Width: 1}, {Width: 1}}}
	assert.InDeltaSlice(t, []float64{90, 90}, over.widths(180), 0.001)
}

func TestRowHeightFollowsTallestCell(t *testing.T) {
	d := NewDocument(brand(), "Test", generated)
	tbl := &Table{Columns: []Column{{Width: 0.2}, {Width: 0.8}}}
	widths := tbl.widths(d.printableWidth())

	short := tbl.rowHeight(d, widths, []string{"a", "b"}, plainCells)
	tall := tbl.rowHeight(d, widths, []string{"line one\nline two\nline three", "b"}, plainCells)
	assert.InDelta(t, lineHeight+2*cellPadY, short, 0.001)
	assert.InDelta(t, 3*lineHeight+2*cellPadY, tall, 0.001)
}

func TestTableRepeatsHeaderOnEveryPage(t *testing.T) {
	d := NewDocument(brand(), "Long table", generated)
	tbl := &Table{Columns: []Column{{Title: "#", Width: 0.1}, {Title: "Name"}}, Zebra: true}

	rows := make([][]string, 150)
	for i := range rows {
		rows[i] = []string{fmt.Sprint(i + 1), "Worker"}
	}
	tbl.Render(d, rows)

	require.Greater(t, d.PageCount(), 1)
	assert.Equal(t, d.PageCount(), tbl.headers)

	var buf bytes.Buffer
	require.NoError(t, d.Write(&buf))
	assertPDF(t, &buf)
}

func TestStatusColour(t *testing.T) {
	red, ok := StatusColour(utils.ExpiryExpired)
	require.True(t, ok)
	high, _ := StatusColour(wizard.BandHigh)
	assert.Equal(t, red, high)

	_, ok = StatusColour("whatever")
	assert.False(t, ok)
}

func TestFieldValue(t *testing.T) {
	list := wizard.Field{Kind: wizard.KindList}
	multi := wizard.Field{Kind: wizard.KindMultiSelect}
	date := wizard.Field{Kind: wizard.KindDate}

	assert.Equal(t, "-", fieldValue(list, nil))
	assert.Equal(t, "Yes", fieldValue(wizard.Field{Kind: wizard.KindBool}, true))
	assert.Equal(t, "4", fieldValue(wizard.Field{Kind: wizard.KindNumber}, float64(4)))
	assert.Equal(t, "- Mobile scaffold\n- Harness", fieldValue(list, []interface{}{"Mobile scaffold", "Harness"}))
	assert.Equal(t, "Hard hat, Hi vis vest", fieldValue(multi, []interface{}{"hard_hat", "hi_vis_vest"}))
	assert.Equal(t, "01/04/2026", fieldValue(date, "2026-04-01"))
	assert.Equal(t, "-", fieldValue(wizard.Field{Kind: wizard.KindText}, "  "))
}

func TestRamsPDF(t *testing.T) {
	r := &models.Rams{Reference: "RAMS-2026-0008", Title: "Roof strip and recover", Status: models.RamsStatusDraft}
	r.SetStepPayload(wizard.RamsStepProjectDetails, map[string]interface{}{
		"title":                "Roof strip and recover",
		"client":               "Leeds City Council",
		"principal_contractor": "Hartley Build Ltd",
	})

	var buf bytes.Buffer
	require.NoError(t, RamsPDF(&buf, brand(), RamsReport{Rams: r, SiteName: "Wharf Street"}, generated))
	assertPDF(t, &buf)
}

func TestRiskAssessmentPDF(t *testing.T) {
	ra := &models.RiskAssessment{Reference: "RA-2026-0006", Title: "Scaffold erection", Status: models.RiskStatusPublished}
	ra.SetStepPayload(wizard.RiskStepHazards, map[string]interface{}{
		"hazards": []interface{}{
			map[string]interface{}{"hazard": "Fall from height", "who_at_risk": "Scaffolders", "likelihood": float64(4), "severity": float64(5)},
			map[string]interface{}{"hazard": "Falling objects", "who_at_risk": "Public", "likelihood": float64(2), "severity": float64(3)},
		},
	})
	ra.SetStepPayload(wizard.RiskStepControls, map[string]interface{}{
		"controls": []interface{}{
			map[string]interface{}{"control_measures": "Harness and edge protection", "residual_likelihood": float64(1), "residual_severity": float64(5)},
			map[string]interface{}{"control_measures": "Exclusion zone", "residual_likelihood": float64(1), "residual_severity": float64(3)},
		},
	})
	ra.SetStepPayload(wizard.RiskStepPPE, map[string]interface{}{"ppe": []interface{}{"hard_hat", "harness"}})

	var buf bytes.Buffer
	err := RiskAssessmentPDF(&buf, brand(), RiskAssessmentReport{
		Assessment: ra,
		SiteName:   "Wharf Street",
		Signatures: []models.RiskAssessmentSignature{{SignerName: "Pat Doyle", SignedAt: generated}},
	}, generated)
	require.NoError(t, err)
	assertPDF(t, &buf)
}

func TestTotals(t *testing.T) {
	out := generated.Add(-time.Hour)
	logs := []models.SiteLog{
		{WorkerID: 1, CheckInAt: generated.Add(-4 * time.Hour), CheckOutAt: &out},
		{WorkerID: 1, CheckInAt: generated.Add(-30 * time.Minute)},
		{WorkerID: 2, CheckInAt: generated.Add(-2 * time.Hour), CheckOutAt: &out},
	}
	tot := Totals(logs)
	assert.Equal(t, 3, tot.Visits)
	assert.Equal(t, 1, tot.Open)
	assert.Equal(t, 2, tot.Workers)
	assert.Equal(t, 4*time.Hour, tot.OnSite)
}

func TestSiteLogPDF(t *testing.T) {
	out := generated.Add(-time.Hour)
	logs := []models.SiteLog{
		{WorkerID: 1, CheckInAt: generated.Add(-4 * time.Hour), CheckOutAt: &out, Method: models.CheckMethodQR,
			CheckOutMethod: models.CheckMethodQR, Site: models.Site{Name: "Wharf Street"}, Worker: models.User{FirstName: "Pat", LastName: "Doyle"}},
		{WorkerID: 2, CheckInAt: generated.Add(-30 * time.Minute), Method: models.CheckMethodQR, SiteID: "3f2a"},
	}
	var buf bytes.Buffer
	require.NoError(t, SiteLogPDF(&buf, brand(), SiteLogReport{Scope: "All sites", Logs: logs}, generated))
	assertPDF(t, &buf)

	buf.Reset()
	require.NoError(t, SiteLogPDF(&buf, brand(), SiteLogReport{}, generated))
	assertPDF(t, &buf)
}

func TestSubcontractorRegisterPDF(t *testing.T) {
	soon := generated.AddDate(0, 0, 10)
	sub := models.Subcontractor{CompanyName: "Acme Roofing", Trade: "Roofing", ContactName: "Jo Smith",
		PublicLiabilityExpiry: &soon}
	subs := []services.SubcontractorView{{Subcontractor: sub, Insurance: services.InsuranceStatusOf(&sub, generated, 30)}}

	var buf bytes.Buffer
	require.NoError(t, SubcontractorRegisterPDF(&buf, brand(), subs, generated))
	assertPDF(t, &buf)
}

func logoPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for x := 0; x < 40; x++ {
		img.Set(x, 10, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestSitePosterPDF(t *testing.T) {
	b := brand()
	b.Logo = logoPNG(t)
	b.LogoMime = "image/png"
	site := &models.Site{SiteID: "3f2a9c1e-0000-4000-8000-000000000001", Name: "Wharf Street", Postcode: "LS1 4AB", SiteManager: "Sue Grant"}

	var buf bytes.Buffer
	require.NoError(t, SitePosterPDF(&buf, b, site, "https://sitesafe.example/checkin?site="+site.SiteID, generated))
	assertPDF(t, &buf)
}

func TestBrokenLogoIsSkipped(t *testing.T) {
	b := brand()
	b.Logo = []byte("not an image")
	b.LogoMime = "image/png"
	d := NewDocument(b, "Test", generated)
	assert.Zero(t, d.logoW)

	var buf bytes.Buffer
	require.NoError(t, d.Write(&buf))
	assertPDF(t, &buf)
}

func TestQRCodePNG(t *testing.T) {
	raw, err := QRCodePNG("sitesafe:site:3f2a", 256)
	require.NoError(t, err)
	cfg, err := png.DecodeConfig(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 256, cfg.Width)
}
