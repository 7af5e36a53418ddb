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

// RiskAssessmentReport is a risk assessment with its signatures.
type RiskAssessmentReport struct {
	Assessment *models.RiskAssessment
	SiteName   string
	Signatures []models.RiskAssessmentSignature
}

func stepPayloads(state *models.WizardState) map[string]map[string]interface{} {
	out := make(map[string]map[string]interface{}, len(state.Steps))
	for k := range state.Steps {
		if p := state.StepPayload(k); p != nil {
			out[k] = p
		}
	}
	return out
}

// RiskAssessmentPDF prints the rated hazard table, PPE, sign off and the
// list of workers who have signed.
func RiskAssessmentPDF(w io.Writer, brand Branding, rep RiskAssessmentReport, generated time.Time) error {
	ra := rep.Assessment
	steps := stepPayloads(&ra.WizardState)
	d := NewLandscapeDocument(brand, "Risk assessment "+ra.Reference, generated)

	d.Heading(ra.Title)
	d.Fields([][2]string{
		{"Reference", ra.Reference},
		{"Status", humanize(ra.Status)},
		{"Site", orDash(rep.SiteName)},
		{"Activity", orDash(ra.Activity)},
		{"Assessor", orDash(ra.Assessor)},
		{"Assessment date", orDash(utils.FormatUKDatePtr(ra.AssessmentDate))},
		{"Review date", orDash(utils.FormatUKDatePtr(ra.ReviewDate))},
	})

	d.Heading("Hazards and controls")
	hazards := wizard.ScoreHazards(steps)
	if len(hazards) == 0 {
		d.Paragraph("No hazards recorded.")
	} else {
		hazardTable(d, hazards)
		d.Paragraph("Rating is likelihood x severity on a 5 x 5 matrix: low 1-6, medium 8-12, high 15-25.")
	}

	d.Heading("Personal protective equipment")
	ppe := wizard.Strings(steps[wizard.RiskStepPPE], "ppe")
	if len(ppe) == 0 {
		d.Paragraph("-")
	} else {
		items := make([]string, len(ppe))
		for i, p := range ppe {
			items[i] = humanize(p)
		}
		d.Paragraph(strings.Join(items, ", "))
	}

	d.Heading("Sign off")
	signOff := steps[wizard.RiskStepSignOff]
	declared := "No"
	if v, _ := signOff["declaration"].(bool); v {
		declared = "Yes"
	}
	d.Fields([][2]string{
		{"Assessor name", orDash(wizard.String(signOff, "assessor_name"))},
		{"Suitable and sufficient", declared},
	})

	d.Heading(fmt.Sprintf("Worker signatures (%d)", len(rep.Signatures)))
	if len(rep.Signatures) == 0 {
		d.Paragraph("Not signed by any worker yet.")
	} else {
		rows := make([][]string, len(rep.Signatures))
		for i, s := range rep.Signatures {
			rows[i] = []string{strconv.Itoa(i + 1), s.SignerName, utils.FormatUKDateTime(s.SignedAt)}
		}
		t := &Table{
			Columns: []Column{{Title: "#", Width: 0.05, Align: "C"}, {Title: "Name", Width: 0.6}, {Title: "Signed", Width: 0.35}},
			Zebra:   true,
		}
		t.Render(d, rows)
	}
	return d.Write(w)
}

func hazardTable(d *Document, hazards []wizard.ScoredHazard) {
	const ratingCol, residualCol = 5, 7
	rows := make([][]string, len(hazards))
	for i, h := range hazards {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			h.Hazard,
			h.WhoAtRisk,
			strconv.Itoa(h.Likelihood),
			strconv.Itoa(h.Severity),
			fmt.Sprintf("%d %s", h.Rating, humanize(h.Band)),
			orDash(h.ControlMeasures),
			fmt.Sprintf("%d %s", h.ResidualRating, humanize(h.ResidualBand)),
		}
	}
	t := &Table{
		Columns: []Column{
			{Title: "#", Width: 0.04, Align: "C"},
			{Title: "Hazard", Width: 0.17},
			{Title: "Who is at risk", Width: 0.12},
			{Title: "L", Width: 0.04, Align: "C"},
			{Title: "S", Width: 0.04, Align: "C"},
			{Title: "Rating", Width: 0.09, Align: "C"},
			{Title: "Control measures", Width: 0.41},
			{Title: "Residual", Width: 0.09, Align: "C"},
		},
		Status: func(row, col int) (Colour, bool) {
			switch col {
			case ratingCol:
				return StatusColour(hazards[row].Band)
			case residualCol:
				return StatusColour(hazards[row].ResidualBand)
			}
			return Colour{}, false
		},
	}
	t.Render(d, rows)
}
