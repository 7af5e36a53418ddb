package wizard

import "fmt"

const (
	RiskStepDetails  = "details"
	RiskStepHazards  = "hazards"
	RiskStepControls = "controls"
	RiskStepPPE      = "ppe_and_review"
	RiskStepSignOff  = "sign_off"
)

const (
	BandLow    = "low"
	BandMedium = "medium"
	BandHigh   = "high"
)

// RiskRating is likelihood x severity on the 5x5 matrix.
func RiskRating(likelihood, severity int) int {
	return likelihood * severity
}

// RiskBand buckets a 5x5 rating: low up to 6, medium 8 to 12, high from 15.
func RiskBand(rating int) string {
	switch {
	case rating >= 15:
		return BandHigh
	case rating >= 7:
		return BandMedium
	default:
		return BandLow
	}
}

func score(name, label string) Field {
	return Field{Name: name, Label: label, Kind: KindNumber, Required: true, Min: bound(1), Max: bound(5)}
}

// RiskAssessment is the 5-step risk assessment wizard.
var RiskAssessment = &Definition{
	Name: "risk_assessment",
	Steps: []Step{
		{Number: 1, Key: RiskStepDetails, Title: "Assessment details", Fields: []Field{
			text("title", "Title", true),
			text("site_id", "Site", true),
			textarea("activity", "Activity assessed", true),
			text("assessor", "Assessor", true),
			date("assessment_date", "Assessment date", true),
		}},
		{Number: 2, Key: RiskStepHazards, Title: "Hazards", Fields: []Field{
			{Name: "hazards", Label: "Hazards", Kind: KindObjectList, Required: true, MinItems: 1, Item: []Field{
				text("hazard", "Hazard", true),
				text("who_at_risk", "Who is at risk", true),
				score("likelihood", "Likelihood"),
				score("severity", "Severity"),
			}},
		}},
		{Number: 3, Key: RiskStepControls, Title: "Control measures", Fields: []Field{
			{Name: "controls", Label: "Controls", Kind: KindObjectList, Required: true, MinItems: 1, Item: []Field{
				{Name: "hazard_index", Label: "Hazard", Kind: KindNumber, Required: false, Min: bound(0)},
				textarea("control_measures", "Control measures", true),
				score("residual_likelihood", "Residual likelihood"),
				score("residual_severity", "Residual severity"),
			}},
		}, Check: checkControls},
		{Number: 4, Key: RiskStepPPE, Title: "PPE and review", Fields: []Field{
			{Name: "ppe", Label: "PPE", Kind: KindMultiSelect, Required: true, Options: PPEOptions, MinItems: 1},
			date("review_date", "Review date", true),
		}},
		{Number: 5, Key: RiskStepSignOff, Title: "Sign off", Fields: []Field{
			text("assessor_name", "Assessor name", true),
			confirm("declaration", "I confirm this assessment is suitable and sufficient"),
		}},
	},
}

// checkControls requires one control per hazard, matched by hazard_index (or
// position when omitted), whose residual rating does not exceed the initial one.
func checkControls(payload map[string]interface{}, steps map[string]map[string]interface{}) Errors {
	hazards := Objects(steps[RiskStepHazards], "hazards")
	controls := Objects(payload, "controls")
	errs := Errors{}

	if len(hazards) == 0 {
		errs["controls"] = "Hazards must be recorded before controls"
		return errs
	}

	covered := make(map[int]bool, len(hazards))
	for i, c := range controls {
		idx := i
		if _, ok := c["hazard_index"]; ok {
			idx = Number(c, "hazard_index")
		}
		if idx < 0 || idx >= len(hazards) {
			errs[fmt.Sprintf("controls.%d.hazard_index", i)] = "Control refers to an unknown hazard"
			continue
		}
		if covered[idx] {
			errs[fmt.Sprintf("controls.%d.hazard_index", i)] = "Hazard already has a control"
			continue
		}
		covered[idx] = true

		initial := RiskRating(Number(hazards[idx], "likelihood"), Number(hazards[idx], "severity"))
		residual := RiskRating(Number(c, "residual_likelihood"), Number(c, "residual_severity"))
		if residual > initial {
			errs[fmt.Sprintf("controls.%d", i)] = "Residual risk cannot exceed the initial risk"
		}
	}

	for i := range hazards {
		if !covered[i] {
			errs[fmt.Sprintf("hazards.%d", i)] = "Hazard has no control measures"
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ScoredHazard is a hazard with its initial and residual ratings resolved.
type ScoredHazard struct {
	Hazard          string `json:"hazard"`
	WhoAtRisk       string `json:"who_at_risk"`
	Likelihood      int    `json:"likelihood"`
	Severity        int    `json:"severity"`
	Rating          int    `json:"rating"`
	Band            string `json:"band"`
	ControlMeasures string `json:"control_measures"`
	ResidualRating  int    `json:"residual_rating"`
	ResidualBand    string `json:"residual_band"`
}

// ScoreHazards joins the hazards and controls steps into rated rows.
func ScoreHazards(steps map[string]map[string]interface{}) []ScoredHazard {
	hazards := Objects(steps[RiskStepHazards], "hazards")
	controls := Objects(steps[RiskStepControls], "controls")

	byHazard := make(map[int]map[string]interface{}, len(controls))
	for i, c := range controls {
		idx := i
		if _, ok := c["hazard_index"]; ok {
			idx = Number(c, "hazard_index")
		}
		byHazard[idx] = c
	}

	out := make([]ScoredHazard, 0, len(hazards))
	for i, h := range hazards {
		row := ScoredHazard{
			Hazard:     String(h, "hazard"),
			WhoAtRisk:  String(h, "who_at_risk"),
			Likelihood: Number(h, "likelihood"),
			Severity:   Number(h, "severity"),
		}
		row.Rating = RiskRating(row.Likelihood, row.Severity)
		row.Band = RiskBand(row.Rating)
		if c, ok := byHazard[i]; ok {
			row.ControlMeasures = String(c, "control_measures")
			row.ResidualRating = RiskRating(Number(c, "residual_likelihood"), Number(c, "residual_severity"))
			row.ResidualBand = RiskBand(row.ResidualRating)
		}
		out = append(out, row)
	}
	return out
}
