package reports

import (
	"fmt"
	"io"
	"strings"
	"time"

	"sitesafe-api/models"
	"sitesafe-api/services"
	"sitesafe-api/utils"
)

var registerPolicies = []string{
	models.PolicyPublicLiability,
	models.PolicyEmployersLiability,
	models.PolicyProfessionalIndemnity,
}

func policyCell(res utils.ExpiryResult) string {
	if res.Date == nil {
		return humanize(res.Status)
	}
	return utils.FormatUKDate(*res.Date) + "\n" + humanize(res.Status)
}

// SubcontractorRegisterPDF prints the insurance register with a coloured
// status per policy.
func SubcontractorRegisterPDF(w io.Writer, brand Branding, subs []services.SubcontractorView, generated time.Time) error {
	d := NewLandscapeDocument(brand, "Subcontractor register", generated)
	d.Heading("Subcontractor insurance register")

	counts := map[string]int{}
	for _, s := range subs {
		counts[s.Insurance.Overall]++
	}
	d.Paragraph(fmt.Sprintf("%d subcontractors: %d valid, %d expiring, %d expired, %d with missing cover.",
		len(subs), counts[utils.ExpiryValid], counts[utils.ExpiryExpiring], counts[utils.ExpiryExpired], counts[utils.ExpiryMissing]))

	if len(subs) == 0 {
		return d.Write(w)
	}

	rows := make([][]string, len(subs))
	for i, s := range subs {
		contact := strings.TrimSpace(strings.Join([]string{s.ContactName, s.Phone, s.Email}, "\n"))
		row := []string{s.CompanyName, orDash(s.Trade), orDash(contact)}
		for _, p := range registerPolicies {
			row = append(row, policyCell(s.Insurance.Policies[p]))
		}
		row = append(row, humanize(s.Insurance.Overall))
		rows[i] = row
	}

	const firstPolicy = 3
	t := &Table{
		Columns: []Column{
			{Title: "Company", Width: 0.18},
			{Title: "Trade", Width: 0.11},
			{Title: "Contact", Width: 0.2},
			{Title: "Public liability", Width: 0.13, Align: "C"},
			{Title: "Employers' liability", Width: 0.13, Align: "C"},
			{Title: "Prof. indemnity", Width: 0.13, Align: "C"},
			{Title: "Overall", Width: 0.12, Align: "C"},
		},
		Zebra: true,
		Status: func(row, col int) (Colour, bool) {
			ins := subs[row].Insurance
			switch {
			case col >= firstPolicy && col < firstPolicy+len(registerPolicies):
				res := ins.Policies[registerPolicies[col-firstPolicy]]
				// optional cover that was never held is not a problem
				if res.Status == utils.ExpiryMissing && registerPolicies[col-firstPolicy] == models.PolicyProfessionalIndemnity {
					return Colour{}, false
				}
				return StatusColour(res.Status)
			case col == firstPolicy+len(registerPolicies):
				return StatusColour(ins.Overall)
			}
			return Colour{}, false
		},
	}
	t.Render(d, rows)
	return d.Write(w)
}
