package controllers

import (
	"io"
	"strconv"

	"sitesafe-api/middleware"
	"sitesafe-api/reports"
	"sitesafe-api/services"
	"sitesafe-api/wizard"

	"github.com/gin-gonic/gin"
)

func ramsService() *services.RamsService {
	return services.NewRamsService(getDB())
}

// GetRamsWizard returns the step definitions so the client can render forms.
func GetRamsWizard(c *gin.Context) {
	ok(c, wizard.Rams)
}

func ListRams(c *gin.Context) {
	f := services.RamsFilter{
		Status:       c.Query("status"),
		SiteID:       c.Query("site_id"),
		ReviewStatus: c.Query("review_status"),
		Page:         pageFrom(c),
	}
	list, total, err := ramsService().List(f, clock())
	if err != nil {
		fail(c, err)
		return
	}
	okList(c, list, total)
}

func GetRams(c *gin.Context) {
	id, valid := intParam(c, "id")
	if !valid {
		return
	}
	r, err := ramsService().Get(id, clock())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, r)
}

// CreateRams starts a draft from the step 1 payload.
func CreateRams(c *gin.Context) {
	var payload map[string]interface{}
	if !bindJSON(c, &payload) {
		return
	}
	r, err := ramsService().Create(payload, middleware.UserID(c), clock())
	if err != nil {
		fail(c, err)
		return
	}
	created(c, r)
}

func SaveRamsStep(c *gin.Context) {
	id, valid := intParam(c, "id")
	if !valid {
		return
	}
	step, valid := intParam(c, "step")
	if !valid {
		return
	}
	var payload map[string]interface{}
	if !bindJSON(c, &payload) {
		return
	}
	r, err := ramsService().SaveStep(id, step, payload, clock())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, r)
}

func SubmitRams(c *gin.Context) {
	id, valid := intParam(c, "id")
	if !valid {
		return
	}
	r, err := ramsService().Submit(id, clock())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, r)
}

func ApproveRams(c *gin.Context) {
	id, valid := intParam(c, "id")
	if !valid {
		return
	}
	r, err := ramsService().Approve(id, middleware.UserID(c), clock())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, r)
}

func RejectRams(c *gin.Context) {
	id, valid := intParam(c, "id")
	if !valid {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if !bindJSON(c, &req) {
		return
	}
	r, err := ramsService().Reject(id, req.Reason)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, r)
}

func ArchiveRams(c *gin.Context) {
	id, valid := intParam(c, "id")
	if !valid {
		return
	}
	r, err := ramsService().Archive(id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, r)
}

func DeleteRams(c *gin.Context) {
	id, valid := intParam(c, "id")
	if !valid {
		return
	}
	if err := ramsService().Delete(id); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"message": "RAMS deleted"})
}

// GetRamsPDF streams the full method statement.
func GetRamsPDF(c *gin.Context) {
	id, valid := intParam(c, "id")
	if !valid {
		return
	}
	now := clock()
	r, err := ramsService().Get(id, now)
	if err != nil {
		fail(c, err)
		return
	}

	rep := reports.RamsReport{
		Rams:       &r.Rams,
		PreparedBy: userName(r.PreparedBy),
	}
	if r.SiteID != nil {
		rep.SiteName = siteName(*r.SiteID)
	}
	if r.SubcontractorID != nil {
		if sub, err := subcontractorService().Get(*r.SubcontractorID, now); err == nil {
			rep.SubcontractorName = sub.CompanyName
		}
	}
	if r.ApprovedBy != nil {
		rep.ApprovedBy = userName(*r.ApprovedBy)
	}

	brand := branding(c.Request.Context())
	sendPDF(c, r.Reference+".pdf", func(w io.Writer) error {
		return reports.RamsPDF(w, brand, rep, now)
	})
}

// userName resolves a display name for a report, falling back to the id.
func userName(id int) string {
	u, err := services.NewUserService(getDB()).Get(id)
	if err != nil {
		return "User " + strconv.Itoa(id)
	}
	return u.FullName()
}

func siteName(id string) string {
	site, err := services.NewSiteService(getDB()).Get(id)
	if err != nil {
		return id
	}
	return site.Name
}
