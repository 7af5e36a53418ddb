package controllers

import (
	"io"

	"sitesafe-api/middleware"
	"sitesafe-api/reports"
	"sitesafe-api/services"
	"sitesafe-api/wizard"

	"github.com/gin-gonic/gin"
)

func riskAssessmentService() *services.RiskAssessmentService {
	return services.NewRiskAssessmentService(getDB(), objectStore)
}

func GetRiskAssessmentWizard(c *gin.Context) {
	ok(c, wizard.RiskAssessment)
}

func ListRiskAssessments(c *gin.Context) {
	f := services.RiskAssessmentFilter{
		Status:       c.Query("status"),
		SiteID:       c.Query("site_id"),
		ReviewStatus: c.Query("review_status"),
		Page:         pageFrom(c),
	}
	list, total, err := riskAssessmentService().List(f, clock())
	if err != nil {
		fail(c, err)
		return
	}
	okList(c, list, total)
}

func GetRiskAssessment(c *gin.Context) {
	id, valid := intParam(c, "id")
	if !valid {
		return
	}
	ra, err := riskAssessmentService().Get(id, clock())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, ra)
}

func CreateRiskAssessment(c *gin.Context) {
	var payload map[string]interface{}
	if !bindJSON(c, &payload) {
		return
	}
	ra, err := riskAssessmentService().Create(payload, middleware.UserID(c), clock())
	if err != nil {
		fail(c, err)
		return
	}
	created(c, ra)
}

func SaveRiskAssessmentStep(c *gin.Context) {
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
	ra, err := riskAssessmentService().SaveStep(id, step, payload, clock())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, ra)
}

func PublishRiskAssessment(c *gin.Context) {
	id, valid := intParam(c, "id")
	if !valid {
		return
	}
	ra, err := riskAssessmentService().Publish(id, clock())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, ra)
}

func ArchiveRiskAssessment(c *gin.Context) {
	id, valid := intParam(c, "id")
	if !valid {
		return
	}
	ra, err := riskAssessmentService().Archive(id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, ra)
}

func DeleteRiskAssessment(c *gin.Context) {
	id, valid := intParam(c, "id")
	if !valid {
		return
	}
	if err := riskAssessmentService().Delete(id); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"message": "Risk assessment deleted"})
}

func ListRiskAssessmentSignatures(c *gin.Context) {
	id, valid := intParam(c, "id")
	if !valid {
		return
	}
	sigs, err := riskAssessmentService().Signatures(id)
	if err != nil {
		fail(c, err)
		return
	}
	okList(c, sigs, int64(len(sigs)))
}

func GetRiskAssessmentPDF(c *gin.Context) {
	id, valid := intParam(c, "id")
	if !valid {
		return
	}
	now := clock()
	svc := riskAssessmentService()
	ra, err := svc.Get(id, now)
	if err != nil {
		fail(c, err)
		return
	}
	sigs, err := svc.Signatures(id)
	if err != nil {
		fail(c, err)
		return
	}

	rep := reports.RiskAssessmentReport{Assessment: &ra.RiskAssessment, Signatures: sigs}
	if ra.SiteID != nil {
		rep.SiteName = siteName(*ra.SiteID)
	}
	brand := branding(c.Request.Context())
	sendPDF(c, ra.Reference+".pdf", func(w io.Writer) error {
		return reports.RiskAssessmentPDF(w, brand, rep, now)
	})
}

// MyRiskAssessments lists published assessments for the sites the worker has
// visited; ?pending=true keeps only the unsigned ones.
func MyRiskAssessments(c *gin.Context) {
	pending := false
	if v := queryBool(c, "pending"); v != nil {
		pending = *v
	}
	list, err := riskAssessmentService().ForWorker(middleware.UserID(c), pending, clock())
	if err != nil {
		fail(c, err)
		return
	}
	okList(c, list, int64(len(list)))
}

func MyRiskAssessment(c *gin.Context) {
	id, valid := intParam(c, "id")
	if !valid {
		return
	}
	ra, err := riskAssessmentService().GetForWorker(id, middleware.UserID(c), clock())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, ra)
}

func SignRiskAssessment(c *gin.Context) {
	id, valid := intParam(c, "id")
	if !valid {
		return
	}
	var in services.SignInput
	if !bindJSON(c, &in) {
		return
	}
	sig, err := riskAssessmentService().Sign(c.Request.Context(), id, middleware.UserID(c), in, c.ClientIP(), clock())
	if err != nil {
		fail(c, err)
		return
	}
	created(c, sig)
}
