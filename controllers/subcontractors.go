package controllers

import (
	"io"
	"strings"

	"sitesafe-api/middleware"
	"sitesafe-api/reports"
	"sitesafe-api/services"
	"sitesafe-api/utils"

	"github.com/gin-gonic/gin"
)

func subcontractorService() *services.SubcontractorService {
	return services.NewSubcontractorService(getDB(), objectStore)
}

func ListSubcontractors(c *gin.Context) {
	f := services.SubcontractorFilter{
		Query:           strings.TrimSpace(c.Query("q")),
		Trade:           c.Query("trade"),
		InsuranceStatus: c.Query("insurance_status"),
		Page:            pageFrom(c),
	}
	if v := queryBool(c, "include_inactive"); v != nil {
		f.IncludeInactive = *v
	}
	subs, total, err := subcontractorService().List(f, clock())
	if err != nil {
		fail(c, err)
		return
	}
	okList(c, subs, total)
}

func GetSubcontractor(c *gin.Context) {
	id, valid := intParam(c, "id")
	if !valid {
		return
	}
	svc := subcontractorService()
	sub, err := svc.Get(id, clock())
	if err != nil {
		fail(c, err)
		return
	}
	docs, err := svc.Documents(id)
	if err != nil {
		fail(c, err)
		return
	}
	sub.Documents = docs
	ok(c, sub)
}

func CreateSubcontractor(c *gin.Context) {
	var in services.SubcontractorInput
	if !bindJSON(c, &in) {
		return
	}
	sub, err := subcontractorService().Create(in, middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	created(c, sub)
}

func UpdateSubcontractor(c *gin.Context) {
	id, valid := intParam(c, "id")
	if !valid {
		return
	}
	var in services.SubcontractorInput
	if !bindJSON(c, &in) {
		return
	}
	sub, err := subcontractorService().Update(id, in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, sub)
}

func DeleteSubcontractor(c *gin.Context) {
	id, valid := intParam(c, "id")
	if !valid {
		return
	}
	if err := subcontractorService().Delete(id); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"message": "Subcontractor deleted"})
}

func ListSubcontractorDocuments(c *gin.Context) {
	id, valid := intParam(c, "id")
	if !valid {
		return
	}
	docs, err := subcontractorService().Documents(id)
	if err != nil {
		fail(c, err)
		return
	}
	okList(c, docs, int64(len(docs)))
}

// UploadSubcontractorDocument takes multipart fields file, document_type and
// an optional expires_at (YYYY-MM-DD).
func UploadSubcontractorDocument(c *gin.Context) {
	id, valid := intParam(c, "id")
	if !valid {
		return
	}
	up, done, valid := formUpload(c, middleware.UserID(c))
	if !valid {
		return
	}
	defer done()

	expires, err := utils.ParseDate(c.PostForm("expires_at"))
	if err != nil {
		fail(c, &services.ValidationError{Fields: map[string]string{"expires_at": "Use the format YYYY-MM-DD"}})
		return
	}
	doc, err := subcontractorService().AddDocument(c.Request.Context(), id, c.PostForm("document_type"), expires, up)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, doc)
}

// SubcontractorRegisterPDF streams the insurance compliance register.
func SubcontractorRegisterPDF(c *gin.Context) {
	now := clock()
	subs, err := subcontractorService().Register(now)
	if err != nil {
		fail(c, err)
		return
	}
	brand := branding(c.Request.Context())
	sendPDF(c, "subcontractor-register-"+now.Format("2006-01-02")+".pdf", func(w io.Writer) error {
		return reports.SubcontractorRegisterPDF(w, brand, subs, now)
	})
}
