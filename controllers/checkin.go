package controllers

import (
	"io"
	"strconv"
	"strings"

	"sitesafe-api/middleware"
	"sitesafe-api/reports"
	"sitesafe-api/services"
	"sitesafe-api/utils"

	"github.com/gin-gonic/gin"
)

type checkinRequest struct {
	QRPayload string `json:"qr_payload"`
}

func checkinService() *services.CheckinService {
	return services.NewCheckinService(getDB(), questionBank)
}

// CheckIn opens a visit from a scanned QR payload.
func CheckIn(c *gin.Context) {
	var req checkinRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := checkinService().CheckIn(middleware.UserID(c), req.QRPayload, clock())
	if err != nil {
		fail(c, err)
		return
	}
	created(c, res)
}

// CheckOut closes the open visit. The QR payload is optional.
func CheckOut(c *gin.Context) {
	var req checkinRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	l, err := checkinService().CheckOut(middleware.UserID(c), req.QRPayload, clock())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, l)
}

func CurrentCheckin(c *gin.Context) {
	l, err := checkinService().Current(middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, l)
}

func MySiteLogs(c *gin.Context) {
	f, valid := siteLogFilter(c)
	if !valid {
		return
	}
	f.WorkerID = middleware.UserID(c)
	logs, total, err := checkinService().List(f)
	if err != nil {
		fail(c, err)
		return
	}
	okList(c, logs, total)
}

func ListSiteLogs(c *gin.Context) {
	f, valid := siteLogFilter(c)
	if !valid {
		return
	}
	logs, total, err := checkinService().List(f)
	if err != nil {
		fail(c, err)
		return
	}
	okList(c, logs, total)
}

// ManualCheckOut lets staff close a visit a worker forgot to end.
func ManualCheckOut(c *gin.Context) {
	id, valid := intParam(c, "id")
	if !valid {
		return
	}
	var req struct {
		Notes string `json:"notes"`
	}
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	l, err := checkinService().ManualCheckOut(id, middleware.UserID(c), req.Notes, clock())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, l)
}

// SiteLogReportPDF prints the logs matching the same filters as ListSiteLogs.
func SiteLogReportPDF(c *gin.Context) {
	f, valid := siteLogFilter(c)
	if !valid {
		return
	}
	logs, err := checkinService().Report(f)
	if err != nil {
		fail(c, err)
		return
	}
	now := clock()
	rep := reports.SiteLogReport{Scope: describeFilter(c, f), Logs: logs}
	brand := branding(c.Request.Context())
	sendPDF(c, "site-logs-"+now.Format("2006-01-02")+".pdf", func(w io.Writer) error {
		return reports.SiteLogPDF(w, brand, rep, now)
	})
}

// siteLogFilter reads site_id, worker_id, from, to (inclusive dates) and open.
func siteLogFilter(c *gin.Context) (services.SiteLogFilter, bool) {
	f := services.SiteLogFilter{
		SiteID: c.Query("site_id"),
		Open:   queryBool(c, "open"),
		Page:   pageFrom(c),
	}
	if v := c.Query("worker_id"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			badRequest(c, "Invalid worker_id")
			return f, false
		}
		f.WorkerID = id
	}
	from, err := utils.ParseDate(c.Query("from"))
	if err != nil {
		badRequest(c, "Invalid from date")
		return f, false
	}
	to, err := utils.ParseDate(c.Query("to"))
	if err != nil {
		badRequest(c, "Invalid to date")
		return f, false
	}
	f.From = from
	if to != nil {
		end := to.AddDate(0, 0, 1)
		f.To = &end
	}
	return f, true
}

func describeFilter(c *gin.Context, f services.SiteLogFilter) string {
	var parts []string
	if f.SiteID != "" {
		parts = append(parts, "Site: "+siteName(f.SiteID))
	}
	if f.WorkerID > 0 {
		parts = append(parts, "Worker: "+userName(f.WorkerID))
	}
	if f.From != nil {
		parts = append(parts, "From "+utils.FormatUKDate(*f.From))
	}
	if to := c.Query("to"); to != "" && f.To != nil {
		parts = append(parts, "To "+utils.FormatUKDate(f.To.AddDate(0, 0, -1)))
	}
	if f.Open != nil && *f.Open {
		parts = append(parts, "Open visits only")
	}
	if len(parts) == 0 {
		return "All sites, all workers"
	}
	return strings.Join(parts, " | ")
}
