package controllers

import (
	"sitesafe-api/middleware"
	"sitesafe-api/services"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// ListReminders returns what a sweep would report right now, soonest first.
func ListReminders(c *gin.Context) {
	items, err := services.NewReminderService(getDB(), nil).Collect(clock())
	if err != nil {
		fail(c, err)
		return
	}
	okList(c, items, int64(len(items)))
}

// RunReminders performs a sweep; ?dry_run=true only reports.
func RunReminders(c *gin.Context) {
	dryRun := false
	if v := queryBool(c, "dry_run"); v != nil {
		dryRun = *v
	}
	sum, err := services.NewReminderService(getDB(), mailer).Run(c.Request.Context(), clock(), dryRun)
	if err != nil {
		fail(c, err)
		return
	}
	log.WithFields(log.Fields{
		"user_id":         middleware.UserID(c),
		"dry_run":         dryRun,
		"collected":       sum.Collected,
		"new":             sum.New,
		"emailed":         sum.Emailed,
		"email_failures":  sum.EmailFailures,
		"staff_notified":  sum.StaffNotified,
		"worker_notified": sum.WorkerNotified,
	}).Info("reminder sweep triggered")
	ok(c, sum)
}
