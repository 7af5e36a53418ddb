package controllers

import (
	"net/http"

	"sitesafe-api/middleware"
	"sitesafe-api/models"
	"sitesafe-api/services"

	"github.com/gin-gonic/gin"
)

// GetDashboard returns the summary cards for the caller's account type.
func GetDashboard(c *gin.Context) {
	db := getDB()
	user, err := services.NewUserService(db).Get(middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	dash, known := services.DashboardFor(user)
	if !known {
		abort(c, http.StatusForbidden, "Unknown account type")
		return
	}

	svc := services.NewDashboardService(db, questionBank)
	var summary interface{}
	switch user.UserType {
	case models.UserTypeStaff:
		summary, err = svc.Staff(user.UserID, clock())
	default:
		summary, err = svc.Worker(user.UserID, clock())
	}
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"dashboard": dash, "summary": summary})
}
