package controllers

import (
	"strconv"

	"sitesafe-api/middleware"
	"sitesafe-api/services"

	"github.com/gin-gonic/gin"
)

func GetMyProfile(c *gin.Context) {
	uid := middleware.UserID(c)
	user, err := services.NewUserService(getDB()).Get(uid)
	if err != nil {
		fail(c, err)
		return
	}
	profile, err := services.NewWorkerService(getDB()).Profile(uid)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"user": user, "profile": profile})
}

func UpdateMyProfile(c *gin.Context) {
	var in services.ProfileInput
	if !bindJSON(c, &in) {
		return
	}
	profile, err := services.NewWorkerService(getDB()).UpdateProfile(middleware.UserID(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, profile)
}

// ListWorkers filters by trade, subcontractor_id, cscs_status and health_status.
func ListWorkers(c *gin.Context) {
	f := services.WorkerFilter{
		Trade:        c.Query("trade"),
		CSCSStatus:   c.Query("cscs_status"),
		HealthStatus: c.Query("health_status"),
		Page:         pageFrom(c),
	}
	if v := c.Query("subcontractor_id"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			badRequest(c, "Invalid subcontractor_id")
			return
		}
		f.SubcontractorID = id
	}
	workers, total, err := services.NewWorkerService(getDB()).List(f, clock())
	if err != nil {
		fail(c, err)
		return
	}
	okList(c, workers, total)
}

func GetWorker(c *gin.Context) {
	id, valid := intParam(c, "id")
	if !valid {
		return
	}
	w, err := services.NewWorkerService(getDB()).Get(id, clock())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, w)
}
