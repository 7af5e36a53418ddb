package controllers

import (
	"strconv"

	"sitesafe-api/middleware"
	"sitesafe-api/services"

	"github.com/gin-gonic/gin"
)

func healthService() *services.HealthService {
	return services.NewHealthService(getDB(), questionBank)
}

// GetMyHealthQuestionnaire returns the current question set and the
// worker's due status.
func GetMyHealthQuestionnaire(c *gin.Context) {
	svc := healthService()
	status, err := svc.Status(middleware.UserID(c), clock())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"questions": svc.Questions(), "status": status})
}

func SubmitHealthQuestionnaire(c *gin.Context) {
	var in services.HealthSubmission
	if !bindJSON(c, &in) {
		return
	}
	hq, err := healthService().Submit(middleware.UserID(c), in, clock())
	if err != nil {
		fail(c, err)
		return
	}
	created(c, hq)
}

// ListHealthQuestionnaires filters by flagged, unreviewed and worker_id.
func ListHealthQuestionnaires(c *gin.Context) {
	f := services.HealthFilter{
		Flagged: queryBool(c, "flagged"),
		Page:    pageFrom(c),
	}
	if v := queryBool(c, "unreviewed"); v != nil {
		f.Unreviewed = *v
	}
	if v := c.Query("worker_id"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			badRequest(c, "Invalid worker_id")
			return
		}
		f.WorkerID = id
	}
	list, total, err := healthService().List(f)
	if err != nil {
		fail(c, err)
		return
	}
	okList(c, list, total)
}

func ReviewHealthQuestionnaire(c *gin.Context) {
	id, valid := intParam(c, "id")
	if !valid {
		return
	}
	var req struct {
		Notes string `json:"notes"`
	}
	if !bindJSON(c, &req) {
		return
	}
	hq, err := healthService().Review(id, middleware.UserID(c), req.Notes, clock())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, hq)
}
