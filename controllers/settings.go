package controllers

import (
	"net/http"

	"sitesafe-api/middleware"
	"sitesafe-api/services"

	"github.com/gin-gonic/gin"
)

func settingsService() *services.SettingsService {
	return services.NewSettingsService(getDB(), objectStore)
}

// GetSettings returns the company settings, or the defaults before the first save.
func GetSettings(c *gin.Context) {
	cs, err := settingsService().Get()
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, cs)
}

func UpdateSettings(c *gin.Context) {
	var in services.SettingsInput
	if !bindJSON(c, &in) {
		return
	}
	cs, err := settingsService().Update(in, middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, cs)
}

// UploadLogo replaces the logo printed on PDF headers.
func UploadLogo(c *gin.Context) {
	up, done, valid := formUpload(c, middleware.UserID(c))
	if !valid {
		return
	}
	defer done()

	cs, err := settingsService().SetLogo(c.Request.Context(), up, middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, cs)
}

func GetLogo(c *gin.Context) {
	data, mime, err := settingsService().Logo(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	if data == nil {
		abort(c, http.StatusNotFound, "No logo uploaded")
		return
	}
	c.Data(http.StatusOK, mime, data)
}
