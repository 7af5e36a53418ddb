package controllers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"sitesafe-api/middleware"
	"sitesafe-api/services"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func signageService() *services.SignageService {
	return services.NewSignageService(getDB(), objectStore)
}

func ListSignage(c *gin.Context) {
	signs, total, err := signageService().List(c.Query("category"), c.Query("site_id"), pageFrom(c))
	if err != nil {
		fail(c, err)
		return
	}
	okList(c, signs, total)
}

func GetSignage(c *gin.Context) {
	id, valid := intParam(c, "id")
	if !valid {
		return
	}
	sign, err := signageService().Get(id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, sign)
}

// UploadSignage takes the artwork in "file" plus the metadata form fields.
func UploadSignage(c *gin.Context) {
	up, done, valid := formUpload(c, middleware.UserID(c))
	if !valid {
		return
	}
	defer done()

	var in services.SignageInput
	if err := c.ShouldBind(&in); err != nil {
		badRequest(c, "Invalid form fields")
		return
	}
	sign, err := signageService().Create(c.Request.Context(), in, up)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, sign)
}

func UpdateSignage(c *gin.Context) {
	id, valid := intParam(c, "id")
	if !valid {
		return
	}
	var in services.SignageInput
	if !bindJSON(c, &in) {
		return
	}
	sign, err := signageService().Update(id, in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, sign)
}

func ReplaceSignageArtwork(c *gin.Context) {
	id, valid := intParam(c, "id")
	if !valid {
		return
	}
	up, done, valid := formUpload(c, middleware.UserID(c))
	if !valid {
		return
	}
	defer done()

	sign, err := signageService().ReplaceArtwork(c.Request.Context(), id, up)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, sign)
}

func DeleteSignage(c *gin.Context) {
	id, valid := intParam(c, "id")
	if !valid {
		return
	}
	if err := signageService().Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"message": "Signage deleted"})
}

// DownloadSignage streams the artwork under its original file name.
func DownloadSignage(c *gin.Context) {
	id, valid := intParam(c, "id")
	if !valid {
		return
	}
	sign, rc, err := signageService().Open(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", strconv.Quote(sign.File.OriginalName)))
	c.Header("Content-Type", sign.File.MimeType)
	if sign.File.FileSize > 0 {
		c.Header("Content-Length", strconv.FormatInt(sign.File.FileSize, 10))
	}
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		log.WithError(err).WithField("signage_id", id).Warn("artwork download interrupted")
	}
}
