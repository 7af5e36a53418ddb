package controllers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"sitesafe-api/config"
	"sitesafe-api/reports"
	"sitesafe-api/services"
	"sitesafe-api/storage"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	objectStore   storage.Store
	mailer        config.Mailer
	questionBank  *services.QuestionBank
	clock         = func() time.Time { return time.Now().UTC() }
	multipartSlop = int64(1 << 20)
)

// Configure hands the process-wide dependencies to the handlers.
func Configure(store storage.Store, m config.Mailer, bank *services.QuestionBank) {
	objectStore = store
	mailer = m
	questionBank = bank
}

func getDB() *gorm.DB { return config.DB }

func pageFrom(c *gin.Context) services.Page {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	return services.Page{Limit: limit, Offset: offset}
}

// intParam reads a positive integer path parameter, answering 400 otherwise.
func intParam(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		badRequest(c, fmt.Sprintf("Invalid %s", name))
		return 0, false
	}
	return id, true
}

func queryBool(c *gin.Context, name string) *bool {
	v := strings.TrimSpace(c.Query(name))
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		badRequest(c, "Invalid request body")
		return false
	}
	return true
}

// formUpload opens the multipart "file" field as a service upload.
func formUpload(c *gin.Context, userID int) (services.Upload, func(), bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, config.Current.MaxUploadBytes()+multipartSlop)
	fh, err := c.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			fail(c, services.ErrFileTooLarge)
			return services.Upload{}, nil, false
		}
		badRequest(c, "A file is required")
		return services.Upload{}, nil, false
	}
	f, err := fh.Open()
	if err != nil {
		badRequest(c, "Could not read the uploaded file")
		return services.Upload{}, nil, false
	}
	up := services.Upload{
		OriginalName: fh.Filename,
		MimeType:     fh.Header.Get("Content-Type"),
		Size:         fh.Size,
		Body:         f,
		UploadedBy:   userID,
	}
	return up, func() { f.Close() }, true
}

// branding loads the company identity for PDF headers. A missing logo never
// blocks a report.
func branding(ctx context.Context) reports.Branding {
	svc := services.NewSettingsService(getDB(), objectStore)
	cs, err := svc.Get()
	if err != nil {
		log.WithError(err).Warn("load company settings for report")
		return reports.Branding{}
	}
	b := reports.Branding{CompanyName: cs.CompanyName, Address: cs.Address, Phone: cs.Phone}
	if objectStore != nil {
		logo, mime, err := svc.Logo(ctx)
		if err != nil {
			log.WithError(err).Warn("load company logo")
		} else {
			b.Logo, b.LogoMime = logo, mime
		}
	}
	return b
}

// sendPDF renders into memory first so a failed render still gets a JSON error.
func sendPDF(c *gin.Context, filename string, render func(w io.Writer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
