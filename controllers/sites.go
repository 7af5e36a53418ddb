package controllers

import (
	"io"
	"net/http"
	"strconv"

	"sitesafe-api/reports"
	"sitesafe-api/services"

	"github.com/gin-gonic/gin"
)

const defaultQRSize = 512

func siteService() *services.SiteService {
	return services.NewSiteService(getDB())
}

func ListSites(c *gin.Context) {
	activeOnly := false
	if v := queryBool(c, "active"); v != nil {
		activeOnly = *v
	}
	sites, total, err := siteService().List(activeOnly, c.Query("q"), pageFrom(c))
	if err != nil {
		fail(c, err)
		return
	}
	okList(c, sites, total)
}

func GetSite(c *gin.Context) {
	site, err := siteService().Get(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"site": site, "checkin_url": siteService().CheckinURL(site)})
}

func CreateSite(c *gin.Context) {
	var in services.SiteInput
	if !bindJSON(c, &in) {
		return
	}
	site, err := siteService().Create(in)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, site)
}

func UpdateSite(c *gin.Context) {
	var in services.SiteInput
	if !bindJSON(c, &in) {
		return
	}
	site, err := siteService().Update(c.Param("id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, site)
}

func DeleteSite(c *gin.Context) {
	if err := siteService().Delete(c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"message": "Site deleted"})
}

// GetSiteQR returns the check-in QR code as a PNG; ?size= sets the pixel size.
func GetSiteQR(c *gin.Context) {
	svc := siteService()
	site, err := svc.Get(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", strconv.Itoa(defaultQRSize)))
	if size < 128 || size > 2048 {
		size = defaultQRSize
	}
	png, err := reports.QRCodePNG(svc.CheckinURL(site), size)
	if err != nil {
		fail(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="site-`+site.SiteID+`.png"`)
	c.Data(http.StatusOK, "image/png", png)
}

// GetSitePoster streams the printable A4 check-in poster.
func GetSitePoster(c *gin.Context) {
	svc := siteService()
	site, err := svc.Get(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	now := clock()
	brand := branding(c.Request.Context())
	url := svc.CheckinURL(site)
	sendPDF(c, "site-poster-"+site.SiteID+".pdf", func(w io.Writer) error {
		return reports.SitePosterPDF(w, brand, site, url, now)
	})
}

// GetSiteOnSite lists the workers currently checked in at a site.
func GetSiteOnSite(c *gin.Context) {
	id := c.Param("id")
	if _, err := siteService().Get(id); err != nil {
		fail(c, err)
		return
	}
	logs, err := siteService().OnSite(id)
	if err != nil {
		fail(c, err)
		return
	}
	okList(c, logs, int64(len(logs)))
}

// PublicSiteCheckin is the unauthenticated landing lookup for scanned links.
func PublicSiteCheckin(c *gin.Context) {
	site, err := siteService().GetActive(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{
		"site_id":  site.SiteID,
		"name":     site.Name,
		"address":  site.Address,
		"postcode": site.Postcode,
	})
}
