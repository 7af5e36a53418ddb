package utils

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

const (
	PayloadSourceLegacy     = "legacy"
	PayloadSourceCheckinURL = "checkin_url"
	PayloadSourceUUID       = "uuid"
	PayloadSourceQueryParam = "query_param"
)

var (
	ErrEmptyPayload        = errors.New("qr payload is empty")
	ErrUnrecognisedPayload = errors.New("qr payload does not identify a site")
)

const uuidPattern = `[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`

var (
	legacyTokenRe = regexp.MustCompile(`(?i)^site:(.*)$`)
	checkinPathRe = regexp.MustCompile(`(?i)/site-checkin/(` + uuidPattern + `)(?:[/?#]|$)`)
	bareUUIDRe    = regexp.MustCompile(`^\{?(` + uuidPattern + `)\}?$`)
)

// siteQueryKeys are tried in order when the payload carries the site as a query parameter.
var siteQueryKeys = []string{"site_id", "siteId", "site"}

// SitePayload is the site reference extracted from a scanned QR code.
type SitePayload struct {
	SiteID string `json:"site_id"`
	Source string `json:"source"`
}

// ParseSitePayload extracts the site id from the text decoded from a check-in
// QR code. Accepted shapes, first match wins: a legacy "site:<id>" token, a URL
// containing /site-checkin/<uuid>, a bare UUID, or a URL query parameter.
func ParseSitePayload(raw string) (SitePayload, error) {
	payload := strings.TrimSpace(raw)
	if payload == "" {
		return SitePayload{}, ErrEmptyPayload
	}

	if m := legacyTokenRe.FindStringSubmatch(payload); m != nil {
		if id := strings.TrimSpace(m[1]); id != "" {
			return SitePayload{SiteID: id, Source: PayloadSourceLegacy}, nil
		}
		return SitePayload{}, ErrUnrecognisedPayload
	}

	if m := checkinPathRe.FindStringSubmatch(payload); m != nil {
		return SitePayload{SiteID: strings.ToLower(m[1]), Source: PayloadSourceCheckinURL}, nil
	}

	if m := bareUUIDRe.FindStringSubmatch(payload); m != nil {
		return SitePayload{SiteID: strings.ToLower(m[1]), Source: PayloadSourceUUID}, nil
	}

	if id := siteFromQuery(payload); id != "" {
		return SitePayload{SiteID: id, Source: PayloadSourceQueryParam}, nil
	}

	return SitePayload{}, ErrUnrecognisedPayload
}

func siteFromQuery(payload string) string {
	idx := strings.Index(payload, "?")
	if idx < 0 {
		return ""
	}
	query := payload[idx+1:]
	if hash := strings.Index(query, "#"); hash >= 0 {
		query = query[:hash]
	}
	values, err := url.ParseQuery(query)
	if err != nil {
		return ""
	}
	for _, key := range siteQueryKeys {
		if v := strings.TrimSpace(values.Get(key)); v != "" {
			if bareUUIDRe.MatchString(v) {
				return strings.ToLower(strings.Trim(v, "{}"))
			}
			return v
		}
	}
	return ""
}

// CheckinURL is the URL printed in a site's QR code.
func CheckinURL(baseURL, siteID string) string {
	return strings.TrimRight(baseURL, "/") + "/site-checkin/" + siteID
}
