package services

import (
	"strings"
	"time"

	"sitesafe-api/utils"

	"gorm.io/gorm"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Page is a limit/offset window.
type Page struct {
	Limit  int
	Offset int
}

func (p Page) normalized() Page {
	if p.Limit <= 0 {
		p.Limit = defaultPageSize
	}
	if p.Limit > maxPageSize {
		p.Limit = maxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

func (p Page) apply(q *gorm.DB) *gorm.DB {
	p = p.normalized()
	return q.Limit(p.Limit).Offset(p.Offset)
}

// slice pages an in-memory result the same way apply pages a query.
func pageSlice[T any](items []T, p Page) []T {
	p = p.normalized()
	if p.Offset >= len(items) {
		return []T{}
	}
	end := p.Offset + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[p.Offset:end]
}

func notDeleted(db *gorm.DB) *gorm.DB {
	return db.Where("delete_at IS NULL")
}

func likePattern(q string) string {
	q = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(strings.TrimSpace(q))
	return "%" + q + "%"
}

func trimmed(s string) string {
	return utils.SanitizeInput(s)
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func timePtr(t time.Time) *time.Time { return &t }

func nowUTC() time.Time { return time.Now().UTC() }
