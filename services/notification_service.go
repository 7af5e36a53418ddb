package services

import (
	"fmt"
	"time"

	"sitesafe-api/config"
	"sitesafe-api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Notification types.
const (
	NotifyInfo    = "info"
	NotifySuccess = "success"
	NotifyWarning = "warning"
	NotifyError   = "error"
)

// Message is a notification before it is addressed to a user.
type Message struct {
	Title       string
	Body        string
	Type        string
	Category    string
	RelatedType string
	RelatedID   string
	// DedupeKey, when set, makes delivery idempotent per user.
	DedupeKey string
}

type NotificationService struct {
	db *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	if db == nil {
		db = config.DB
	}
	return &NotificationService{db: db}
}

// Notify stores msg for each user, skipping users that already hold the same
// dedupe key. It returns how many notifications were created.
func (s *NotificationService) Notify(userIDs []int, msg Message) (int, error) {
	if msg.Type == "" {
		msg.Type = NotifyInfo
	}
	created := 0
	for _, uid := range userIDs {
		n := models.Notification{
			UserID:      uid,
			Title:       msg.Title,
			Message:     msg.Body,
			Type:        msg.Type,
			Category:    msg.Category,
			RelatedType: strPtr(msg.RelatedType),
			RelatedID:   strPtr(msg.RelatedID),
		}
		if msg.DedupeKey != "" {
			key := fmt.Sprintf("%s:u%d", msg.DedupeKey, uid)
			n.DedupeKey = &key
		}
		res := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&n)
		if res.Error != nil {
			return created, fmt.Errorf("notify user %d: %w", uid, res.Error)
		}
		if res.RowsAffected == 1 {
			created++
		}
	}
	return created, nil
}

// NotifyStaff sends msg to every active staff account.
func (s *NotificationService) NotifyStaff(msg Message) (int, error) {
	staff, err := NewUserService(s.db).ActiveStaff()
	if err != nil {
		return 0, err
	}
	ids := make([]int, 0, len(staff))
	for _, u := range staff {
		ids = append(ids, u.UserID)
	}
	return s.Notify(ids, msg)
}

func (s *NotificationService) List(userID int, unreadOnly bool, page Page) ([]models.Notification, int64, error) {
	q := s.db.Model(&models.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var items []models.Notification
	if err := page.apply(q.Order("create_at DESC")).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *NotificationService) UnreadCount(userID int) (int64, error) {
	var n int64
	err := s.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&n).Error
	return n, err
}

func (s *NotificationService) MarkRead(userID int, id uint) error {
	res := s.db.Model(&models.Notification{}).
		Where("notification_id = ? AND user_id = ?", id, userID).
		Updates(map[string]interface{}{"is_read": true, "update_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *NotificationService) MarkAllRead(userID int) (int64, error) {
	res := s.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "update_at": time.Now()})
	return res.RowsAffected, res.Error
}
