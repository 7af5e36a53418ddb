package controllers

import (
	"strconv"

	"sitesafe-api/middleware"
	"sitesafe-api/services"

	"github.com/gin-gonic/gin"
)

func ListNotifications(c *gin.Context) {
	unreadOnly := false
	if v := queryBool(c, "unread"); v != nil {
		unreadOnly = *v
	}
	list, total, err := services.NewNotificationService(getDB()).List(middleware.UserID(c), unreadOnly, pageFrom(c))
	if err != nil {
		fail(c, err)
		return
	}
	okList(c, list, total)
}

func GetUnreadCount(c *gin.Context) {
	n, err := services.NewNotificationService(getDB()).UnreadCount(middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"count": n})
}

func MarkNotificationRead(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "Invalid id")
		return
	}
	if err := services.NewNotificationService(getDB()).MarkRead(middleware.UserID(c), uint(id)); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"message": "Notification marked as read"})
}

func MarkAllNotificationsRead(c *gin.Context) {
	n, err := services.NewNotificationService(getDB()).MarkAllRead(middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"updated": n})
}
