package controllers

import (
	"net/http"
	"time"

	"sitesafe-api/middleware"
	"sitesafe-api/models"
	"sitesafe-api/services"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string             `json:"token"`
	ExpiresAt string             `json:"expires_at"`
	User      models.User        `json:"user"`
	Dashboard services.Dashboard `json:"dashboard"`
}

// Login handles user authentication
func Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := services.NewUserService(getDB()).Authenticate(req.Email, req.Password)
	if err != nil {
		log.WithField("email", req.Email).WithError(err).Info("login rejected")
		fail(c, err)
		return
	}
	issueSession(c, http.StatusOK, user)
}

// Register is the worker self-service sign up.
func Register(c *gin.Context) {
	var in services.NewUserInput
	if !bindJSON(c, &in) {
		return
	}
	user, err := services.NewUserService(getDB()).RegisterWorker(in)
	if err != nil {
		fail(c, err)
		return
	}
	log.WithField("user_id", user.UserID).Info("worker registered")
	issueSession(c, http.StatusCreated, user)
}

func issueSession(c *gin.Context, status int, user *models.User) {
	dash, known := services.DashboardFor(user)
	if !known {
		abort(c, http.StatusForbidden, "Unknown account type")
		return
	}
	token, expires, err := middleware.GenerateToken(user, clock())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(status, gin.H{"success": true, "data": LoginResponse{
		Token:     token,
		ExpiresAt: expires.Format(time.RFC3339),
		User:      *user,
		Dashboard: dash,
	}})
}

// GetProfile returns current user profile
func GetProfile(c *gin.Context) {
	user, err := services.NewUserService(getDB()).Get(middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	dash, known := services.DashboardFor(user)
	if !known {
		abort(c, http.StatusForbidden, "Unknown account type")
		return
	}
	ok(c, gin.H{"user": user, "dashboard": dash})
}

// ChangePassword handles password change
func ChangePassword(c *gin.Context) {
	var req struct {
		CurrentPassword string `json:"current_password" binding:"required"`
		NewPassword     string `json:"new_password" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if err := services.NewUserService(getDB()).ChangePassword(middleware.UserID(c), req.CurrentPassword, req.NewPassword); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"message": "Password changed successfully"})
}

// ListUsers lists accounts for staff, optionally by user_type.
func ListUsers(c *gin.Context) {
	users, total, err := services.NewUserService(getDB()).List(c.Query("user_type"), pageFrom(c))
	if err != nil {
		fail(c, err)
		return
	}
	okList(c, users, total)
}

// CreateUser lets staff add staff or worker accounts.
func CreateUser(c *gin.Context) {
	var in services.NewUserInput
	if !bindJSON(c, &in) {
		return
	}
	user, err := services.NewUserService(getDB()).Create(in)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, user)
}

func SetUserActive(c *gin.Context) {
	id, valid := intParam(c, "id")
	if !valid {
		return
	}
	var req struct {
		IsActive *bool `json:"is_active" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	user, err := services.NewUserService(getDB()).SetActive(id, *req.IsActive, middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, user)
}
