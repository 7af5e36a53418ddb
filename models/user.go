package models

import (
	"strings"
	"time"
)

const (
	UserTypeStaff  = "staff"
	UserTypeWorker = "worker"
)

type User struct {
	UserID      int        `gorm:"primaryKey;column:user_id" json:"user_id"`
	Email       string     `gorm:"column:email;unique" json:"email"`
	Password    string     `gorm:"column:password" json:"-"`
	UserType    string     `gorm:"column:user_type" json:"user_type"`
	FirstName   string     `gorm:"column:first_name" json:"first_name"`
	LastName    string     `gorm:"column:last_name" json:"last_name"`
	IsActive    bool       `gorm:"column:is_active;default:true" json:"is_active"`
	LastLoginAt *time.Time `gorm:"column:last_login_at" json:"last_login_at,omitempty"`
	CreateAt    time.Time  `gorm:"column:create_at;autoCreateTime" json:"create_at"`
	UpdateAt    time.Time  `gorm:"column:update_at;autoUpdateTime" json:"update_at"`
	DeleteAt    *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`
}

// TableName overrides
func (User) TableName() string {
	return "users"
}

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u User) IsStaff() bool  { return u.UserType == UserTypeStaff }
func (u User) IsWorker() bool { return u.UserType == UserTypeWorker }

// ValidUserType reports whether t is one of the known account types.
func ValidUserType(t string) bool {
	return t == UserTypeStaff || t == UserTypeWorker
}
