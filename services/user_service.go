package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"sitesafe-api/config"
	"sitesafe-api/models"
	"sitesafe-api/utils"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	if db == nil {
		db = config.DB
	}
	return &UserService{db: db}
}

// HashPassword hashes password using bcrypt
func HashPassword(password string) (string, error) {
	cost := config.Current.Auth.BcryptCostLevel
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(bytes), err
}

// CheckPasswordHash compares password with hash
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Authenticate checks credentials and stamps last_login_at.
func (s *UserService) Authenticate(email, password string) (*models.User, error) {
	var user models.User
	err := notDeleted(s.db).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !CheckPasswordHash(password, user.Password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	now := time.Now()
	if err := s.db.Model(&models.User{}).Where("user_id = ?", user.UserID).
		UpdateColumn("last_login_at", now).Error; err != nil {
		return nil, err
	}
	user.LastLoginAt = &now
	return &user, nil
}

// NewUserInput creates either kind of account.
type NewUserInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	UserType  string `json:"user_type"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (in *NewUserInput) normalize() error {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FirstName = trimmed(in.FirstName)
	in.LastName = trimmed(in.LastName)

	errs := fieldErrors{}
	if !utils.ValidateEmail(in.Email) {
		errs.add("email", "Invalid e-mail address")
	}
	if ok, msg := utils.ValidatePassword(in.Password); !ok {
		errs.add("password", msg)
	}
	if !models.ValidUserType(in.UserType) {
		errs.add("user_type", "User type must be staff or worker")
	}
	if in.FirstName == "" {
		errs.add("first_name", "First name is required")
	}
	if in.LastName == "" {
		errs.add("last_name", "Last name is required")
	}
	return errs.err()
}

// Create adds a user. Workers get an empty profile row in the same transaction.
func (s *UserService) Create(in NewUserInput) (*models.User, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	var taken int64
	if err := s.db.Model(&models.User{}).Where("email = ?", in.Email).Count(&taken).Error; err != nil {
		return nil, err
	}
	if taken > 0 {
		return nil, fmt.Errorf("%w: e-mail already registered", ErrConflict)
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Email:     in.Email,
		Password:  hash,
		UserType:  in.UserType,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		IsActive:  true,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		if user.IsWorker() {
			return tx.Create(&models.WorkerProfile{UserID: user.UserID}).Error
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// RegisterWorker is the self-service sign up; it always creates a worker.
func (s *UserService) RegisterWorker(in NewUserInput) (*models.User, error) {
	in.UserType = models.UserTypeWorker
	return s.Create(in)
}

func (s *UserService) Get(id int) (*models.User, error) {
	var user models.User
	if err := notDeleted(s.db).Where("user_id = ?", id).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *UserService) List(userType string, page Page) ([]models.User, int64, error) {
	q := notDeleted(s.db.Model(&models.User{}))
	if userType != "" {
		q = q.Where("user_type = ?", userType)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []models.User
	if err := page.apply(q.Order("last_name, first_name")).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// SetActive enables or disables login. Staff cannot disable themselves.
func (s *UserService) SetActive(id int, active bool, actorID int) (*models.User, error) {
	if id == actorID && !active {
		return nil, fmt.Errorf("%w: cannot deactivate your own account", ErrForbidden)
	}
	user, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.User{}).Where("user_id = ?", id).Update("is_active", active).Error; err != nil {
		return nil, err
	}
	user.IsActive = active
	return user, nil
}

func (s *UserService) ChangePassword(id int, current, next string) error {
	user, err := s.Get(id)
	if err != nil {
		return err
	}
	if !CheckPasswordHash(current, user.Password) {
		return invalid("current_password", "Current password is incorrect")
	}
	if ok, msg := utils.ValidatePassword(next); !ok {
		return invalid("new_password", msg)
	}
	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	return s.db.Model(&models.User{}).Where("user_id = ?", id).Update("password", hash).Error
}

// ActiveStaff lists the staff accounts that receive staff notifications.
func (s *UserService) ActiveStaff() ([]models.User, error) {
	var users []models.User
	err := notDeleted(s.db).
		Where("user_type = ? AND is_active = ?", models.UserTypeStaff, true).
		Order("user_id").
		Find(&users).Error
	return users, err
}
