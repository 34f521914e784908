package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/psds-microservice/helpdesk-service/internal/clock"
	"github.com/psds-microservice/helpdesk-service/internal/errs"
	"github.com/psds-microservice/helpdesk-service/internal/model"
	"github.com/psds-microservice/helpdesk-service/internal/oauth"
)

const (
	// DefaultPassword is assigned to users created by an admin without one.
	DefaultPassword = "password123"

	ProviderLocal  = "local"
	ProviderGoogle = "google"

	oauthDepartment = "General"
)

type UserServicer interface {
	Authenticate(ctx context.Context, username, password string) (*model.User, error)
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Create(ctx context.Context, in NewUser) (*model.User, error)
	ToggleActive(ctx context.Context, id uint64) (*model.User, error)
	FindOrCreateOAuth(ctx context.Context, info *oauth.UserInfo) (*model.User, error)
}

type NewUser struct {
	Username   string
	Password   string
	Name       string
	Email      string
	Role       model.Role
	Department string
}

type UserService struct {
	db    *gorm.DB
	clock clock.Clock
	cost  int
}

func NewUserService(db *gorm.DB, clk clock.Clock) *UserService {
	if clk == nil {
		clk = clock.Real()
	}
	return &UserService{db: db, clock: clk, cost: bcrypt.DefaultCost}
}

// WithHashCost lowers the bcrypt cost; tests use bcrypt.MinCost.
func (s *UserService) WithHashCost(cost int) *UserService {
	s.cost = cost
	return s
}

func (s *UserService) hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// Authenticate matches an active user by username and bcrypt password.
// Unknown user, inactive user and wrong password are indistinguishable.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, errs.ErrInvalidCredentials
	}
	var u model.User
	err := s.db.WithContext(ctx).Where(&model.User{Username: username}).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrInvalidCredentials
		}
		return nil, err
	}
	if !u.Active {
		return nil, errs.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		return nil, errs.ErrInvalidCredentials
	}
	return &u, nil
}

func (s *UserService) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	var out []model.User
	if err := s.db.WithContext(ctx).Order("id").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *UserService) Create(ctx context.Context, in NewUser) (*model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" {
		return nil, fmt.Errorf("%w: username is required", errs.ErrInvalidInput)
	}
	if in.Role == "" {
		in.Role = model.RoleEndUser
	}
	if !in.Role.Valid() {
		return nil, fmt.Errorf("%w: invalid role %q", errs.ErrInvalidInput, in.Role)
	}
	if in.Password == "" {
		in.Password = DefaultPassword
	}
	if in.Name == "" {
		in.Name = in.Username
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}
	u := &model.User{
		Username:   in.Username,
		Password:   hash,
		Name:       in.Name,
		Email:      strings.TrimSpace(in.Email),
		Role:       in.Role,
		Department: in.Department,
		Active:     true,
		Provider:   ProviderLocal,
		CreatedAt:  s.clock.Now().UTC(),
	}
	if err := s.insert(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserService) insert(ctx context.Context, u *model.User) error {
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.User{}).Where(&model.User{Username: u.Username}).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return errs.ErrUsernameTaken
	}
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errs.ErrUsernameTaken
		}
		return err
	}
	return nil
}

// ToggleActive flips the active flag. Deactivated users can no longer log in.
func (s *UserService) ToggleActive(ctx context.Context, id uint64) (*model.User, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Active = !u.Active
	if err := s.db.WithContext(ctx).Model(u).Update("active", u.Active).Error; err != nil {
		return nil, err
	}
	return u, nil
}

// FindOrCreateOAuth returns the user owning info.Email, creating an end user
// on first sign-in. Deactivated users are rejected.
func (s *UserService) FindOrCreateOAuth(ctx context.Context, info *oauth.UserInfo) (*model.User, error) {
	if info == nil || info.Email == "" {
		return nil, errs.ErrOAuthRejected
	}
	var u model.User
	err := s.db.WithContext(ctx).Where(&model.User{Email: info.Email}).Order("id").First(&u).Error
	switch {
	case err == nil:
		if !u.Active {
			return nil, errs.ErrInvalidCredentials
		}
		if info.Picture != "" && info.Picture != u.Picture {
			u.Picture = info.Picture
			if err := s.db.WithContext(ctx).Model(&u).Update("picture", u.Picture).Error; err != nil {
				return nil, err
			}
		}
		return &u, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	secret := make([]byte, 24)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	hash, err := s.hash(hex.EncodeToString(secret))
	if err != nil {
		return nil, err
	}
	name := info.Name
	if name == "" {
		name = info.Email
	}
	nu := &model.User{
		Username:   info.Email,
		Password:   hash,
		Name:       name,
		Email:      info.Email,
		Role:       model.RoleEndUser,
		Department: oauthDepartment,
		Picture:    info.Picture,
		Active:     true,
		Provider:   ProviderGoogle,
		CreatedAt:  s.clock.Now().UTC(),
	}
	if err := s.insert(ctx, nu); err != nil {
		return nil, err
	}
	return nu, nil
}
