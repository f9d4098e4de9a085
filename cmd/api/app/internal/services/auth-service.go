package services

import (
	"errors"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/mkatta/pushgate/middlewares"
	"github.com/mkatta/pushgate/pkg/models"
	"github.com/mkatta/pushgate/pkg/repositories"
)

var ErrInvalidCredentials = errors.New("invalid email or password")
var ErrEmailTaken = errors.New("email already registered")

type AuthService struct {
	repo *repositories.UserRepository
}

func NewAuthService(db *gorm.DB) *AuthService {
	return &AuthService{repo: repositories.NewUserRepository(db)}
}

func (s *AuthService) Register(email, password, name string) (*models.User, string, error) {
	if _, err := s.repo.GetByEmail(email); err == nil {
		return nil, "", ErrEmailTaken
	} else if err != repositories.ErrNotFound {
		return nil, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		Name:     name,
		Role:     "user",
	}
	if err := s.repo.Create(user); err != nil {
		return nil, "", err
	}

	token, err := middlewares.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *AuthService) Login(email, password string) (*models.User, string, error) {
	user, err := s.repo.GetByEmail(email)
	if err == repositories.ErrNotFound {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := middlewares.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *AuthService) Profile(userID uuid.UUID) (*models.User, error) {
	return s.repo.GetByID(userID)
}
