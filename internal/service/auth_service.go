package service

import (
	"context"
	"coursehub_backend/internal/config"
	"coursehub_backend/internal/model"
	"coursehub_backend/internal/repository"
	"coursehub_backend/internal/util"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	UserRepo *repository.UserRepository
	Cfg      *config.Config
}

func NewAuthService(userRepo *repository.UserRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		UserRepo: userRepo,
		Cfg:      cfg,
	}
}

type RegisterInput struct {
	FullName string
	Email    string
	Password string
}

// Register 注册时同时创建 profile，默认学生角色、免费订阅
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.Profile, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))

	_, err := s.UserRepo.FindByEmail(ctx, email)
	if err == nil {
		return nil, util.ErrEmailRegistered
	} else if !errors.Is(err, util.ErrUserNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{Email: email, Password: string(hashedPassword)}
	profile := &model.Profile{
		FullName:         in.FullName,
		Email:            email,
		Role:             model.Student,
		SubscriptionTier: model.TierFree,
	}
	if err := s.UserRepo.CreateWithProfile(ctx, user, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// Login 返回 JWT，角色取自 profile
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *model.Profile, error) {
	user, err := s.UserRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return "", nil, util.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, util.ErrInvalidCredentials
	}

	profile, err := s.UserRepo.FindProfileByUserID(ctx, user.ID)
	if err != nil {
		return "", nil, err
	}

	token, err := util.GenerateJWT(user.ID, user.Email, profile.Role, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return "", nil, err
	}

	_ = s.UserRepo.UpdateLastLogin(ctx, user.ID, time.Now())
	return token, profile, nil
}

func (s *AuthService) GetProfile(ctx context.Context, sess *Session) (*model.Profile, error) {
	if sess == nil {
		return nil, &util.NotAuthenticatedError{Reason: "no session"}
	}
	return s.UserRepo.FindProfileByUserID(ctx, sess.UserID)
}
