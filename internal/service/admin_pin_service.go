package service

import (
	"context"
	"coursehub_backend/internal/config"
	"coursehub_backend/internal/repository"
	"coursehub_backend/internal/util"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// AdminPinService 管理员二次验证 PIN
type AdminPinService struct {
	UserRepo *repository.UserRepository
	Cfg      *config.Config
}

func NewAdminPinService(userRepo *repository.UserRepository, cfg *config.Config) *AdminPinService {
	return &AdminPinService{
		UserRepo: userRepo,
		Cfg:      cfg,
	}
}

func (s *AdminPinService) HasPin(ctx context.Context, sess *Session) (bool, error) {
	if sess == nil {
		return false, &util.NotAuthenticatedError{Reason: "no session"}
	}
	profile, err := s.UserRepo.FindProfileByUserID(ctx, sess.UserID)
	if err != nil {
		return false, err
	}
	return profile.AdminPin != "", nil
}

func (s *AdminPinService) validatePin(pin string) error {
	if len(pin) < s.Cfg.Admin.PinMinLength {
		return util.ErrPinTooShort
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return util.ErrPinNotDigits
		}
	}
	return nil
}

// SetPin 首次设置 PIN，已设置时返回 ErrPinAlreadySet
func (s *AdminPinService) SetPin(ctx context.Context, sess *Session, pin, confirm string) error {
	if sess == nil {
		return &util.NotAuthenticatedError{Reason: "no session"}
	}
	if !sess.Role.IsAdmin() {
		return util.ErrPermissionDenied
	}
	if err := s.validatePin(pin); err != nil {
		return err
	}
	if pin != confirm {
		return util.ErrPinMismatch
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.UserRepo.SetAdminPin(ctx, sess.UserID, string(hashed), time.Now())
}

// VerifyPin 校验通过后返回带 pin_verified 的短期令牌
func (s *AdminPinService) VerifyPin(ctx context.Context, sess *Session, pin string) (string, error) {
	if sess == nil {
		return "", &util.NotAuthenticatedError{Reason: "no session"}
	}
	if !sess.Role.IsAdmin() {
		return "", util.ErrPermissionDenied
	}

	profile, err := s.UserRepo.FindProfileByUserID(ctx, sess.UserID)
	if err != nil {
		return "", err
	}
	if profile.AdminPin == "" {
		return "", util.ErrPinNotSet
	}
	if err := bcrypt.CompareHashAndPassword([]byte(profile.AdminPin), []byte(pin)); err != nil {
		return "", util.ErrIncorrectPin
	}

	ttl := time.Duration(s.Cfg.Admin.PinTokenMinutes) * time.Minute
	return util.GeneratePinJWT(&util.Claims{
		UserID: sess.UserID,
		Role:   profile.Role,
		Email:  sess.Email,
	}, s.Cfg.JWT.Secret, ttl)
}
