package service

import (
	"context"
	"coursehub_backend/internal/model"
	"coursehub_backend/internal/repository"
	"coursehub_backend/internal/util"
	"coursehub_backend/pkg/logger"
	"time"

	"go.uber.org/zap"
)

type UserService struct {
	UserRepo *repository.UserRepository
	Email    EmailSender
}

func NewUserService(userRepo *repository.UserRepository, email EmailSender) *UserService {
	return &UserService{
		UserRepo: userRepo,
		Email:    email,
	}
}

type UserListResult struct {
	Items    []model.Profile `json:"items"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"pageSize"`
}

func (s *UserService) ListUsers(ctx context.Context, page, pageSize int, role, search string) (*UserListResult, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	profiles, total, err := s.UserRepo.ListProfiles(ctx, page, pageSize, role, search)
	if err != nil {
		return nil, err
	}
	return &UserListResult{Items: profiles, Total: total, Page: page, PageSize: pageSize}, nil
}

// ChangeRole 修改角色并发送通知邮件，邮件失败不影响结果
func (s *UserService) ChangeRole(ctx context.Context, operator *Session, profileID string, role model.UserRole) (*model.Profile, error) {
	if operator == nil {
		return nil, &util.NotAuthenticatedError{Reason: "no session"}
	}
	if !operator.Role.IsAdmin() {
		return nil, util.ErrPermissionDenied
	}
	if !role.Valid() {
		return nil, util.ErrInvalidRole
	}

	profile, err := s.UserRepo.FindProfileByID(ctx, profileID)
	if err != nil {
		return nil, err
	}
	// 只有超级管理员可以授予或撤销超级管理员
	if (role == model.SuperAdmin || profile.Role == model.SuperAdmin) && operator.Role != model.SuperAdmin {
		return nil, util.ErrPermissionDenied
	}

	oldRole := profile.Role
	if oldRole == role {
		return profile, nil
	}
	if err := s.UserRepo.UpdateRole(ctx, profileID, role); err != nil {
		return nil, err
	}
	profile.Role = role

	logger.Log.Info("profile role changed",
		zap.String("profileId", profileID),
		zap.String("operator", operator.UserID),
		zap.String("from", string(oldRole)),
		zap.String("to", string(role)),
	)

	if profile.Email != "" {
		sendAsync(s.Email, roleChangeEmail(profile.FullName, profile.Email, string(oldRole), string(role)))
	}
	return profile, nil
}

// UpdateSubscription 管理员调整订阅档位；free 会清空到期时间
func (s *UserService) UpdateSubscription(ctx context.Context, operator *Session, profileID, tier string, end *time.Time) (*model.Profile, error) {
	if operator == nil {
		return nil, &util.NotAuthenticatedError{Reason: "no session"}
	}
	if !operator.Role.IsAdmin() {
		return nil, util.ErrPermissionDenied
	}

	status := model.SubscriptionActive
	switch tier {
	case model.TierPremium:
		if end != nil && !end.After(time.Now()) {
			return nil, util.ErrInvalidTier
		}
	case model.TierFree:
		status = model.SubscriptionCanceled
		end = nil
	default:
		return nil, util.ErrInvalidTier
	}

	profile, err := s.UserRepo.FindProfileByID(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if err := s.UserRepo.UpdateSubscription(ctx, profileID, tier, status, end); err != nil {
		return nil, err
	}
	profile.SubscriptionTier = tier
	profile.SubscriptionStatus = status
	profile.SubscriptionEnd = end

	logger.Log.Info("profile subscription changed",
		zap.String("profileId", profileID),
		zap.String("operator", operator.UserID),
		zap.String("tier", tier),
	)
	return profile, nil
}
