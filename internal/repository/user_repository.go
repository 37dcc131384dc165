package repository

import (
	"context"
	"coursehub_backend/internal/model"
	"coursehub_backend/internal/util"
	"errors"
	"time"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

// CreateWithProfile 注册时同一事务内创建 user 和 profile
func (r *UserRepository) CreateWithProfile(ctx context.Context, user *model.User, profile *model.Profile) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		profile.UserID = user.ID
		if profile.Email == "" {
			profile.Email = user.Email
		}
		return tx.Create(profile).Error
	})
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrUserNotFound
	}
	return &user, err
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrUserNotFound
	}
	return &user, err
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	return r.DB.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Update("last_login", at).
		Error
}

func (r *UserRepository) FindProfileByUserID(ctx context.Context, userID string) (*model.Profile, error) {
	var profile model.Profile
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrProfileNotFound
	}
	return &profile, err
}

func (r *UserRepository) FindProfileByID(ctx context.Context, profileID string) (*model.Profile, error) {
	var profile model.Profile
	err := r.DB.WithContext(ctx).Where("id = ?", profileID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrProfileNotFound
	}
	return &profile, err
}

// GetProfileID user → profile 一对一映射
func (r *UserRepository) GetProfileID(ctx context.Context, userID string) (string, error) {
	var ids []string
	err := r.DB.WithContext(ctx).Model(&model.Profile{}).
		Where("user_id = ?", userID).
		Limit(1).
		Pluck("id", &ids).Error
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", util.ErrProfileNotFound
	}
	return ids[0], nil
}

func (r *UserRepository) ListProfiles(ctx context.Context, page, pageSize int, role, search string) ([]model.Profile, int64, error) {
	query := r.DB.WithContext(ctx).Model(&model.Profile{})
	if role != "" {
		query = query.Where("role = ?", role)
	}
	if search != "" {
		like := "%" + search + "%"
		query = query.Where("full_name LIKE ? OR email LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var profiles []model.Profile
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&profiles).Error
	return profiles, total, err
}

func (r *UserRepository) UpdateRole(ctx context.Context, profileID string, role model.UserRole) error {
	res := r.DB.WithContext(ctx).Model(&model.Profile{}).
		Where("id = ?", profileID).
		Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return util.ErrProfileNotFound
	}
	return nil
}

// UpdateSubscription 调用方需先确认 profile 存在
func (r *UserRepository) UpdateSubscription(ctx context.Context, profileID, tier, status string, end *time.Time) error {
	return r.DB.WithContext(ctx).Model(&model.Profile{}).
		Where("id = ?", profileID).
		Updates(map[string]interface{}{
			"subscription_tier":   tier,
			"subscription_status": status,
			"subscription_end":    end,
		}).Error
}

// SetAdminPin 仅在尚未设置时写入
func (r *UserRepository) SetAdminPin(ctx context.Context, userID, hashedPin string, at time.Time) error {
	res := r.DB.WithContext(ctx).Model(&model.Profile{}).
		Where("user_id = ? AND (admin_pin IS NULL OR admin_pin = '')", userID).
		Updates(map[string]interface{}{
			"admin_pin":  hashedPin,
			"pin_set_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return util.ErrPinAlreadySet
	}
	return nil
}
