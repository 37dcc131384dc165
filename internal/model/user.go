package model

import (
	"time"
)

type UserRole string

const (
	Admin          UserRole = "admin"
	SuperAdmin     UserRole = "super_admin"
	Teacher        UserRole = "teacher"
	PremiumTeacher UserRole = "premium_teacher"
	FreeTeacher    UserRole = "free_teacher"
	Student        UserRole = "student"
	PremiumStudent UserRole = "premium_student"
	FreeStudent    UserRole = "free_student"
)

var AllRoles = []UserRole{
	Admin, SuperAdmin, Teacher, PremiumTeacher, FreeTeacher, Student, PremiumStudent, FreeStudent,
}

func (r UserRole) Valid() bool {
	for _, role := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

func (r UserRole) IsAdmin() bool {
	return r == Admin || r == SuperAdmin
}

func (r UserRole) IsTeacher() bool {
	return r == Teacher || r == PremiumTeacher || r == FreeTeacher
}

const (
	TierFree    = "free"
	TierPremium = "premium"

	SubscriptionActive   = "active"
	SubscriptionCanceled = "canceled"
)

// User 登录身份，只保存认证所需字段
// swagger:model User
type User struct {
	UUIDBase
	Email     string     `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password  string     `gorm:"size:100;not null" json:"-"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// Profile 应用层身份，与 User 一对一
// swagger:model Profile
type Profile struct {
	UUIDBase
	UserID             string     `gorm:"type:varchar(36);uniqueIndex;not null" json:"userId"`
	FullName           string     `gorm:"size:100" json:"fullName"`
	Email              string     `gorm:"size:100" json:"email"`
	Role               UserRole   `gorm:"size:32;default:'student'" json:"role"`
	SubscriptionTier   string     `gorm:"size:32;default:'free'" json:"subscriptionTier"`
	SubscriptionStatus string     `gorm:"size:32" json:"subscriptionStatus,omitempty"`
	SubscriptionEnd    *time.Time `json:"subscriptionEnd,omitempty"`
	AdminPin           string     `gorm:"size:100" json:"-"`
	PinSetAt           *time.Time `json:"pinSetAt,omitempty"`
}

func (Profile) TableName() string {
	return "profiles"
}

func (p *Profile) IsPremium() bool {
	if p.Role == PremiumStudent || p.Role == PremiumTeacher || p.Role.IsAdmin() {
		return true
	}
	if p.SubscriptionTier != TierPremium {
		return false
	}
	return p.SubscriptionEnd == nil || p.SubscriptionEnd.After(time.Now())
}
