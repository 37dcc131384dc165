package service

import (
	"context"
	"coursehub_backend/internal/config"
	"coursehub_backend/internal/model"
	"coursehub_backend/internal/repository"
	"coursehub_backend/pkg/database"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// 内存库只存在于单个连接上
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database.Models()...))
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Mode: "test"},
		JWT: config.JWTConfig{
			Secret:     "test-secret-test-secret-test-secret",
			ExpireTime: time.Hour,
		},
		Storage: config.StorageConfig{Type: "local"},
		Progress: config.ProgressConfig{
			CompletionScope: config.CompletionScopeCourse,
			Queue:           config.QueueMemory,
			QueueBuffer:     16,
		},
		Admin: config.AdminConfig{PinMinLength: 4, PinTokenMinutes: 5},
	}
}

type seededUser struct {
	user    *model.User
	profile *model.Profile
}

func seedUser(t *testing.T, db *gorm.DB, email string, role model.UserRole) seededUser {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	user := &model.User{Email: email, Password: string(hashed)}
	profile := &model.Profile{FullName: email, Email: email, Role: role, SubscriptionTier: model.TierFree}
	require.NoError(t, repository.NewUserRepository(db).CreateWithProfile(context.Background(), user, profile))
	return seededUser{user: user, profile: profile}
}

type seededCourse struct {
	course  *model.Course
	modules []*model.Module
	steps   []*model.Step
}

// seedCourse 每个模块 stepsPerModule 个步骤
func seedCourse(t *testing.T, db *gorm.DB, title string, premium bool, stepsPerModule ...int) seededCourse {
	t.Helper()
	ctx := context.Background()
	repo := repository.NewCourseRepository(db)

	out := seededCourse{course: &model.Course{Title: title, Category: "go", Difficulty: "beginner", IsPremium: premium}}
	require.NoError(t, repo.Create(ctx, out.course))

	for mi, n := range stepsPerModule {
		module := &model.Module{CourseID: out.course.ID, Title: title + " module", OrderIndex: mi}
		require.NoError(t, repo.CreateModule(ctx, module))
		out.modules = append(out.modules, module)

		for si := 0; si < n; si++ {
			step := &model.Step{ModuleID: module.ID, Title: "step", StepType: model.StepLesson, OrderIndex: si}
			require.NoError(t, repo.CreateStep(ctx, step))
			out.steps = append(out.steps, step)
		}
	}
	return out
}
