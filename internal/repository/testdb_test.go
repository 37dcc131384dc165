package repository

import (
	"context"
	"coursehub_backend/internal/model"
	"coursehub_backend/pkg/database"
	"testing"

	"github.com/stretchr/testify/require"
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
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database.Models()...))
	return db
}

// outline 课程 → 模块 → 步骤 id
type outline struct {
	courseID  string
	moduleIDs []string
	stepIDs   [][]string
}

func seedOutline(t *testing.T, db *gorm.DB, title string, stepsPerModule ...int) outline {
	t.Helper()
	ctx := context.Background()
	repo := NewCourseRepository(db)

	course := &model.Course{Title: title, Category: "go", Difficulty: "beginner"}
	require.NoError(t, repo.Create(ctx, course))

	out := outline{courseID: course.ID}
	for mi, n := range stepsPerModule {
		module := &model.Module{CourseID: course.ID, Title: title, OrderIndex: mi}
		require.NoError(t, repo.CreateModule(ctx, module))
		out.moduleIDs = append(out.moduleIDs, module.ID)

		var ids []string
		for si := 0; si < n; si++ {
			step := &model.Step{ModuleID: module.ID, Title: "step", OrderIndex: si}
			require.NoError(t, repo.CreateStep(ctx, step))
			ids = append(ids, step.ID)
		}
		out.stepIDs = append(out.stepIDs, ids)
	}
	return out
}

func seedProfile(t *testing.T, db *gorm.DB, email string, role model.UserRole) *model.Profile {
	t.Helper()
	user := &model.User{Email: email, Password: "x"}
	profile := &model.Profile{FullName: email, Role: role}
	require.NoError(t, NewUserRepository(db).CreateWithProfile(context.Background(), user, profile))
	return profile
}
