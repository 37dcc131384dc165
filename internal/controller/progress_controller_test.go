package controller

import (
	"context"
	"coursehub_backend/internal/config"
	"coursehub_backend/internal/middleware"
	"coursehub_backend/internal/model"
	"coursehub_backend/internal/repository"
	"coursehub_backend/internal/service"
	"coursehub_backend/internal/util"
	"coursehub_backend/pkg/database"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type progressEnv struct {
	router   *gin.Engine
	cfg      *config.Config
	queue    *service.MemoryCompletionQueue
	courses  *repository.CourseRepository
	userID   string
	courseID string
	stepIDs  []string
}

func newProgressEnv(t *testing.T) *progressEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(database.Models()...))

	ctx := context.Background()
	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)

	user := &model.User{Email: "learner@example.com", Password: "x"}
	require.NoError(t, userRepo.CreateWithProfile(ctx, user, &model.Profile{FullName: "Learner", Role: model.Student}))

	course := &model.Course{Title: "Go", Category: "go", Difficulty: "beginner"}
	require.NoError(t, courseRepo.Create(ctx, course))
	module := &model.Module{CourseID: course.ID, Title: "Intro"}
	require.NoError(t, courseRepo.CreateModule(ctx, module))

	env := &progressEnv{
		cfg:      &config.Config{JWT: config.JWTConfig{Secret: "test-secret-test-secret-test-secret"}},
		queue:    service.NewMemoryCompletionQueue(4),
		courses:  courseRepo,
		userID:   user.ID,
		courseID: course.ID,
	}
	t.Cleanup(env.queue.Close)
	for i := 0; i < 2; i++ {
		step := &model.Step{ModuleID: module.ID, Title: "step", OrderIndex: i}
		require.NoError(t, courseRepo.CreateStep(ctx, step))
		env.stepIDs = append(env.stepIDs, step.ID)
	}

	progress := service.NewProgressService(userRepo, repository.NewProgressRepository(db), courseRepo, env.queue, config.CompletionScopeCourse)
	ctrl := NewProgressController(progress)

	r := gin.New()
	api := r.Group("/api/progress", middleware.AuthMiddleware(env.cfg))
	api.POST("/steps/:stepId/complete", ctrl.MarkStepComplete)
	api.GET("/courses/:courseId", ctrl.GetUserProgress)
	api.GET("/courses/:courseId/summary", ctrl.GetCourseProgressSummary)
	env.router = r
	return env
}

func (e *progressEnv) do(t *testing.T, method, path, userID string) (int, util.Response) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if userID != "" {
		token, err := util.GenerateJWT(userID, "learner@example.com", model.Student, e.cfg.JWT.Secret, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var resp util.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w.Code, resp
}

func TestProgressController_MarkAndRead(t *testing.T) {
	env := newProgressEnv(t)

	code, resp := env.do(t, http.MethodGet, "/api/progress/courses/"+env.courseID, env.userID)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, []interface{}{}, resp.Data)

	for _, stepID := range env.stepIDs {
		code, resp = env.do(t, http.MethodPost, "/api/progress/steps/"+stepID+"/complete?courseId="+env.courseID, env.userID)
		require.Equal(t, http.StatusOK, code)
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, stepID, data["stepId"])
		assert.Equal(t, true, data["completed"])
	}
	assert.Equal(t, 1, env.queue.Len())

	code, resp = env.do(t, http.MethodGet, "/api/progress/courses/"+env.courseID, env.userID)
	require.Equal(t, http.StatusOK, code)
	records := resp.Data.([]interface{})
	require.Len(t, records, 2)
	assert.Equal(t, env.stepIDs[0], records[0].(map[string]interface{})["stepId"])

	code, resp = env.do(t, http.MethodGet, "/api/progress/courses/"+env.courseID+"/summary", env.userID)
	require.Equal(t, http.StatusOK, code)
	summary := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(100), summary["percentage"])
	assert.Equal(t, true, summary["completed"])
}

func TestProgressController_Failures(t *testing.T) {
	env := newProgressEnv(t)

	code, _ := env.do(t, http.MethodPost, "/api/progress/steps/"+env.stepIDs[0]+"/complete", "")
	assert.Equal(t, http.StatusUnauthorized, code)

	// 令牌有效但没有对应 profile
	code, resp := env.do(t, http.MethodPost, "/api/progress/steps/"+env.stepIDs[0]+"/complete", "ghost")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "failed to mark step complete", resp.Message)

	code, resp = env.do(t, http.MethodPost, "/api/progress/steps/missing/complete", env.userID)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, util.ErrStepNotFound.Error(), resp.Message)

	code, resp = env.do(t, http.MethodGet, "/api/progress/courses/"+env.courseID, "ghost")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, []interface{}{}, resp.Data)

	code, _ = env.do(t, http.MethodGet, "/api/progress/courses/"+env.courseID+"/summary", "ghost")
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestProgressController_StepFromAnotherCourse(t *testing.T) {
	env := newProgressEnv(t)
	for _, stepID := range env.stepIDs {
		code, _ := env.do(t, http.MethodPost, "/api/progress/steps/"+stepID+"/complete?courseId="+env.courseID, env.userID)
		require.Equal(t, http.StatusOK, code)
	}
	require.Equal(t, 1, env.queue.Len())

	// 重复标记已完成的步骤不再入队
	code, _ := env.do(t, http.MethodPost, "/api/progress/steps/"+env.stepIDs[0]+"/complete?courseId="+env.courseID, env.userID)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, env.queue.Len())

	// 另一门课的步骤带着本课 courseId
	other := &model.Course{Title: "Rust", Category: "rust", Difficulty: "beginner"}
	require.NoError(t, env.courses.Create(context.Background(), other))
	module := &model.Module{CourseID: other.ID, Title: "Intro"}
	require.NoError(t, env.courses.CreateModule(context.Background(), module))
	step := &model.Step{ModuleID: module.ID, Title: "step"}
	require.NoError(t, env.courses.CreateStep(context.Background(), step))

	code, _ = env.do(t, http.MethodPost, "/api/progress/steps/"+step.ID+"/complete?courseId="+env.courseID, env.userID)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, env.queue.Len())
}
