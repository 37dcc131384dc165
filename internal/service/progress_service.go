package service

import (
	"context"
	"coursehub_backend/internal/config"
	"coursehub_backend/internal/model"
	"coursehub_backend/internal/util"
	"coursehub_backend/pkg/logger"
	"coursehub_backend/pkg/monitoring"
	"coursehub_backend/pkg/tracing"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// Session 当前请求的身份，由调用方显式传入
type Session struct {
	UserID string
	Email  string
	Role   model.UserRole
}

func SessionFromClaims(claims *util.Claims) *Session {
	if claims == nil || claims.UserID == "" {
		return nil
	}
	return &Session{UserID: claims.UserID, Email: claims.Email, Role: claims.Role}
}

type ProfileResolver interface {
	GetProfileID(ctx context.Context, userID string) (string, error)
}

type ProgressStore interface {
	Find(ctx context.Context, profileID, stepID string) (*model.UserProgress, error)
	UpsertCompletion(ctx context.Context, profileID, stepID string) (*model.UserProgress, error)
	ListCompletedForUser(ctx context.Context, profileID, moduleID string) (map[string]struct{}, error)
	ListCompletedForUserInCourse(ctx context.Context, profileID, courseID string) (map[string]struct{}, error)
	ListProgressForUser(ctx context.Context, profileID string) ([]model.ProgressDetail, error)
	ListProgressForUserAndCourse(ctx context.Context, profileID, courseID string) ([]model.ProgressDetail, error)
}

type StepCatalog interface {
	FindStep(ctx context.Context, stepID string) (*model.Step, error)
	FindModule(ctx context.Context, moduleID string) (*model.Module, error)
	CountStepsInModule(ctx context.Context, moduleID string) (int, error)
	CountStepsInCourse(ctx context.Context, courseID string) (int, error)
	ListOutline(ctx context.Context, courseID string) ([]model.Module, error)
}

type ProgressService struct {
	Profiles   ProfileResolver
	Store      ProgressStore
	Catalog    StepCatalog
	Dispatcher CompletionDispatcher

	scope atomic.Value
}

func NewProgressService(profiles ProfileResolver, store ProgressStore, catalog StepCatalog, dispatcher CompletionDispatcher, scope string) *ProgressService {
	s := &ProgressService{
		Profiles:   profiles,
		Store:      store,
		Catalog:    catalog,
		Dispatcher: dispatcher,
	}
	s.SetCompletionScope(scope)
	return s
}

// SetCompletionScope 配置热更新时调用
func (s *ProgressService) SetCompletionScope(scope string) {
	if scope != config.CompletionScopeModule {
		scope = config.CompletionScopeCourse
	}
	s.scope.Store(scope)
}

func (s *ProgressService) CompletionScope() string {
	return s.scope.Load().(string)
}

func (s *ProgressService) resolveProfile(ctx context.Context, sess *Session) (string, error) {
	if sess == nil || sess.UserID == "" {
		return "", &util.NotAuthenticatedError{Reason: "no session"}
	}
	profileID, err := s.Profiles.GetProfileID(ctx, sess.UserID)
	if err != nil {
		return "", &util.NotAuthenticatedError{Reason: "profile lookup", Err: err}
	}
	return profileID, nil
}

// FindStep 步骤不存在时返回 util.ErrStepNotFound
func (s *ProgressService) FindStep(ctx context.Context, stepID string) (*model.Step, error) {
	return s.Catalog.FindStep(ctx, stepID)
}

// MarkStepComplete 标记步骤完成。courseID 为空表示调用方未提供课程。
// 只有身份解析或进度写入失败时返回 false；完成率重算的失败只记录日志。
func (s *ProgressService) MarkStepComplete(ctx context.Context, sess *Session, stepID, courseID string) bool {
	ctx, span := tracing.Tracer.Start(ctx, "ProgressService.MarkStepComplete")
	defer span.End()
	span.SetAttributes(attribute.String("step.id", stepID), attribute.String("course.id", courseID))

	profileID, err := s.resolveProfile(ctx, sess)
	if err != nil {
		logger.Log.Warn("mark step complete: not authenticated", zap.String("stepId", stepID), zap.Error(err))
		span.SetStatus(codes.Error, "not authenticated")
		return false
	}

	// 读不到旧状态时按首次完成处理
	alreadyCompleted := false
	if previous, err := s.Store.Find(ctx, profileID, stepID); err != nil {
		logger.Log.Warn("mark step complete: read previous state failed",
			zap.String("profileId", profileID),
			zap.String("stepId", stepID),
			zap.Error(err),
		)
	} else if previous != nil && previous.Completed {
		alreadyCompleted = true
	}

	if _, err := s.Store.UpsertCompletion(ctx, profileID, stepID); err != nil {
		logger.Log.Error("mark step complete: store write failed",
			zap.String("profileId", profileID),
			zap.String("stepId", stepID),
			zap.Error(err),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, "store write failed")
		return false
	}
	if alreadyCompleted {
		return true
	}
	monitoring.StepCompletions.Inc()

	if courseID != "" {
		if err := s.checkCourseCompletion(ctx, profileID, stepID, courseID); err != nil {
			cerr := &util.CompletionUpdateError{CourseID: courseID, Err: err}
			logger.Log.Error("course completion check failed",
				zap.String("profileId", profileID),
				zap.String("stepId", stepID),
				zap.Error(cerr),
			)
			span.RecordError(cerr)
		}
	}

	return true
}

func (s *ProgressService) checkCourseCompletion(ctx context.Context, profileID, stepID, courseID string) error {
	step, err := s.Catalog.FindStep(ctx, stepID)
	if err != nil {
		return err
	}
	module, err := s.Catalog.FindModule(ctx, step.ModuleID)
	if err != nil {
		return err
	}
	if module.CourseID != courseID {
		return util.ErrStepNotInCourse
	}

	var (
		total     int
		completed map[string]struct{}
	)
	switch s.CompletionScope() {
	case config.CompletionScopeModule:
		if total, err = s.Catalog.CountStepsInModule(ctx, module.ID); err != nil {
			return err
		}
		completed, err = s.Store.ListCompletedForUser(ctx, profileID, module.ID)
	default:
		if total, err = s.Catalog.CountStepsInCourse(ctx, courseID); err != nil {
			return err
		}
		completed, err = s.Store.ListCompletedForUserInCourse(ctx, profileID, courseID)
	}
	if err != nil {
		return err
	}

	if !IsModuleFullyComplete(total, completed) {
		return nil
	}

	event := CourseCompletionEvent{
		CourseID:   courseID,
		ProfileID:  profileID,
		StepID:     stepID,
		OccurredAt: time.Now(),
	}
	if err := s.Dispatcher.Dispatch(ctx, event); err != nil {
		monitoring.CompletionEvents.WithLabelValues("dispatch_failed").Inc()
		return err
	}
	monitoring.CompletionEvents.WithLabelValues("dispatched").Inc()
	logger.Log.Info("course completion event dispatched",
		zap.String("courseId", courseID),
		zap.String("profileId", profileID),
	)
	return nil
}

// GetUserProgress 返回课程内的进度记录；任何失败都返回 nil
func (s *ProgressService) GetUserProgress(ctx context.Context, sess *Session, courseID string) []model.ProgressDetail {
	ctx, span := tracing.Tracer.Start(ctx, "ProgressService.GetUserProgress")
	defer span.End()

	profileID, err := s.resolveProfile(ctx, sess)
	if err != nil {
		return nil
	}

	records, err := s.Store.ListProgressForUser(ctx, profileID)
	if err != nil {
		logger.Log.Error("get user progress failed",
			zap.String("profileId", profileID),
			zap.String("courseId", courseID),
			zap.Error(err),
		)
		span.RecordError(err)
		return nil
	}

	filtered := make([]model.ProgressDetail, 0, len(records))
	for _, record := range records {
		if record.CourseID == courseID {
			filtered = append(filtered, record)
		}
	}
	return filtered
}

type ModuleProgressSummary struct {
	ModuleID       string `json:"moduleId"`
	Title          string `json:"title"`
	TotalSteps     int    `json:"totalSteps"`
	CompletedSteps int    `json:"completedSteps"`
	Percentage     int    `json:"percentage"`
	Completed      bool   `json:"completed"`
}

type CourseProgressSummary struct {
	CourseID       string                  `json:"courseId"`
	TotalSteps     int                     `json:"totalSteps"`
	CompletedSteps int                     `json:"completedSteps"`
	Percentage     int                     `json:"percentage"`
	Completed      bool                    `json:"completed"`
	Modules        []ModuleProgressSummary `json:"modules"`
}

// GetCourseProgressSummary 课程及各模块的完成百分比
func (s *ProgressService) GetCourseProgressSummary(ctx context.Context, sess *Session, courseID string) (*CourseProgressSummary, error) {
	profileID, err := s.resolveProfile(ctx, sess)
	if err != nil {
		return nil, err
	}

	modules, err := s.Catalog.ListOutline(ctx, courseID)
	if err != nil {
		return nil, util.NewStoreError("list course outline", err)
	}
	completed, err := s.Store.ListCompletedForUserInCourse(ctx, profileID, courseID)
	if err != nil {
		return nil, err
	}

	summary := &CourseProgressSummary{CourseID: courseID, Modules: make([]ModuleProgressSummary, 0, len(modules))}
	for _, module := range modules {
		done := make(map[string]struct{})
		for _, step := range module.Steps {
			if _, ok := completed[step.ID]; ok {
				done[step.ID] = struct{}{}
			}
		}
		summary.Modules = append(summary.Modules, ModuleProgressSummary{
			ModuleID:       module.ID,
			Title:          module.Title,
			TotalSteps:     len(module.Steps),
			CompletedSteps: len(done),
			Percentage:     CompletionPercentage(len(module.Steps), len(done)),
			Completed:      IsModuleFullyComplete(len(module.Steps), done),
		})
		summary.TotalSteps += len(module.Steps)
		summary.CompletedSteps += len(done)
	}
	summary.Percentage = CompletionPercentage(summary.TotalSteps, summary.CompletedSteps)
	summary.Completed = summary.TotalSteps > 0 && summary.CompletedSteps == summary.TotalSteps
	return summary, nil
}
