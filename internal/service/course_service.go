package service

import (
	"context"
	"coursehub_backend/internal/config"
	"coursehub_backend/internal/model"
	"coursehub_backend/internal/repository"
	"coursehub_backend/internal/util"
	"coursehub_backend/pkg/logger"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultThumbnailKey = "thumbnails/default-video-thumbnail.jpg"
	probeTimeout        = 30 * time.Second
)

type CourseService struct {
	CourseRepo     *repository.CourseRepository
	UserRepo       *repository.UserRepository
	StorageService *StorageService
	Cfg            *config.Config
}

func NewCourseService(courseRepo *repository.CourseRepository, userRepo *repository.UserRepository, storage *StorageService, cfg *config.Config) *CourseService {
	return &CourseService{
		CourseRepo:     courseRepo,
		UserRepo:       userRepo,
		StorageService: storage,
		Cfg:            cfg,
	}
}

func (s *CourseService) ListCourses(ctx context.Context, filter repository.CourseFilter) ([]model.Course, error) {
	return s.CourseRepo.List(ctx, filter)
}

func (s *CourseService) GetCourse(ctx context.Context, courseID string) (*model.Course, error) {
	return s.CourseRepo.FindByID(ctx, courseID)
}

// GetCourseDetail 付费课程需要付费订阅或管理/教师角色
func (s *CourseService) GetCourseDetail(ctx context.Context, sess *Session, courseID string) (*model.Course, error) {
	course, err := s.CourseRepo.FindDetail(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !course.IsPremium {
		return course, nil
	}

	if sess == nil {
		return nil, util.ErrPremiumRequired
	}
	if sess.Role.IsAdmin() || sess.Role.IsTeacher() {
		return course, nil
	}
	profile, err := s.UserRepo.FindProfileByUserID(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if !profile.IsPremium() {
		return nil, util.ErrPremiumRequired
	}
	return course, nil
}

type CourseInput struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Category    string `json:"category" binding:"required"`
	Difficulty  string `json:"difficulty" binding:"required"`
	Duration    string `json:"duration"`
	IsPremium   bool   `json:"isPremium"`
}

func (s *CourseService) CreateCourse(ctx context.Context, sess *Session, in CourseInput) (*model.Course, error) {
	course := &model.Course{
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Difficulty:  in.Difficulty,
		Duration:    in.Duration,
		IsPremium:   in.IsPremium,
	}
	if sess != nil {
		creator := sess.UserID
		course.CreatedBy = &creator
	}
	if err := s.CourseRepo.Create(ctx, course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CourseService) UpdateCourse(ctx context.Context, courseID string, in CourseInput) (*model.Course, error) {
	course, err := s.CourseRepo.FindByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	course.Title = in.Title
	course.Description = in.Description
	course.Category = in.Category
	course.Difficulty = in.Difficulty
	course.Duration = in.Duration
	course.IsPremium = in.IsPremium
	if err := s.CourseRepo.Update(ctx, course); err != nil {
		return nil, err
	}
	return course, nil
}

// DeleteCourse 同一事务内删除模块、步骤及其进度和作业
func (s *CourseService) DeleteCourse(ctx context.Context, courseID string) error {
	if _, err := s.CourseRepo.FindByID(ctx, courseID); err != nil {
		return err
	}
	return s.CourseRepo.Delete(ctx, courseID)
}

type ModuleInput struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	OrderIndex  *int   `json:"orderIndex"`
}

func (s *CourseService) CreateModule(ctx context.Context, courseID string, in ModuleInput) (*model.Module, error) {
	if _, err := s.CourseRepo.FindByID(ctx, courseID); err != nil {
		return nil, err
	}

	order, err := s.resolveOrder(in.OrderIndex, func() (int, error) {
		return s.CourseRepo.NextModuleOrder(ctx, courseID)
	})
	if err != nil {
		return nil, err
	}

	module := &model.Module{
		CourseID:    courseID,
		Title:       in.Title,
		Description: in.Description,
		OrderIndex:  order,
	}
	if err := s.CourseRepo.CreateModule(ctx, module); err != nil {
		return nil, err
	}
	return module, nil
}

func (s *CourseService) UpdateModule(ctx context.Context, moduleID string, in ModuleInput) (*model.Module, error) {
	module, err := s.CourseRepo.FindModule(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	module.Title = in.Title
	module.Description = in.Description
	if in.OrderIndex != nil {
		module.OrderIndex = *in.OrderIndex
	}
	if err := s.CourseRepo.UpdateModule(ctx, module); err != nil {
		return nil, err
	}
	return module, nil
}

func (s *CourseService) DeleteModule(ctx context.Context, moduleID string) error {
	if _, err := s.CourseRepo.FindModule(ctx, moduleID); err != nil {
		return err
	}
	return s.CourseRepo.DeleteModule(ctx, moduleID)
}

type StepInput struct {
	Title              string         `json:"title" binding:"required"`
	StepType           model.StepType `json:"stepType"`
	Content            string         `json:"content"`
	VideoURL           string         `json:"videoUrl"`
	OrderIndex         *int           `json:"orderIndex"`
	RequiresSubmission bool           `json:"requiresSubmission"`
}

func (s *CourseService) CreateStep(ctx context.Context, moduleID string, in StepInput) (*model.Step, error) {
	if in.StepType == "" {
		in.StepType = model.StepLesson
	}
	if !in.StepType.Valid() {
		return nil, util.ErrInvalidStep
	}
	if _, err := s.CourseRepo.FindModule(ctx, moduleID); err != nil {
		return nil, err
	}

	order, err := s.resolveOrder(in.OrderIndex, func() (int, error) {
		return s.CourseRepo.NextStepOrder(ctx, moduleID)
	})
	if err != nil {
		return nil, err
	}

	step := &model.Step{
		ModuleID:           moduleID,
		Title:              in.Title,
		StepType:           in.StepType,
		Content:            in.Content,
		VideoURL:           in.VideoURL,
		OrderIndex:         order,
		RequiresSubmission: in.RequiresSubmission,
	}
	if err := s.CourseRepo.CreateStep(ctx, step); err != nil {
		return nil, err
	}
	return step, nil
}

func (s *CourseService) UpdateStep(ctx context.Context, stepID string, in StepInput) (*model.Step, error) {
	if in.StepType != "" && !in.StepType.Valid() {
		return nil, util.ErrInvalidStep
	}
	step, err := s.CourseRepo.FindStep(ctx, stepID)
	if err != nil {
		return nil, err
	}
	step.Title = in.Title
	step.Content = in.Content
	step.RequiresSubmission = in.RequiresSubmission
	if in.StepType != "" {
		step.StepType = in.StepType
	}
	if in.VideoURL != "" {
		step.VideoURL = in.VideoURL
	}
	if in.OrderIndex != nil {
		step.OrderIndex = *in.OrderIndex
	}
	if err := s.CourseRepo.UpdateStep(ctx, step); err != nil {
		return nil, err
	}
	return step, nil
}

func (s *CourseService) DeleteStep(ctx context.Context, stepID string) error {
	if _, err := s.CourseRepo.FindStep(ctx, stepID); err != nil {
		return err
	}
	return s.CourseRepo.DeleteStep(ctx, stepID)
}

func (s *CourseService) resolveOrder(explicit *int, next func() (int, error)) (int, error) {
	if explicit != nil {
		return *explicit, nil
	}
	return next()
}

// UploadStepVideo 上传步骤视频，读取时长并生成封面
func (s *CourseService) UploadStepVideo(ctx context.Context, stepID string, file *multipart.FileHeader) (*model.Step, error) {
	step, err := s.CourseRepo.FindStep(ctx, stepID)
	if err != nil {
		return nil, err
	}

	if file.Size > util.MaxVideoFileSize {
		return nil, fmt.Errorf("%w: video exceeds %d bytes", util.ErrInvalidFile, util.MaxVideoFileSize)
	}
	ext, err := util.VideoExtension(file.Filename)
	if err != nil {
		return nil, err
	}

	tempDir := filepath.Join(s.Cfg.Storage.LocalPath, "temp")
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return nil, err
	}
	videoPath := filepath.Join(tempDir, fmt.Sprintf("step_video_%d%s", time.Now().UnixNano(), ext))
	defer os.Remove(videoPath)

	if err := saveVideo(file, videoPath); err != nil {
		return nil, err
	}

	videoKey := ObjectKey("videos", file.Filename)
	videoURL, err := s.StorageService.UploadFile(ctx, videoKey, videoPath, file.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}

	var duration float64
	if info, err := util.ProbeVideo(videoPath, probeTimeout); err != nil {
		logger.Log.Warn("读取视频信息失败", zap.String("stepId", stepID), zap.Error(err))
	} else {
		duration = info.Duration
	}

	step.VideoURL = videoURL
	step.VideoDuration = duration
	step.ThumbnailURL = s.uploadThumbnail(ctx, videoPath, duration)
	if step.StepType == model.StepLesson {
		step.StepType = model.StepVideo
	}

	if err := s.CourseRepo.UpdateStep(ctx, step); err != nil {
		return nil, err
	}
	return step, nil
}

// uploadThumbnail 截取封面失败时使用默认封面
func (s *CourseService) uploadThumbnail(ctx context.Context, videoPath string, duration float64) string {
	offset := 3.0
	if duration > 0 && duration < offset {
		offset = duration / 2
	}

	thumbnailPath := strings.TrimSuffix(videoPath, filepath.Ext(videoPath)) + ".jpg"
	defer os.Remove(thumbnailPath)

	if err := util.GenerateThumbnail(videoPath, thumbnailPath, offset); err != nil {
		logger.Log.Error("生成缩略图失败", zap.Error(err))
		return s.StorageService.GetURL(defaultThumbnailKey)
	}

	url, err := s.StorageService.UploadFile(ctx, ObjectKey("thumbnails", thumbnailPath), thumbnailPath, "image/jpeg")
	if err != nil {
		logger.Log.Error("上传缩略图失败", zap.Error(err))
		return s.StorageService.GetURL(defaultThumbnailKey)
	}
	return url
}

func saveVideo(file *multipart.FileHeader, dstPath string) error {
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	// 深度校验 MIME 类型
	if _, err := util.ValidateMimeType(src, []string{util.MimeVideo}); err != nil {
		return err
	}

	dst, err := os.Create(dstPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}
