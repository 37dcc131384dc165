package controller

import (
	"coursehub_backend/internal/model"
	"coursehub_backend/internal/service"
	"coursehub_backend/internal/util"
	"net/http"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ProgressService *service.ProgressService
}

func NewProgressController(progressService *service.ProgressService) *ProgressController {
	return &ProgressController{ProgressService: progressService}
}

// MarkStepComplete godoc
// @Summary 标记步骤完成
// @Description 重复调用幂等；提供 courseId 时会检查课程是否全部完成
// @Tags 学习进度
// @Produce  json
// @Security ApiKeyAuth
// @Param   stepId path string true "步骤ID"
// @Param   courseId query string false "课程ID"
// @Success 200 {object} util.Response{data=object} "成功"
// @Failure 401 {object} util.Response "未登录"
// @Failure 404 {object} util.Response "步骤不存在"
// @Failure 500 {object} util.Response "写入失败"
// @Router /api/progress/steps/{stepId}/complete [post]
func (c *ProgressController) MarkStepComplete(ctx *gin.Context) {
	sess := sessionFrom(ctx)
	if sess == nil {
		util.Unauthorized(ctx)
		return
	}

	stepID := ctx.Param("stepId")
	if _, err := c.ProgressService.FindStep(ctx.Request.Context(), stepID); err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	if !c.ProgressService.MarkStepComplete(ctx.Request.Context(), sess, stepID, ctx.Query("courseId")) {
		util.Error(ctx, http.StatusInternalServerError, "failed to mark step complete")
		return
	}

	util.Success(ctx, gin.H{
		"stepId":    stepID,
		"completed": true,
	})
}

// GetUserProgress godoc
// @Summary 课程内的学习进度
// @Tags 学习进度
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId path string true "课程ID"
// @Success 200 {object} util.Response{data=[]model.ProgressDetail} "成功"
// @Failure 401 {object} util.Response "未登录"
// @Router /api/progress/courses/{courseId} [get]
func (c *ProgressController) GetUserProgress(ctx *gin.Context) {
	sess := sessionFrom(ctx)
	if sess == nil {
		util.Unauthorized(ctx)
		return
	}

	records := c.ProgressService.GetUserProgress(ctx.Request.Context(), sess, ctx.Param("courseId"))
	if records == nil {
		records = []model.ProgressDetail{}
	}
	util.Success(ctx, records)
}

// GetCourseProgressSummary godoc
// @Summary 课程完成度汇总
// @Description 课程及各模块的完成百分比
// @Tags 学习进度
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId path string true "课程ID"
// @Success 200 {object} util.Response{data=service.CourseProgressSummary} "成功"
// @Failure 401 {object} util.Response "未登录"
// @Router /api/progress/courses/{courseId}/summary [get]
func (c *ProgressController) GetCourseProgressSummary(ctx *gin.Context) {
	summary, err := c.ProgressService.GetCourseProgressSummary(ctx.Request.Context(), sessionFrom(ctx), ctx.Param("courseId"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, summary)
}
