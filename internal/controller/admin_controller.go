package controller

import (
	"coursehub_backend/internal/model"
	"coursehub_backend/internal/repository"
	"coursehub_backend/internal/service"
	"coursehub_backend/internal/util"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

type AdminController struct {
	PinService        *service.AdminPinService
	UserService       *service.UserService
	CourseService     *service.CourseService
	CompletionService *service.CompletionService
	DashboardRepo     *repository.DashboardRepository
}

func NewAdminController(
	pinService *service.AdminPinService,
	userService *service.UserService,
	courseService *service.CourseService,
	completionService *service.CompletionService,
	dashboardRepo *repository.DashboardRepository,
) *AdminController {
	return &AdminController{
		PinService:        pinService,
		UserService:       userService,
		CourseService:     courseService,
		CompletionService: completionService,
		DashboardRepo:     dashboardRepo,
	}
}

// PinStatus godoc
// @Summary 是否已设置管理员 PIN
// @Tags 管理员
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=object} "成功"
// @Router /api/admin/pin/status [get]
func (c *AdminController) PinStatus(ctx *gin.Context) {
	hasPin, err := c.PinService.HasPin(ctx.Request.Context(), sessionFrom(ctx))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"hasPin": hasPin})
}

// SetPinRequest swagger:model SetPinRequest
type SetPinRequest struct {
	Pin     string `json:"pin" binding:"required"`
	Confirm string `json:"confirm" binding:"required"`
}

// SetPin godoc
// @Summary 设置管理员 PIN
// @Description 仅在未设置时可用，PIN 为纯数字
// @Tags 管理员
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body SetPinRequest true "PIN"
// @Success 200 {object} util.Response "成功"
// @Failure 400 {object} util.Response "PIN 格式错误"
// @Failure 409 {object} util.Response "PIN 已设置"
// @Router /api/admin/pin [post]
func (c *AdminController) SetPin(ctx *gin.Context) {
	var req SetPinRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if err := c.PinService.SetPin(ctx.Request.Context(), sessionFrom(ctx), req.Pin, req.Confirm); err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// VerifyPinRequest swagger:model VerifyPinRequest
type VerifyPinRequest struct {
	Pin string `json:"pin" binding:"required"`
}

// VerifyPin godoc
// @Summary 校验管理员 PIN
// @Description 返回的令牌放在 X-Admin-Pin-Token 请求头中访问管理接口
// @Tags 管理员
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body VerifyPinRequest true "PIN"
// @Success 200 {object} util.Response{data=object} "成功"
// @Failure 401 {object} util.Response "PIN 错误"
// @Router /api/admin/pin/verify [post]
func (c *AdminController) VerifyPin(ctx *gin.Context) {
	var req VerifyPinRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	token, err := c.PinService.VerifyPin(ctx.Request.Context(), sessionFrom(ctx), req.Pin)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"pinToken": token})
}

// ListUsers godoc
// @Summary 用户列表
// @Tags 管理员
// @Produce  json
// @Security ApiKeyAuth
// @Param   page query int false "页码"
// @Param   limit query int false "每页数量"
// @Param   role query string false "角色"
// @Param   search query string false "姓名或邮箱"
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Router /api/admin/users [get]
func (c *AdminController) ListUsers(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	result, err := c.UserService.ListUsers(ctx.Request.Context(), page, limit, ctx.Query("role"), ctx.Query("search"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{
		List:  result.Items,
		Total: result.Total,
		Page:  result.Page,
		Limit: result.PageSize,
	})
}

// ChangeRoleRequest swagger:model ChangeRoleRequest
type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// ChangeRole godoc
// @Summary 修改用户角色
// @Description 修改后会给用户发送通知邮件
// @Tags 管理员
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "Profile ID"
// @Param   body body ChangeRoleRequest true "新角色"
// @Success 200 {object} util.Response{data=model.Profile} "成功"
// @Failure 400 {object} util.Response "角色无效"
// @Router /api/admin/users/{id}/role [put]
func (c *AdminController) ChangeRole(ctx *gin.Context) {
	var req ChangeRoleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	profile, err := c.UserService.ChangeRole(ctx.Request.Context(), sessionFrom(ctx), ctx.Param("id"), model.UserRole(req.Role))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, profile)
}

// UpdateSubscriptionRequest swagger:model UpdateSubscriptionRequest
type UpdateSubscriptionRequest struct {
	Tier string     `json:"tier" binding:"required"`
	End  *time.Time `json:"end"`
}

// UpdateSubscription godoc
// @Summary 修改用户订阅
// @Description tier 为 free 或 premium；premium 不带 end 表示长期有效
// @Tags 管理员
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "Profile ID"
// @Param   body body UpdateSubscriptionRequest true "订阅档位"
// @Success 200 {object} util.Response{data=model.Profile} "成功"
// @Failure 400 {object} util.Response "档位无效"
// @Router /api/admin/users/{id}/subscription [put]
func (c *AdminController) UpdateSubscription(ctx *gin.Context) {
	var req UpdateSubscriptionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	profile, err := c.UserService.UpdateSubscription(ctx.Request.Context(), sessionFrom(ctx), ctx.Param("id"), req.Tier, req.End)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, profile)
}

// RecomputeCompletion godoc
// @Summary 重新计算课程完成率
// @Tags 管理员
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "课程ID"
// @Success 200 {object} util.Response{data=[]model.CourseCompletion} "成功"
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/admin/courses/{id}/recompute [post]
func (c *AdminController) RecomputeCompletion(ctx *gin.Context) {
	courseID := ctx.Param("id")
	if _, err := c.CourseService.GetCourse(ctx.Request.Context(), courseID); err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	if err := c.CompletionService.UpdateCourseCompletionRate(ctx.Request.Context(), courseID); err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	completions, err := c.CompletionService.ListCourseCompletions(ctx.Request.Context(), courseID)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, completions)
}

// Dashboard godoc
// @Summary 管理后台概览
// @Description 课程数、学员数、待审核作业和平均完成率
// @Tags 管理员
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=repository.DashboardStats} "成功"
// @Router /api/admin/dashboard [get]
func (c *AdminController) Dashboard(ctx *gin.Context) {
	stats, err := c.DashboardRepo.Stats(ctx.Request.Context())
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, stats)
}
