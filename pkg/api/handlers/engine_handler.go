package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/internal/dag"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/internal/storage"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/api/dto"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/api/middleware"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/engine"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/models"
)

// EngineHandler exposes the engine's programmatic surface as thin gin JSON
// endpoints delegating entirely to pkg/engine. It carries no business
// logic of its own: every decision still lives in the Engine, the DAG
// Builder, or the package that owns it.
type EngineHandler struct {
	engine *engine.Engine
}

// NewEngineHandler creates a handler bound to the given Engine.
func NewEngineHandler(e *engine.Engine) *EngineHandler {
	return &EngineHandler{engine: e}
}

// taskBuilderFor maps a wire operator_kind string to the matching
// dag.TaskBuilder constructor. Unknown kinds return nil, which
// CreateTemplate rejects with 400 UNKNOWN_OPERATOR_KIND.
func taskBuilderFor(kind string, config map[string]interface{}) *dag.TaskBuilder {
	switch models.OperatorKind(kind) {
	case models.OperatorKindAction:
		return dag.ActionTask(config)
	case models.OperatorKindConditional:
		return dag.ConditionalTask(config)
	case models.OperatorKindApproval:
		return dag.ApprovalTask(config)
	case models.OperatorKindUserInput:
		return dag.UserInputTask(config)
	case models.OperatorKindAdminInput:
		return dag.AdminInputTask(config)
	case models.OperatorKindIntegration:
		return dag.IntegrationTask(config)
	case models.OperatorKindTerminal:
		return dag.TerminalTask(config)
	case models.OperatorKindWorkflowStart:
		return dag.WorkflowStartTask(config)
	case models.OperatorKindEntityValidation:
		return dag.EntityValidationTask(config)
	default:
		return nil
	}
}

// CreateTemplate handles POST /api/v1/templates
func (h *EngineHandler) CreateTemplate(c *gin.Context) {
	var req dto.CreateTemplateRequest
	if !middleware.BindAndValidate(c, &req) {
		return
	}

	builder := dag.NewTemplateBuilder(req.Name).
		ID(req.DAGID).
		Version(req.Version).
		Description(req.Description).
		Category(req.Category).
		Tags(req.Tags...)
	if req.WorkflowType != "" {
		builder.WorkflowType(models.WorkflowType(req.WorkflowType))
	}

	for _, t := range req.Tasks {
		tb := taskBuilderFor(t.OperatorKind, t.Config)
		if tb == nil {
			middleware.AbortWithError(c, http.StatusBadRequest, "UNKNOWN_OPERATOR_KIND", "unknown operator_kind: "+t.OperatorKind)
			return
		}
		tb.Name(t.Name).DependsOn(t.Dependencies...)
		if t.RetryPolicy != nil {
			tb.Retry(t.RetryPolicy.MaxAttempts, t.RetryPolicy.BaseDelay)
		}
		builder.Task(t.TaskID, tb)
	}

	tmpl, err := builder.Build()
	if err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, "INVALID_TEMPLATE", err.Error())
		return
	}

	if err := h.engine.RegisterTemplate(c.Request.Context(), tmpl); err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, "REGISTER_FAILED", err.Error())
		return
	}

	c.JSON(http.StatusCreated, dto.ToTemplateResponse(tmpl))
}

// CreateInstance handles POST /api/v1/instances
func (h *EngineHandler) CreateInstance(c *gin.Context) {
	var req dto.CreateInstanceRequest
	if !middleware.BindAndValidate(c, &req) {
		return
	}

	instance, err := h.engine.CreateInstance(c.Request.Context(), req.DAGID, req.Version, req.UserID, req.InitialData)
	if err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, "CREATE_INSTANCE_FAILED", err.Error())
		return
	}

	if req.AutoStart {
		if err := h.engine.Start(c.Request.Context(), instance.InstanceID); err != nil {
			middleware.AbortWithError(c, http.StatusInternalServerError, "START_FAILED", err.Error())
			return
		}
	}

	c.JSON(http.StatusCreated, dto.ToInstanceResponse(instance))
}

// StartInstance handles POST /api/v1/instances/:id/start
func (h *EngineHandler) StartInstance(c *gin.Context) {
	id := c.Param("id")
	if err := h.engine.Start(c.Request.Context(), id); err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, "START_FAILED", err.Error())
		return
	}
	c.JSON(http.StatusOK, dto.SuccessResponse{Success: true})
}

// GetInstance handles GET /api/v1/instances/:id
func (h *EngineHandler) GetInstance(c *gin.Context) {
	id := c.Param("id")
	instance, err := h.engine.GetInstance(c.Request.Context(), id)
	if err != nil {
		middleware.AbortWithError(c, http.StatusNotFound, "INSTANCE_NOT_FOUND", "instance not found")
		return
	}
	c.JSON(http.StatusOK, dto.ToInstanceResponse(instance))
}

// ListInstances handles GET /api/v1/instances
func (h *EngineHandler) ListInstances(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	filters := storage.InstanceFilters{
		DAGID:  c.Query("dag_id"),
		UserID: c.Query("user_id"),
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	}
	if statusStr := c.Query("status"); statusStr != "" {
		status := models.InstanceStatus(statusStr)
		filters.Status = &status
	}

	instances, err := h.engine.ListInstances(c.Request.Context(), filters)
	if err != nil {
		middleware.AbortWithError(c, http.StatusInternalServerError, "LIST_FAILED", err.Error())
		return
	}

	responses := make([]dto.InstanceResponse, len(instances))
	for i, instance := range instances {
		responses[i] = dto.ToInstanceResponse(instance)
	}

	c.JSON(http.StatusOK, dto.InstanceListResponse{
		Instances:  responses,
		Pagination: dto.NewPaginationMeta(page, pageSize, int64(len(responses))),
	})
}

// SubmitInput handles POST /api/v1/instances/:id/tasks/:task_id/input
func (h *EngineHandler) SubmitInput(c *gin.Context) {
	id := c.Param("id")
	taskID := c.Param("task_id")

	var req dto.SubmitInputRequest
	if !middleware.BindAndValidate(c, &req) {
		return
	}

	if err := h.engine.SubmitInput(c.Request.Context(), id, taskID, req.Payload); err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, "SUBMIT_INPUT_FAILED", err.Error())
		return
	}
	c.JSON(http.StatusOK, dto.SuccessResponse{Success: true})
}

// CancelInstance handles POST /api/v1/instances/:id/cancel
func (h *EngineHandler) CancelInstance(c *gin.Context) {
	id := c.Param("id")
	if err := h.engine.Cancel(c.Request.Context(), id); err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, "CANCEL_FAILED", err.Error())
		return
	}
	c.JSON(http.StatusOK, dto.SuccessResponse{Success: true})
}

// RegisterHook handles POST /api/v1/hooks
func (h *EngineHandler) RegisterHook(c *gin.Context) {
	var req dto.HookRequest
	if !middleware.BindAndValidate(c, &req) {
		return
	}

	hook := req.ToHook()
	if err := h.engine.RegisterHook(c.Request.Context(), hook); err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, "REGISTER_HOOK_FAILED", err.Error())
		return
	}
	c.JSON(http.StatusCreated, dto.ToHookResponse(hook))
}

// UnregisterHook handles DELETE /api/v1/hooks/:id
func (h *EngineHandler) UnregisterHook(c *gin.Context) {
	id := c.Param("id")
	if err := h.engine.UnregisterHook(c.Request.Context(), id); err != nil {
		middleware.AbortWithError(c, http.StatusInternalServerError, "UNREGISTER_HOOK_FAILED", err.Error())
		return
	}
	c.JSON(http.StatusOK, dto.SuccessResponse{Success: true})
}

// ListHooks handles GET /api/v1/hooks
func (h *EngineHandler) ListHooks(c *gin.Context) {
	filters := storage.HookFilters{
		ListenerWorkflowID: c.Query("listener_workflow_id"),
		EnabledOnly:        c.Query("enabled_only") == "true",
	}

	hooks, err := h.engine.ListHooks(c.Request.Context(), filters)
	if err != nil {
		middleware.AbortWithError(c, http.StatusInternalServerError, "LIST_HOOKS_FAILED", err.Error())
		return
	}

	responses := make([]dto.HookResponse, len(hooks))
	for i, hk := range hooks {
		responses[i] = dto.ToHookResponse(hk)
	}
	c.JSON(http.StatusOK, responses)
}

// PublishEvent handles POST /api/v1/events
func (h *EngineHandler) PublishEvent(c *gin.Context) {
	var req dto.PublishEventRequest
	if !middleware.BindAndValidate(c, &req) {
		return
	}

	event := &models.Event{
		EventID:    uuid.NewString(),
		EventType:  models.EventType(req.EventType),
		WorkflowID: req.WorkflowID,
		InstanceID: req.InstanceID,
		UserID:     req.UserID,
		EventData:  req.EventData,
	}

	if err := h.engine.PublishEvent(c.Request.Context(), event); err != nil {
		middleware.AbortWithError(c, http.StatusInternalServerError, "PUBLISH_FAILED", err.Error())
		return
	}
	c.JSON(http.StatusAccepted, dto.SuccessResponse{Success: true})
}
