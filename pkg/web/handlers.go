package web

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/opencatalog/registrar/pkg/auth"
	"github.com/opencatalog/registrar/pkg/models"
	"github.com/opencatalog/registrar/pkg/persistence"
	"github.com/opencatalog/registrar/pkg/workflow"
)

// Identity headers set by the authenticating gateway in front of the API.
const (
	HeaderUserID    = "X-User-Id"
	HeaderUserEmail = "X-User-Email"
	HeaderUserName  = "X-User-Name"
	HeaderUserRoles = "X-User-Roles"
)

type APIHandlers struct {
	engine      *workflow.Engine
	persistence persistence.Persistence
	validator   *validator.Validate
}

func NewAPIHandlers(engine *workflow.Engine, p persistence.Persistence, validator *validator.Validate) *APIHandlers {
	return &APIHandlers{
		engine:      engine,
		persistence: p,
		validator:   validator,
	}
}

// principalFromHeaders rebuilds the caller identity from gateway headers.
// Authentication itself happens upstream.
func principalFromHeaders(c fiber.Ctx) auth.Principal {
	var roles []string

	for _, role := range strings.Split(c.Get(HeaderUserRoles), ",") {
		role = strings.TrimSpace(role)
		if role != "" {
			roles = append(roles, role)
		}
	}

	return auth.Principal{
		ID:    c.Get(HeaderUserID),
		Email: c.Get(HeaderUserEmail),
		Name:  c.Get(HeaderUserName),
		Roles: roles,
	}
}

func (h *APIHandlers) RegisterProvider(c fiber.Ctx) error {
	var req RegisterProviderRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	bundle, err := h.engine.Register(c.Context(), principalFromHeaders(c), req.toModel())
	if err != nil {
		return handleWorkflowError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(bundle)
}

func (h *APIHandlers) GetProvider(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Provider ID is required")
	}

	bundle, err := h.persistence.ProviderRepository().GetByID(c.Context(), id)
	if err != nil {
		if persistence.IsNotFound(err) {
			return notFound(c, "Provider not found")
		}

		return internalError(c, err)
	}

	return c.JSON(bundle)
}

func (h *APIHandlers) ListProviders(c fiber.Ctx) error {
	filter := persistence.ProviderFilter{}

	if stateStr := c.Query("state"); stateStr != "" {
		state, err := models.ParseWorkflowState(stateStr)
		if err != nil {
			return badRequest(c, err.Error())
		}

		filter.State = state
	}

	if activeStr := c.Query("active"); activeStr != "" {
		active := activeStr == "true"
		filter.Active = &active
	}

	bundles, err := h.persistence.ProviderRepository().List(c.Context(), filter)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"providers": bundles, "total_count": len(bundles)})
}

func (h *APIHandlers) TransitionProvider(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Provider ID is required")
	}

	var req TransitionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	target, err := models.ParseWorkflowState(req.Target)
	if err != nil {
		return badRequest(c, err.Error())
	}

	bundle, err := h.engine.Transition(c.Context(), principalFromHeaders(c), id, target)
	if err != nil {
		return handleWorkflowError(c, err)
	}

	return c.JSON(bundle)
}

func (h *APIHandlers) SetProviderActive(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Provider ID is required")
	}

	var req ActiveRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	bundle, err := h.engine.SetActive(c.Context(), principalFromHeaders(c), id, *req.Active)
	if err != nil {
		return handleWorkflowError(c, err)
	}

	return c.JSON(bundle)
}

func (h *APIHandlers) ServiceTemplateEligibility(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Provider ID is required")
	}

	eligible, err := h.engine.CanAddServiceTemplate(c.Context(), principalFromHeaders(c), id)
	if err != nil {
		return handleWorkflowError(c, err)
	}

	return c.JSON(EligibilityResponse{ProviderID: id, Eligible: eligible})
}

func (h *APIHandlers) CreateService(c fiber.Ctx) error {
	var req CreateServiceRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	bundle, err := h.engine.AddServiceTemplate(c.Context(), principalFromHeaders(c), req.toModel())
	if err != nil {
		return handleWorkflowError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(bundle)
}

func (h *APIHandlers) GetService(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Service ID is required")
	}

	bundle, err := h.persistence.ServiceRepository().GetByID(c.Context(), id)
	if err != nil {
		if persistence.IsNotFound(err) {
			return notFound(c, "Service not found")
		}

		return internalError(c, err)
	}

	return c.JSON(bundle)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	message := "Registrar API is healthy"
	httpStatus := http.StatusOK

	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		message = "Registrar API is unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"message":   message,
		"timestamp": time.Now().UTC(),
	})
}
