package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/classhub/subject-service/internal/api/dto"
	"github.com/classhub/subject-service/internal/domain"
	"github.com/classhub/subject-service/internal/service"
	apperrors "github.com/classhub/subject-service/pkg/util"
)

// SubjectsHandler manages the subject catalog endpoints.
type SubjectsHandler struct {
	service *service.SubjectService
}

// NewSubjectsHandler constructs handler.
func NewSubjectsHandler(subjectService *service.SubjectService) *SubjectsHandler {
	return &SubjectsHandler{service: subjectService}
}

// Create handles POST /subjects.
func (h *SubjectsHandler) Create(c *fiber.Ctx) error {
	req, err := parseSubjectRequest(c)
	if err != nil {
		return err
	}
	subject, err := h.service.CreateSubject(c.UserContext(), subjectInput(req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": subjectResponse(subject)})
}

// List handles GET /subjects.
func (h *SubjectsHandler) List(c *fiber.Ctx) error {
	filter := service.SubjectListFilter{}
	if q := c.Query("q"); q != "" {
		filter.Query = &q
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize

	subjects, err := h.service.ListSubjects(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.SubjectResponse, 0, len(subjects))
	for i := range subjects {
		items = append(items, subjectResponse(&subjects[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get handles GET /subjects/:id.
func (h *SubjectsHandler) Get(c *fiber.Ctx) error {
	subject, err := h.service.GetSubject(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": subjectResponse(subject)})
}

// Update handles PUT /subjects/:id.
func (h *SubjectsHandler) Update(c *fiber.Ctx) error {
	req, err := parseSubjectRequest(c)
	if err != nil {
		return err
	}
	subject, err := h.service.UpdateSubject(c.UserContext(), c.Params("id"), subjectInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": subjectResponse(subject)})
}

// Delete handles DELETE /subjects/:id.
func (h *SubjectsHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.DeleteSubject(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": true}})
}

func parseSubjectRequest(c *fiber.Ctx) (dto.SubjectRequest, error) {
	var req dto.SubjectRequest
	if err := c.BodyParser(&req); err != nil {
		return req, apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Code == "" || req.Name == "" {
		return req, apperrors.NewValidationError("code and name required", nil)
	}
	return req, nil
}

func subjectInput(req dto.SubjectRequest) service.SubjectInput {
	return service.SubjectInput{
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		Credits:     req.Credits,
	}
}

func subjectResponse(subject *domain.Subject) dto.SubjectResponse {
	return dto.SubjectResponse{
		ID:          subject.ID,
		Code:        subject.Code,
		Name:        subject.Name,
		Description: subject.Description,
		Credits:     subject.Credits,
		CreatedAt:   subject.CreatedAt,
		UpdatedAt:   subject.UpdatedAt,
	}
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
