package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classnest/classnest-api/internal/service"
	appErrors "github.com/classnest/classnest-api/pkg/errors"
	"github.com/classnest/classnest-api/pkg/response"
)

// maxSyllabusUpload caps ingestion uploads at 10 MiB.
const maxSyllabusUpload = 10 << 20

// SubjectHandler wires HTTP endpoints to the subject service.
type SubjectHandler struct {
	service *service.SubjectService
}

// NewSubjectHandler creates a new handler.
func NewSubjectHandler(svc *service.SubjectService) *SubjectHandler {
	return &SubjectHandler{service: svc}
}

// Create godoc
// @Summary Create subject manually
// @Description Bind a hand-written subject and chapters to the classroom
// @Tags Subjects
// @Accept json
// @Produce json
// @Param id path string true "Classroom ID"
// @Param payload body service.CreateSubjectRequest true "Subject payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /classrooms/{id}/subject [post]
func (h *SubjectHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid subject payload"))
		return
	}

	detail, warn, err := h.service.Create(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if warn != nil {
		response.Degraded(c, http.StatusCreated, detail, warn)
		return
	}
	response.Created(c, detail)
}

// Ingest godoc
// @Summary Ingest syllabus document
// @Description Extract a structured subject from an uploaded syllabus file
// @Tags Subjects
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Classroom ID"
// @Param name formData string true "Subject name"
// @Param file formData file true "Syllabus document"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /classrooms/{id}/subject/ingest [post]
func (h *SubjectHandler) Ingest(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	subjectName := c.PostForm("name")
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "syllabus file required"))
		return
	}
	if fileHeader.Size > maxSyllabusUpload {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "syllabus file too large"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to read upload"))
		return
	}
	defer file.Close() //nolint:errcheck

	document, err := io.ReadAll(io.LimitReader(file, maxSyllabusUpload))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to read upload"))
		return
	}

	detail, warn, err := h.service.Ingest(c.Request.Context(), claims.UserID, c.Param("id"), document, subjectName)
	if err != nil {
		response.Error(c, err)
		return
	}
	if warn != nil {
		response.Degraded(c, http.StatusCreated, detail, warn)
		return
	}
	response.Created(c, detail)
}

// Get godoc
// @Summary Get classroom subject
// @Tags Subjects
// @Produce json
// @Param id path string true "Classroom ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classrooms/{id}/subject [get]
func (h *SubjectHandler) Get(c *gin.Context) {
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}
