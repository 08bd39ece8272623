package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classnest/classnest-api/internal/service"
	appErrors "github.com/classnest/classnest-api/pkg/errors"
	"github.com/classnest/classnest-api/pkg/response"
)

// TestResultHandler wires HTTP endpoints to the test result service.
type TestResultHandler struct {
	service *service.TestResultService
}

// NewTestResultHandler creates a new handler.
func NewTestResultHandler(svc *service.TestResultService) *TestResultHandler {
	return &TestResultHandler{service: svc}
}

// Save godoc
// @Summary Save a test result
// @Description Append one immutable score record for the calling student
// @Tags TestResults
// @Accept json
// @Produce json
// @Param payload body service.SaveResultRequest true "Result payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /test-results [post]
func (h *TestResultHandler) Save(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.SaveResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid test result payload"))
		return
	}

	result, err := h.service.Save(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// ListMine godoc
// @Summary List own test results
// @Tags TestResults
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /test-results [get]
func (h *TestResultHandler) ListMine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	results, err := h.service.ListMine(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, nil)
}

// Export godoc
// @Summary Export classroom results
// @Description Render classroom results as CSV or PDF
// @Tags TestResults
// @Produce application/octet-stream
// @Param id path string true "Classroom ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /classrooms/{id}/results/export [get]
func (h *TestResultHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	format := c.DefaultQuery("format", "csv")
	content, filename, err := h.service.ExportClassroom(c.Request.Context(), claims.UserID, c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	contentType := "text/csv"
	if format == "pdf" {
		contentType = "application/pdf"
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, content)
}
