package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classnest/classnest-api/internal/models"
	"github.com/classnest/classnest-api/internal/service"
	appErrors "github.com/classnest/classnest-api/pkg/errors"
	"github.com/classnest/classnest-api/pkg/response"
)

// maxAssetUpload caps note and lecture uploads at 100 MiB.
const maxAssetUpload = 100 << 20

// AssetHandler wires HTTP endpoints to the asset service. One handler serves
// both asset kinds; the kind comes from the registered route.
type AssetHandler struct {
	service *service.AssetService
	kind    models.AssetKind
}

// NewAssetHandler creates a handler bound to one asset kind.
func NewAssetHandler(svc *service.AssetService, kind models.AssetKind) *AssetHandler {
	return &AssetHandler{service: svc, kind: kind}
}

// Upload godoc
// @Summary Upload classroom asset
// @Description Store a note or video lecture for a classroom
// @Tags Assets
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Classroom ID"
// @Param title formData string true "Asset title"
// @Param file formData file true "Asset file"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /classrooms/{id}/notes [post]
func (h *AssetHandler) Upload(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	title := c.PostForm("title")
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file required"))
		return
	}
	if fileHeader.Size > maxAssetUpload {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file too large"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to read upload"))
		return
	}
	defer file.Close() //nolint:errcheck

	content, err := io.ReadAll(io.LimitReader(file, maxAssetUpload))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to read upload"))
		return
	}

	asset, err := h.service.Upload(c.Request.Context(), claims.UserID, h.kind, c.Param("id"), title, fileHeader.Filename, content)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, asset)
}

// List godoc
// @Summary List classroom assets
// @Tags Assets
// @Produce json
// @Param id path string true "Classroom ID"
// @Success 200 {object} response.Envelope
// @Router /classrooms/{id}/notes [get]
func (h *AssetHandler) List(c *gin.Context) {
	assets, err := h.service.List(c.Request.Context(), h.kind, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assets, nil)
}

// Delete godoc
// @Summary Delete classroom asset
// @Description Removes the record; the blob delete is best effort
// @Tags Assets
// @Produce json
// @Param id path string true "Classroom ID"
// @Param assetId path string true "Asset ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classrooms/{id}/notes/{assetId} [delete]
func (h *AssetHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Delete(c.Request.Context(), claims.UserID, h.kind, c.Param("id"), c.Param("assetId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
