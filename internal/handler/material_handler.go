package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/campus-admin-backend/internal/model"
	"github.com/stemsi/campus-admin-backend/internal/response"
	"github.com/stemsi/campus-admin-backend/internal/service"
	"github.com/stemsi/campus-admin-backend/internal/validator"
)

// multipartOverhead is the allowance for form fields and part headers on
// top of the file size limit.
const multipartOverhead = 1 << 20

// multipartMemory is how much of the form is held in memory before parts
// spill to temporary files.
const multipartMemory = 8 << 20

// MaterialHandler handles learning-material uploads.
type MaterialHandler struct {
	materials *service.MaterialService
	maxBytes  int64
}

// NewMaterialHandler creates a new MaterialHandler.
func NewMaterialHandler(materials *service.MaterialService, maxBytes int64) *MaterialHandler {
	return &MaterialHandler{materials: materials, maxBytes: maxBytes}
}

// Upload godoc
// POST /api/upload
// Multipart fields: file, category, year. Validates before storing anything.
func (h *MaterialHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+multipartOverhead)

	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Fail(c, http.StatusBadRequest, response.ErrFileTooLarge)
			return
		}
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}

	var req model.UploadMaterialRequest
	if fields := validator.BindForm(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	defer file.Close()

	material, err := h.materials.Upload(c.Request.Context(), service.MaterialUpload{
		File:     file,
		Filename: header.Filename,
		Size:     header.Size,
		Category: req.Category,
		Year:     req.Year,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidYear):
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidYear)
		case errors.Is(err, service.ErrUnsupportedFileType):
			response.Fail(c, http.StatusBadRequest, response.ErrUnsupportedFile)
		case errors.Is(err, service.ErrFileTooLarge):
			response.Fail(c, http.StatusBadRequest, response.ErrFileTooLarge)
		case errors.Is(err, service.ErrCategoryRequired):
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
				map[string]string{"category": "category is a required field"})
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.JSON(c, http.StatusOK, gin.H{
		"message":  "File uploaded successfully!",
		"material": material,
	})
}
