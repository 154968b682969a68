package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/campus-admin-backend/internal/model"
	"github.com/stemsi/campus-admin-backend/internal/response"
	"github.com/stemsi/campus-admin-backend/internal/service"
	"github.com/stemsi/campus-admin-backend/internal/validator"
)

// DocumentHandler serves the read and write endpoints of one singleton document.
type DocumentHandler[B model.Bucket[B]] struct {
	docs *service.DocumentService[B]
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler[B model.Bucket[B]](docs *service.DocumentService[B]) *DocumentHandler[B] {
	return &DocumentHandler[B]{docs: docs}
}

// Get godoc
// GET /api/{timetable,students,achievements}
// Returns the document, creating an empty one on first read.
func (h *DocumentHandler[B]) Get(c *gin.Context) {
	doc, err := h.docs.Get(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.JSON(c, http.StatusOK, doc)
}

// Update godoc
// PUT /api/{timetable,students,achievements}
// Replaces the year buckets present in the body and keeps the others.
func (h *DocumentHandler[B]) Update(c *gin.Context) {
	var patch model.YearPatch[B]
	if fields := validator.Bind(c, &patch); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	if patch.IsEmpty() {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}
	if err := patch.Validate(validator.Struct); err != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, validator.TranslateErrors(err))
		return
	}

	doc, err := h.docs.Upsert(c.Request.Context(), patch)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.JSON(c, http.StatusOK, doc)
}

// List godoc
// GET /api/learning-materials
// Returns every stored document of the kind, without creating one.
func (h *DocumentHandler[B]) List(c *gin.Context) {
	docs, err := h.docs.List(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.JSON(c, http.StatusOK, docs)
}
