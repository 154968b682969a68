package model

import "time"

// Material is an uploaded learning-material file. Records are only created
// by the upload flow and never modified afterwards.
type Material struct {
	Category     string    `json:"category" binding:"required,max=100"`
	FilePath     string    `json:"filePath" binding:"required"`
	OriginalName string    `json:"originalName" binding:"required"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

// MaterialList is the list of materials of one year.
type MaterialList []Material

func (l MaterialList) Normalize() MaterialList { return nonNil(l) }

func (l MaterialList) Validate(check func(any) error) error {
	return validateEach(l, check)
}

// LearningMaterials is the learning-material index singleton.
type LearningMaterials = Document[MaterialList]

// UploadMaterialRequest carries the non-file fields of an upload.
// Year is validated by ParseYearKey, not by binding, so that an unknown
// year is reported as such.
type UploadMaterialRequest struct {
	Category string `form:"category" binding:"required,max=100"`
	Year     string `form:"year"`
}
