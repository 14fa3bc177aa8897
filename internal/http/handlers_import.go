package http

import (
	"errors"
	"net/http"

	"household/internal/core"
	"household/internal/sheets/xlsx"
)

// uploadField is the multipart field carrying the workbook.
const uploadField = "file"

// handleImport replaces the stored data with the content of an uploaded
// .xlsx workbook.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, s.deps.MaxUploadBytes)
	file, header, err := r.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = core.NewInvalidInput("upload exceeds %d bytes", tooLarge.Limit)
		} else {
			err = core.NewInvalidInput("multipart field %q with an .xlsx workbook is required", uploadField)
		}
		handleServiceError(ctx, w, err, "import")
		return
	}
	defer file.Close()

	wb, err := xlsx.OpenReader(file)
	if err != nil {
		handleServiceError(ctx, w, core.NewInvalidInput("%s is not a readable .xlsx workbook", header.Filename), "import")
		return
	}
	defer wb.Close()

	result, err := s.deps.Importer.ImportWorkbook(ctx, header.Filename, wb)
	if err != nil {
		handleServiceError(ctx, w, err, "import")
		return
	}
	NewJSONResponse().Body(result).Write(w)
}
