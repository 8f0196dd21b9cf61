package web

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/dispatch/internal/core"
	"github.com/JonMunkholm/dispatch/internal/web/templates"
)

// multipartOverhead is allowed on top of the report size for form fields
// and part headers.
const multipartOverhead = 1 << 20

// reportFile reads the "file" part of a multipart upload.
func (s *Server) reportFile(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return nil, nil, core.ErrFileTooLarge
		}
		return nil, nil, core.ErrNoFile
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, nil, core.ErrNoFile
	}
	return file, header, nil
}

// handlePreviewImport parses an uploaded report without writing anything.
func (s *Server) handlePreviewImport(w http.ResponseWriter, r *http.Request) {
	file, header, err := s.reportFile(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer file.Close()

	result, err := s.service.PreviewImport(r.Context(), header.Filename, file, header.Size)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		templates.ImportSummary(result, -1).Render(r.Context(), w)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleCommitImport parses an uploaded report and adds its deliveries to
// the board. The optional driver_id form field assigns every new stop.
func (s *Server) handleCommitImport(w http.ResponseWriter, r *http.Request) {
	file, header, err := s.reportFile(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer file.Close()

	ctx := withSource(r.Context(), r)
	res, err := s.service.CommitImport(ctx, header.Filename, file, header.Size, r.FormValue("driver_id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusCreated)
		templates.ImportSummary(res.Result, res.Inserted).Render(r.Context(), w)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.LimiterStatus())
}

func (s *Server) handleListImports(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	records, err := s.service.ListImports(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}
