package http

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"schoolschedule/internal/apperr"
	"schoolschedule/internal/service"
)

const documentFormField = "document"

func parseDocumentID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "documentId")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.Wrap(apperr.KindBadRequest, "invalid document id", err)
	}
	return id, nil
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	teacherID, err := parseID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	docs, err := s.svc.Documents.List(r.Context(), teacherID)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

// handleUploadDocument streams the first "document" part of a multipart body
// to the document service. Other parts are skipped.
func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	teacherID, err := parseID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if s.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	}
	reader, err := r.MultipartReader()
	if err != nil {
		s.writeAppError(w, r, apperr.Multipart("read multipart body", err))
		return
	}

	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			s.writeAppError(w, r, apperr.BadRequest("missing "+documentFormField+" field"))
			return
		}
		if err != nil {
			s.writeAppError(w, r, apperr.Multipart("next multipart part", err))
			return
		}
		if part.FormName() != documentFormField {
			_ = part.Close()
			continue
		}

		doc, err := s.svc.Documents.Upload(r.Context(), teacherID, service.UploadInput{
			FileName:    part.FileName(),
			ContentType: part.Header.Get("Content-Type"),
			Body:        part,
		})
		_ = part.Close()
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				err = apperr.Multipart("document too large", err)
			}
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, doc)
		return
	}
}

func (s *Server) handleDownloadDocument(w http.ResponseWriter, r *http.Request) {
	teacherID, err := parseID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	documentID, err := parseDocumentID(r)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	doc, content, err := s.svc.Documents.Open(r.Context(), teacherID, documentID)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	defer content.Close()

	contentType := mime.TypeByExtension(filepath.Ext(doc.Name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Name}))
	http.ServeContent(w, r, doc.Name, doc.UploadedAt, content)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	teacherID, err := parseID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	documentID, err := parseDocumentID(r)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	deleted, err := s.svc.Documents.Delete(r.Context(), teacherID, documentID)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeDeleteResult(w, deleted, "Document")
}
