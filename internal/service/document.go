package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"schoolschedule/internal/apperr"
	"schoolschedule/internal/db"
	"schoolschedule/internal/metrics"
	"schoolschedule/internal/storage"
)

var allowedDocumentTypes = map[string]struct{}{
	"image/png":       {},
	"image/jpeg":      {},
	"image/webp":      {},
	"application/pdf": {},
}

// sniffLen matches the amount of data mimetype inspects by default.
const sniffLen = 3072

type DocumentQueries interface {
	TeacherExists(ctx context.Context, id int32) (bool, error)
	CreateDocument(ctx context.Context, name string, teacherID int32) (db.Document, error)
	GetDocument(ctx context.Context, id uuid.UUID) (db.Document, error)
	ListDocumentsByTeacher(ctx context.Context, teacherID int32) ([]db.Document, error)
	DocumentExists(ctx context.Context, id uuid.UUID) (bool, error)
	DeleteDocument(ctx context.Context, id uuid.UUID) (bool, error)
}

// BlobStore is implemented by storage.FS.
type BlobStore interface {
	Save(teacherID int32, name string, r io.Reader) error
	Open(teacherID int32, name string) (io.ReadSeekCloser, error)
	Remove(teacherID int32, name string) error
	Walk(fn func(teacherID int32, name string) error) error
}

type UploadInput struct {
	FileName    string
	ContentType string
	Body        io.Reader
}

type DocumentService struct {
	q     DocumentQueries
	blobs BlobStore
	log   zerolog.Logger
}

func NewDocumentService(q DocumentQueries, blobs BlobStore, log zerolog.Logger) *DocumentService {
	return &DocumentService{q: q, blobs: blobs, log: log.With().Str("component", "document_service").Logger()}
}

// Upload validates the declared type and name, records the document and
// writes its content. The row is removed again when the write fails.
func (s *DocumentService) Upload(ctx context.Context, teacherID int32, in UploadInput) (db.Document, error) {
	declared, err := normalizeContentType(in.ContentType)
	if err != nil {
		metrics.DocumentUploads.WithLabelValues("rejected").Inc()
		return db.Document{}, err
	}
	name := strings.TrimSpace(in.FileName)
	if name == "" {
		metrics.DocumentUploads.WithLabelValues("rejected").Inc()
		return db.Document{}, apperr.BadRequest("missing file name")
	}
	ext, err := documentExtension(name)
	if err != nil {
		metrics.DocumentUploads.WithLabelValues("rejected").Inc()
		return db.Document{}, err
	}
	body, err := sniffBody(in.Body, declared)
	if err != nil {
		metrics.DocumentUploads.WithLabelValues("rejected").Inc()
		return db.Document{}, err
	}
	if err := s.ensureTeacher(ctx, teacherID); err != nil {
		return db.Document{}, err
	}

	doc, err := s.q.CreateDocument(ctx, name, teacherID)
	if err != nil {
		return db.Document{}, apperr.FromDB(err, "Document")
	}
	if err := s.blobs.Save(teacherID, storedName(doc.ID, ext), body); err != nil {
		s.rollback(ctx, doc)
		metrics.DocumentUploads.WithLabelValues("failed").Inc()
		return db.Document{}, apperr.IO("write document", err)
	}
	metrics.DocumentUploads.WithLabelValues("stored").Inc()
	s.log.Info().Str("document_id", doc.ID.String()).Int32("teacher_id", teacherID).Msg("document uploaded")
	return doc, nil
}

func (s *DocumentService) rollback(ctx context.Context, doc db.Document) {
	metrics.DocumentRollbacks.Inc()
	if _, err := s.q.DeleteDocument(context.WithoutCancel(ctx), doc.ID); err != nil {
		s.log.Error().Err(err).Str("document_id", doc.ID.String()).Msg("document rollback failed")
	}
}

func (s *DocumentService) List(ctx context.Context, teacherID int32) ([]db.Document, error) {
	if err := s.ensureTeacher(ctx, teacherID); err != nil {
		return nil, err
	}
	docs, err := s.q.ListDocumentsByTeacher(ctx, teacherID)
	if err != nil {
		return nil, apperr.FromDB(err, "Document")
	}
	if docs == nil {
		docs = []db.Document{}
	}
	return docs, nil
}

// Open returns the document and its content. The caller closes the reader.
func (s *DocumentService) Open(ctx context.Context, teacherID int32, id uuid.UUID) (db.Document, io.ReadSeekCloser, error) {
	doc, err := s.get(ctx, teacherID, id)
	if err != nil {
		return db.Document{}, nil, err
	}
	ext, err := documentExtension(doc.Name)
	if err != nil {
		return db.Document{}, nil, apperr.Internal("stored document has no extension", err)
	}
	file, err := s.blobs.Open(teacherID, storedName(doc.ID, ext))
	if errors.Is(err, storage.ErrNotExist) {
		return db.Document{}, nil, apperr.NotFound(fmt.Sprintf("Document %s content missing", id))
	}
	if err != nil {
		return db.Document{}, nil, apperr.IO("open document", err)
	}
	return doc, file, nil
}

// Delete removes the stored file and then the row. It reports false when the
// document is unknown for this teacher or its file was already gone; in the
// latter case the dangling row is removed as well.
func (s *DocumentService) Delete(ctx context.Context, teacherID int32, id uuid.UUID) (bool, error) {
	doc, err := s.get(ctx, teacherID, id)
	if apperr.Is(err, apperr.KindNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	found := true
	if ext, extErr := documentExtension(doc.Name); extErr == nil {
		err = s.blobs.Remove(teacherID, storedName(doc.ID, ext))
		if errors.Is(err, storage.ErrNotExist) {
			s.log.Warn().Str("document_id", id.String()).Msg("document file already missing")
			found = false
		} else if err != nil {
			return false, apperr.IO("remove document", err)
		}
	}
	if _, err := s.q.DeleteDocument(ctx, doc.ID); err != nil {
		return false, apperr.FromDB(err, "Document")
	}
	if found {
		s.log.Info().Str("document_id", id.String()).Msg("document deleted")
	}
	return found, nil
}

// SweepOrphans removes stored files that have no document row, which happens
// when the process stops between a failed write and its rollback.
func (s *DocumentService) SweepOrphans(ctx context.Context) (int, error) {
	removed := 0
	err := s.blobs.Walk(func(teacherID int32, name string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stem, _, _ := strings.Cut(name, ".")
		id, err := uuid.Parse(stem)
		if err != nil {
			return nil
		}
		exists, err := s.q.DocumentExists(ctx, id)
		if err != nil {
			return apperr.FromDB(err, "Document")
		}
		if exists {
			return nil
		}
		if err := s.blobs.Remove(teacherID, name); err != nil && !errors.Is(err, storage.ErrNotExist) {
			return apperr.IO("remove orphan", err)
		}
		removed++
		metrics.DocumentOrphansRemoved.Inc()
		s.log.Info().Int32("teacher_id", teacherID).Str("file", name).Msg("orphan document file removed")
		return nil
	})
	return removed, err
}

func (s *DocumentService) get(ctx context.Context, teacherID int32, id uuid.UUID) (db.Document, error) {
	doc, err := s.q.GetDocument(ctx, id)
	if err != nil {
		return db.Document{}, apperr.FromDB(err, "Document")
	}
	if doc.TeacherID != teacherID {
		return db.Document{}, apperr.NotFound(fmt.Sprintf("Document %s not found for teacher %d", id, teacherID))
	}
	return doc, nil
}

func (s *DocumentService) ensureTeacher(ctx context.Context, teacherID int32) error {
	exists, err := s.q.TeacherExists(ctx, teacherID)
	if err != nil {
		return apperr.FromDB(err, "Teacher")
	}
	if !exists {
		return apperr.NotFound(fmt.Sprintf("Teacher %d not found", teacherID))
	}
	return nil
}

func normalizeContentType(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", apperr.BadRequest("missing content type")
	}
	mediaType, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return "", apperr.Wrap(apperr.KindBadRequest, "invalid content type", err)
	}
	if _, ok := allowedDocumentTypes[mediaType]; !ok {
		return "", apperr.BadRequest("content type not allowed: " + mediaType)
	}
	return mediaType, nil
}

// documentExtension returns the text after the last dot of name.
func documentExtension(name string) (string, error) {
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return "", apperr.BadRequest("file name has no extension")
	}
	ext := name[idx+1:]
	if len(ext) > 10 {
		return "", apperr.BadRequest("file extension too long")
	}
	for _, r := range ext {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return "", apperr.BadRequest("invalid file extension")
		}
	}
	return ext, nil
}

// sniffBody checks that the leading bytes match the declared type and returns
// a reader over the full content.
func sniffBody(body io.Reader, declared string) (io.Reader, error) {
	if body == nil {
		return nil, apperr.BadRequest("missing file content")
	}
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, apperr.Multipart("read document", err)
	}
	head = head[:n]
	detected := mimetype.Detect(head)
	if !detected.Is(declared) {
		return nil, apperr.BadRequest(fmt.Sprintf("content is %s, declared %s", detected.String(), declared))
	}
	return io.MultiReader(bytes.NewReader(head), body), nil
}

func storedName(id uuid.UUID, ext string) string {
	return id.String() + "." + ext
}
