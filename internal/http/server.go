package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"schoolschedule/internal/apperr"
	"schoolschedule/internal/auth"
	"schoolschedule/internal/config"
	"schoolschedule/internal/db"
	"schoolschedule/internal/service"
)

type StudentService interface {
	Create(ctx context.Context, arg db.CreateStudentParams) (db.StudentWithRelations, error)
	Get(ctx context.Context, id int32) (db.StudentWithRelations, error)
	List(ctx context.Context, req service.PageRequest) (service.Page[db.StudentWithRelations], error)
	ListByGroup(ctx context.Context, groupID int32) ([]db.StudentWithRelations, error)
	Update(ctx context.Context, arg db.UpdateStudentParams) (db.StudentWithRelations, error)
	Delete(ctx context.Context, id int32) (bool, error)
}

type ParentService interface {
	Create(ctx context.Context, arg db.CreateParentParams) (db.Parent, error)
	Get(ctx context.Context, id int32) (db.Parent, error)
	List(ctx context.Context, req service.PageRequest) (service.Page[db.Parent], error)
	Update(ctx context.Context, arg db.UpdateParentParams) (db.Parent, error)
	Delete(ctx context.Context, id int32) (bool, error)
}

type TeacherService interface {
	Create(ctx context.Context, name string) (db.TeacherWithGroups, error)
	Get(ctx context.Context, id int32) (db.TeacherWithGroups, error)
	List(ctx context.Context, req service.PageRequest) (service.Page[db.Teacher], error)
	Update(ctx context.Context, id int32, name *string) (db.TeacherWithGroups, error)
	Delete(ctx context.Context, id int32) (bool, error)
}

type StudentGroupService interface {
	Create(ctx context.Context, arg db.CreateStudentGroupParams) (db.StudentGroupWithRelations, error)
	Get(ctx context.Context, id int32) (db.StudentGroupWithRelations, error)
	List(ctx context.Context, req service.PageRequest) (service.Page[db.StudentGroupWithRelations], error)
	Update(ctx context.Context, arg db.UpdateStudentGroupParams) (db.StudentGroupWithRelations, error)
	Delete(ctx context.Context, id int32) (bool, error)
}

type LessonService interface {
	Create(ctx context.Context, arg db.CreateLessonParams) (db.LessonWithGroup, error)
	Get(ctx context.Context, id int32) (db.LessonWithGroup, error)
	List(ctx context.Context, req service.PageRequest) (service.Page[db.LessonWithGroup], error)
	ListByGroup(ctx context.Context, groupID int32) ([]db.Lesson, error)
	Update(ctx context.Context, arg db.UpdateLessonParams) (db.LessonWithGroup, error)
	Delete(ctx context.Context, id int32) (bool, error)
}

type AttendanceService interface {
	Create(ctx context.Context, arg db.CreateAttendanceParams) (db.Attendance, error)
	Get(ctx context.Context, id int32) (db.AttendanceWithRelations, error)
	List(ctx context.Context, req service.PageRequest) (service.Page[db.Attendance], error)
	GetByLesson(ctx context.Context, lessonID int32) ([]db.AttendanceWithRelations, error)
	Update(ctx context.Context, arg db.UpdateAttendanceParams) (db.Attendance, error)
	Delete(ctx context.Context, id int32) (bool, error)
}

type DocumentService interface {
	Upload(ctx context.Context, teacherID int32, in service.UploadInput) (db.Document, error)
	List(ctx context.Context, teacherID int32) ([]db.Document, error)
	Open(ctx context.Context, teacherID int32, id uuid.UUID) (db.Document, io.ReadSeekCloser, error)
	Delete(ctx context.Context, teacherID int32, id uuid.UUID) (bool, error)
}

type UserService interface {
	Create(ctx context.Context, in service.CreateUserInput) (db.User, error)
	Authenticate(ctx context.Context, username, password string) (db.User, error)
	Get(ctx context.Context, id int32) (db.User, error)
	List(ctx context.Context, req service.PageRequest) (service.Page[db.User], error)
	Update(ctx context.Context, in service.UpdateUserInput) (db.User, error)
	Delete(ctx context.Context, id int32) (bool, error)
}

// Services groups the dependencies of the HTTP layer.
type Services struct {
	Students      StudentService
	Parents       ParentService
	Teachers      TeacherService
	StudentGroups StudentGroupService
	Lessons       LessonService
	Attendances   AttendanceService
	Documents     DocumentService
	Users         UserService
}

type Server struct {
	cfg      config.Config
	log      zerolog.Logger
	validate *validator.Validate
	sessions *auth.Manager
	svc      Services
}

func NewServer(cfg config.Config, log zerolog.Logger, sessions *auth.Manager, svc Services) *Server {
	return &Server{
		cfg:      cfg,
		log:      log.With().Str("component", "http").Logger(),
		validate: validator.New(),
		sessions: sessions,
		svc:      svc,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/auth/me", s.handleMe)

			r.Get("/students", s.handleListStudents)
			r.Post("/students", s.handleCreateStudent)
			r.Get("/students/{id}", s.handleGetStudent)
			r.Put("/students/{id}", s.handleUpdateStudent)
			r.Delete("/students/{id}", s.handleDeleteStudent)

			r.Get("/parents", s.handleListParents)
			r.Post("/parents", s.handleCreateParent)
			r.Get("/parents/{id}", s.handleGetParent)
			r.Put("/parents/{id}", s.handleUpdateParent)
			r.Delete("/parents/{id}", s.handleDeleteParent)

			r.Get("/teachers", s.handleListTeachers)
			r.Post("/teachers", s.handleCreateTeacher)
			r.Get("/teachers/{id}", s.handleGetTeacher)
			r.Put("/teachers/{id}", s.handleUpdateTeacher)
			r.Delete("/teachers/{id}", s.handleDeleteTeacher)
			r.Get("/teachers/{id}/documents", s.handleListDocuments)
			r.Post("/teachers/{id}/documents", s.handleUploadDocument)
			r.Get("/teachers/{id}/documents/{documentId}", s.handleDownloadDocument)
			r.Delete("/teachers/{id}/documents/{documentId}", s.handleDeleteDocument)

			r.Get("/student_groups", s.handleListStudentGroups)
			r.Post("/student_groups", s.handleCreateStudentGroup)
			r.Get("/student_groups/{id}", s.handleGetStudentGroup)
			r.Put("/student_groups/{id}", s.handleUpdateStudentGroup)
			r.Delete("/student_groups/{id}", s.handleDeleteStudentGroup)
			r.Get("/student_groups/{id}/students", s.handleListGroupStudents)
			r.Get("/student_groups/{id}/lessons", s.handleListGroupLessons)
			r.Post("/student_groups/{id}/lessons", s.handleCreateGroupLesson)

			r.Get("/lessons", s.handleListLessons)
			r.Post("/lessons", s.handleCreateLesson)
			r.Get("/lessons/{id}", s.handleGetLesson)
			r.Put("/lessons/{id}", s.handleUpdateLesson)
			r.Delete("/lessons/{id}", s.handleDeleteLesson)
			r.Get("/lessons/{id}/attendances", s.handleListLessonAttendances)

			r.Get("/attendances", s.handleListAttendances)
			r.Post("/attendances", s.handleCreateAttendance)
			r.Get("/attendances/lesson/{id}", s.handleListLessonAttendances)
			r.Get("/attendances/{id}", s.handleGetAttendance)
			r.Put("/attendances/{id}", s.handleUpdateAttendance)
			r.Delete("/attendances/{id}", s.handleDeleteAttendance)

			r.Route("/users", func(r chi.Router) {
				r.Use(requireRole(db.RoleAdmin, db.RoleDirector))
				r.Get("/", s.handleListUsers)
				r.Post("/", s.handleCreateUser)
				r.Get("/{id}", s.handleGetUser)
				r.Put("/{id}", s.handleUpdateUser)
				r.Delete("/{id}", s.handleDeleteUser)
			})
		})
	})

	return r
}

// Helpers

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

// decodeAndValidate writes a 400 and returns false when the body is not a
// valid out.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, out interface{}) bool {
	if err := decodeJSON(r, out); err != nil {
		s.writeAppError(w, r, apperr.Wrap(apperr.KindBadRequest, "decode body", err))
		return false
	}
	if err := s.validate.Struct(out); err != nil {
		s.writeAppError(w, r, apperr.Wrap(apperr.KindBadRequest, "validate body", err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeAppError logs the detailed error and sends the generic message.
func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.StatusCode(err)
	event := s.log.Warn()
	if status >= http.StatusInternalServerError {
		event = s.log.Error()
	}
	event.Err(err).
		Str("request_id", middleware.GetReqID(r.Context())).
		Str("kind", apperr.KindOf(err).String()).
		Int("status", status).
		Msg("request failed")
	writeError(w, status, apperr.Public(err))
}

// writeDeleteResult answers every delete with 200 and a message string.
func writeDeleteResult(w http.ResponseWriter, deleted bool, entity string) {
	if deleted {
		writeJSON(w, http.StatusOK, "Successfully deleted")
		return
	}
	writeJSON(w, http.StatusOK, entity+" not found")
}

func parseID(r *http.Request, name string) (int32, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || id <= 0 {
		return 0, apperr.BadRequest("invalid " + name + " " + strconv.Quote(raw))
	}
	return int32(id), nil
}

func (s *Server) parsePage(r *http.Request) service.PageRequest {
	page := parsePositive(r, "page", 1)
	size := parsePositive(r, "page_size", s.cfg.DefaultPageSize)
	if s.cfg.MaxPageSize > 0 && size > s.cfg.MaxPageSize {
		size = s.cfg.MaxPageSize
	}
	return service.PageRequest{Page: page, PageSize: size}
}

func parsePositive(r *http.Request, key string, fallback int) int {
	if raw := r.URL.Query().Get(key); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}
