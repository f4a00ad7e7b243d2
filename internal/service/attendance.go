package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"schoolschedule/internal/apperr"
	"schoolschedule/internal/db"
	"schoolschedule/internal/metrics"
)

// AttendanceSyncQueries is the subset of queries the synchronizer needs.
type AttendanceSyncQueries interface {
	StudentGroupExists(ctx context.Context, id int32) (bool, error)
	ListStudentIDsByGroup(ctx context.Context, groupID int32) ([]int32, error)
	CreateAttendances(ctx context.Context, args []db.CreateAttendanceParams) ([]db.Attendance, error)
	DeleteAttendancesByLesson(ctx context.Context, lessonID int32) (int64, error)
}

type AttendanceQueries interface {
	AttendanceSyncQueries
	CreateAttendance(ctx context.Context, arg db.CreateAttendanceParams) (db.Attendance, error)
	GetAttendanceWithRelations(ctx context.Context, id int32) (db.AttendanceWithRelations, error)
	ListAttendances(ctx context.Context, limit, offset int32) ([]db.Attendance, error)
	CountAttendances(ctx context.Context) (int64, error)
	ListAttendancesByLesson(ctx context.Context, lessonID int32) ([]db.AttendanceWithRelations, error)
	UpdateAttendance(ctx context.Context, arg db.UpdateAttendanceParams) (db.Attendance, error)
	DeleteAttendance(ctx context.Context, id int32) (bool, error)
}

// SyncResult describes what SyncLessonAttendance did.
type SyncResult struct {
	Skipped bool
	Deleted int64
	Created []db.Attendance
}

func (r SyncResult) outcome() string {
	switch {
	case r.Skipped:
		return "skipped"
	case r.Created == nil:
		return "cleared"
	default:
		return "regrouped"
	}
}

// SyncLessonAttendance brings a lesson's attendance rows in line with a
// group change from current to next. Equal groups are a no-op, even when the
// group's membership changed since the rows were created. Otherwise every row
// of the lesson is removed and, when next is set, one fresh row is created
// per current member of next. Run it inside the transaction that updates the
// lesson.
func SyncLessonAttendance(ctx context.Context, q AttendanceSyncQueries, lessonID int32, current, next *int32) (SyncResult, error) {
	if sameGroup(current, next) {
		metrics.AttendanceSyncs.WithLabelValues("skipped").Inc()
		return SyncResult{Skipped: true}, nil
	}
	if next != nil {
		if err := ensureGroup(ctx, q, *next); err != nil {
			return SyncResult{}, err
		}
	}

	deleted, err := q.DeleteAttendancesByLesson(ctx, lessonID)
	if err != nil {
		return SyncResult{}, apperr.FromDB(err, "Attendance")
	}
	metrics.AttendanceRowsDeleted.Add(float64(deleted))

	result := SyncResult{Deleted: deleted}
	if next != nil {
		created, err := createAttendancesForGroup(ctx, q, lessonID, *next)
		if err != nil {
			return SyncResult{}, err
		}
		result.Created = created
	}
	metrics.AttendanceSyncs.WithLabelValues(result.outcome()).Inc()
	return result, nil
}

func sameGroup(a, b *int32) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

type groupChecker interface {
	StudentGroupExists(ctx context.Context, id int32) (bool, error)
}

func ensureGroup(ctx context.Context, q groupChecker, groupID int32) error {
	exists, err := q.StudentGroupExists(ctx, groupID)
	if err != nil {
		return apperr.FromDB(err, "Student group")
	}
	if !exists {
		return apperr.NotFound(fmt.Sprintf("Student group %d not found", groupID))
	}
	return nil
}

// createAttendancesForGroup inserts one absent row per current member of the
// group. The group must exist.
func createAttendancesForGroup(ctx context.Context, q AttendanceSyncQueries, lessonID, groupID int32) ([]db.Attendance, error) {
	studentIDs, err := q.ListStudentIDsByGroup(ctx, groupID)
	if err != nil {
		return nil, apperr.FromDB(err, "Student")
	}
	params := make([]db.CreateAttendanceParams, 0, len(studentIDs))
	for _, studentID := range studentIDs {
		params = append(params, db.CreateAttendanceParams{
			StudentID: studentID,
			LessonID:  lessonID,
			IsPresent: false,
		})
	}
	created, err := q.CreateAttendances(ctx, params)
	if err != nil {
		return nil, apperr.FromDB(err, "Attendance")
	}
	if created == nil {
		created = []db.Attendance{}
	}
	metrics.AttendanceRowsCreated.Add(float64(len(created)))
	return created, nil
}

type AttendanceService struct {
	q   AttendanceQueries
	log zerolog.Logger
}

func NewAttendanceService(q AttendanceQueries, log zerolog.Logger) *AttendanceService {
	return &AttendanceService{
		q:   q,
		log: log.With().Str("component", "attendance_service").Logger(),
	}
}

// CreateForGroup creates one row per current member of the group for the
// lesson and returns the inserted rows.
func (s *AttendanceService) CreateForGroup(ctx context.Context, lessonID, groupID int32) ([]db.Attendance, error) {
	if err := ensureGroup(ctx, s.q, groupID); err != nil {
		return nil, err
	}
	created, err := createAttendancesForGroup(ctx, s.q, lessonID, groupID)
	if err != nil {
		return nil, err
	}
	s.log.Info().Int32("lesson_id", lessonID).Int32("group_id", groupID).Int("rows", len(created)).Msg("attendance created for group")
	return created, nil
}

// DeleteByLesson reports whether any row was removed.
func (s *AttendanceService) DeleteByLesson(ctx context.Context, lessonID int32) (bool, error) {
	deleted, err := s.q.DeleteAttendancesByLesson(ctx, lessonID)
	if err != nil {
		return false, apperr.FromDB(err, "Attendance")
	}
	return deleted > 0, nil
}

func (s *AttendanceService) GetByLesson(ctx context.Context, lessonID int32) ([]db.AttendanceWithRelations, error) {
	rows, err := s.q.ListAttendancesByLesson(ctx, lessonID)
	if err != nil {
		return nil, apperr.FromDB(err, "Attendance")
	}
	if rows == nil {
		rows = []db.AttendanceWithRelations{}
	}
	return rows, nil
}

func (s *AttendanceService) Create(ctx context.Context, arg db.CreateAttendanceParams) (db.Attendance, error) {
	created, err := s.q.CreateAttendance(ctx, arg)
	if err != nil {
		return db.Attendance{}, apperr.FromDB(err, "Attendance")
	}
	s.log.Info().Int32("attendance_id", created.ID).Msg("attendance created")
	return created, nil
}

func (s *AttendanceService) Get(ctx context.Context, id int32) (db.AttendanceWithRelations, error) {
	row, err := s.q.GetAttendanceWithRelations(ctx, id)
	if err != nil {
		return db.AttendanceWithRelations{}, apperr.FromDB(err, "Attendance")
	}
	return row, nil
}

func (s *AttendanceService) List(ctx context.Context, req PageRequest) (Page[db.Attendance], error) {
	return listPage(ctx, req, "Attendance", s.q.ListAttendances, s.q.CountAttendances)
}

func (s *AttendanceService) Update(ctx context.Context, arg db.UpdateAttendanceParams) (db.Attendance, error) {
	updated, err := s.q.UpdateAttendance(ctx, arg)
	if err != nil {
		return db.Attendance{}, apperr.FromDB(err, "Attendance")
	}
	s.log.Info().Int32("attendance_id", arg.ID).Msg("attendance updated")
	return updated, nil
}

func (s *AttendanceService) Delete(ctx context.Context, id int32) (bool, error) {
	deleted, err := s.q.DeleteAttendance(ctx, id)
	if err != nil {
		return false, apperr.FromDB(err, "Attendance")
	}
	if !deleted {
		s.log.Warn().Int32("attendance_id", id).Msg("attendance not found")
	}
	return deleted, nil
}
