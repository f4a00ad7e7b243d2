package service

import (
	"context"

	"github.com/rs/zerolog"

	"schoolschedule/internal/apperr"
	"schoolschedule/internal/db"
	"schoolschedule/internal/metrics"
)

type LessonQueries interface {
	AttendanceSyncQueries
	CreateLesson(ctx context.Context, arg db.CreateLessonParams) (db.Lesson, error)
	GetLessonForUpdate(ctx context.Context, id int32) (db.Lesson, error)
	GetLessonWithGroup(ctx context.Context, id int32) (db.LessonWithGroup, error)
	ListLessonsWithGroup(ctx context.Context, limit, offset int32) ([]db.LessonWithGroup, error)
	ListLessonsByGroup(ctx context.Context, groupID int32) ([]db.Lesson, error)
	CountLessons(ctx context.Context) (int64, error)
	UpdateLesson(ctx context.Context, arg db.UpdateLessonParams) (db.Lesson, error)
	DeleteLesson(ctx context.Context, id int32) (bool, error)
}

// LessonService owns the lesson lifecycle. Create, Update and Delete each run
// in one transaction together with the attendance rows they derive.
type LessonService struct {
	q   LessonQueries
	tx  txRunner[LessonQueries]
	log zerolog.Logger
}

func NewLessonService(store *db.Store, log zerolog.Logger) *LessonService {
	return newLessonService(store.Queries, storeTx(store, func(q *db.Queries) LessonQueries { return q }), log)
}

func newLessonService(q LessonQueries, tx txRunner[LessonQueries], log zerolog.Logger) *LessonService {
	return &LessonService{
		q:   q,
		tx:  tx,
		log: log.With().Str("component", "lesson_service").Logger(),
	}
}

func (s *LessonService) Create(ctx context.Context, arg db.CreateLessonParams) (db.LessonWithGroup, error) {
	var out db.LessonWithGroup
	err := s.tx(ctx, func(q LessonQueries) error {
		if arg.StudentGroupID != nil {
			if err := ensureGroup(ctx, q, *arg.StudentGroupID); err != nil {
				return err
			}
		}
		lesson, err := q.CreateLesson(ctx, arg)
		if err != nil {
			return apperr.FromDB(err, "Lesson")
		}
		if arg.StudentGroupID != nil {
			created, err := createAttendancesForGroup(ctx, q, lesson.ID, *arg.StudentGroupID)
			if err != nil {
				return err
			}
			metrics.AttendanceSyncs.WithLabelValues("created").Inc()
			s.log.Debug().Int32("lesson_id", lesson.ID).Int("rows", len(created)).Msg("attendance created for new lesson")
		}
		out, err = q.GetLessonWithGroup(ctx, lesson.ID)
		return apperr.FromDB(err, "Lesson")
	})
	if err != nil {
		return db.LessonWithGroup{}, err
	}
	s.log.Info().Int32("lesson_id", out.ID).Msg("lesson created")
	return out, nil
}

// Update applies the field changes and resynchronizes attendance when the
// group changes. arg.StudentGroupID always replaces the stored group; nil
// detaches the lesson.
func (s *LessonService) Update(ctx context.Context, arg db.UpdateLessonParams) (db.LessonWithGroup, error) {
	var out db.LessonWithGroup
	err := s.tx(ctx, func(q LessonQueries) error {
		current, err := q.GetLessonForUpdate(ctx, arg.ID)
		if err != nil {
			return apperr.FromDB(err, "Lesson")
		}
		result, err := SyncLessonAttendance(ctx, q, arg.ID, current.StudentGroupID, arg.StudentGroupID)
		if err != nil {
			return err
		}
		if !result.Skipped {
			s.log.Debug().
				Int32("lesson_id", arg.ID).
				Int64("deleted", result.Deleted).
				Int("created", len(result.Created)).
				Msg("lesson attendance resynchronized")
		}
		if _, err := q.UpdateLesson(ctx, arg); err != nil {
			return apperr.FromDB(err, "Lesson")
		}
		out, err = q.GetLessonWithGroup(ctx, arg.ID)
		return apperr.FromDB(err, "Lesson")
	})
	if err != nil {
		return db.LessonWithGroup{}, err
	}
	s.log.Info().Int32("lesson_id", arg.ID).Msg("lesson updated")
	return out, nil
}

// Delete removes the lesson and its attendance rows. It reports false when
// the lesson did not exist.
func (s *LessonService) Delete(ctx context.Context, id int32) (bool, error) {
	var deleted bool
	err := s.tx(ctx, func(q LessonQueries) error {
		if _, err := q.DeleteAttendancesByLesson(ctx, id); err != nil {
			return apperr.FromDB(err, "Attendance")
		}
		var err error
		deleted, err = q.DeleteLesson(ctx, id)
		return apperr.FromDB(err, "Lesson")
	})
	if err != nil {
		return false, err
	}
	if deleted {
		s.log.Info().Int32("lesson_id", id).Msg("lesson deleted")
	} else {
		s.log.Warn().Int32("lesson_id", id).Msg("lesson not found")
	}
	return deleted, nil
}

func (s *LessonService) Get(ctx context.Context, id int32) (db.LessonWithGroup, error) {
	lesson, err := s.q.GetLessonWithGroup(ctx, id)
	if err != nil {
		return db.LessonWithGroup{}, apperr.FromDB(err, "Lesson")
	}
	return lesson, nil
}

func (s *LessonService) List(ctx context.Context, req PageRequest) (Page[db.LessonWithGroup], error) {
	return listPage(ctx, req, "Lesson", s.q.ListLessonsWithGroup, s.q.CountLessons)
}

func (s *LessonService) ListByGroup(ctx context.Context, groupID int32) ([]db.Lesson, error) {
	if err := ensureGroup(ctx, s.q, groupID); err != nil {
		return nil, err
	}
	lessons, err := s.q.ListLessonsByGroup(ctx, groupID)
	if err != nil {
		return nil, apperr.FromDB(err, "Lesson")
	}
	if lessons == nil {
		lessons = []db.Lesson{}
	}
	return lessons, nil
}
