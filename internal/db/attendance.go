package db

import (
	"context"

	"github.com/jackc/pgx/v5"
)

var attendances = Table[Attendance]{Name: "attendances", Columns: "id, student_id, lesson_id, is_present, skip_reason"}

type CreateAttendanceParams struct {
	StudentID  int32
	LessonID   int32
	IsPresent  bool
	SkipReason *string
}

type UpdateAttendanceParams struct {
	ID         int32
	IsPresent  *bool
	SkipReason *string
}

const attendanceWithRelationsSelect = `
	SELECT a.id, a.student_id, a.lesson_id, a.is_present, a.skip_reason,
	       s.id, s.name, s.birth_date, s.parent_id, s.student_group_id,
	       l.id, l.topic, l.scheduled_at, l.student_group_id
	FROM attendances a
	JOIN students s ON s.id = a.student_id
	JOIN lessons l ON l.id = a.lesson_id
`

func scanAttendanceWithRelations(row pgx.Row) (AttendanceWithRelations, error) {
	var out AttendanceWithRelations
	err := row.Scan(
		&out.ID,
		&out.StudentID,
		&out.LessonID,
		&out.IsPresent,
		&out.SkipReason,
		&out.Student.ID,
		&out.Student.Name,
		&out.Student.BirthDate,
		&out.Student.ParentID,
		&out.Student.StudentGroupID,
		&out.Lesson.ID,
		&out.Lesson.Topic,
		&out.Lesson.ScheduledAt,
		&out.Lesson.StudentGroupID,
	)
	return out, err
}

func (q *Queries) CreateAttendance(ctx context.Context, arg CreateAttendanceParams) (Attendance, error) {
	return queryOne[Attendance](ctx, q.db, `
		INSERT INTO attendances (student_id, lesson_id, is_present, skip_reason)
		VALUES ($1, $2, $3, $4)
		RETURNING id, student_id, lesson_id, is_present, skip_reason
	`, arg.StudentID, arg.LessonID, arg.IsPresent, arg.SkipReason)
}

// CreateAttendances inserts all rows in a single statement.
func (q *Queries) CreateAttendances(ctx context.Context, args []CreateAttendanceParams) ([]Attendance, error) {
	if len(args) == 0 {
		return nil, nil
	}
	studentIDs := make([]int32, len(args))
	lessonIDs := make([]int32, len(args))
	present := make([]bool, len(args))
	reasons := make([]*string, len(args))
	for i, arg := range args {
		studentIDs[i] = arg.StudentID
		lessonIDs[i] = arg.LessonID
		present[i] = arg.IsPresent
		reasons[i] = arg.SkipReason
	}
	return queryAll[Attendance](ctx, q.db, `
		INSERT INTO attendances (student_id, lesson_id, is_present, skip_reason)
		SELECT * FROM unnest($1::int4[], $2::int4[], $3::bool[], $4::text[])
		RETURNING id, student_id, lesson_id, is_present, skip_reason
	`, studentIDs, lessonIDs, present, reasons)
}

func (q *Queries) GetAttendance(ctx context.Context, id int32) (Attendance, error) {
	return attendances.Get(ctx, q.db, id)
}

func (q *Queries) GetAttendanceWithRelations(ctx context.Context, id int32) (AttendanceWithRelations, error) {
	return scanAttendanceWithRelations(q.db.QueryRow(ctx, attendanceWithRelationsSelect+" WHERE a.id = $1", id))
}

func (q *Queries) ListAttendances(ctx context.Context, limit, offset int32) ([]Attendance, error) {
	return attendances.List(ctx, q.db, limit, offset)
}

func (q *Queries) CountAttendances(ctx context.Context) (int64, error) {
	return attendances.Count(ctx, q.db)
}

func (q *Queries) ListAttendancesByLesson(ctx context.Context, lessonID int32) ([]AttendanceWithRelations, error) {
	rows, err := q.db.Query(ctx, attendanceWithRelationsSelect+" WHERE a.lesson_id = $1 ORDER BY a.id", lessonID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (AttendanceWithRelations, error) {
		return scanAttendanceWithRelations(row)
	})
}

func (q *Queries) UpdateAttendance(ctx context.Context, arg UpdateAttendanceParams) (Attendance, error) {
	return queryOne[Attendance](ctx, q.db, `
		UPDATE attendances
		SET is_present = COALESCE($2, is_present),
		    skip_reason = COALESCE($3, skip_reason)
		WHERE id = $1
		RETURNING id, student_id, lesson_id, is_present, skip_reason
	`, arg.ID, arg.IsPresent, arg.SkipReason)
}

func (q *Queries) DeleteAttendance(ctx context.Context, id int32) (bool, error) {
	return attendances.Delete(ctx, q.db, id)
}

// DeleteAttendancesByGroupLessons removes the rows of every lesson currently
// bound to the group.
func (q *Queries) DeleteAttendancesByGroupLessons(ctx context.Context, groupID int32) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		DELETE FROM attendances
		WHERE lesson_id IN (SELECT id FROM lessons WHERE student_group_id = $1)
	`, groupID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteAttendancesByLesson reports how many rows were removed.
func (q *Queries) DeleteAttendancesByLesson(ctx context.Context, lessonID int32) (int64, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM attendances WHERE lesson_id = $1`, lessonID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
