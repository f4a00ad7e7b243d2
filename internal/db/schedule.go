package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

var (
	studentGroups = Table[StudentGroup]{Name: "student_groups", Columns: "id, direction, free_spots, teacher_id"}
	lessons       = Table[Lesson]{Name: "lessons", Columns: "id, topic, scheduled_at, student_group_id"}
)

// Student groups

type CreateStudentGroupParams struct {
	Direction *string
	FreeSpots int32
	TeacherID *int32
}

type UpdateStudentGroupParams struct {
	ID        int32
	Direction *string
	FreeSpots *int32
	TeacherID *int32
}

const studentGroupWithRelationsSelect = `
	SELECT g.id, g.direction, g.free_spots, g.teacher_id, t.id, t.name
	FROM student_groups g
	LEFT JOIN teachers t ON t.id = g.teacher_id
`

func scanStudentGroupWithRelations(row pgx.Row) (StudentGroupWithRelations, error) {
	var (
		out         StudentGroupWithRelations
		teacherID   *int32
		teacherName *string
	)
	if err := row.Scan(&out.ID, &out.Direction, &out.FreeSpots, &out.TeacherID, &teacherID, &teacherName); err != nil {
		return out, err
	}
	if teacherID != nil {
		out.Teacher = &Teacher{ID: *teacherID, Name: deref(teacherName)}
	}
	return out, nil
}

func (q *Queries) CreateStudentGroup(ctx context.Context, arg CreateStudentGroupParams) (StudentGroup, error) {
	return queryOne[StudentGroup](ctx, q.db, `
		INSERT INTO student_groups (direction, free_spots, teacher_id)
		VALUES ($1, $2, $3)
		RETURNING id, direction, free_spots, teacher_id
	`, arg.Direction, arg.FreeSpots, arg.TeacherID)
}

func (q *Queries) GetStudentGroupWithRelations(ctx context.Context, id int32) (StudentGroupWithRelations, error) {
	return scanStudentGroupWithRelations(q.db.QueryRow(ctx, studentGroupWithRelationsSelect+" WHERE g.id = $1", id))
}

func (q *Queries) ListStudentGroupsWithRelations(ctx context.Context, limit, offset int32) ([]StudentGroupWithRelations, error) {
	rows, err := q.db.Query(ctx, studentGroupWithRelationsSelect+" ORDER BY g.id LIMIT $1 OFFSET $2", limit, offset)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (StudentGroupWithRelations, error) {
		return scanStudentGroupWithRelations(row)
	})
}

func (q *Queries) ListStudentGroupsByTeacher(ctx context.Context, teacherID int32) ([]StudentGroup, error) {
	return studentGroups.ListBy(ctx, q.db, "teacher_id", teacherID)
}

func (q *Queries) CountStudentGroups(ctx context.Context) (int64, error) {
	return studentGroups.Count(ctx, q.db)
}

func (q *Queries) StudentGroupExists(ctx context.Context, id int32) (bool, error) {
	return studentGroups.Exists(ctx, q.db, id)
}

func (q *Queries) UpdateStudentGroup(ctx context.Context, arg UpdateStudentGroupParams) (StudentGroup, error) {
	return queryOne[StudentGroup](ctx, q.db, `
		UPDATE student_groups
		SET direction = COALESCE($2, direction),
		    free_spots = COALESCE($3, free_spots),
		    teacher_id = COALESCE($4, teacher_id)
		WHERE id = $1
		RETURNING id, direction, free_spots, teacher_id
	`, arg.ID, arg.Direction, arg.FreeSpots, arg.TeacherID)
}

func (q *Queries) DeleteStudentGroup(ctx context.Context, id int32) (bool, error) {
	return studentGroups.Delete(ctx, q.db, id)
}

// Lessons

type CreateLessonParams struct {
	Topic          string
	ScheduledAt    pgtype.Date
	StudentGroupID *int32
}

// UpdateLessonParams leaves Topic and ScheduledAt unchanged when unset.
// StudentGroupID always replaces the stored value.
type UpdateLessonParams struct {
	ID             int32
	Topic          *string
	ScheduledAt    pgtype.Date
	StudentGroupID *int32
}

const lessonWithGroupSelect = `
	SELECT l.id, l.topic, l.scheduled_at, l.student_group_id,
	       g.id, g.direction, g.free_spots, g.teacher_id
	FROM lessons l
	LEFT JOIN student_groups g ON g.id = l.student_group_id
`

func scanLessonWithGroup(row pgx.Row) (LessonWithGroup, error) {
	var (
		out       LessonWithGroup
		groupID   *int32
		direction *string
		freeSpots *int32
		teacherID *int32
	)
	err := row.Scan(
		&out.ID,
		&out.Topic,
		&out.ScheduledAt,
		&out.StudentGroupID,
		&groupID,
		&direction,
		&freeSpots,
		&teacherID,
	)
	if err != nil {
		return out, err
	}
	if groupID != nil {
		out.StudentGroup = &StudentGroup{ID: *groupID, Direction: direction, FreeSpots: deref(freeSpots), TeacherID: teacherID}
	}
	return out, nil
}

func (q *Queries) CreateLesson(ctx context.Context, arg CreateLessonParams) (Lesson, error) {
	return queryOne[Lesson](ctx, q.db, `
		INSERT INTO lessons (topic, scheduled_at, student_group_id)
		VALUES ($1, $2, $3)
		RETURNING id, topic, scheduled_at, student_group_id
	`, arg.Topic, arg.ScheduledAt, arg.StudentGroupID)
}

// GetLessonForUpdate locks the lesson row until the surrounding transaction
// ends.
func (q *Queries) GetLessonForUpdate(ctx context.Context, id int32) (Lesson, error) {
	return queryOne[Lesson](ctx, q.db, `
		SELECT id, topic, scheduled_at, student_group_id
		FROM lessons
		WHERE id = $1
		FOR UPDATE
	`, id)
}

func (q *Queries) GetLessonWithGroup(ctx context.Context, id int32) (LessonWithGroup, error) {
	return scanLessonWithGroup(q.db.QueryRow(ctx, lessonWithGroupSelect+" WHERE l.id = $1", id))
}

func (q *Queries) ListLessonsWithGroup(ctx context.Context, limit, offset int32) ([]LessonWithGroup, error) {
	rows, err := q.db.Query(ctx, lessonWithGroupSelect+" ORDER BY l.id LIMIT $1 OFFSET $2", limit, offset)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (LessonWithGroup, error) {
		return scanLessonWithGroup(row)
	})
}

func (q *Queries) ListLessonsByGroup(ctx context.Context, groupID int32) ([]Lesson, error) {
	return lessons.ListBy(ctx, q.db, "student_group_id", groupID)
}

func (q *Queries) CountLessons(ctx context.Context) (int64, error) {
	return lessons.Count(ctx, q.db)
}

func (q *Queries) UpdateLesson(ctx context.Context, arg UpdateLessonParams) (Lesson, error) {
	return queryOne[Lesson](ctx, q.db, `
		UPDATE lessons
		SET topic = COALESCE($2, topic),
		    scheduled_at = COALESCE($3, scheduled_at),
		    student_group_id = $4
		WHERE id = $1
		RETURNING id, topic, scheduled_at, student_group_id
	`, arg.ID, arg.Topic, arg.ScheduledAt, arg.StudentGroupID)
}

func (q *Queries) DeleteLesson(ctx context.Context, id int32) (bool, error) {
	return lessons.Delete(ctx, q.db, id)
}
