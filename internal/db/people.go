package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

var (
	teachers = Table[Teacher]{Name: "teachers", Columns: "id, name"}
	parents  = Table[Parent]{Name: "parents", Columns: "id, name, additional_info"}
	students = Table[Student]{Name: "students", Columns: "id, name, birth_date, parent_id, student_group_id"}
)

// Teachers

func (q *Queries) CreateTeacher(ctx context.Context, name string) (Teacher, error) {
	return queryOne[Teacher](ctx, q.db, `
		INSERT INTO teachers (name) VALUES ($1)
		RETURNING id, name
	`, name)
}

func (q *Queries) GetTeacher(ctx context.Context, id int32) (Teacher, error) {
	return teachers.Get(ctx, q.db, id)
}

func (q *Queries) ListTeachers(ctx context.Context, limit, offset int32) ([]Teacher, error) {
	return teachers.List(ctx, q.db, limit, offset)
}

func (q *Queries) CountTeachers(ctx context.Context) (int64, error) {
	return teachers.Count(ctx, q.db)
}

func (q *Queries) TeacherExists(ctx context.Context, id int32) (bool, error) {
	return teachers.Exists(ctx, q.db, id)
}

func (q *Queries) UpdateTeacher(ctx context.Context, id int32, name *string) (Teacher, error) {
	return queryOne[Teacher](ctx, q.db, `
		UPDATE teachers SET name = COALESCE($2, name)
		WHERE id = $1
		RETURNING id, name
	`, id, name)
}

func (q *Queries) DeleteTeacher(ctx context.Context, id int32) (bool, error) {
	return teachers.Delete(ctx, q.db, id)
}

// Parents

type CreateParentParams struct {
	Name           string
	AdditionalInfo *string
}

type UpdateParentParams struct {
	ID             int32
	Name           *string
	AdditionalInfo *string
}

func (q *Queries) CreateParent(ctx context.Context, arg CreateParentParams) (Parent, error) {
	return queryOne[Parent](ctx, q.db, `
		INSERT INTO parents (name, additional_info) VALUES ($1, $2)
		RETURNING id, name, additional_info
	`, arg.Name, arg.AdditionalInfo)
}

func (q *Queries) GetParent(ctx context.Context, id int32) (Parent, error) {
	return parents.Get(ctx, q.db, id)
}

func (q *Queries) ListParents(ctx context.Context, limit, offset int32) ([]Parent, error) {
	return parents.List(ctx, q.db, limit, offset)
}

func (q *Queries) CountParents(ctx context.Context) (int64, error) {
	return parents.Count(ctx, q.db)
}

func (q *Queries) UpdateParent(ctx context.Context, arg UpdateParentParams) (Parent, error) {
	return queryOne[Parent](ctx, q.db, `
		UPDATE parents
		SET name = COALESCE($2, name),
		    additional_info = COALESCE($3, additional_info)
		WHERE id = $1
		RETURNING id, name, additional_info
	`, arg.ID, arg.Name, arg.AdditionalInfo)
}

func (q *Queries) DeleteParent(ctx context.Context, id int32) (bool, error) {
	return parents.Delete(ctx, q.db, id)
}

// Students

type CreateStudentParams struct {
	Name           string
	BirthDate      pgtype.Date
	ParentID       *int32
	StudentGroupID *int32
}

type UpdateStudentParams struct {
	ID             int32
	Name           *string
	BirthDate      pgtype.Date
	ParentID       *int32
	StudentGroupID *int32
}

const studentWithRelationsSelect = `
	SELECT s.id, s.name, s.birth_date, s.parent_id, s.student_group_id,
	       p.id, p.name, p.additional_info,
	       g.id, g.direction, g.free_spots, g.teacher_id
	FROM students s
	LEFT JOIN parents p ON p.id = s.parent_id
	LEFT JOIN student_groups g ON g.id = s.student_group_id
`

func scanStudentWithRelations(row pgx.Row) (StudentWithRelations, error) {
	var (
		out            StudentWithRelations
		parentID       *int32
		parentName     *string
		parentInfo     *string
		groupID        *int32
		groupDirection *string
		groupSpots     *int32
		groupTeacher   *int32
	)
	err := row.Scan(
		&out.ID,
		&out.Name,
		&out.BirthDate,
		&out.ParentID,
		&out.StudentGroupID,
		&parentID,
		&parentName,
		&parentInfo,
		&groupID,
		&groupDirection,
		&groupSpots,
		&groupTeacher,
	)
	if err != nil {
		return out, err
	}
	if parentID != nil {
		out.Parent = &Parent{ID: *parentID, Name: deref(parentName), AdditionalInfo: parentInfo}
	}
	if groupID != nil {
		out.StudentGroup = &StudentGroup{ID: *groupID, Direction: groupDirection, FreeSpots: deref(groupSpots), TeacherID: groupTeacher}
	}
	return out, nil
}

func (q *Queries) CreateStudent(ctx context.Context, arg CreateStudentParams) (Student, error) {
	return queryOne[Student](ctx, q.db, `
		INSERT INTO students (name, birth_date, parent_id, student_group_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, birth_date, parent_id, student_group_id
	`, arg.Name, arg.BirthDate, arg.ParentID, arg.StudentGroupID)
}

func (q *Queries) GetStudentWithRelations(ctx context.Context, id int32) (StudentWithRelations, error) {
	return scanStudentWithRelations(q.db.QueryRow(ctx, studentWithRelationsSelect+" WHERE s.id = $1", id))
}

func (q *Queries) ListStudentsWithRelations(ctx context.Context, limit, offset int32) ([]StudentWithRelations, error) {
	rows, err := q.db.Query(ctx, studentWithRelationsSelect+" ORDER BY s.id LIMIT $1 OFFSET $2", limit, offset)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (StudentWithRelations, error) {
		return scanStudentWithRelations(row)
	})
}

func (q *Queries) ListStudentsByGroup(ctx context.Context, groupID int32) ([]StudentWithRelations, error) {
	rows, err := q.db.Query(ctx, studentWithRelationsSelect+" WHERE s.student_group_id = $1 ORDER BY s.id", groupID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (StudentWithRelations, error) {
		return scanStudentWithRelations(row)
	})
}

// ListStudentIDsByGroup returns the current members of a group.
func (q *Queries) ListStudentIDsByGroup(ctx context.Context, groupID int32) ([]int32, error) {
	rows, err := q.db.Query(ctx, `SELECT id FROM students WHERE student_group_id = $1 ORDER BY id`, groupID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int32])
}

func (q *Queries) CountStudents(ctx context.Context) (int64, error) {
	return students.Count(ctx, q.db)
}

func (q *Queries) UpdateStudent(ctx context.Context, arg UpdateStudentParams) (Student, error) {
	return queryOne[Student](ctx, q.db, `
		UPDATE students
		SET name = COALESCE($2, name),
		    birth_date = COALESCE($3, birth_date),
		    parent_id = COALESCE($4, parent_id),
		    student_group_id = COALESCE($5, student_group_id)
		WHERE id = $1
		RETURNING id, name, birth_date, parent_id, student_group_id
	`, arg.ID, arg.Name, arg.BirthDate, arg.ParentID, arg.StudentGroupID)
}

func (q *Queries) DeleteStudent(ctx context.Context, id int32) (bool, error) {
	return students.Delete(ctx, q.db, id)
}

func deref[T any](v *T) T {
	if v == nil {
		var zero T
		return zero
	}
	return *v
}
