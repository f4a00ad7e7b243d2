package service

import (
	"context"

	"github.com/rs/zerolog"

	"schoolschedule/internal/apperr"
	"schoolschedule/internal/db"
	"schoolschedule/internal/metrics"
)

type StudentQueries interface {
	StudentGroupExists(ctx context.Context, id int32) (bool, error)
	CreateStudent(ctx context.Context, arg db.CreateStudentParams) (db.Student, error)
	GetStudentWithRelations(ctx context.Context, id int32) (db.StudentWithRelations, error)
	ListStudentsWithRelations(ctx context.Context, limit, offset int32) ([]db.StudentWithRelations, error)
	ListStudentsByGroup(ctx context.Context, groupID int32) ([]db.StudentWithRelations, error)
	CountStudents(ctx context.Context) (int64, error)
	UpdateStudent(ctx context.Context, arg db.UpdateStudentParams) (db.Student, error)
	DeleteStudent(ctx context.Context, id int32) (bool, error)
}

type StudentService struct {
	q   StudentQueries
	log zerolog.Logger
}

func NewStudentService(q StudentQueries, log zerolog.Logger) *StudentService {
	return &StudentService{q: q, log: log.With().Str("component", "student_service").Logger()}
}

func (s *StudentService) Create(ctx context.Context, arg db.CreateStudentParams) (db.StudentWithRelations, error) {
	student, err := s.q.CreateStudent(ctx, arg)
	if err != nil {
		return db.StudentWithRelations{}, apperr.FromDB(err, "Student")
	}
	s.log.Info().Int32("student_id", student.ID).Msg("student created")
	return s.Get(ctx, student.ID)
}

func (s *StudentService) Get(ctx context.Context, id int32) (db.StudentWithRelations, error) {
	student, err := s.q.GetStudentWithRelations(ctx, id)
	if err != nil {
		return db.StudentWithRelations{}, apperr.FromDB(err, "Student")
	}
	return student, nil
}

func (s *StudentService) List(ctx context.Context, req PageRequest) (Page[db.StudentWithRelations], error) {
	return listPage(ctx, req, "Student", s.q.ListStudentsWithRelations, s.q.CountStudents)
}

func (s *StudentService) ListByGroup(ctx context.Context, groupID int32) ([]db.StudentWithRelations, error) {
	if err := ensureGroup(ctx, s.q, groupID); err != nil {
		return nil, err
	}
	students, err := s.q.ListStudentsByGroup(ctx, groupID)
	if err != nil {
		return nil, apperr.FromDB(err, "Student")
	}
	if students == nil {
		students = []db.StudentWithRelations{}
	}
	return students, nil
}

// Update changes the student's own fields only. Lessons already bound to a
// group keep their attendance rows until they are regrouped.
func (s *StudentService) Update(ctx context.Context, arg db.UpdateStudentParams) (db.StudentWithRelations, error) {
	if _, err := s.q.UpdateStudent(ctx, arg); err != nil {
		return db.StudentWithRelations{}, apperr.FromDB(err, "Student")
	}
	s.log.Info().Int32("student_id", arg.ID).Msg("student updated")
	return s.Get(ctx, arg.ID)
}

func (s *StudentService) Delete(ctx context.Context, id int32) (bool, error) {
	deleted, err := s.q.DeleteStudent(ctx, id)
	if err != nil {
		return false, apperr.FromDB(err, "Student")
	}
	if !deleted {
		s.log.Warn().Int32("student_id", id).Msg("student not found")
	}
	return deleted, nil
}

type ParentQueries interface {
	CreateParent(ctx context.Context, arg db.CreateParentParams) (db.Parent, error)
	GetParent(ctx context.Context, id int32) (db.Parent, error)
	ListParents(ctx context.Context, limit, offset int32) ([]db.Parent, error)
	CountParents(ctx context.Context) (int64, error)
	UpdateParent(ctx context.Context, arg db.UpdateParentParams) (db.Parent, error)
	DeleteParent(ctx context.Context, id int32) (bool, error)
}

type ParentService struct {
	q   ParentQueries
	log zerolog.Logger
}

func NewParentService(q ParentQueries, log zerolog.Logger) *ParentService {
	return &ParentService{q: q, log: log.With().Str("component", "parent_service").Logger()}
}

func (s *ParentService) Create(ctx context.Context, arg db.CreateParentParams) (db.Parent, error) {
	parent, err := s.q.CreateParent(ctx, arg)
	if err != nil {
		return db.Parent{}, apperr.FromDB(err, "Parent")
	}
	s.log.Info().Int32("parent_id", parent.ID).Msg("parent created")
	return parent, nil
}

func (s *ParentService) Get(ctx context.Context, id int32) (db.Parent, error) {
	parent, err := s.q.GetParent(ctx, id)
	if err != nil {
		return db.Parent{}, apperr.FromDB(err, "Parent")
	}
	return parent, nil
}

func (s *ParentService) List(ctx context.Context, req PageRequest) (Page[db.Parent], error) {
	return listPage(ctx, req, "Parent", s.q.ListParents, s.q.CountParents)
}

func (s *ParentService) Update(ctx context.Context, arg db.UpdateParentParams) (db.Parent, error) {
	parent, err := s.q.UpdateParent(ctx, arg)
	if err != nil {
		return db.Parent{}, apperr.FromDB(err, "Parent")
	}
	return parent, nil
}

func (s *ParentService) Delete(ctx context.Context, id int32) (bool, error) {
	deleted, err := s.q.DeleteParent(ctx, id)
	if err != nil {
		return false, apperr.FromDB(err, "Parent")
	}
	return deleted, nil
}

type TeacherQueries interface {
	CreateTeacher(ctx context.Context, name string) (db.Teacher, error)
	GetTeacher(ctx context.Context, id int32) (db.Teacher, error)
	ListTeachers(ctx context.Context, limit, offset int32) ([]db.Teacher, error)
	CountTeachers(ctx context.Context) (int64, error)
	ListStudentGroupsByTeacher(ctx context.Context, teacherID int32) ([]db.StudentGroup, error)
	UpdateTeacher(ctx context.Context, id int32, name *string) (db.Teacher, error)
	DeleteTeacher(ctx context.Context, id int32) (bool, error)
}

// TeacherBlobs drops everything stored for a teacher. storage.FS implements it.
type TeacherBlobs interface {
	RemoveTeacher(teacherID int32) error
}

type TeacherService struct {
	q     TeacherQueries
	blobs TeacherBlobs
	log   zerolog.Logger
}

func NewTeacherService(q TeacherQueries, blobs TeacherBlobs, log zerolog.Logger) *TeacherService {
	return &TeacherService{q: q, blobs: blobs, log: log.With().Str("component", "teacher_service").Logger()}
}

func (s *TeacherService) Create(ctx context.Context, name string) (db.TeacherWithGroups, error) {
	teacher, err := s.q.CreateTeacher(ctx, name)
	if err != nil {
		return db.TeacherWithGroups{}, apperr.FromDB(err, "Teacher")
	}
	s.log.Info().Int32("teacher_id", teacher.ID).Msg("teacher created")
	return db.TeacherWithGroups{Teacher: teacher, StudentGroups: []db.StudentGroup{}}, nil
}

func (s *TeacherService) Get(ctx context.Context, id int32) (db.TeacherWithGroups, error) {
	teacher, err := s.q.GetTeacher(ctx, id)
	if err != nil {
		return db.TeacherWithGroups{}, apperr.FromDB(err, "Teacher")
	}
	return s.withGroups(ctx, teacher)
}

func (s *TeacherService) List(ctx context.Context, req PageRequest) (Page[db.Teacher], error) {
	return listPage(ctx, req, "Teacher", s.q.ListTeachers, s.q.CountTeachers)
}

func (s *TeacherService) Update(ctx context.Context, id int32, name *string) (db.TeacherWithGroups, error) {
	teacher, err := s.q.UpdateTeacher(ctx, id, name)
	if err != nil {
		return db.TeacherWithGroups{}, apperr.FromDB(err, "Teacher")
	}
	return s.withGroups(ctx, teacher)
}

// Delete removes the teacher. Document rows go with it through the foreign
// key; the stored files are removed afterwards. A failed file removal is
// logged and left to the orphan sweep.
func (s *TeacherService) Delete(ctx context.Context, id int32) (bool, error) {
	deleted, err := s.q.DeleteTeacher(ctx, id)
	if err != nil {
		return false, apperr.FromDB(err, "Teacher")
	}
	if !deleted {
		return false, nil
	}
	if err := s.blobs.RemoveTeacher(id); err != nil {
		s.log.Error().Err(err).Int32("teacher_id", id).Msg("remove teacher documents failed")
	}
	s.log.Info().Int32("teacher_id", id).Msg("teacher deleted")
	return true, nil
}

func (s *TeacherService) withGroups(ctx context.Context, teacher db.Teacher) (db.TeacherWithGroups, error) {
	groups, err := s.q.ListStudentGroupsByTeacher(ctx, teacher.ID)
	if err != nil {
		return db.TeacherWithGroups{}, apperr.FromDB(err, "Student group")
	}
	if groups == nil {
		groups = []db.StudentGroup{}
	}
	return db.TeacherWithGroups{Teacher: teacher, StudentGroups: groups}, nil
}

type StudentGroupQueries interface {
	CreateStudentGroup(ctx context.Context, arg db.CreateStudentGroupParams) (db.StudentGroup, error)
	GetStudentGroupWithRelations(ctx context.Context, id int32) (db.StudentGroupWithRelations, error)
	ListStudentGroupsWithRelations(ctx context.Context, limit, offset int32) ([]db.StudentGroupWithRelations, error)
	CountStudentGroups(ctx context.Context) (int64, error)
	UpdateStudentGroup(ctx context.Context, arg db.UpdateStudentGroupParams) (db.StudentGroup, error)
	DeleteAttendancesByGroupLessons(ctx context.Context, groupID int32) (int64, error)
	DeleteStudentGroup(ctx context.Context, id int32) (bool, error)
}

type StudentGroupService struct {
	q   StudentGroupQueries
	tx  txRunner[StudentGroupQueries]
	log zerolog.Logger
}

func NewStudentGroupService(store *db.Store, log zerolog.Logger) *StudentGroupService {
	return newStudentGroupService(store.Queries, storeTx(store, func(q *db.Queries) StudentGroupQueries { return q }), log)
}

func newStudentGroupService(q StudentGroupQueries, tx txRunner[StudentGroupQueries], log zerolog.Logger) *StudentGroupService {
	return &StudentGroupService{q: q, tx: tx, log: log.With().Str("component", "student_group_service").Logger()}
}

func (s *StudentGroupService) Create(ctx context.Context, arg db.CreateStudentGroupParams) (db.StudentGroupWithRelations, error) {
	group, err := s.q.CreateStudentGroup(ctx, arg)
	if err != nil {
		return db.StudentGroupWithRelations{}, apperr.FromDB(err, "Student group")
	}
	s.log.Info().Int32("group_id", group.ID).Msg("student group created")
	return s.Get(ctx, group.ID)
}

func (s *StudentGroupService) Get(ctx context.Context, id int32) (db.StudentGroupWithRelations, error) {
	group, err := s.q.GetStudentGroupWithRelations(ctx, id)
	if err != nil {
		return db.StudentGroupWithRelations{}, apperr.FromDB(err, "Student group")
	}
	return group, nil
}

func (s *StudentGroupService) List(ctx context.Context, req PageRequest) (Page[db.StudentGroupWithRelations], error) {
	return listPage(ctx, req, "Student group", s.q.ListStudentGroupsWithRelations, s.q.CountStudentGroups)
}

func (s *StudentGroupService) Update(ctx context.Context, arg db.UpdateStudentGroupParams) (db.StudentGroupWithRelations, error) {
	if _, err := s.q.UpdateStudentGroup(ctx, arg); err != nil {
		return db.StudentGroupWithRelations{}, apperr.FromDB(err, "Student group")
	}
	s.log.Info().Int32("group_id", arg.ID).Msg("student group updated")
	return s.Get(ctx, arg.ID)
}

// Delete removes the group. Lessons bound to it lose their group through the
// foreign key, so their attendance rows are removed in the same transaction.
func (s *StudentGroupService) Delete(ctx context.Context, id int32) (bool, error) {
	var deleted bool
	var cleared int64
	err := s.tx(ctx, func(q StudentGroupQueries) error {
		var err error
		cleared, err = q.DeleteAttendancesByGroupLessons(ctx, id)
		if err != nil {
			return apperr.FromDB(err, "Attendance")
		}
		deleted, err = q.DeleteStudentGroup(ctx, id)
		return apperr.FromDB(err, "Student group")
	})
	if err != nil {
		return false, err
	}
	if deleted {
		metrics.AttendanceRowsDeleted.Add(float64(cleared))
		s.log.Info().Int32("group_id", id).Int64("attendance_deleted", cleared).Msg("student group deleted")
	} else {
		s.log.Warn().Int32("group_id", id).Msg("student group not found")
	}
	return deleted, nil
}
