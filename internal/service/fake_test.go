package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"schoolschedule/internal/db"
)

// memStore is an in-memory stand-in for *db.Queries. tx snapshots the maps
// and restores them when fn fails.
type memStore struct {
	nextID      int32
	teachers    map[int32]db.Teacher
	parents     map[int32]db.Parent
	groups      map[int32]db.StudentGroup
	students    map[int32]db.Student
	lessons     map[int32]db.Lesson
	attendances map[int32]db.Attendance
	documents   map[uuid.UUID]db.Document
	users       map[int32]db.User

	failCreateAttendances error
	txCount               int
}

func newMemStore() *memStore {
	return &memStore{
		teachers:    map[int32]db.Teacher{},
		parents:     map[int32]db.Parent{},
		groups:      map[int32]db.StudentGroup{},
		students:    map[int32]db.Student{},
		lessons:     map[int32]db.Lesson{},
		attendances: map[int32]db.Attendance{},
		documents:   map[uuid.UUID]db.Document{},
		users:       map[int32]db.User{},
	}
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// atomically runs fn and restores every map when it fails.
func (m *memStore) atomically(fn func() error) error {
	m.txCount++
	snapshot := *m
	snapshot.teachers = cloneMap(m.teachers)
	snapshot.parents = cloneMap(m.parents)
	snapshot.groups = cloneMap(m.groups)
	snapshot.students = cloneMap(m.students)
	snapshot.lessons = cloneMap(m.lessons)
	snapshot.attendances = cloneMap(m.attendances)
	snapshot.documents = cloneMap(m.documents)
	snapshot.users = cloneMap(m.users)
	if err := fn(); err != nil {
		snapshot.txCount = m.txCount
		*m = snapshot
		return err
	}
	return nil
}

func (m *memStore) tx(_ context.Context, fn func(LessonQueries) error) error {
	return m.atomically(func() error { return fn(m) })
}

func (m *memStore) groupTx(_ context.Context, fn func(StudentGroupQueries) error) error {
	return m.atomically(func() error { return fn(m) })
}

func (m *memStore) id() int32 {
	m.nextID++
	return m.nextID
}

func sortedValues[K comparable, V any](in map[K]V, less func(a, b V) bool) []V {
	out := make([]V, 0, len(in))
	for _, v := range in {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func pageOf[T any](items []T, limit, offset int32) []T {
	if int(offset) >= len(items) {
		return []T{}
	}
	end := int(offset + limit)
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

// fixtures

func (m *memStore) addTeacher(name string) db.Teacher {
	t := db.Teacher{ID: m.id(), Name: name}
	m.teachers[t.ID] = t
	return t
}

func (m *memStore) addGroup() db.StudentGroup {
	g := db.StudentGroup{ID: m.id(), FreeSpots: 10}
	m.groups[g.ID] = g
	return g
}

func (m *memStore) addStudent(name string, groupID int32) db.Student {
	gid := groupID
	s := db.Student{ID: m.id(), Name: name, StudentGroupID: &gid}
	m.students[s.ID] = s
	return s
}

func (m *memStore) attendanceFor(lessonID int32) []db.Attendance {
	var out []db.Attendance
	for _, a := range sortedValues(m.attendances, func(a, b db.Attendance) bool { return a.ID < b.ID }) {
		if a.LessonID == lessonID {
			out = append(out, a)
		}
	}
	return out
}

// groups and students

func (m *memStore) StudentGroupExists(_ context.Context, id int32) (bool, error) {
	_, ok := m.groups[id]
	return ok, nil
}

func (m *memStore) ListStudentIDsByGroup(_ context.Context, groupID int32) ([]int32, error) {
	var ids []int32
	for _, s := range sortedValues(m.students, func(a, b db.Student) bool { return a.ID < b.ID }) {
		if s.StudentGroupID != nil && *s.StudentGroupID == groupID {
			ids = append(ids, s.ID)
		}
	}
	return ids, nil
}

// attendances

func (m *memStore) CreateAttendances(_ context.Context, args []db.CreateAttendanceParams) ([]db.Attendance, error) {
	if m.failCreateAttendances != nil {
		return nil, m.failCreateAttendances
	}
	if len(args) == 0 {
		return nil, nil
	}
	out := make([]db.Attendance, 0, len(args))
	for _, arg := range args {
		a := db.Attendance{ID: m.id(), StudentID: arg.StudentID, LessonID: arg.LessonID, IsPresent: arg.IsPresent, SkipReason: arg.SkipReason}
		m.attendances[a.ID] = a
		out = append(out, a)
	}
	return out, nil
}

func (m *memStore) DeleteAttendancesByLesson(_ context.Context, lessonID int32) (int64, error) {
	var n int64
	for id, a := range m.attendances {
		if a.LessonID == lessonID {
			delete(m.attendances, id)
			n++
		}
	}
	return n, nil
}

func (m *memStore) CreateAttendance(ctx context.Context, arg db.CreateAttendanceParams) (db.Attendance, error) {
	rows, err := m.CreateAttendances(ctx, []db.CreateAttendanceParams{arg})
	if err != nil {
		return db.Attendance{}, err
	}
	return rows[0], nil
}

func (m *memStore) withRelations(a db.Attendance) db.AttendanceWithRelations {
	return db.AttendanceWithRelations{Attendance: a, Student: m.students[a.StudentID], Lesson: m.lessons[a.LessonID]}
}

func (m *memStore) GetAttendanceWithRelations(_ context.Context, id int32) (db.AttendanceWithRelations, error) {
	a, ok := m.attendances[id]
	if !ok {
		return db.AttendanceWithRelations{}, pgx.ErrNoRows
	}
	return m.withRelations(a), nil
}

func (m *memStore) ListAttendances(_ context.Context, limit, offset int32) ([]db.Attendance, error) {
	all := sortedValues(m.attendances, func(a, b db.Attendance) bool { return a.ID < b.ID })
	return pageOf(all, limit, offset), nil
}

func (m *memStore) CountAttendances(context.Context) (int64, error) {
	return int64(len(m.attendances)), nil
}

func (m *memStore) ListAttendancesByLesson(_ context.Context, lessonID int32) ([]db.AttendanceWithRelations, error) {
	var out []db.AttendanceWithRelations
	for _, a := range m.attendanceFor(lessonID) {
		out = append(out, m.withRelations(a))
	}
	return out, nil
}

func (m *memStore) UpdateAttendance(_ context.Context, arg db.UpdateAttendanceParams) (db.Attendance, error) {
	a, ok := m.attendances[arg.ID]
	if !ok {
		return db.Attendance{}, pgx.ErrNoRows
	}
	if arg.IsPresent != nil {
		a.IsPresent = *arg.IsPresent
	}
	if arg.SkipReason != nil {
		a.SkipReason = arg.SkipReason
	}
	m.attendances[a.ID] = a
	return a, nil
}

func (m *memStore) DeleteAttendance(_ context.Context, id int32) (bool, error) {
	_, ok := m.attendances[id]
	delete(m.attendances, id)
	return ok, nil
}

// lessons

func (m *memStore) CreateLesson(_ context.Context, arg db.CreateLessonParams) (db.Lesson, error) {
	l := db.Lesson{ID: m.id(), Topic: arg.Topic, ScheduledAt: arg.ScheduledAt, StudentGroupID: arg.StudentGroupID}
	m.lessons[l.ID] = l
	return l, nil
}

func (m *memStore) GetLessonForUpdate(_ context.Context, id int32) (db.Lesson, error) {
	l, ok := m.lessons[id]
	if !ok {
		return db.Lesson{}, pgx.ErrNoRows
	}
	return l, nil
}

func (m *memStore) lessonWithGroup(l db.Lesson) db.LessonWithGroup {
	out := db.LessonWithGroup{Lesson: l}
	if l.StudentGroupID != nil {
		if g, ok := m.groups[*l.StudentGroupID]; ok {
			out.StudentGroup = &g
		}
	}
	return out
}

func (m *memStore) GetLessonWithGroup(_ context.Context, id int32) (db.LessonWithGroup, error) {
	l, ok := m.lessons[id]
	if !ok {
		return db.LessonWithGroup{}, pgx.ErrNoRows
	}
	return m.lessonWithGroup(l), nil
}

func (m *memStore) ListLessonsWithGroup(_ context.Context, limit, offset int32) ([]db.LessonWithGroup, error) {
	var out []db.LessonWithGroup
	for _, l := range sortedValues(m.lessons, func(a, b db.Lesson) bool { return a.ID < b.ID }) {
		out = append(out, m.lessonWithGroup(l))
	}
	return pageOf(out, limit, offset), nil
}

func (m *memStore) ListLessonsByGroup(_ context.Context, groupID int32) ([]db.Lesson, error) {
	var out []db.Lesson
	for _, l := range sortedValues(m.lessons, func(a, b db.Lesson) bool { return a.ID < b.ID }) {
		if l.StudentGroupID != nil && *l.StudentGroupID == groupID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memStore) CountLessons(context.Context) (int64, error) {
	return int64(len(m.lessons)), nil
}

func (m *memStore) UpdateLesson(_ context.Context, arg db.UpdateLessonParams) (db.Lesson, error) {
	l, ok := m.lessons[arg.ID]
	if !ok {
		return db.Lesson{}, pgx.ErrNoRows
	}
	if arg.Topic != nil {
		l.Topic = *arg.Topic
	}
	if arg.ScheduledAt.Valid {
		l.ScheduledAt = arg.ScheduledAt
	}
	l.StudentGroupID = arg.StudentGroupID
	m.lessons[l.ID] = l
	return l, nil
}

func (m *memStore) DeleteLesson(_ context.Context, id int32) (bool, error) {
	_, ok := m.lessons[id]
	delete(m.lessons, id)
	return ok, nil
}

// teachers and documents

func (m *memStore) TeacherExists(_ context.Context, id int32) (bool, error) {
	_, ok := m.teachers[id]
	return ok, nil
}

func (m *memStore) CreateDocument(_ context.Context, name string, teacherID int32) (db.Document, error) {
	d := db.Document{ID: uuid.New(), Name: name, UploadedAt: time.Now().UTC(), TeacherID: teacherID}
	m.documents[d.ID] = d
	return d, nil
}

func (m *memStore) GetDocument(_ context.Context, id uuid.UUID) (db.Document, error) {
	d, ok := m.documents[id]
	if !ok {
		return db.Document{}, pgx.ErrNoRows
	}
	return d, nil
}

func (m *memStore) ListDocumentsByTeacher(_ context.Context, teacherID int32) ([]db.Document, error) {
	var out []db.Document
	for _, d := range sortedValues(m.documents, func(a, b db.Document) bool { return a.UploadedAt.Before(b.UploadedAt) }) {
		if d.TeacherID == teacherID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memStore) DocumentExists(_ context.Context, id uuid.UUID) (bool, error) {
	_, ok := m.documents[id]
	return ok, nil
}

func (m *memStore) DeleteDocument(_ context.Context, id uuid.UUID) (bool, error) {
	_, ok := m.documents[id]
	delete(m.documents, id)
	return ok, nil
}

// users

func (m *memStore) CreateUser(_ context.Context, arg db.CreateUserParams) (db.User, error) {
	u := db.User{ID: m.id(), Username: arg.Username, PasswordHash: arg.PasswordHash, Role: arg.Role, FullName: arg.FullName}
	m.users[u.ID] = u
	return u, nil
}

func (m *memStore) GetUser(_ context.Context, id int32) (db.User, error) {
	u, ok := m.users[id]
	if !ok {
		return db.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (m *memStore) GetUserByUsername(_ context.Context, username string) (db.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return db.User{}, pgx.ErrNoRows
}

func (m *memStore) ListUsers(_ context.Context, limit, offset int32) ([]db.User, error) {
	all := sortedValues(m.users, func(a, b db.User) bool { return a.ID < b.ID })
	return pageOf(all, limit, offset), nil
}

func (m *memStore) CountUsers(context.Context) (int64, error) {
	return int64(len(m.users)), nil
}

func (m *memStore) UpdateUser(_ context.Context, arg db.UpdateUserParams) (db.User, error) {
	u, ok := m.users[arg.ID]
	if !ok {
		return db.User{}, pgx.ErrNoRows
	}
	if arg.Username != nil {
		u.Username = *arg.Username
	}
	if arg.PasswordHash != nil {
		u.PasswordHash = *arg.PasswordHash
	}
	if arg.Role != nil {
		u.Role = *arg.Role
	}
	if arg.FullName != nil {
		u.FullName = arg.FullName
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *memStore) DeleteUser(_ context.Context, id int32) (bool, error) {
	_, ok := m.users[id]
	delete(m.users, id)
	return ok, nil
}

// people

func (m *memStore) CreateParent(_ context.Context, arg db.CreateParentParams) (db.Parent, error) {
	p := db.Parent{ID: m.id(), Name: arg.Name, AdditionalInfo: arg.AdditionalInfo}
	m.parents[p.ID] = p
	return p, nil
}

func (m *memStore) GetParent(_ context.Context, id int32) (db.Parent, error) {
	p, ok := m.parents[id]
	if !ok {
		return db.Parent{}, pgx.ErrNoRows
	}
	return p, nil
}

func (m *memStore) ListParents(_ context.Context, limit, offset int32) ([]db.Parent, error) {
	all := sortedValues(m.parents, func(a, b db.Parent) bool { return a.ID < b.ID })
	return pageOf(all, limit, offset), nil
}

func (m *memStore) CountParents(context.Context) (int64, error) {
	return int64(len(m.parents)), nil
}

func (m *memStore) UpdateParent(_ context.Context, arg db.UpdateParentParams) (db.Parent, error) {
	p, ok := m.parents[arg.ID]
	if !ok {
		return db.Parent{}, pgx.ErrNoRows
	}
	if arg.Name != nil {
		p.Name = *arg.Name
	}
	if arg.AdditionalInfo != nil {
		p.AdditionalInfo = arg.AdditionalInfo
	}
	m.parents[p.ID] = p
	return p, nil
}

func (m *memStore) DeleteParent(_ context.Context, id int32) (bool, error) {
	_, ok := m.parents[id]
	delete(m.parents, id)
	for sid, st := range m.students {
		if st.ParentID != nil && *st.ParentID == id {
			st.ParentID = nil
			m.students[sid] = st
		}
	}
	return ok, nil
}

func (m *memStore) CreateStudent(_ context.Context, arg db.CreateStudentParams) (db.Student, error) {
	st := db.Student{ID: m.id(), Name: arg.Name, BirthDate: arg.BirthDate, ParentID: arg.ParentID, StudentGroupID: arg.StudentGroupID}
	m.students[st.ID] = st
	return st, nil
}

func (m *memStore) studentWithRelations(st db.Student) db.StudentWithRelations {
	out := db.StudentWithRelations{Student: st}
	if st.ParentID != nil {
		if p, ok := m.parents[*st.ParentID]; ok {
			out.Parent = &p
		}
	}
	if st.StudentGroupID != nil {
		if g, ok := m.groups[*st.StudentGroupID]; ok {
			out.StudentGroup = &g
		}
	}
	return out
}

func (m *memStore) GetStudentWithRelations(_ context.Context, id int32) (db.StudentWithRelations, error) {
	st, ok := m.students[id]
	if !ok {
		return db.StudentWithRelations{}, pgx.ErrNoRows
	}
	return m.studentWithRelations(st), nil
}

func (m *memStore) ListStudentsWithRelations(_ context.Context, limit, offset int32) ([]db.StudentWithRelations, error) {
	var out []db.StudentWithRelations
	for _, st := range sortedValues(m.students, func(a, b db.Student) bool { return a.ID < b.ID }) {
		out = append(out, m.studentWithRelations(st))
	}
	return pageOf(out, limit, offset), nil
}

func (m *memStore) ListStudentsByGroup(_ context.Context, groupID int32) ([]db.StudentWithRelations, error) {
	var out []db.StudentWithRelations
	for _, st := range sortedValues(m.students, func(a, b db.Student) bool { return a.ID < b.ID }) {
		if st.StudentGroupID != nil && *st.StudentGroupID == groupID {
			out = append(out, m.studentWithRelations(st))
		}
	}
	return out, nil
}

func (m *memStore) CountStudents(context.Context) (int64, error) {
	return int64(len(m.students)), nil
}

func (m *memStore) UpdateStudent(_ context.Context, arg db.UpdateStudentParams) (db.Student, error) {
	st, ok := m.students[arg.ID]
	if !ok {
		return db.Student{}, pgx.ErrNoRows
	}
	if arg.Name != nil {
		st.Name = *arg.Name
	}
	if arg.BirthDate.Valid {
		st.BirthDate = arg.BirthDate
	}
	if arg.ParentID != nil {
		st.ParentID = arg.ParentID
	}
	if arg.StudentGroupID != nil {
		st.StudentGroupID = arg.StudentGroupID
	}
	m.students[st.ID] = st
	return st, nil
}

func (m *memStore) DeleteStudent(_ context.Context, id int32) (bool, error) {
	_, ok := m.students[id]
	delete(m.students, id)
	for aid, a := range m.attendances {
		if a.StudentID == id {
			delete(m.attendances, aid)
		}
	}
	return ok, nil
}

func (m *memStore) CreateTeacher(_ context.Context, name string) (db.Teacher, error) {
	return m.addTeacher(name), nil
}

func (m *memStore) GetTeacher(_ context.Context, id int32) (db.Teacher, error) {
	t, ok := m.teachers[id]
	if !ok {
		return db.Teacher{}, pgx.ErrNoRows
	}
	return t, nil
}

func (m *memStore) ListTeachers(_ context.Context, limit, offset int32) ([]db.Teacher, error) {
	all := sortedValues(m.teachers, func(a, b db.Teacher) bool { return a.ID < b.ID })
	return pageOf(all, limit, offset), nil
}

func (m *memStore) CountTeachers(context.Context) (int64, error) {
	return int64(len(m.teachers)), nil
}

func (m *memStore) ListStudentGroupsByTeacher(_ context.Context, teacherID int32) ([]db.StudentGroup, error) {
	var out []db.StudentGroup
	for _, g := range sortedValues(m.groups, func(a, b db.StudentGroup) bool { return a.ID < b.ID }) {
		if g.TeacherID != nil && *g.TeacherID == teacherID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *memStore) UpdateTeacher(_ context.Context, id int32, name *string) (db.Teacher, error) {
	t, ok := m.teachers[id]
	if !ok {
		return db.Teacher{}, pgx.ErrNoRows
	}
	if name != nil {
		t.Name = *name
	}
	m.teachers[id] = t
	return t, nil
}

// DeleteTeacher mirrors the schema: documents cascade, groups keep a null
// teacher.
func (m *memStore) DeleteTeacher(_ context.Context, id int32) (bool, error) {
	_, ok := m.teachers[id]
	delete(m.teachers, id)
	for did, d := range m.documents {
		if d.TeacherID == id {
			delete(m.documents, did)
		}
	}
	for gid, g := range m.groups {
		if g.TeacherID != nil && *g.TeacherID == id {
			g.TeacherID = nil
			m.groups[gid] = g
		}
	}
	return ok, nil
}

// student groups

func (m *memStore) CreateStudentGroup(_ context.Context, arg db.CreateStudentGroupParams) (db.StudentGroup, error) {
	g := db.StudentGroup{ID: m.id(), Direction: arg.Direction, FreeSpots: arg.FreeSpots, TeacherID: arg.TeacherID}
	m.groups[g.ID] = g
	return g, nil
}

func (m *memStore) groupWithRelations(g db.StudentGroup) db.StudentGroupWithRelations {
	out := db.StudentGroupWithRelations{StudentGroup: g}
	if g.TeacherID != nil {
		if t, ok := m.teachers[*g.TeacherID]; ok {
			out.Teacher = &t
		}
	}
	return out
}

func (m *memStore) GetStudentGroupWithRelations(_ context.Context, id int32) (db.StudentGroupWithRelations, error) {
	g, ok := m.groups[id]
	if !ok {
		return db.StudentGroupWithRelations{}, pgx.ErrNoRows
	}
	return m.groupWithRelations(g), nil
}

func (m *memStore) ListStudentGroupsWithRelations(_ context.Context, limit, offset int32) ([]db.StudentGroupWithRelations, error) {
	var out []db.StudentGroupWithRelations
	for _, g := range sortedValues(m.groups, func(a, b db.StudentGroup) bool { return a.ID < b.ID }) {
		out = append(out, m.groupWithRelations(g))
	}
	return pageOf(out, limit, offset), nil
}

func (m *memStore) CountStudentGroups(context.Context) (int64, error) {
	return int64(len(m.groups)), nil
}

func (m *memStore) UpdateStudentGroup(_ context.Context, arg db.UpdateStudentGroupParams) (db.StudentGroup, error) {
	g, ok := m.groups[arg.ID]
	if !ok {
		return db.StudentGroup{}, pgx.ErrNoRows
	}
	if arg.Direction != nil {
		g.Direction = arg.Direction
	}
	if arg.FreeSpots != nil {
		g.FreeSpots = *arg.FreeSpots
	}
	if arg.TeacherID != nil {
		g.TeacherID = arg.TeacherID
	}
	m.groups[g.ID] = g
	return g, nil
}

func (m *memStore) DeleteAttendancesByGroupLessons(_ context.Context, groupID int32) (int64, error) {
	var n int64
	for aid, a := range m.attendances {
		l, ok := m.lessons[a.LessonID]
		if ok && l.StudentGroupID != nil && *l.StudentGroupID == groupID {
			delete(m.attendances, aid)
			n++
		}
	}
	return n, nil
}

// DeleteStudentGroup mirrors the schema: lessons and students referencing the
// group keep a null group.
func (m *memStore) DeleteStudentGroup(_ context.Context, id int32) (bool, error) {
	_, ok := m.groups[id]
	delete(m.groups, id)
	for lid, l := range m.lessons {
		if l.StudentGroupID != nil && *l.StudentGroupID == id {
			l.StudentGroupID = nil
			m.lessons[lid] = l
		}
	}
	for sid, st := range m.students {
		if st.StudentGroupID != nil && *st.StudentGroupID == id {
			st.StudentGroupID = nil
			m.students[sid] = st
		}
	}
	return ok, nil
}
