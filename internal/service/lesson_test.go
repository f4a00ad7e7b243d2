package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"schoolschedule/internal/apperr"
	"schoolschedule/internal/db"
)

func newTestLessonService(store *memStore) *LessonService {
	return newLessonService(store, store.tx, zerolog.Nop())
}

func lessonDate() pgtype.Date {
	return pgtype.Date{Time: time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC), Valid: true}
}

func studentSet(rows []db.Attendance) map[int32]int {
	out := map[int32]int{}
	for _, row := range rows {
		out[row.StudentID]++
	}
	return out
}

func expectMembers(t *testing.T, rows []db.Attendance, lessonID int32, students ...db.Student) {
	t.Helper()
	if len(rows) != len(students) {
		t.Fatalf("expected %d attendance rows, got %d", len(students), len(rows))
	}
	set := studentSet(rows)
	for _, s := range students {
		if set[s.ID] != 1 {
			t.Fatalf("expected exactly one row for student %d, got %d", s.ID, set[s.ID])
		}
	}
	for _, row := range rows {
		if row.LessonID != lessonID {
			t.Fatalf("expected lesson %d, got %d", lessonID, row.LessonID)
		}
		if row.IsPresent || row.SkipReason != nil {
			t.Fatalf("expected fresh rows to be absent without reason, got %+v", row)
		}
	}
}

func TestCreateLessonWithGroupCreatesAttendance(t *testing.T) {
	store := newMemStore()
	group := store.addGroup()
	s1 := store.addStudent("S1", group.ID)
	s2 := store.addStudent("S2", group.ID)
	other := store.addGroup()
	store.addStudent("outsider", other.ID)

	svc := newTestLessonService(store)
	lesson, err := svc.Create(context.Background(), db.CreateLessonParams{
		Topic:          "Algebra",
		ScheduledAt:    lessonDate(),
		StudentGroupID: &group.ID,
	})
	if err != nil {
		t.Fatalf("create error: %v", err)
	}
	if lesson.StudentGroup == nil || lesson.StudentGroup.ID != group.ID {
		t.Fatalf("expected lesson joined with its group, got %+v", lesson.StudentGroup)
	}
	expectMembers(t, store.attendanceFor(lesson.ID), lesson.ID, s1, s2)
}

func TestCreateLessonWithoutGroupCreatesNoAttendance(t *testing.T) {
	store := newMemStore()
	group := store.addGroup()
	store.addStudent("S1", group.ID)

	lesson, err := newTestLessonService(store).Create(context.Background(), db.CreateLessonParams{Topic: "Free", ScheduledAt: lessonDate()})
	if err != nil {
		t.Fatalf("create error: %v", err)
	}
	if lesson.StudentGroup != nil {
		t.Fatalf("expected no group relation")
	}
	if rows := store.attendanceFor(lesson.ID); len(rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(rows))
	}
}

func TestCreateLessonWithMissingGroupRollsBack(t *testing.T) {
	store := newMemStore()
	missing := int32(999)

	_, err := newTestLessonService(store).Create(context.Background(), db.CreateLessonParams{
		Topic:          "Ghost",
		ScheduledAt:    lessonDate(),
		StudentGroupID: &missing,
	})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(store.lessons) != 0 {
		t.Fatalf("expected no lesson to persist, got %d", len(store.lessons))
	}
}

func TestCreateLessonRollsBackWhenAttendanceInsertFails(t *testing.T) {
	store := newMemStore()
	group := store.addGroup()
	store.addStudent("S1", group.ID)
	store.failCreateAttendances = errors.New("insert failed")

	_, err := newTestLessonService(store).Create(context.Background(), db.CreateLessonParams{
		Topic:          "Broken",
		ScheduledAt:    lessonDate(),
		StudentGroupID: &group.ID,
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if apperr.StatusCode(err) != 500 {
		t.Fatalf("expected server error, got %d", apperr.StatusCode(err))
	}
	if len(store.lessons) != 0 || len(store.attendances) != 0 {
		t.Fatalf("expected rollback, got %d lessons %d rows", len(store.lessons), len(store.attendances))
	}
}

func TestUpdateLessonRegroupReplacesAttendance(t *testing.T) {
	store := newMemStore()
	g1 := store.addGroup()
	g2 := store.addGroup()
	store.addStudent("A", g1.ID)
	store.addStudent("B", g1.ID)
	c := store.addStudent("C", g2.ID)
	d := store.addStudent("D", g2.ID)
	e := store.addStudent("E", g2.ID)
	svc := newTestLessonService(store)
	ctx := context.Background()

	lesson, err := svc.Create(ctx, db.CreateLessonParams{Topic: "History", ScheduledAt: lessonDate(), StudentGroupID: &g1.ID})
	if err != nil {
		t.Fatalf("create error: %v", err)
	}

	updated, err := svc.Update(ctx, db.UpdateLessonParams{ID: lesson.ID, StudentGroupID: &g2.ID})
	if err != nil {
		t.Fatalf("update error: %v", err)
	}
	if updated.StudentGroupID == nil || *updated.StudentGroupID != g2.ID {
		t.Fatalf("expected group %d, got %v", g2.ID, updated.StudentGroupID)
	}
	if updated.Topic != "History" {
		t.Fatalf("expected topic to be kept, got %s", updated.Topic)
	}
	expectMembers(t, store.attendanceFor(lesson.ID), lesson.ID, c, d, e)
}

func TestUpdateLessonSameGroupLeavesAttendanceUntouched(t *testing.T) {
	store := newMemStore()
	group := store.addGroup()
	store.addStudent("A", group.ID)
	svc := newTestLessonService(store)
	ctx := context.Background()

	lesson, err := svc.Create(ctx, db.CreateLessonParams{Topic: "Art", ScheduledAt: lessonDate(), StudentGroupID: &group.ID})
	if err != nil {
		t.Fatalf("create error: %v", err)
	}
	before := store.attendanceFor(lesson.ID)
	present := true
	if _, err := (&AttendanceService{q: store, log: zerolog.Nop()}).Update(ctx, db.UpdateAttendanceParams{ID: before[0].ID, IsPresent: &present}); err != nil {
		t.Fatalf("mark present: %v", err)
	}
	store.addStudent("late joiner", group.ID)

	topic := "Art history"
	if _, err := svc.Update(ctx, db.UpdateLessonParams{ID: lesson.ID, Topic: &topic, StudentGroupID: &group.ID}); err != nil {
		t.Fatalf("update error: %v", err)
	}
	after := store.attendanceFor(lesson.ID)
	if len(after) != 1 || after[0].ID != before[0].ID || !after[0].IsPresent {
		t.Fatalf("expected original row untouched, got %+v", after)
	}
	if store.lessons[lesson.ID].Topic != topic {
		t.Fatalf("expected topic update to apply")
	}
}

func TestUpdateLessonToNoGroupClearsAttendance(t *testing.T) {
	store := newMemStore()
	group := store.addGroup()
	store.addStudent("A", group.ID)
	store.addStudent("B", group.ID)
	svc := newTestLessonService(store)
	ctx := context.Background()

	lesson, err := svc.Create(ctx, db.CreateLessonParams{Topic: "PE", ScheduledAt: lessonDate(), StudentGroupID: &group.ID})
	if err != nil {
		t.Fatalf("create error: %v", err)
	}
	updated, err := svc.Update(ctx, db.UpdateLessonParams{ID: lesson.ID})
	if err != nil {
		t.Fatalf("update error: %v", err)
	}
	if updated.StudentGroupID != nil || updated.StudentGroup != nil {
		t.Fatalf("expected lesson detached from group")
	}
	if rows := store.attendanceFor(lesson.ID); len(rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(rows))
	}
}

func TestLessonUnbindRebindScenario(t *testing.T) {
	store := newMemStore()
	g1 := store.addGroup()
	s1 := store.addStudent("S1", g1.ID)
	s2 := store.addStudent("S2", g1.ID)
	svc := newTestLessonService(store)
	ctx := context.Background()

	l1, err := svc.Create(ctx, db.CreateLessonParams{Topic: "L1", ScheduledAt: lessonDate(), StudentGroupID: &g1.ID})
	if err != nil {
		t.Fatalf("create error: %v", err)
	}
	first := store.attendanceFor(l1.ID)
	expectMembers(t, first, l1.ID, s1, s2)

	if _, err := svc.Update(ctx, db.UpdateLessonParams{ID: l1.ID}); err != nil {
		t.Fatalf("unbind error: %v", err)
	}
	if rows := store.attendanceFor(l1.ID); len(rows) != 0 {
		t.Fatalf("expected 0 rows after unbind, got %d", len(rows))
	}

	if _, err := svc.Update(ctx, db.UpdateLessonParams{ID: l1.ID, StudentGroupID: &g1.ID}); err != nil {
		t.Fatalf("rebind error: %v", err)
	}
	second := store.attendanceFor(l1.ID)
	expectMembers(t, second, l1.ID, s1, s2)
	for _, old := range first {
		for _, fresh := range second {
			if old.ID == fresh.ID {
				t.Fatalf("expected fresh row ids after rebind, %d reused", old.ID)
			}
		}
	}
}

func TestUpdateLessonRollsBackOnFailedRegroup(t *testing.T) {
	store := newMemStore()
	g1 := store.addGroup()
	g2 := store.addGroup()
	a := store.addStudent("A", g1.ID)
	store.addStudent("B", g2.ID)
	svc := newTestLessonService(store)
	ctx := context.Background()

	lesson, err := svc.Create(ctx, db.CreateLessonParams{Topic: "Music", ScheduledAt: lessonDate(), StudentGroupID: &g1.ID})
	if err != nil {
		t.Fatalf("create error: %v", err)
	}
	store.failCreateAttendances = errors.New("insert failed")

	if _, err := svc.Update(ctx, db.UpdateLessonParams{ID: lesson.ID, StudentGroupID: &g2.ID}); err == nil {
		t.Fatalf("expected update error")
	}
	expectMembers(t, store.attendanceFor(lesson.ID), lesson.ID, a)
	if gid := store.lessons[lesson.ID].StudentGroupID; gid == nil || *gid != g1.ID {
		t.Fatalf("expected lesson to keep group %d, got %v", g1.ID, gid)
	}
}

func TestUpdateLessonErrors(t *testing.T) {
	store := newMemStore()
	svc := newTestLessonService(store)
	ctx := context.Background()

	if _, err := svc.Update(ctx, db.UpdateLessonParams{ID: 42}); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for missing lesson, got %v", err)
	}

	lesson, err := svc.Create(ctx, db.CreateLessonParams{Topic: "X", ScheduledAt: lessonDate()})
	if err != nil {
		t.Fatalf("create error: %v", err)
	}
	missing := int32(777)
	if _, err := svc.Update(ctx, db.UpdateLessonParams{ID: lesson.ID, StudentGroupID: &missing}); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for missing group, got %v", err)
	}
	if store.lessons[lesson.ID].StudentGroupID != nil {
		t.Fatalf("expected lesson unchanged")
	}
}

func TestDeleteLessonRemovesAttendance(t *testing.T) {
	store := newMemStore()
	group := store.addGroup()
	store.addStudent("A", group.ID)
	svc := newTestLessonService(store)
	ctx := context.Background()

	lesson, err := svc.Create(ctx, db.CreateLessonParams{Topic: "Bio", ScheduledAt: lessonDate(), StudentGroupID: &group.ID})
	if err != nil {
		t.Fatalf("create error: %v", err)
	}
	deleted, err := svc.Delete(ctx, lesson.ID)
	if err != nil || !deleted {
		t.Fatalf("expected delete, got %v %v", deleted, err)
	}
	if len(store.attendances) != 0 {
		t.Fatalf("expected rows removed, got %d", len(store.attendances))
	}
	deleted, err = svc.Delete(ctx, lesson.ID)
	if err != nil || deleted {
		t.Fatalf("expected false for missing lesson, got %v %v", deleted, err)
	}
}

func TestListLessonsByGroup(t *testing.T) {
	store := newMemStore()
	g1 := store.addGroup()
	g2 := store.addGroup()
	svc := newTestLessonService(store)
	ctx := context.Background()
	for _, gid := range []int32{g1.ID, g1.ID, g2.ID} {
		gid := gid
		if _, err := svc.Create(ctx, db.CreateLessonParams{Topic: "T", ScheduledAt: lessonDate(), StudentGroupID: &gid}); err != nil {
			t.Fatalf("create error: %v", err)
		}
	}
	lessons, err := svc.ListByGroup(ctx, g1.ID)
	if err != nil || len(lessons) != 2 {
		t.Fatalf("expected 2 lessons, got %d (%v)", len(lessons), err)
	}
	if _, err := svc.ListByGroup(ctx, 404); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for unknown group, got %v", err)
	}

	page, err := svc.List(ctx, PageRequest{Page: 2, PageSize: 2})
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	if page.Total != 3 || len(page.Items) != 1 || page.Page != 2 || page.PageSize != 2 {
		t.Fatalf("unexpected page %+v", page)
	}
}

func TestSyncLessonAttendance(t *testing.T) {
	store := newMemStore()
	g1 := store.addGroup()
	g2 := store.addGroup()
	store.addStudent("A", g1.ID)
	store.addStudent("B", g2.ID)
	store.addStudent("C", g2.ID)
	ctx := context.Background()
	lessonID := int32(500)

	result, err := SyncLessonAttendance(ctx, store, lessonID, nil, nil)
	if err != nil || !result.Skipped {
		t.Fatalf("expected nil to nil to skip, got %+v %v", result, err)
	}

	result, err = SyncLessonAttendance(ctx, store, lessonID, nil, &g1.ID)
	if err != nil || result.Skipped || len(result.Created) != 1 {
		t.Fatalf("expected one row for g1, got %+v %v", result, err)
	}

	same := g1.ID
	result, err = SyncLessonAttendance(ctx, store, lessonID, &g1.ID, &same)
	if err != nil || !result.Skipped {
		t.Fatalf("expected equal ids behind different pointers to skip, got %+v %v", result, err)
	}

	result, err = SyncLessonAttendance(ctx, store, lessonID, &g1.ID, &g2.ID)
	if err != nil || result.Deleted != 1 || len(result.Created) != 2 {
		t.Fatalf("expected 1 deleted 2 created, got %+v %v", result, err)
	}

	result, err = SyncLessonAttendance(ctx, store, lessonID, &g2.ID, nil)
	if err != nil || result.Deleted != 2 || result.Created != nil {
		t.Fatalf("expected clear, got %+v %v", result, err)
	}
	if result.outcome() != "cleared" {
		t.Fatalf("expected cleared outcome, got %s", result.outcome())
	}
}
