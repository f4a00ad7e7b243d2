package http

import (
	"net/http"

	"schoolschedule/internal/db"
)

// Student groups

func (s *Server) handleCreateStudentGroup(w http.ResponseWriter, r *http.Request) {
	var req studentGroupRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	group, err := s.svc.StudentGroups.Create(r.Context(), db.CreateStudentGroupParams{
		Direction: req.Direction,
		FreeSpots: req.FreeSpots,
		TeacherID: req.TeacherID,
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, group)
}

func (s *Server) handleGetStudentGroup(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	group, err := s.svc.StudentGroups.Get(r.Context(), id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

func (s *Server) handleListStudentGroups(w http.ResponseWriter, r *http.Request) {
	page, err := s.svc.StudentGroups.List(r.Context(), s.parsePage(r))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleUpdateStudentGroup(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	var req studentGroupUpdateRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	group, err := s.svc.StudentGroups.Update(r.Context(), db.UpdateStudentGroupParams{
		ID:        id,
		Direction: req.Direction,
		FreeSpots: req.FreeSpots,
		TeacherID: req.TeacherID,
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

func (s *Server) handleDeleteStudentGroup(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	deleted, err := s.svc.StudentGroups.Delete(r.Context(), id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeDeleteResult(w, deleted, "Student group")
}

func (s *Server) handleListGroupStudents(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	students, err := s.svc.Students.ListByGroup(r.Context(), id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, students)
}

func (s *Server) handleListGroupLessons(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	lessons, err := s.svc.Lessons.ListByGroup(r.Context(), id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lessons)
}

// handleCreateGroupLesson creates a lesson bound to the group in the path,
// ignoring any student_group_id in the body.
func (s *Server) handleCreateGroupLesson(w http.ResponseWriter, r *http.Request) {
	groupID, err := parseID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	var req lessonRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	req.StudentGroupID = &groupID
	s.createLesson(w, r, req)
}

// Lessons

func (s *Server) handleCreateLesson(w http.ResponseWriter, r *http.Request) {
	var req lessonRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	s.createLesson(w, r, req)
}

func (s *Server) createLesson(w http.ResponseWriter, r *http.Request, req lessonRequest) {
	scheduledAt, err := parseDate(req.ScheduledAt)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	lesson, err := s.svc.Lessons.Create(r.Context(), db.CreateLessonParams{
		Topic:          req.Topic,
		ScheduledAt:    scheduledAt,
		StudentGroupID: req.StudentGroupID,
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, lesson)
}

func (s *Server) handleGetLesson(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	lesson, err := s.svc.Lessons.Get(r.Context(), id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lesson)
}

func (s *Server) handleListLessons(w http.ResponseWriter, r *http.Request) {
	page, err := s.svc.Lessons.List(r.Context(), s.parsePage(r))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleUpdateLesson(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	var req lessonUpdateRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	scheduledAt, err := parseOptionalDate(req.ScheduledAt)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	lesson, err := s.svc.Lessons.Update(r.Context(), db.UpdateLessonParams{
		ID:             id,
		Topic:          req.Topic,
		ScheduledAt:    scheduledAt,
		StudentGroupID: req.StudentGroupID,
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lesson)
}

func (s *Server) handleDeleteLesson(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	deleted, err := s.svc.Lessons.Delete(r.Context(), id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeDeleteResult(w, deleted, "Lesson")
}

// Attendances

func (s *Server) handleListLessonAttendances(w http.ResponseWriter, r *http.Request) {
	lessonID, err := parseID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	rows, err := s.svc.Attendances.GetByLesson(r.Context(), lessonID)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleCreateAttendance(w http.ResponseWriter, r *http.Request) {
	var req attendanceRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	row, err := s.svc.Attendances.Create(r.Context(), db.CreateAttendanceParams{
		StudentID:  req.StudentID,
		LessonID:   req.LessonID,
		IsPresent:  req.IsPresent,
		SkipReason: req.SkipReason,
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

func (s *Server) handleGetAttendance(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	row, err := s.svc.Attendances.Get(r.Context(), id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (s *Server) handleListAttendances(w http.ResponseWriter, r *http.Request) {
	page, err := s.svc.Attendances.List(r.Context(), s.parsePage(r))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleUpdateAttendance(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	var req attendanceUpdateRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	row, err := s.svc.Attendances.Update(r.Context(), db.UpdateAttendanceParams{
		ID:         id,
		IsPresent:  req.IsPresent,
		SkipReason: req.SkipReason,
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (s *Server) handleDeleteAttendance(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	deleted, err := s.svc.Attendances.Delete(r.Context(), id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeDeleteResult(w, deleted, "Attendance")
}
