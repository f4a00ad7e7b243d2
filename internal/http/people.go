package http

import (
	"net/http"

	"schoolschedule/internal/db"
)

// Students

func (s *Server) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	var req studentRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	birthDate, err := parseDate(req.BirthDate)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	student, err := s.svc.Students.Create(r.Context(), db.CreateStudentParams{
		Name:           req.Name,
		BirthDate:      birthDate,
		ParentID:       req.ParentID,
		StudentGroupID: req.StudentGroupID,
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, student)
}

func (s *Server) handleGetStudent(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	student, err := s.svc.Students.Get(r.Context(), id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, student)
}

func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	page, err := s.svc.Students.List(r.Context(), s.parsePage(r))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleUpdateStudent(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	var req studentUpdateRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	birthDate, err := parseOptionalDate(req.BirthDate)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	student, err := s.svc.Students.Update(r.Context(), db.UpdateStudentParams{
		ID:             id,
		Name:           req.Name,
		BirthDate:      birthDate,
		ParentID:       req.ParentID,
		StudentGroupID: req.StudentGroupID,
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, student)
}

func (s *Server) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	deleted, err := s.svc.Students.Delete(r.Context(), id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeDeleteResult(w, deleted, "Student")
}

// Parents

func (s *Server) handleCreateParent(w http.ResponseWriter, r *http.Request) {
	var req parentRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	parent, err := s.svc.Parents.Create(r.Context(), db.CreateParentParams{Name: req.Name, AdditionalInfo: req.AdditionalInfo})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, parent)
}

func (s *Server) handleGetParent(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	parent, err := s.svc.Parents.Get(r.Context(), id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, parent)
}

func (s *Server) handleListParents(w http.ResponseWriter, r *http.Request) {
	page, err := s.svc.Parents.List(r.Context(), s.parsePage(r))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleUpdateParent(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	var req parentUpdateRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	parent, err := s.svc.Parents.Update(r.Context(), db.UpdateParentParams{ID: id, Name: req.Name, AdditionalInfo: req.AdditionalInfo})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, parent)
}

func (s *Server) handleDeleteParent(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	deleted, err := s.svc.Parents.Delete(r.Context(), id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeDeleteResult(w, deleted, "Parent")
}

// Teachers

func (s *Server) handleCreateTeacher(w http.ResponseWriter, r *http.Request) {
	var req teacherRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	teacher, err := s.svc.Teachers.Create(r.Context(), req.Name)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, teacher)
}

func (s *Server) handleGetTeacher(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	teacher, err := s.svc.Teachers.Get(r.Context(), id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, teacher)
}

func (s *Server) handleListTeachers(w http.ResponseWriter, r *http.Request) {
	page, err := s.svc.Teachers.List(r.Context(), s.parsePage(r))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleUpdateTeacher(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	var req teacherUpdateRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	teacher, err := s.svc.Teachers.Update(r.Context(), id, req.Name)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, teacher)
}

func (s *Server) handleDeleteTeacher(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	deleted, err := s.svc.Teachers.Delete(r.Context(), id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeDeleteResult(w, deleted, "Teacher")
}
