package http

import (
	"net/http"

	"schoolschedule/internal/apperr"
	"schoolschedule/internal/db"
	"schoolschedule/internal/service"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.writeAppError(w, r, apperr.Wrap(apperr.KindBadRequest, "parse login form", err))
		return
	}
	form := loginForm{
		Username: r.PostForm.Get("username"),
		Password: r.PostForm.Get("password"),
	}
	if err := s.validate.Struct(form); err != nil {
		s.writeAppError(w, r, apperr.Wrap(apperr.KindBadRequest, "validate login form", err))
		return
	}

	user, err := s.svc.Users.Authenticate(r.Context(), form.Username, form.Password)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	token, err := s.sessions.Start(r.Context(), user.ID, string(user.Role))
	if err != nil {
		s.writeAppError(w, r, apperr.Internal("start session", err))
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.SessionCookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.sessions.TTL().Seconds()),
	})
	writeJSON(w, http.StatusOK, user)
}

// handleLogout always clears the cookie; an unknown session is not an error.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(s.cfg.SessionCookieName); err == nil && cookie.Value != "" {
		if err := s.sessions.End(r.Context(), cookie.Value); err != nil {
			s.log.Debug().Err(err).Msg("end session")
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.SessionCookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
	writeJSON(w, http.StatusOK, "Logged out")
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		s.writeAppError(w, r, apperr.Unauthorized("missing claims"))
		return
	}
	user, err := s.svc.Users.Get(r.Context(), claims.UserID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			err = apperr.Wrap(apperr.KindUnauthorized, "session user gone", err)
		}
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Users

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	user, err := s.svc.Users.Create(r.Context(), service.CreateUserInput{
		Username: req.Username,
		Password: req.Password,
		Role:     db.Role(req.Role),
		FullName: req.FullName,
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	user, err := s.svc.Users.Get(r.Context(), id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := s.svc.Users.List(r.Context(), s.parsePage(r))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	var req userUpdateRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	var role *db.Role
	if req.Role != nil {
		value := db.Role(*req.Role)
		role = &value
	}
	user, err := s.svc.Users.Update(r.Context(), service.UpdateUserInput{
		ID:       id,
		Username: req.Username,
		Password: req.Password,
		Role:     role,
		FullName: req.FullName,
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	deleted, err := s.svc.Users.Delete(r.Context(), id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeDeleteResult(w, deleted, "User")
}
