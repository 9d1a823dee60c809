package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	clubsite "github.com/vianubio/clubsite"
	"github.com/vianubio/clubsite/internal/auth"
	"github.com/vianubio/clubsite/internal/store"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if s.ready == nil || s.ready.Ready() {
		writeJSON(w, http.StatusOK, map[string]any{"ready": true})
		return
	}
	body := map[string]any{"ready": false}
	if err := s.ready.Err(); err != nil {
		body["error"] = err.Error()
	}
	writeJSON(w, http.StatusServiceUnavailable, body)
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "home", pageData{})
}

func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "about", pageData{
		Title: "Despre noi",
		Team:  s.svc.Team(r.Context()),
	})
}

func (s *Server) handleBlog(w http.ResponseWriter, r *http.Request) {
	posts, err := s.svc.ListPosts(r.Context(), s.sessions.identity(r), clubsite.PageLimit)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.render(w, r, "blog", pageData{Title: "Blog", Posts: posts})
}

// handleAPIPosts lists every visible post. Each object carries both the
// stored image_url and the resolved cover_url.
func (s *Server) handleAPIPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.svc.ListPosts(r.Context(), s.sessions.identity(r), 0)
	if err != nil {
		s.logger.Error("listing posts", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (s *Server) handlePrint(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		http.NotFound(w, r)
		return
	}

	pdf, err := s.svc.ExportPDF(r.Context(), s.sessions.identity(r), id)
	switch {
	case errors.Is(err, clubsite.ErrPostNotFound), errors.Is(err, clubsite.ErrExportDisabled):
		http.NotFound(w, r)
		return
	case err != nil:
		s.serverError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="post-%d.pdf"`, id))
	_, _ = w.Write(pdf)
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if s.sessions.identity(r) != "" {
		http.Redirect(w, r, "/admin/new", http.StatusSeeOther)
		return
	}
	s.render(w, r, "login", pageData{Title: "Autentificare"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")

	acc, err := s.accounts.FindAccount(r.Context(), email)
	if err == nil {
		err = auth.CheckPassword(acc.PasswordHash, password)
	}
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) && !errors.Is(err, auth.ErrInvalidCredentials) {
			s.serverError(w, r, err)
			return
		}
		s.logger.Info("login rejected", zap.String("email", email))
		_ = s.sessions.flash(w, r, "Email sau parolă greșită.")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	_ = s.sessions.update(w, r, func(sess *session) {
		sess.Identity = acc.Email
		sess.Flashes = append(sess.Flashes, "Bine ai revenit!")
	})
	s.logger.Info("login", zap.String("email", acc.Email))
	http.Redirect(w, r, "/admin/new", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	_ = s.sessions.update(w, r, func(sess *session) {
		sess.Identity = ""
		sess.Flashes = append(sess.Flashes, "Te-ai deconectat.")
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleNewForm(w http.ResponseWriter, r *http.Request) {
	var sections []clubsite.Section
	canLessons := s.svc.CanViewLessons(s.sessions.identity(r))
	for _, sec := range clubsite.Sections() {
		if sec.Gated() && !canLessons {
			continue
		}
		sections = append(sections, sec)
	}
	s.render(w, r, "new", pageData{
		Title:    "Postare nouă",
		Sections: sections,
		Accept:   s.accept,
	})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+formOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.flashBack(w, r, clubsite.ErrUploadTooLarge)
			return
		}
		if !errors.Is(err, http.ErrNotMultipart) {
			http.Error(w, "malformed form", http.StatusBadRequest)
			return
		}
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	in := clubsite.PostInput{
		Section:     r.FormValue("section"),
		Title:       r.FormValue("title"),
		Content:     r.FormValue("content"),
		ExternalURL: r.FormValue("external_url"),
		PPTURL:      r.FormValue("ppt_url"),
	}

	var upload *clubsite.Upload
	file, header, err := r.FormFile("image")
	switch {
	case err == nil:
		defer func() { _ = file.Close() }()
		upload = &clubsite.Upload{Filename: header.Filename, Body: file}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		http.Error(w, "malformed form", http.StatusBadRequest)
		return
	}

	post, err := s.svc.CreatePost(r.Context(), s.sessions.identity(r), in, upload)
	if err != nil {
		s.flashBack(w, r, err)
		return
	}

	_ = s.sessions.flash(w, r, "Postarea a fost publicată.")
	http.Redirect(w, r, fmt.Sprintf("/blog#post-%d", post.ID), http.StatusSeeOther)
}

// flashBack reports a failed submission on the form page.
func (s *Server) flashBack(w http.ResponseWriter, r *http.Request, err error) {
	msg := createErrorMessage(err)
	if msg == "" {
		s.serverError(w, r, err)
		return
	}
	_ = s.sessions.flash(w, r, msg)
	http.Redirect(w, r, "/admin/new", http.StatusSeeOther)
}

// createErrorMessage maps user-correctable errors to a message; other
// errors return "".
func createErrorMessage(err error) string {
	switch {
	case errors.Is(err, clubsite.ErrUnsupportedUpload):
		return "Tip de fișier neacceptat. Folosiți o imagine (png, jpg, gif, webp, svg)."
	case errors.Is(err, clubsite.ErrUploadTooLarge):
		return "Fișierul este prea mare."
	case errors.Is(err, clubsite.ErrInvalidSection):
		return "Secțiune necunoscută."
	case errors.Is(err, clubsite.ErrForbiddenSection):
		return "Nu aveți acces la secțiunea Lecții."
	case errors.Is(err, clubsite.ErrNotAuthenticated):
		return "Autentificați-vă pentru a continua."
	default:
		return ""
	}
}
