package portal

import (
	"net/http"

	"github.com/wolfman30/clinic-portal/internal/content"
)

// BlogsView is the public blog page.
type BlogsView struct {
	Featured []content.Card `json:"featured"`
	Doctors  []content.Card `json:"doctors"`
}

func (h *Handler) content(s *scope) *content.Service {
	return content.NewService(s.client, s.sessions, s.logger)
}

// Blogs handles GET /views/blogs. It needs no session.
func (h *Handler) Blogs(w http.ResponseWriter, r *http.Request) {
	s := h.scope(r)
	s.ok(w, http.StatusOK, BlogsView{
		Featured: content.FeaturedBlogs(),
		Doctors:  h.content(s).DoctorBlogs(r.Context()),
	})
}

// Doctors handles GET /views/doctors.
func (h *Handler) Doctors(w http.ResponseWriter, r *http.Request) {
	s := h.scope(r)
	doctors, err := h.content(s).Directory(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, doctors)
}

// Dashboard handles GET /views/dashboard.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	s := h.scope(r)
	dash, err := h.content(s).PatientDashboard(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, dash)
}
