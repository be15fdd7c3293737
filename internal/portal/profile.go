package portal

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/clinic-portal/internal/profile"
)

// ProfileView is the profile screen: the role's editable fields and the
// cached record. Record is null when the fetch failed.
type ProfileView struct {
	Fields []profile.Field `json:"fields"`
	Record map[string]any  `json:"record"`
}

type fieldChange struct {
	Value string `json:"value"`
}

func (h *Handler) loadEditor(r *http.Request, s *scope) (*profile.Editor, error) {
	editor := profile.NewEditor(s.client, s.sessions, s.notifier, s.logger)
	if err := editor.Load(r.Context()); err != nil {
		return nil, err
	}
	return editor, nil
}

// GetProfile handles GET /views/profile.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	s := h.scope(r)
	editor, err := h.loadEditor(r, s)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, ProfileView{Fields: editor.Fields(), Record: editor.Record()})
}

// UpdateProfileField handles PATCH /views/profile/{field}.
func (h *Handler) UpdateProfileField(w http.ResponseWriter, r *http.Request) {
	s := h.scope(r)
	var body fieldChange
	if err := decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	editor, err := h.loadEditor(r, s)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := editor.Set(r.Context(), chi.URLParam(r, "field"), body.Value); err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, ProfileView{Fields: editor.Fields(), Record: editor.Record()})
}
