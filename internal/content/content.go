// Package content serves the read-only screens: the public blog page, the
// doctor directory and the patient dashboard summary.
package content

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfman30/clinic-portal/internal/clinicapi"
	"github.com/wolfman30/clinic-portal/internal/session"
	"github.com/wolfman30/clinic-portal/internal/timefmt"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

const excerptLength = 180

// Backend is the subset of the clinic API the content screens read.
type Backend interface {
	PublicBlogs(ctx context.Context) ([]clinicapi.Blog, error)
	ListDoctors(ctx context.Context) ([]clinicapi.Doctor, error)
	ListAppointments(ctx context.Context, role clinicapi.Role, userID string) ([]clinicapi.Appointment, error)
}

// Sessions resolves the logged-in user.
type Sessions interface {
	Current(ctx context.Context) (*session.Session, error)
}

// Card is one entry of the blog page.
type Card struct {
	Title   string `json:"title"`
	URL     string `json:"url,omitempty"`
	Image   string `json:"image,omitempty"`
	Excerpt string `json:"excerpt"`
	Source  string `json:"source"`
	When    string `json:"when"`
}

// Dashboard is the patient landing screen.
type Dashboard struct {
	Doctors           []clinicapi.Doctor `json:"doctors"`
	TotalAppointments int                `json:"totalAppointments"`
}

// Service builds the content screens.
type Service struct {
	backend  Backend
	sessions Sessions
	logger   *logging.Logger
	now      func() time.Time
}

func NewService(backend Backend, sessions Sessions, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{backend: backend, sessions: sessions, logger: logger, now: time.Now}
}

// FeaturedBlogs returns the curated external articles shown above the
// doctors' posts.
func FeaturedBlogs() []Card {
	out := make([]Card, len(featured))
	copy(out, featured)
	return out
}

var featured = []Card{
	{
		Title:   "Why Physiotherapy Is More Than Pain Relief",
		URL:     "https://www.moveforwardpt.com",
		Image:   "https://images.unsplash.com/photo-1515378791036-0648a3ef77b2?auto=format&fit=crop&w=600&q=80",
		Excerpt: "Physiotherapy transcends short-term pain intervention. It is a multi-disciplinary, proactive, and educational approach to restoring movement, function, and wellbeing for all ages.",
		Source:  "Move Forward PT",
		When:    "Today",
	},
	{
		Title:   "Best Desk Stretches According to Physical Therapists",
		URL:     "https://www.choosept.com/guide/physical-therapy-guide",
		Image:   "https://images.unsplash.com/photo-1506744038136-46273834b3fb?auto=format&fit=crop&w=600&q=80",
		Excerpt: "Sitting for long hours? These stretches, recommended by physiotherapy experts, help boost blood flow, improve posture and can be done anywhere to reduce chronic aches.",
		Source:  "Choose PT",
		When:    "Mon",
	},
	{
		Title:   "The Science Behind Sports Recovery",
		URL:     "https://www.physio-pedia.com/Sports_Physiotherapy",
		Image:   "https://images.unsplash.com/photo-1454023492550-5696f8ff10e1?auto=format&fit=crop&w=600&q=80",
		Excerpt: "Physiotherapists are crucial in every athlete's recovery by customizing programs that blend manual therapy, modalities, and training techniques to minimize downtime and maximize performance.",
		Source:  "Physio-Pedia",
		When:    "Fri",
	},
}

// DoctorBlogs returns the doctors' public posts as cards. A failed fetch
// yields an empty page.
func (s *Service) DoctorBlogs(ctx context.Context) []Card {
	blogs, err := s.backend.PublicBlogs(ctx)
	if err != nil {
		s.logger.Warn("failed to fetch public blogs", "error", err)
		return []Card{}
	}
	today := timefmt.Today(s.now())
	cards := make([]Card, 0, len(blogs))
	for _, b := range blogs {
		source := "Clinic doctor"
		if b.Author != nil && b.Author.FullName() != "" {
			source = "Dr. " + b.Author.FullName()
		}
		cards = append(cards, Card{
			Title:   b.Title,
			Image:   b.Image,
			Excerpt: Excerpt(b.Body, excerptLength),
			Source:  source,
			When:    timefmt.FormatShortDate(b.CreatedAt, today),
		})
	}
	return cards
}

// Directory lists doctors newest first, the reverse of backend order.
func (s *Service) Directory(ctx context.Context) ([]clinicapi.Doctor, error) {
	doctors, err := s.backend.ListDoctors(ctx)
	if err != nil {
		return nil, fmt.Errorf("content: list doctors: %w", err)
	}
	out := make([]clinicapi.Doctor, len(doctors))
	for i, d := range doctors {
		out[len(doctors)-1-i] = d
	}
	return out, nil
}

// PatientDashboard combines the doctor directory with the patient's
// appointment count. Either half falls back to empty on failure.
func (s *Service) PatientDashboard(ctx context.Context) (*Dashboard, error) {
	sess, err := s.sessions.Current(ctx)
	if err != nil {
		return nil, err
	}
	dash := &Dashboard{Doctors: []clinicapi.Doctor{}}
	if doctors, err := s.Directory(ctx); err != nil {
		s.logger.Warn("failed to fetch doctors", "error", err)
	} else {
		dash.Doctors = doctors
	}
	if appts, err := s.backend.ListAppointments(ctx, sess.Role, sess.UserID); err != nil {
		s.logger.Warn("failed to fetch appointment count", "user_id", sess.UserID, "error", err)
	} else {
		dash.TotalAppointments = len(appts)
	}
	return dash, nil
}
