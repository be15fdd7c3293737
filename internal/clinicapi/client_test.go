package clinicapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-portal/internal/observability/metrics"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return New(Config{
		BaseURL: ts.URL,
		Logger:  logging.Discard(),
		Metrics: metrics.NewBackendMetrics(prometheus.NewRegistry()),
	}).WithTokens(StaticToken("tok-1"))
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func TestListSlots_DoctorView(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/appointment/doctor/slots", r.URL.Path)
		assert.Equal(t, "doc-1", r.URL.Query().Get("doctorId"))
		assert.Equal(t, "2024-06-01", r.URL.Query().Get("date"))
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		_, _ = w.Write([]byte(`{"slots":[{"_id":"s1","startTime":"09:00","endTime":"09:30","isAvailable":true}]}`))
	})

	slots, err := client.ListSlots(context.Background(), SlotQuery{DoctorID: "doc-1", Date: "2024-06-01"})
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "s1", slots[0].ID)
	assert.True(t, slots[0].IsAvailable)
}

func TestListSlots_ExcludeUnavailableUsesOpenSlotPath(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/appointment/slots", r.URL.Path)
		_, _ = w.Write([]byte(`{"slots":[]}`))
	})

	slots, err := client.ListSlots(context.Background(), SlotQuery{DoctorID: "doc-1", Date: "2024-06-01", ExcludeUnavailable: true})
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestListSlots_RequiresDoctorAndDate(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("backend should not be called")
	})

	_, err := client.ListSlots(context.Background(), SlotQuery{DoctorID: "doc-1"})
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestAuthenticatedCallWithoutSession(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("backend should not be called")
	}))
	defer ts.Close()

	client := New(Config{BaseURL: ts.URL, Logger: logging.Discard()})
	_, err := client.ListDoctors(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestHTTPErrorTaxonomy(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "expired", http.StatusUnauthorized)
	})

	_, err := client.GetDoctor(context.Background(), "doc-1")
	require.Error(t, err)
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusUnauthorized, httpErr.StatusCode)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
}

func TestLogicalFailureInSuccessfulBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":false,"message":"Slot already booked"}`))
	})

	_, err := client.BookAppointment(context.Background(), BookingRequest{Patient: "p1", Doctor: "d1", SlotID: "s1", Disease: "Flu"})
	require.Error(t, err)
	assert.Equal(t, "Slot already booked", BackendMessage(err))
	assert.Equal(t, http.StatusUnprocessableEntity, StatusCode(err))
}

func TestTransportFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	client := New(Config{BaseURL: url, Logger: logging.Discard(), Timeout: time.Second}).WithTokens(StaticToken("t"))
	_, err := client.ListDoctors(context.Background())
	var transport *TransportError
	require.True(t, errors.As(err, &transport), "got %v", err)
	assert.Equal(t, http.StatusBadGateway, StatusCode(err))
}

func TestInvalidJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"doctors":[`))
	})

	_, err := client.ListDoctors(context.Background())
	assert.Error(t, err)
}

func TestPatchProfileBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/doctor/doc-1", r.URL.Path)
		body := decodeBody(t, r)
		assert.Equal(t, "Cardiology", body["specialty"])
		assert.Equal(t, "doctor", body["role"])
		_, _ = w.Write([]byte(`{"status":true}`))
	})

	require.NoError(t, client.PatchProfile(context.Background(), RoleDoctor, "doc-1", "specialty", "Cardiology"))
}

func TestPatchProfileRejectsRoleField(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("backend should not be called")
	})
	err := client.PatchProfile(context.Background(), RolePatient, "p1", "role", "doctor")
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestGetProfileRecord(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/patient/p1", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":true,"patient":{"_id":"p1","firstName":"Ana","bloodGroup":"O+"}}`))
	})

	record, err := client.GetProfileRecord(context.Background(), RolePatient, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", record["firstName"])
	assert.Equal(t, "O+", record["bloodGroup"])
}

func TestListAppointmentsDecodesReferences(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/appointment/patient/p1", r.URL.Path)
		_, _ = w.Write([]byte(`{"appointment":[
			{"_id":"a1","doctor":{"_id":"d1","firstName":"Gregory","lastName":"House"},"patient":"p1",
			 "slot":{"_id":"s1","startTime":"10:00","endTime":"10:30","isAvailable":false},
			 "appointmentDate":"2024-06-01","disease":"Flu","status":"scheduled"}]}`))
	})

	appts, err := client.ListAppointments(context.Background(), RolePatient, "p1")
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, "d1", appts[0].DoctorID())
	assert.Equal(t, "Gregory House", appts[0].Doctor.FullName())
	assert.Equal(t, "p1", appts[0].Patient.ID)
	assert.Equal(t, "s1", appts[0].SlotID())
	assert.Equal(t, StatusScheduled, appts[0].Status)
}

func TestGenerateSlots(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/appointment/doctor/doc-1/generate-slots", r.URL.Path)
		assert.Equal(t, "2024-06-01", decodeBody(t, r)["date"])
		w.WriteHeader(http.StatusCreated)
	})

	require.NoError(t, client.GenerateSlots(context.Background(), "doc-1", "2024-06-01"))
}

func TestEditSlotTimings(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/appointment/slot/s1/timings", r.URL.Path)
		body := decodeBody(t, r)
		assert.Equal(t, "11:00", body["startTime"])
		assert.Equal(t, "11:45", body["endTime"])
		_, _ = w.Write([]byte(`{"slot":{"_id":"s1","startTime":"11:00","endTime":"11:45","isAvailable":true}}`))
	})

	slot, err := client.EditSlotTimings(context.Background(), "s1", "11:00", "11:45")
	require.NoError(t, err)
	assert.Equal(t, "11:45", slot.EndTime)
}

func TestUpdateAppointmentWrapsUpdatedData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/appointment/a1", r.URL.Path)
		body := decodeBody(t, r)
		assert.Equal(t, "patient", body["role"])
		updated, ok := body["updatedData"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "s2", updated["slotId"])
		_, _ = w.Write([]byte(`{"status":true}`))
	})

	err := client.UpdateAppointment(context.Background(), "a1", AppointmentUpdate{SlotID: "s2", AppointmentDate: "2024-06-02", Status: StatusScheduled}, RolePatient)
	require.NoError(t, err)
}

func TestLogin(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/doctor/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		body := decodeBody(t, r)
		assert.Equal(t, "doctor", body["role"])
		_, _ = w.Write([]byte(`{"status":true,"token":"jwt","userId":"d1"}`))
	})

	res, err := client.Login(context.Background(), RoleDoctor, "d@x.test", "pw")
	require.NoError(t, err)
	assert.Equal(t, "jwt", res.Token)
	assert.Equal(t, "d1", res.UserID)
}

func TestLoginRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":false,"message":"Invalid credentials"}`))
	})

	_, err := client.Login(context.Background(), RolePatient, "p@x.test", "bad")
	var logical *LogicalError
	require.True(t, errors.As(err, &logical))
	assert.Equal(t, "Invalid credentials", logical.Message)
}

func TestRegisterRequiresStatusTrue(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/patient/register", r.URL.Path)
		_, _ = w.Write([]byte(`{"message":"ok?"}`))
	})

	err := client.Register(context.Background(), RolePatient, Registration{Email: "p@x.test"})
	assert.Error(t, err)
	assert.ErrorIs(t, client.Register(context.Background(), RoleAdmin, Registration{}), ErrInvalidQuery)
}

func TestRegisterStatusTruthiness(t *testing.T) {
	cases := map[string]bool{
		`{"status":true}`:         true,
		`{"status":1}`:            true,
		`{"status":"success"}`:    true,
		`{"status":{"code":201}}`: true,
		`{"status":false}`:        false,
		`{"status":null}`:         false,
		`{"status":0}`:            false,
		`{"status":""}`:           false,
		`{"message":"ok?"}`:       false,
	}
	for body, ok := range cases {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		})
		err := client.Register(context.Background(), RoleDoctor, Registration{Email: "d@x.test"})
		if ok {
			assert.NoError(t, err, body)
		} else {
			var logical *LogicalError
			assert.ErrorAs(t, err, &logical, body)
		}
		err = client.ForgotPassword(context.Background(), "d@x.test")
		assert.Equal(t, ok, err == nil, body)
	}
}

func TestPasswordReset(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/patientauth/forgot-password":
			_, _ = w.Write([]byte(`{"status":true}`))
		case "/patientauth/reset-password":
			body := decodeBody(t, r)
			assert.Equal(t, "123456", body["otp"])
			_, _ = w.Write([]byte(`{"status":false,"message":"OTP expired"}`))
		}
	})

	require.NoError(t, client.ForgotPassword(context.Background(), "p@x.test"))
	err := client.ResetPassword(context.Background(), "p@x.test", "123456", "newpw")
	assert.Equal(t, "OTP expired", BackendMessage(err))
}

func TestPublicBlogsIsAnonymous(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"blogs":[{"_id":"b1","title":"Desk stretches","body":"<p>Move</p>"}]}`))
	}))
	defer ts.Close()

	blogs, err := New(Config{BaseURL: ts.URL, Logger: logging.Discard()}).PublicBlogs(context.Background())
	require.NoError(t, err)
	require.Len(t, blogs, 1)
	assert.Equal(t, "Desk stretches", blogs[0].Title)
}

func TestContextCancelled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		_, _ = w.Write([]byte(`{"doctors":[]}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.ListDoctors(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseRole(t *testing.T) {
	role, ok := ParseRole(" Doctor ")
	assert.True(t, ok)
	assert.Equal(t, RoleDoctor, role)
	_, ok = ParseRole("nurse")
	assert.False(t, ok)
	assert.True(t, StatusCanceled.Valid())
	assert.False(t, AppointmentStatus("cancelled").Valid())
}
