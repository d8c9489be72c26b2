package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	appointmenthandler "github.com/jwalitptl/medicare-api/internal/handler/appointment"
	authhandler "github.com/jwalitptl/medicare-api/internal/handler/auth"
	billinghandler "github.com/jwalitptl/medicare-api/internal/handler/billing"
	chathandler "github.com/jwalitptl/medicare-api/internal/handler/chat"
	"github.com/jwalitptl/medicare-api/internal/handler/health"
	notificationhandler "github.com/jwalitptl/medicare-api/internal/handler/notification"
	patienthandler "github.com/jwalitptl/medicare-api/internal/handler/patient"
	reporthandler "github.com/jwalitptl/medicare-api/internal/handler/report"
	"github.com/jwalitptl/medicare-api/internal/middleware"
	"github.com/jwalitptl/medicare-api/internal/model"
	"github.com/jwalitptl/medicare-api/internal/repository/repotest"
	"github.com/jwalitptl/medicare-api/internal/service/appointment"
	authsvc "github.com/jwalitptl/medicare-api/internal/service/auth"
	"github.com/jwalitptl/medicare-api/internal/service/billing"
	"github.com/jwalitptl/medicare-api/internal/service/chat"
	"github.com/jwalitptl/medicare-api/internal/service/notification"
	"github.com/jwalitptl/medicare-api/internal/service/patient"
	"github.com/jwalitptl/medicare-api/internal/service/report"
	"github.com/jwalitptl/medicare-api/internal/service/staff"
	"github.com/jwalitptl/medicare-api/pkg/auth"
	"github.com/jwalitptl/medicare-api/pkg/security"
)

type acceptAll struct{}

func (acceptAll) Enqueue(*model.Patient, notification.Event) bool { return true }

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

type apiFixture struct {
	engine  *gin.Engine
	store   *repotest.Store
	jwt     auth.JWTService
	patient *model.Patient
	other   *model.Patient
	doctor  *model.Staff
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	store := repotest.NewStore()
	jwt := auth.NewJWTService("test-secret", "medicare-test")
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	notifier := acceptAll{}

	hash, err := hasher.Hash("doctor-pass")
	require.NoError(t, err)
	cardiology := "Cardiology"

	f := &apiFixture{
		store:   store,
		jwt:     jwt,
		patient: store.AddPatient(model.Patient{Name: "Asha Rao", Phone: "9000000001"}),
		other:   store.AddPatient(model.Patient{Name: "Ravi Kumar", Phone: "9000000002"}),
		doctor: store.AddStaff(model.Staff{
			Name:           "Dr. Mehta",
			Email:          "mehta@medicare.test",
			PasswordHash:   hash,
			Role:           auth.RoleDoctor,
			Specialization: &cardiology,
		}),
	}

	chatSvc := chat.NewService(store.Chat(), store.Outbox(), store)
	patientSvc := patient.NewService(store.Patients(), hasher, notifier)
	workflow := appointment.NewWorkflow(appointment.WorkflowDeps{
		Tx:           store,
		Requests:     store.Requests(),
		Appointments: store.Appointments(),
		Patients:     store.Patients(),
		Staff:        store.Staff(),
		Outbox:       store.Outbox(),
		Chat:         chatSvc,
		Notifier:     notifier,
	})
	authMW := middleware.NewAuthMiddleware(jwt)

	r := NewRouter(authMW, Handlers{
		Health: health.NewHandler(pinger{}, prometheus.NewRegistry()),
		Auth:   authhandler.NewHandler(authsvc.NewService(store.Staff(), store.Patients(), jwt, hasher, time.Hour, nil)),
		Authenticated: []Handler{
			patienthandler.NewHandler(patientSvc, authMW),
			appointmenthandler.NewHandler(
				workflow,
				appointment.NewService(store.Appointments(), store.Patients(), store.Staff(), notifier, nil),
				authMW,
			),
			chathandler.NewHandler(chatSvc, staff.NewDirectory(store.Staff(), time.Minute), authMW),
			notificationhandler.NewHandler(patientSvc, notification.NewLogService(store.NotificationLogs()), authMW),
			reporthandler.NewHandler(report.NewService(store.Reports(), store.Patients(), notifier), authMW),
		},
		Staff: []Handler{
			billinghandler.NewHandler(billing.NewService(store, store.Bills(), store.Patients(), store.Outbox(), notifier, nil)),
		},
	}, RouterConfig{Mode: gin.TestMode, Registerer: prometheus.NewRegistry()})

	f.engine = r.Engine()
	return f
}

func (f *apiFixture) tokenFor(t *testing.T, id uuid.UUID, role string) string {
	t.Helper()
	token, err := f.jwt.Generate(auth.Claims{UserID: id, Role: role}, time.Hour)
	require.NoError(t, err)
	return token
}

func (f *apiFixture) patientToken(t *testing.T) string {
	return f.tokenFor(t, f.patient.ID, auth.RolePatient)
}

func (f *apiFixture) staffToken(t *testing.T) string {
	return f.tokenFor(t, f.doctor.ID, auth.RoleDoctor)
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w.Code, env
}

func TestHealthRoutes(t *testing.T) {
	f := newAPI(t)

	code, _ := f.do(t, http.MethodGet, "/api/v1/health/live", "", nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = f.do(t, http.MethodGet, "/api/v1/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestStaffLogin(t *testing.T) {
	f := newAPI(t)

	code, env := f.do(t, http.MethodPost, "/api/v1/auth/login", "", model.LoginRequest{
		Email: "mehta@medicare.test", Password: "doctor-pass",
	})
	require.Equal(t, http.StatusOK, code)

	var tok model.TokenResponse
	require.NoError(t, json.Unmarshal(env.Data, &tok))
	claims, err := f.jwt.Validate(tok.Token)
	require.NoError(t, err)
	assert.Equal(t, f.doctor.ID, claims.UserID)

	code, env = f.do(t, http.MethodPost, "/api/v1/auth/login", "", model.LoginRequest{
		Email: "mehta@medicare.test", Password: "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "error", env.Status)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	f := newAPI(t)

	code, _ := f.do(t, http.MethodGet, "/api/v1/appointments", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestRequestLifecycleOverHTTP(t *testing.T) {
	f := newAPI(t)
	patientTok := f.patientToken(t)
	staffTok := f.staffToken(t)

	code, env := f.do(t, http.MethodPost, "/api/v1/appointments/requests", patientTok, map[string]interface{}{
		"doctor_id":      f.doctor.ID,
		"requested_date": "2025-03-01",
		"requested_time": "10:00",
		"reason":         "Chest pain",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	var req model.AppointmentRequest
	require.NoError(t, json.Unmarshal(env.Data, &req))
	assert.Equal(t, f.patient.ID, req.PatientID)
	assert.Equal(t, model.RequestStatusPending, req.Status)

	code, _ = f.do(t, http.MethodGet, "/api/v1/appointments/requests", patientTok, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = f.do(t, http.MethodGet, "/api/v1/appointments/requests", staffTok, nil)
	require.Equal(t, http.StatusOK, code)
	var pending []model.PendingRequest
	require.NoError(t, json.Unmarshal(env.Data, &pending))
	require.Len(t, pending, 1)

	confirm := "/api/v1/appointments/requests/" + req.ID.String() + "/confirm"
	code, _ = f.do(t, http.MethodPost, confirm, staffTok, nil)
	require.Equal(t, http.StatusOK, code)

	code, env = f.do(t, http.MethodPost, confirm, staffTok, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "request already processed", env.Message)

	code, _ = f.do(t, http.MethodPost, "/api/v1/appointments/requests/"+req.ID.String()+"/reject", staffTok, nil)
	assert.Equal(t, http.StatusConflict, code)

	assert.Len(t, f.store.AppointmentsFor(f.patient.ID), 1)
}

func TestRejectWithoutBody(t *testing.T) {
	f := newAPI(t)

	code, env := f.do(t, http.MethodPost, "/api/v1/appointments/requests", f.patientToken(t), map[string]interface{}{
		"requested_date": "2025-03-02",
		"requested_time": "11:30",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	var req model.AppointmentRequest
	require.NoError(t, json.Unmarshal(env.Data, &req))

	code, _ = f.do(t, http.MethodPost, "/api/v1/appointments/requests/"+req.ID.String()+"/reject", f.staffToken(t), nil)
	require.Equal(t, http.StatusOK, code)

	msgs := f.store.MessagesFor(f.patient.ID)
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[1].Message, "No slot available at the requested time.")
}

func TestChatThreadIsolation(t *testing.T) {
	f := newAPI(t)
	patientTok := f.patientToken(t)

	own := "/api/v1/chat/" + f.patient.ID.String() + "/messages"
	code, env := f.do(t, http.MethodPost, own, patientTok, model.SendMessageRequest{Message: "Hello doctor"})
	require.Equal(t, http.StatusCreated, code, env.Message)
	var msg model.ChatMessage
	require.NoError(t, json.Unmarshal(env.Data, &msg))
	assert.Equal(t, model.SenderPatient, msg.SenderRole)
	assert.Nil(t, msg.SenderID)

	code, _ = f.do(t, http.MethodGet, "/api/v1/chat/"+f.other.ID.String()+"/messages", patientTok, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = f.do(t, http.MethodGet, "/api/v1/chat/patients", patientTok, nil)
	assert.Equal(t, http.StatusForbidden, code)

	staffTok := f.staffToken(t)
	code, env = f.do(t, http.MethodPost, own, staffTok, model.SendMessageRequest{Message: "Hi Asha", Priority: model.PriorityHigh})
	require.Equal(t, http.StatusCreated, code, env.Message)
	require.NoError(t, json.Unmarshal(env.Data, &msg))
	assert.Equal(t, model.SenderStaff, msg.SenderRole)
	require.NotNil(t, msg.SenderID)
	assert.Equal(t, f.doctor.ID, *msg.SenderID)

	code, env = f.do(t, http.MethodGet, "/api/v1/chat/unread/total", staffTok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"total":1}`, string(env.Data))

	code, _ = f.do(t, http.MethodPost, "/api/v1/chat/"+f.patient.ID.String()+"/read", staffTok, nil)
	require.Equal(t, http.StatusOK, code)
	_, env = f.do(t, http.MethodGet, "/api/v1/chat/unread/total", staffTok, nil)
	assert.JSONEq(t, `{"total":0}`, string(env.Data))

	code, env = f.do(t, http.MethodGet, "/api/v1/chat/"+f.patient.ID.String()+"/unread", patientTok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"unread":1}`, string(env.Data))
}

func TestPatientScoping(t *testing.T) {
	f := newAPI(t)
	patientTok := f.patientToken(t)

	code, _ := f.do(t, http.MethodGet, "/api/v1/patients/"+f.patient.ID.String(), patientTok, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = f.do(t, http.MethodGet, "/api/v1/patients/"+f.other.ID.String(), patientTok, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = f.do(t, http.MethodGet, "/api/v1/patients", patientTok, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = f.do(t, http.MethodGet, "/api/v1/bills", patientTok, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = f.do(t, http.MethodPost, "/api/v1/notifications/fcm-token", patientTok, model.RegisterPushTokenRequest{
		PatientID: f.other.ID, FCMToken: "token",
	})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = f.do(t, http.MethodPost, "/api/v1/notifications/fcm-token", patientTok, model.RegisterPushTokenRequest{
		PatientID: f.patient.ID, FCMToken: "token",
	})
	assert.Equal(t, http.StatusOK, code)
}

func TestInvalidPathID(t *testing.T) {
	f := newAPI(t)

	code, env := f.do(t, http.MethodGet, "/api/v1/appointments/not-a-uuid", f.staffToken(t), nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid id", env.Message)
}
