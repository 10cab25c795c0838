package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/calebmorten/shiftrelief/internal/app/maintenance"
	iauth "github.com/calebmorten/shiftrelief/internal/auth"
	"github.com/calebmorten/shiftrelief/internal/database/testutil"
	"github.com/calebmorten/shiftrelief/internal/models"
	"github.com/calebmorten/shiftrelief/internal/realtime"
	"github.com/calebmorten/shiftrelief/internal/services"
	"github.com/calebmorten/shiftrelief/pkg/mail"
)

type apiFixture struct {
	db     *gorm.DB
	jwt    *iauth.JWTService
	router *gin.Engine
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "test-secret", Issuer: "shiftrelief"})
	require.NoError(t, err)

	mailer, err := mail.NewSMTPMailer(mail.SMTPSettings{Enabled: false})
	require.NoError(t, err)

	hub := realtime.NewHub()

	directory, err := services.NewDirectoryService(db)
	require.NoError(t, err)
	dispatcher, err := services.NewDispatcher(directory, mailer, hub, services.LocaleSettings{
		Supported: []language.Tag{language.English, language.Spanish},
		Fallback:  language.English,
	})
	require.NoError(t, err)
	matching, err := services.NewMatchingService(db, directory, language.English)
	require.NoError(t, err)
	coordination, err := services.NewCoordinationService(db, dispatcher, directory, matching)
	require.NoError(t, err)
	availability, err := services.NewAvailabilityService(db)
	require.NoError(t, err)
	notifications, err := services.NewNotificationService(db)
	require.NoError(t, err)
	sweeper, err := maintenance.NewSweeper(coordination)
	require.NoError(t, err)

	router, err := NewRouter(Deps{
		DB:            db,
		JWT:           jwtSvc,
		Coordination:  coordination,
		Matching:      matching,
		Directory:     directory,
		Availability:  availability,
		Notifications: notifications,
		Hub:           hub,
		Sweeper:       sweeper,
	})
	require.NoError(t, err)

	return &apiFixture{db: db, jwt: jwtSvc, router: router}
}

func (f *apiFixture) createWorker(t *testing.T, username string, admin bool) (models.User, string) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)

	user := models.User{
		Username:  username,
		Email:     username + "@example.com",
		Password:  string(hash),
		FirstName: "Test",
		LastName:  username,
		IsAdmin:   admin,
		IsActive:  true,
	}
	require.NoError(t, f.db.Create(&user).Error)

	token, err := f.jwt.GenerateAccessToken(user.ID, user.IsAdmin)
	require.NoError(t, err)
	return user, token
}

func (f *apiFixture) createShift(t *testing.T) models.Recurrence {
	t.Helper()

	template := models.ShiftTemplate{
		Name:      "front desk",
		Weekday:   time.Monday,
		StartTime: "10:00",
		EndTime:   "14:00",
	}
	require.NoError(t, f.db.Create(&template).Error)

	recurrence := models.Recurrence{ShiftTemplateID: template.ID, Name: "every week"}
	require.NoError(t, f.db.Create(&recurrence).Error)
	return recurrence
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestLoginEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.createWorker(t, "maria", false)

	rec, env := f.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"username": "maria",
		"password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "INVALID_CREDENTIALS", env.Error.Code)

	rec, env = f.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"username": "maria",
		"password": "secret123",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.Token)
}

func TestRequestsRequireAuthentication(t *testing.T) {
	f := newAPIFixture(t)

	rec, env := f.do(t, http.MethodGet, "/api/requests", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "UNAUTHORIZED", env.Error.Code)
}

func TestVolunteerFlowOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	_, requesterToken := f.createWorker(t, "maria", false)
	volunteer, volunteerToken := f.createWorker(t, "jonas", false)
	recurrence := f.createShift(t)

	rec, env := f.do(t, http.MethodPost, "/api/requests", requesterToken, gin.H{
		"recurrence_id": recurrence.ID,
		"date":          "2030-01-07",
		"type":          "substitute",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var request services.RequestDTO
	require.NoError(t, json.Unmarshal(env.Data, &request))
	require.Equal(t, models.RequestStatusOpen, request.Status)

	rec, env = f.do(t, http.MethodPost, "/api/requests/"+request.ID+"/volunteer", volunteerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &request))
	require.Equal(t, models.RequestStatusAwaitingRequestConf, request.Status)

	// The board annotates the volunteer's own offer.
	rec, env = f.do(t, http.MethodGet, "/api/requests", volunteerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var board []services.RequestDTO
	require.NoError(t, json.Unmarshal(env.Data, &board))
	require.Len(t, board, 1)
	require.True(t, board[0].ViewerHasActiveOffer)

	rec, env = f.do(t, http.MethodPost, "/api/requests/"+request.ID+"/accept", requesterToken, gin.H{
		"volunteer_user_id": volunteer.ID,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &request))
	require.Equal(t, models.RequestStatusAccepted, request.Status)

	// The volunteer's inbox has the acceptance.
	rec, env = f.do(t, http.MethodGet, "/api/notifications?unread=true", volunteerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var inbox []models.Notification
	require.NoError(t, json.Unmarshal(env.Data, &inbox))
	require.Len(t, inbox, 1)

	// Accepting again conflicts.
	rec, env = f.do(t, http.MethodPost, "/api/requests/"+request.ID+"/accept", requesterToken, gin.H{
		"volunteer_user_id": volunteer.ID,
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "INVALID_STATE_TRANSITION", env.Error.Code)
}

func TestSweepEndpointRequiresAdmin(t *testing.T) {
	f := newAPIFixture(t)
	_, workerToken := f.createWorker(t, "maria", false)
	_, adminToken := f.createWorker(t, "boss", true)

	rec, env := f.do(t, http.MethodPost, "/api/system/sweep", workerToken, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "FORBIDDEN", env.Error.Code)

	rec, _ = f.do(t, http.MethodPost, "/api/system/sweep", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	rec, _ := f.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	metricsRec := httptest.NewRecorder()
	f.router.ServeHTTP(metricsRec, req)
	require.Equal(t, http.StatusOK, metricsRec.Code)
	require.Contains(t, metricsRec.Body.String(), "shiftrelief_")
}
