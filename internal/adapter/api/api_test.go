package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/burenotti/go_routines_backend/internal/adapter/storage"
	"github.com/burenotti/go_routines_backend/internal/adapter/storage/storagetest"
	attendanceapp "github.com/burenotti/go_routines_backend/internal/app/attendance"
	"github.com/burenotti/go_routines_backend/internal/app/identity"
	"github.com/burenotti/go_routines_backend/internal/app/messagebus"
	profileapp "github.com/burenotti/go_routines_backend/internal/app/profile"
	routineapp "github.com/burenotti/go_routines_backend/internal/app/routine"
	"github.com/burenotti/go_routines_backend/internal/app/unitofwork"
	"github.com/burenotti/go_routines_backend/internal/domain/profile"
	"github.com/burenotti/go_routines_backend/internal/domain/routine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type fixture struct {
	db         *storage.DB
	server     *Server
	authorizer *identity.Authorizer
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db := storagetest.Open(t)
	storagetest.AddProfile(t, db, "t-1", "Tina", "trainer")
	storagetest.AddProfile(t, db, "t-2", "Tom", "trainer")
	storagetest.AddProfile(t, db, "adm", "Root", "administrator")
	storagetest.AddProfile(t, db, "a-1", "Ana", "athlete")
	storagetest.AddProfile(t, db, "a-2", "Bruno", "athlete")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bus := messagebus.New(logger)
	t.Cleanup(bus.Close)

	now := func() time.Time { return time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC) }
	authorizer := &identity.Authorizer{Secret: "test-secret", AccessTokenTTL: time.Hour}

	server := NewServer(
		Logger(logger),
		DBContext(db),
		Authorizer(authorizer),
		RoutineService(routineapp.New(logger, routineapp.WithClock(now))),
		AttendanceService(attendanceapp.New(logger, now)),
		ProfileService(profileapp.New(logger)),
		MessageBus(bus),
	)

	return &fixture{db: db, server: server, authorizer: authorizer}
}

func (f *fixture) token(t *testing.T, userID string, role profile.Role) string {
	t.Helper()
	token, err := f.authorizer.IssueAccessToken(userID, role)
	require.NoError(t, err)
	return token
}

func (f *fixture) send(t *testing.T, req *http.Request, userID string, role profile.Role) *httptest.ResponseRecorder {
	t.Helper()
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+f.token(t, userID, role))
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64; rv:126.0) Gecko/20100101 Firefox/126.0")
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) do(t *testing.T, method, path string, body any, userID string, role profile.Role) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return f.send(t, req, userID, role)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (f *fixture) createRoutine(t *testing.T) RoutineResponse {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/routines", map[string]any{
		"title":       "Legs",
		"start_date":  "2024-06-01",
		"end_date":    "2024-06-30",
		"exercises":   []map[string]string{{"name": "Squats", "sets": "3", "reps": "10"}, {"name": ""}},
		"athlete_ids": []string{"a-1"},
	}, "t-1", profile.RoleTrainer)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[RoutineResponse](t, rec)
}

func TestLoginRequired(t *testing.T) {
	f := setup(t)

	rec := f.do(t, http.MethodGet, "/routines", nil, "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/routines", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateAndRead(t *testing.T) {
	f := setup(t)
	created := f.createRoutine(t)

	assert.Equal(t, "t-1", created.TrainerID)
	assert.Equal(t, []string{"a-1"}, created.AthleteIDs)
	require.Len(t, created.Exercises, 1)
	assert.Equal(t, "Squats", created.Exercises[0].Name)

	path := "/routines/" + created.RoutineID
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, path, nil, "a-1", profile.RoleAthlete).Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, path, nil, "adm", profile.RoleAdministrator).Code)

	foreign := f.do(t, http.MethodGet, path, nil, "t-2", profile.RoleTrainer)
	missing := f.do(t, http.MethodGet, "/routines/nope", nil, "t-2", profile.RoleTrainer)
	assert.Equal(t, http.StatusNotFound, foreign.Code)
	assert.Equal(t, http.StatusNotFound, missing.Code)
	assert.Equal(t, missing.Body.String(), foreign.Body.String())

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, path, nil, "a-2", profile.RoleAthlete).Code)

	list := decode[[]RoutineResponse](t, f.do(t, http.MethodGet, "/routines", nil, "a-2", profile.RoleAthlete))
	assert.Empty(t, list)
	list = decode[[]RoutineResponse](t, f.do(t, http.MethodGet, "/routines", nil, "t-1", profile.RoleTrainer))
	assert.Len(t, list, 1)
}

func TestCreateErrors(t *testing.T) {
	f := setup(t)

	tests := []struct {
		name   string
		body   map[string]any
		userID string
		role   profile.Role
		status int
		msg    string
	}{
		{
			name:   "reversed dates",
			body:   map[string]any{"title": "Legs", "start_date": "2024-06-30", "end_date": "2024-06-01", "athlete_ids": []string{"a-1"}},
			userID: "t-1", role: profile.RoleTrainer,
			status: http.StatusBadRequest,
		},
		{
			name:   "no athletes",
			body:   map[string]any{"title": "Legs", "start_date": "2024-06-01", "end_date": "2024-06-30"},
			userID: "t-1", role: profile.RoleTrainer,
			status: http.StatusBadRequest,
		},
		{
			name:   "bad date",
			body:   map[string]any{"title": "Legs", "start_date": "2024-13-01", "end_date": "2024-06-30", "athlete_ids": []string{"a-1"}},
			userID: "t-1", role: profile.RoleTrainer,
			status: http.StatusBadRequest,
			msg:    "invalid date",
		},
		{
			name:   "missing title",
			body:   map[string]any{"start_date": "2024-06-01", "end_date": "2024-06-30", "athlete_ids": []string{"a-1"}},
			userID: "t-1", role: profile.RoleTrainer,
			status: http.StatusBadRequest,
			msg:    "Title",
		},
		{
			name:   "athlete",
			body:   map[string]any{"title": "Legs", "start_date": "2024-06-01", "end_date": "2024-06-30", "athlete_ids": []string{"a-1"}},
			userID: "a-1", role: profile.RoleAthlete,
			status: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/routines", tt.body, tt.userID, tt.role)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			body := decode[JsonErrorModel](t, rec)
			assert.NotEmpty(t, body.Message)
			assert.NotContains(t, body.Message, "rolled back")
			if tt.msg != "" {
				assert.Contains(t, body.Message, tt.msg)
			}
		})
	}

	assert.Zero(t, storagetest.Count(t, f.db, "routines", "1 = 1"))
}

func TestUpdateAndRenew(t *testing.T) {
	f := setup(t)
	created := f.createRoutine(t)
	path := "/routines/" + created.RoutineID

	rec := f.do(t, http.MethodPut, path, map[string]any{
		"title":       "Legs v2",
		"exercises":   []map[string]string{{"name": "Lunges"}},
		"athlete_ids": []string{"a-2", "a-2"},
	}, "t-1", profile.RoleTrainer)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[RoutineResponse](t, rec)
	assert.Equal(t, "Legs v2", updated.Title)
	assert.Equal(t, []string{"a-2"}, updated.AthleteIDs)
	assert.Equal(t, "2024-06-30", string(*updated.EndDate))

	rec = f.do(t, http.MethodPut, path, map[string]any{"title": "Legs v3"}, "t-1", profile.RoleTrainer)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"a-2"}, decode[RoutineResponse](t, rec).AthleteIDs)

	rec = f.do(t, http.MethodPut, path, map[string]any{"title": "Mine now"}, "t-2", profile.RoleTrainer)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, path+"/renew", map[string]any{"months": 1}, "t-1", profile.RoleTrainer)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "2024-07-30", string(*decode[RoutineResponse](t, rec).EndDate))

	rec = f.do(t, http.MethodPost, path+"/renew", map[string]any{}, "t-1", profile.RoleTrainer)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[JsonErrorModel](t, rec).Message, "must supply months or an explicit new end date")
}

func TestExport(t *testing.T) {
	f := setup(t)
	created := f.createRoutine(t)
	path := "/routines/" + created.RoutineID + "/export"

	rec := f.do(t, http.MethodGet, path+"?format=csv", nil, "t-1", profile.RoleTrainer)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Equal(t, "attachment; filename=Legs.csv", rec.Header().Get("Content-Disposition"))
	assert.Contains(t, rec.Body.String(), `"Squats"`)
	assert.Contains(t, rec.Body.String(), `"Ana"`)

	rec = f.do(t, http.MethodGet, path, nil, "t-1", profile.RoleTrainer)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	rec = f.do(t, http.MethodGet, path+"?format=xml", nil, "t-1", profile.RoleTrainer)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, path, nil, "a-1", profile.RoleAthlete)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPost, path+"/archive?format=json", nil, "t-1", profile.RoleTrainer)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestImport(t *testing.T) {
	f := setup(t)

	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)
	part, err := form.CreateFormFile("file", "upper.csv")
	require.NoError(t, err)
	_, err = io.Copy(part, strings.NewReader("name,sets,reps\nBench,3,8\n,1,1\nRows,3,10\n"))
	require.NoError(t, err)
	require.NoError(t, form.WriteField("athlete_ids", "a-1,a-2"))
	require.NoError(t, form.WriteField("title", "Upper"))
	require.NoError(t, form.WriteField("start_date", "2024-06-01"))
	require.NoError(t, form.WriteField("end_date", "2024-07-01"))
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/routines/import", body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec := f.send(t, req, "t-1", profile.RoleTrainer)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	imported := decode[RoutineResponse](t, rec)
	assert.Equal(t, "Upper", imported.Title)
	assert.Equal(t, []string{"a-1", "a-2"}, imported.AthleteIDs)
	require.Len(t, imported.Exercises, 2)
	assert.Equal(t, "Bench", imported.Exercises[0].Name)
	assert.Equal(t, "Rows", imported.Exercises[1].Name)
}

func TestImportRequiresFile(t *testing.T) {
	f := setup(t)

	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)
	require.NoError(t, form.WriteField("athlete_ids", "a-1"))
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/routines/import", body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec := f.send(t, req, "t-1", profile.RoleTrainer)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDelete(t *testing.T) {
	f := setup(t)
	created := f.createRoutine(t)
	path := "/routines/" + created.RoutineID

	rec := f.do(t, http.MethodPut, path+"/attendance", map[string]any{"completed": true}, "a-1", profile.RoleAthlete)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, path, nil, "t-2", profile.RoleTrainer).Code)
	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, path, nil, "t-1", profile.RoleTrainer).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, path, nil, "t-1", profile.RoleTrainer).Code)

	assert.Zero(t, storagetest.Count(t, f.db, "attendance", "routine_id = ?", created.RoutineID))
	assert.Zero(t, storagetest.Count(t, f.db, "routine_assignments", "routine_id = ?", created.RoutineID))
}

func TestAdministratorOnMissingRoutine(t *testing.T) {
	f := setup(t)
	path := "/routines/missing"

	requests := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodGet, path, nil},
		{http.MethodPut, path, map[string]any{"title": "Ghost"}},
		{http.MethodPost, path + "/renew", map[string]any{"months": 1}},
		{http.MethodGet, path + "/export", nil},
		{http.MethodDelete, path, nil},
	}
	for _, r := range requests {
		t.Run(r.method+" "+r.path, func(t *testing.T) {
			rec := f.do(t, r.method, r.path, r.body, "adm", profile.RoleAdministrator)
			assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
		})
	}
}

func TestAttendance(t *testing.T) {
	f := setup(t)
	created := f.createRoutine(t)
	path := "/routines/" + created.RoutineID + "/attendance"

	rec := f.do(t, http.MethodPut, path, map[string]any{"completed": true}, "a-1", profile.RoleAthlete)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	marked := decode[AttendanceResponse](t, rec)
	assert.True(t, marked.Completed)
	require.NotNil(t, marked.CompletedAt)

	rec = f.do(t, http.MethodPut, path, map[string]any{"completed": false}, "a-1", profile.RoleAthlete)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode[AttendanceResponse](t, rec).CompletedAt)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPut, path, map[string]any{}, "a-1", profile.RoleAthlete).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPut, path, map[string]any{"completed": true}, "a-2", profile.RoleAthlete).Code)
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodPut, path, map[string]any{"completed": true}, "t-1", profile.RoleTrainer).Code)

	records := decode[[]AttendanceResponse](t, f.do(t, http.MethodGet, "/attendance", nil, "a-1", profile.RoleAthlete))
	require.Len(t, records, 1)
	assert.Equal(t, created.RoutineID, records[0].RoutineID)
	assert.Equal(t, 1, storagetest.Count(t, f.db, "attendance", "routine_id = ?", created.RoutineID))
}

func TestProfiles(t *testing.T) {
	f := setup(t)

	body := map[string]any{"full_name": "Dana", "email": "dana@club.test", "role": "athlete"}
	rec := f.do(t, http.MethodPut, "/profiles/a-9", body, "adm", profile.RoleAdministrator)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "athlete", decode[ProfileResponse](t, rec).Role)

	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodPut, "/profiles/a-9", body, "t-1", profile.RoleTrainer).Code)

	body["role"] = "coach"
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPut, "/profiles/a-9", body, "adm", profile.RoleAdministrator).Code)

	rec = f.do(t, http.MethodGet, "/profiles/me", nil, "a-9", profile.RoleAthlete)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Dana", decode[ProfileResponse](t, rec).FullName)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/profiles/me", nil, "ghost", profile.RoleAthlete).Code)
}

func TestClientOf(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, clientOf(req))

	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64; rv:126.0) Gecko/20100101 Firefox/126.0")
	assert.Equal(t, "Firefox 126.0 (Linux)", clientOf(req))
}

func TestErrorMapping(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, statusOf(io.ErrUnexpectedEOF))
	assert.Equal(t, http.StatusServiceUnavailable, statusOf(routineapp.ErrArchiveDisabled))
	assert.Equal(t, http.StatusConflict, statusOf(errors.Join(profile.ErrEmailTaken, io.EOF)))

	rolledBack := fmt.Errorf("get routine: %w", &unitofwork.RollbackError{Cause: routine.ErrNotFoundOrForbidden})
	assert.Equal(t, http.StatusNotFound, statusOf(rolledBack))
	assert.Equal(t, routine.ErrNotFoundOrForbidden.Error(), messageOf(rolledBack))
}

func TestTimeouts(t *testing.T) {
	s := NewServer(Logger(slog.New(slog.NewTextHandler(io.Discard, nil))), Timeouts(time.Second, 0, time.Minute))

	assert.Equal(t, time.Second, s.handler.Server.ReadTimeout)
	assert.Equal(t, 10*time.Second, s.handler.Server.WriteTimeout)
	assert.Equal(t, time.Minute, s.handler.Server.IdleTimeout)
}
