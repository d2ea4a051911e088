package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vivwendy/internal/config"
	"vivwendy/internal/database"
	"vivwendy/internal/domain/account"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type testApp struct {
	t       *testing.T
	srv     *Server
	cookie  string
	adminID int64
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	cfg := config.Default()
	cfg.Uploads.Dir = t.TempDir()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Connect(fmt.Sprintf("file:server_%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, Models()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	srv, err := New(cfg, db, nil)
	require.NoError(t, err)

	admin, err := srv.Accounts.EnsureAdmin(context.Background(), "root", "root@example.com", "rootpass")
	require.NoError(t, err)

	return &testApp{t: t, srv: srv, cookie: cfg.Session.CookieName, adminID: admin.ID}
}

func (a *testApp) do(method, path string, body any, session *http.Cookie) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return a.serve(req, session)
}

func (a *testApp) serve(req *http.Request, session *http.Cookie) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	if session != nil {
		req.AddCookie(session)
	}
	rec := httptest.NewRecorder()
	a.srv.Handler().ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func (a *testApp) register(username, email, password string) int64 {
	a.t.Helper()
	rec, env := a.do(http.MethodPost, "/api/v1/auth/register", gin.H{
		"username": username, "email": email, "password": password,
	}, nil)
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())

	var data struct {
		User account.UserPublic `json:"user"`
	}
	require.NoError(a.t, json.Unmarshal(env.Data, &data))
	return data.User.ID
}

func (a *testApp) login(login, password string) (*http.Cookie, *httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	rec, env := a.do(http.MethodPost, "/api/v1/auth/login", gin.H{"login": login, "password": password}, nil)
	for _, c := range rec.Result().Cookies() {
		if c.Name == a.cookie && c.Value != "" {
			return c, rec, env
		}
	}
	return nil, rec, env
}

func (a *testApp) mustLogin(login, password string) *http.Cookie {
	a.t.Helper()
	c, rec, _ := a.login(login, password)
	require.NotNil(a.t, c, "login %s: %d %s", login, rec.Code, rec.Body.String())
	return c
}

func TestRegisterLoginAndMe(t *testing.T) {
	app := newTestApp(t)
	id := app.register("alice", "Alice@Example.com", "secret1")

	sess := app.mustLogin("alice@example.com", "secret1")
	assert.True(t, sess.HttpOnly)

	rec, env := app.do(http.MethodGet, "/api/v1/users/me", nil, sess)
	require.Equal(t, http.StatusOK, rec.Code)

	var data struct {
		User account.UserPublic `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, id, data.User.ID)
	assert.Equal(t, "alice@example.com", data.User.Email)
	assert.Equal(t, account.RoleUser, data.User.Role)
	assert.NotContains(t, rec.Body.String(), "password")

	rec, _ = app.do(http.MethodPost, "/api/v1/auth/logout", nil, sess)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	cleared := rec.Result().Cookies()
	require.NotEmpty(t, cleared)
	assert.True(t, cleared[0].MaxAge < 0)
}

func TestRegister_Conflicts(t *testing.T) {
	app := newTestApp(t)
	app.register("alice", "alice@example.com", "pw")

	rec, env := app.do(http.MethodPost, "/api/v1/auth/register", gin.H{
		"username": "alice", "email": "other@example.com", "password": "pw",
	}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "DUPLICATE_IDENTITY", env.Error.Code)

	rec, env = app.do(http.MethodPost, "/api/v1/auth/register", gin.H{"username": "bob"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestLockoutAfterFailedLogins(t *testing.T) {
	app := newTestApp(t)
	id := app.register("bob", "bob@example.com", "rightpw")

	for i := 0; i < 3; i++ {
		_, rec, env := app.login("bob", "wrong")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "INVALID_CREDENTIALS", env.Error.Code)
	}

	_, rec, env := app.login("bob", "wrong")
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "ACCOUNT_BANNED", env.Error.Code)
	assert.Equal(t, account.ReasonTooManyAttempts, env.Error.Details["reason"])

	// the right password does not help once banned
	c, rec, env := app.login("bob", "rightpw")
	assert.Nil(t, c)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "ACCOUNT_BANNED", env.Error.Code)

	admin := app.mustLogin("root", "rootpass")
	rec, _ = app.do(http.MethodPatch, fmt.Sprintf("/api/v1/admin/users/%d/unban", id), nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)

	app.mustLogin("bob", "rightpw")
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	app := newTestApp(t)
	app.register("carol", "carol@example.com", "pw1234")
	user := app.mustLogin("carol", "pw1234")

	rec, _ := app.do(http.MethodGet, "/api/v1/admin/users", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, env := app.do(http.MethodGet, "/api/v1/admin/users", nil, user)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	admin := app.mustLogin("root", "rootpass")
	rec, env = app.do(http.MethodGet, "/api/v1/admin/users", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)

	var data struct {
		Users []account.UserPublic `json:"users"`
		Total int                  `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, 2, data.Total)
}

func TestAdminBanAndSetPassword(t *testing.T) {
	app := newTestApp(t)
	id := app.register("dave", "dave@example.com", "oldpass")
	admin := app.mustLogin("root", "rootpass")

	rec, env := app.do(http.MethodPatch, fmt.Sprintf("/api/v1/admin/users/%d/ban", id), gin.H{"reason": "spam"}, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	_, rec, env = app.login("dave", "oldpass")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "spam", env.Error.Details["reason"])

	rec, env = app.do(http.MethodPut, fmt.Sprintf("/api/v1/admin/users/%d/password", id), gin.H{"password": "abc"}, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "PASSWORD_TOO_SHORT", env.Error.Code)

	// setting a password also reactivates the account
	rec, _ = app.do(http.MethodPut, fmt.Sprintf("/api/v1/admin/users/%d/password", id), gin.H{"password": "newpass"}, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	app.mustLogin("dave", "newpass")

	rec, env = app.do(http.MethodPatch, "/api/v1/admin/users/9999/ban", nil, admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	rec, _ = app.do(http.MethodPatch, "/api/v1/admin/users/abc/ban", nil, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBlockedEmails(t *testing.T) {
	app := newTestApp(t)
	id := app.register("erin", "erin@example.com", "erinpw")
	admin := app.mustLogin("root", "rootpass")

	rec, env := app.do(http.MethodPost, "/api/v1/admin/blocked-emails", gin.H{"email": "ERIN@example.com", "reason": "abuse"}, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var data struct {
		BannedUserIDs []int64 `json:"banned_user_ids"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, []int64{id}, data.BannedUserIDs)

	_, rec, env = app.login("erin", "erinpw")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, account.ReasonEmailBlocked, env.Error.Details["reason"])

	rec, env = app.do(http.MethodPost, "/api/v1/auth/register", gin.H{
		"username": "erin2", "email": "erin@example.com", "password": "pw",
	}, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "EMAIL_BLOCKED", env.Error.Code)

	rec, _ = app.do(http.MethodGet, "/api/v1/admin/blocked-emails", nil, admin)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "erin@example.com")

	rec, _ = app.do(http.MethodDelete, "/api/v1/admin/blocked-emails/erin@example.com", nil, admin)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// no longer blocked; the address is simply taken
	rec, env = app.do(http.MethodPost, "/api/v1/auth/register", gin.H{
		"username": "erin2", "email": "erin@example.com", "password": "pw",
	}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "DUPLICATE_IDENTITY", env.Error.Code)

	// unblocking the address keeps existing bans
	_, rec, _ = app.login("erin", "erinpw")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestOneShotPasswordReset(t *testing.T) {
	app := newTestApp(t)
	id := app.register("frank", "frank@example.com", "forgotten")
	admin := app.mustLogin("root", "rootpass")

	resetBody := gin.H{"user_id": id, "password": "fresh-pass", "confirm_password": "fresh-pass"}

	rec, env := app.do(http.MethodPost, "/api/v1/auth/reset-password", resetBody, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "RESET_NOT_PERMITTED", env.Error.Code)

	rec, _ = app.do(http.MethodPost, fmt.Sprintf("/api/v1/admin/users/%d/grant-reset", id), nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = app.do(http.MethodPost, "/api/v1/auth/reset-password", gin.H{
		"user_id": id, "password": "fresh-pass", "confirm_password": "other-pass",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "PASSWORD_MISMATCH", env.Error.Code)

	rec, _ = app.do(http.MethodPost, "/api/v1/auth/reset-password", resetBody, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, env = app.do(http.MethodPost, "/api/v1/auth/reset-password", resetBody, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "RESET_NOT_PERMITTED", env.Error.Code)

	app.mustLogin("frank", "fresh-pass")
}

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01")

func TestPersonsAndEvents(t *testing.T) {
	app := newTestApp(t)
	app.register("gina", "gina@example.com", "ginapw")
	sess := app.mustLogin("gina", "ginapw")

	rec, _ := app.do(http.MethodGet, "/api/v1/persons", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("name", "Ada Lovelace"))
	require.NoError(t, mw.WriteField("birthdate", "1815-12-10"))
	fw, err := mw.CreateFormFile("image", "ada.png")
	require.NoError(t, err)
	_, err = fw.Write(pngBytes)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/persons", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec, env := app.serve(req, sess)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Person struct {
			ID       int64  `json:"id"`
			ImageURL string `json:"image_url"`
		} `json:"person"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.True(t, strings.HasPrefix(created.Person.ImageURL, "/static/uploads/"), created.Person.ImageURL)

	rec, _ = app.do(http.MethodGet, created.Person.ImageURL, nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pngBytes, rec.Body.Bytes())

	eventsPath := fmt.Sprintf("/api/v1/persons/%d/events", created.Person.ID)
	rec, _ = app.do(http.MethodPost, eventsPath, gin.H{"title": "Note G", "date": "1843-09-01"}, sess)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec, _ = app.do(http.MethodPost, eventsPath, gin.H{"title": "Marriage", "date": "1835-07-08"}, sess)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env = app.do(http.MethodPost, eventsPath, gin.H{"title": "Bad", "date": "01/01/1850"}, sess)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	rec, env = app.do(http.MethodGet, fmt.Sprintf("/api/v1/persons/%d", created.Person.ID), nil, sess)
	require.Equal(t, http.StatusOK, rec.Code)

	var details struct {
		Person struct {
			Name   string `json:"name"`
			Events []struct {
				Title string `json:"title"`
			} `json:"events"`
		} `json:"person"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &details))
	assert.Equal(t, "Ada Lovelace", details.Person.Name)
	require.Len(t, details.Person.Events, 2)
	assert.Equal(t, "Marriage", details.Person.Events[0].Title)

	rec, _ = app.do(http.MethodPost, "/api/v1/persons/999/events", gin.H{"title": "x", "date": "2000-01-01"}, sess)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreatePerson_RejectsNonImage(t *testing.T) {
	app := newTestApp(t)
	app.register("hank", "hank@example.com", "hankpw")
	sess := app.mustLogin("hank", "hankpw")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("name", "Mallory"))
	fw, err := mw.CreateFormFile("image", "payload.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("<?php echo 1; ?>"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/persons", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec, env := app.serve(req, sess)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_FILE", env.Error.Code)
}

func TestAdminStats(t *testing.T) {
	app := newTestApp(t)
	app.register("ivan", "ivan@example.com", "ivanpw")
	admin := app.mustLogin("root", "rootpass")

	rec, env := app.do(http.MethodGet, "/api/v1/admin/stats", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var data struct {
		Stats struct {
			Users  int64 `json:"users"`
			Admins int64 `json:"admins"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, int64(2), data.Stats.Users)
	assert.Equal(t, int64(1), data.Stats.Admins)
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	rec, _ := app.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminEventLog(t *testing.T) {
	app := newTestApp(t)
	id := app.register("judy", "judy@example.com", "judypw")
	_, rec, _ := app.login("judy", "nope")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	admin := app.mustLogin("root", "rootpass")
	rec, env := app.do(http.MethodGet, fmt.Sprintf("/api/v1/admin/events?user_id=%d", id), nil, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var data struct {
		Events []struct {
			Type string `json:"type"`
		} `json:"events"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Events, 2)
	assert.Equal(t, string(account.EventLoginFailed), data.Events[0].Type)
	assert.Equal(t, string(account.EventRegistered), data.Events[1].Type)

	rec, _ = app.do(http.MethodGet, "/api/v1/admin/events?limit=abc", nil, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
