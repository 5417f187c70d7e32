package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nirmalyamohanty/redfitchat/internal/api"
	"github.com/nirmalyamohanty/redfitchat/internal/auth"
	"github.com/nirmalyamohanty/redfitchat/internal/chat"
	"github.com/nirmalyamohanty/redfitchat/internal/models"
	"github.com/nirmalyamohanty/redfitchat/internal/moderation"
	"github.com/nirmalyamohanty/redfitchat/internal/ratelimit"
	"github.com/nirmalyamohanty/redfitchat/internal/socket"
	"github.com/nirmalyamohanty/redfitchat/internal/store"
)

const testSecret = "handlers-test-secret"

type apiFixture struct {
	server *httptest.Server
	store  *store.SQLiteStore
	svc    *chat.Service
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	st, err := store.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(st.Close)

	verifier := auth.NewVerifier(testSecret, st)
	svc := chat.NewService(st, ratelimit.NewMemoryLimiter(1000, time.Minute), moderation.NewWordFilter(nil), zerolog.Nop())
	hub := socket.NewHub(svc, verifier, zerolog.Nop())
	svc.SetBroadcaster(hub)

	router := api.NewRouter(zerolog.Nop(), svc, st, hub, verifier)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &apiFixture{server: server, store: st, svc: svc}
}

func (f *apiFixture) userToken(t *testing.T, name string) (string, *models.User) {
	t.Helper()
	user, err := f.store.CreateUser(context.Background(), name, "")
	require.NoError(t, err)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": user.ID.String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token, user
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestGuestSessionFlow(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodPost, "/auth/guest", "", map[string]string{"name": "visitor"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var session struct {
		Token string `json:"token"`
		Name  string `json:"name"`
	}
	decode(t, resp, &session)
	assert.Equal(t, "visitor", session.Name)
	require.NotEmpty(t, session.Token)

	// The minted credential works on authenticated routes
	resp = f.do(t, http.MethodPost, "/messages/global", session.Token, map[string]string{"text": "hi"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestAuthenticatedRoutesRejectMissingCredential(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodGet, "/messages/global", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/messages/global", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGlobalMessageRoundtrip(t *testing.T) {
	f := newAPIFixture(t)
	token, user := f.userToken(t, "alice")

	resp := f.do(t, http.MethodPost, "/messages/global", token, map[string]string{"text": "hello"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var sent models.Message
	decode(t, resp, &sent)
	assert.NotEmpty(t, sent.ID)
	assert.Equal(t, user.ID.String(), sent.SenderID)

	resp = f.do(t, http.MethodGet, "/messages/global", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page struct {
		Messages []models.Message `json:"messages"`
		HasMore  bool             `json:"has_more"`
	}
	decode(t, resp, &page)
	require.Len(t, page.Messages, 1)
	assert.Equal(t, sent.ID, page.Messages[0].ID)
	assert.False(t, page.HasMore)
}

func TestHistoryPaginationHasMore(t *testing.T) {
	f := newAPIFixture(t)
	token, _ := f.userToken(t, "alice")

	for i := 0; i < 3; i++ {
		resp := f.do(t, http.MethodPost, "/messages/global", token, map[string]string{"text": fmt.Sprintf("m%d", i)})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp := f.do(t, http.MethodGet, "/messages/global?limit=2", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page struct {
		Messages []models.Message `json:"messages"`
		HasMore  bool             `json:"has_more"`
	}
	decode(t, resp, &page)
	require.Len(t, page.Messages, 2)
	assert.True(t, page.HasMore)
	// Chronological within the page
	assert.LessOrEqual(t, page.Messages[0].CreatedAt, page.Messages[1].CreatedAt)

	// Fetch the older remainder with the cursor
	before := page.Messages[0].CreatedAt
	resp = f.do(t, http.MethodGet, fmt.Sprintf("/messages/global?limit=2&before=%d", before), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &page)
	assert.False(t, page.HasMore)
}

func TestEmptyHistoryReturnsEmptyArray(t *testing.T) {
	f := newAPIFixture(t)
	token, _ := f.userToken(t, "alice")

	resp := f.do(t, http.MethodGet, "/messages/global", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page struct {
		Messages []models.Message `json:"messages"`
	}
	decode(t, resp, &page)
	assert.NotNil(t, page.Messages)
	assert.Empty(t, page.Messages)
}

func TestPersonalRoomFlow(t *testing.T) {
	f := newAPIFixture(t)
	aliceToken, _ := f.userToken(t, "alice")
	bobToken, bob := f.userToken(t, "bob")
	carolToken, _ := f.userToken(t, "carol")

	resp := f.do(t, http.MethodPost, "/chats/with/"+bob.ID.String(), aliceToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var view chat.ChatView
	decode(t, resp, &view)
	roomID := view.Chat.ID.String()
	require.NotNil(t, view.OtherUser)
	assert.Equal(t, "bob", view.OtherUser.Username)

	resp = f.do(t, http.MethodPost, "/messages/personal/"+roomID, aliceToken, map[string]string{"text": "hey bob"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// The other participant reads it
	resp = f.do(t, http.MethodGet, "/messages/personal/"+roomID, bobToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page struct {
		Messages []models.Message `json:"messages"`
	}
	decode(t, resp, &page)
	require.Len(t, page.Messages, 1)
	assert.Equal(t, "hey bob", page.Messages[0].Text)

	// A third account cannot
	resp = f.do(t, http.MethodGet, "/messages/personal/"+roomID, carolToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// The room shows up in both participants' lists
	resp = f.do(t, http.MethodGet, "/chats", bobToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var chats []chat.ChatView
	decode(t, resp, &chats)
	require.Len(t, chats, 1)
	assert.Equal(t, view.Chat.ID, chats[0].Chat.ID)
	require.NotNil(t, chats[0].LastMessage)
	assert.Equal(t, "hey bob", chats[0].LastMessage.Text)
}

func TestStartChatValidation(t *testing.T) {
	f := newAPIFixture(t)
	token, user := f.userToken(t, "alice")

	resp := f.do(t, http.MethodPost, "/chats/with/"+user.ID.String(), token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/chats/with/"+uuid.NewString(), token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/chats/with/not-a-uuid", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBlockEndpointsGatePersonalRoom(t *testing.T) {
	f := newAPIFixture(t)
	aliceToken, _ := f.userToken(t, "alice")
	_, bob := f.userToken(t, "bob")

	resp := f.do(t, http.MethodPost, "/chats/with/"+bob.ID.String(), aliceToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view chat.ChatView
	decode(t, resp, &view)
	roomID := view.Chat.ID.String()

	resp = f.do(t, http.MethodPost, "/users/"+bob.ID.String()+"/block", aliceToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/messages/personal/"+roomID, aliceToken, map[string]string{"text": "hi"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = f.do(t, http.MethodDelete, "/users/"+bob.ID.String()+"/block", aliceToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/messages/personal/"+roomID, aliceToken, map[string]string{"text": "hi"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestRateLimitMapsTo429(t *testing.T) {
	f := newAPIFixture(t)

	// Rebuild the fixture pieces with a one-per-hour limiter
	st, err := store.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "rl.db"))
	require.NoError(t, err)
	t.Cleanup(st.Close)
	verifier := auth.NewVerifier(testSecret, st)
	svc := chat.NewService(st, ratelimit.NewMemoryLimiter(1, time.Hour), moderation.NewWordFilter(nil), zerolog.Nop())
	hub := socket.NewHub(svc, verifier, zerolog.Nop())
	svc.SetBroadcaster(hub)
	server := httptest.NewServer(api.NewRouter(zerolog.Nop(), svc, st, hub, verifier))
	t.Cleanup(server.Close)
	f = &apiFixture{server: server, store: st, svc: svc}

	token, _ := f.userToken(t, "alice")

	resp := f.do(t, http.MethodPost, "/messages/global", token, map[string]string{"text": "one"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/messages/global", token, map[string]string{"text": "two"})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestUserProfile(t *testing.T) {
	f := newAPIFixture(t)
	token, user := f.userToken(t, "alice")

	resp := f.do(t, http.MethodPost, "/messages/global", token, map[string]string{"text": "hello"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Profile is public, no credential needed
	resp = f.do(t, http.MethodGet, "/users/"+user.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var profile struct {
		Username     string `json:"username"`
		MessageCount int64  `json:"message_count"`
	}
	decode(t, resp, &profile)
	assert.Equal(t, "alice", profile.Username)
	assert.EqualValues(t, 1, profile.MessageCount)

	resp = f.do(t, http.MethodGet, "/users/"+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStatsCountsPlatformActivity(t *testing.T) {
	f := newAPIFixture(t)
	aliceToken, _ := f.userToken(t, "alice")
	_, bob := f.userToken(t, "bob")

	// Stats are public and start empty
	resp := f.do(t, http.MethodGet, "/stats", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats struct {
		TotalUsers    int64  `json:"total_users"`
		TotalChats    int64  `json:"total_chats"`
		TotalMessages int64  `json:"total_messages"`
		LastActivity  string `json:"last_activity"`
	}
	decode(t, resp, &stats)
	assert.EqualValues(t, 2, stats.TotalUsers)
	assert.Zero(t, stats.TotalMessages)
	assert.Equal(t, "no activity yet", stats.LastActivity)

	resp = f.do(t, http.MethodPost, "/chats/with/"+bob.ID.String(), aliceToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = f.do(t, http.MethodPost, "/messages/global", aliceToken, map[string]string{"text": "hello"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/stats", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &stats)
	assert.EqualValues(t, 1, stats.TotalChats)
	assert.EqualValues(t, 1, stats.TotalMessages)
	assert.Equal(t, "just now", stats.LastActivity)
}

func TestReportMessage(t *testing.T) {
	f := newAPIFixture(t)
	aliceToken, _ := f.userToken(t, "alice")
	bobToken, _ := f.userToken(t, "bob")

	resp := f.do(t, http.MethodPost, "/messages/global", aliceToken, map[string]string{"text": "rude"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var sent models.Message
	decode(t, resp, &sent)

	resp = f.do(t, http.MethodPost, "/messages/"+sent.ID+"/report", bobToken, map[string]string{"reason": "offensive"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	// Empty body is fine, the reason is optional
	resp = f.do(t, http.MethodPost, "/messages/"+sent.ID+"/report", bobToken, nil)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	// Unknown messages cannot be reported
	resp = f.do(t, http.MethodPost, "/messages/nope/report", bobToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Guests cannot file reports
	resp = f.do(t, http.MethodPost, "/auth/guest", "", map[string]string{"name": "visitor"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var session struct {
		Token string `json:"token"`
	}
	decode(t, resp, &session)
	resp = f.do(t, http.MethodPost, "/messages/"+sent.ID+"/report", session.Token, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHealthAndRoot(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
