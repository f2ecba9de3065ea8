package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-core/internal/domain/attendance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenServer(t *testing.T, status int, token string, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		assert.Equal(t, scanPath, r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get(DeviceKeyHeader))

		var payload scanPayload
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Len(t, payload.UID, 8)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": status < 400,
			"data":    map[string]string{"token": token},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSession_FailsOverRoundRobin(t *testing.T) {
	var downHits, upHits int32
	down := tokenServer(t, http.StatusServiceUnavailable, "", &downHits)
	up := tokenServer(t, http.StatusOK, "SUCCESS:CHECKIN:Maria_Santos:IN", &upHits)

	session, err := NewSession(SessionConfig{
		Endpoints:   []string{down.URL, up.URL + "/"},
		DeviceKey:   "secret",
		MaxAttempts: 3,
	})
	require.NoError(t, err)

	token, err := session.Submit(context.Background(), "A1B2C3D4", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "SUCCESS:CHECKIN:Maria_Santos:IN", token)
	assert.Equal(t, up.URL, session.Endpoint())

	// The session stays on the working endpoint.
	_, err = session.Submit(context.Background(), "A1B2C3D4", time.Now())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&downHits))
	assert.Equal(t, int32(2), atomic.LoadInt32(&upHits))
}

func TestSession_RejectionTokenIsNotRetried(t *testing.T) {
	var hits, otherHits int32
	srv := tokenServer(t, http.StatusConflict, attendance.TokenAlreadyDone, &hits)
	other := tokenServer(t, http.StatusOK, "SUCCESS:CHECKIN:X:IN", &otherHits)

	session, err := NewSession(SessionConfig{Endpoints: []string{srv.URL, other.URL}, DeviceKey: "secret"})
	require.NoError(t, err)

	token, err := session.Submit(context.Background(), "A1B2C3D4", time.Now())
	require.NoError(t, err)
	assert.Equal(t, attendance.TokenAlreadyDone, token)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Zero(t, atomic.LoadInt32(&otherHits))
}

func TestSession_AllAttemptsFail(t *testing.T) {
	var hits int32
	down := tokenServer(t, http.StatusInternalServerError, attendance.TokenSystemError, &hits)

	session, err := NewSession(SessionConfig{
		Endpoints:   []string{down.URL, "http://127.0.0.1:1"},
		DeviceKey:   "secret",
		MaxAttempts: 4,
	})
	require.NoError(t, err)

	token, err := session.Submit(context.Background(), "A1B2C3D4", time.Now())
	assert.Error(t, err)
	assert.Equal(t, attendance.TokenSystemError, token)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestNewSession_RequiresEndpoint(t *testing.T) {
	_, err := NewSession(SessionConfig{Endpoints: []string{" ", ""}})
	assert.ErrorIs(t, err, ErrNoEndpoints)
}

type recordingSubmitter struct {
	uids []string
}

func (r *recordingSubmitter) Submit(ctx context.Context, uid string, scannedAt time.Time) (string, error) {
	r.uids = append(r.uids, uid)
	return "SUCCESS:CHECKIN:Maria_Santos:IN", nil
}

func TestBridge_Serve(t *testing.T) {
	submitter := &recordingSubmitter{}
	debouncer := NewDebouncer(3 * time.Second)

	now := time.Date(2025, 3, 3, 8, 0, 0, 0, attendance.Location)
	debouncer.now = func() time.Time { return now }

	b := New(submitter, debouncer)

	in := strings.NewReader(strings.Join([]string{
		"UID:a1b2c3d4",
		"UID:A1B2C3D4",
		"",
		"garbage",
		"UID:DEADBEEF",
	}, "\n"))
	var out bytes.Buffer

	require.NoError(t, b.Serve(context.Background(), in, &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, []string{
		"SUCCESS:CHECKIN:Maria_Santos:IN",
		attendance.TokenInvalidUID,
		"SUCCESS:CHECKIN:Maria_Santos:IN",
	}, lines)
	assert.Equal(t, []string{"A1B2C3D4", "DEADBEEF"}, submitter.uids)
}

func TestDebouncer_Window(t *testing.T) {
	d := NewDebouncer(3 * time.Second)
	now := time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }

	assert.True(t, d.Allow("A1B2C3D4"))
	now = now.Add(2 * time.Second)
	assert.False(t, d.Allow("A1B2C3D4"))
	assert.True(t, d.Allow("DEADBEEF"))
	now = now.Add(1 * time.Second)
	assert.True(t, d.Allow("A1B2C3D4"))
}
