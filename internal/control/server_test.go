package control

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/krancour/porter/pkg/consumer"
	"github.com/stretchr/testify/require"
)

type fakeController struct {
	state consumer.State
	calls []string
}

func (f *fakeController) Pause() {
	f.calls = append(f.calls, "pause")
	f.state.Paused = true
}

func (f *fakeController) Resume() {
	f.calls = append(f.calls, "resume")
	f.state.Paused = false
}

func (f *fakeController) Shutdown() {
	f.calls = append(f.calls, "shutdown")
	f.state.ShutDown = true
}

func (f *fakeController) State() consumer.State {
	return f.state
}

func TestServer(t *testing.T) {
	testCases := []struct {
		name         string
		method       string
		path         string
		initialState consumer.State
		assertions   func(*fakeController, *httptest.ResponseRecorder)
	}{
		{
			name:   "health check",
			method: http.MethodGet,
			path:   "/healthz",
			assertions: func(c *fakeController, rr *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusOK, rr.Code)
				require.Equal(t, "{}", rr.Body.String())
				require.Empty(t, c.calls)
			},
		},
		{
			name:   "get state",
			method: http.MethodGet,
			path:   "/v1/consumer",
			initialState: consumer.State{
				Configured:        true,
				RemainingMessages: int64Ptr(3),
			},
			assertions: func(c *fakeController, rr *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusOK, rr.Code)
				require.Equal(
					t,
					"application/json",
					rr.Header().Get("Content-Type"),
				)
				state := consumer.State{}
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &state))
				require.True(t, state.Configured)
				require.Equal(t, int64(3), *state.RemainingMessages)
				require.Empty(t, c.calls)
			},
		},
		{
			name:   "pause",
			method: http.MethodPost,
			path:   "/v1/consumer/pause",
			assertions: func(c *fakeController, rr *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusAccepted, rr.Code)
				require.Equal(t, []string{"pause"}, c.calls)
				state := consumer.State{}
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &state))
				require.True(t, state.Paused)
			},
		},
		{
			name:         "resume",
			method:       http.MethodPost,
			path:         "/v1/consumer/resume",
			initialState: consumer.State{Paused: true},
			assertions: func(c *fakeController, rr *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusAccepted, rr.Code)
				require.Equal(t, []string{"resume"}, c.calls)
				require.False(t, c.state.Paused)
			},
		},
		{
			name:   "shutdown",
			method: http.MethodPost,
			path:   "/v1/consumer/shutdown",
			assertions: func(c *fakeController, rr *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusAccepted, rr.Code)
				require.Equal(t, []string{"shutdown"}, c.calls)
				require.True(t, c.state.ShutDown)
			},
		},
		{
			name:   "wrong method",
			method: http.MethodGet,
			path:   "/v1/consumer/shutdown",
			assertions: func(c *fakeController, rr *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
				require.Empty(t, c.calls)
			},
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			controller := &fakeController{state: testCase.initialState}
			s := NewServer(":0", controller)
			req := httptest.NewRequest(testCase.method, testCase.path, nil)
			rr := httptest.NewRecorder()
			s.Handler().ServeHTTP(rr, req)
			testCase.assertions(controller, rr)
		})
	}
}

func TestServerWithConsumer(t *testing.T) {
	c := consumer.NewConsumer(nil, nil)
	s := NewServer(":0", c)

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(
		rr,
		httptest.NewRequest(http.MethodPost, "/v1/consumer/pause", nil),
	)
	require.Equal(t, http.StatusAccepted, rr.Code)
	require.True(t, c.State().Paused)

	rr = httptest.NewRecorder()
	s.Handler().ServeHTTP(
		rr,
		httptest.NewRequest(http.MethodPost, "/v1/consumer/shutdown", nil),
	)
	require.True(t, c.State().ShutDown)
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	s := NewServer("127.0.0.1:0", &fakeController{})
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.ListenAndServe(ctx)
	}()
	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		require.Fail(t, "server did not stop")
	}
}

func int64Ptr(i int64) *int64 {
	return &i
}
