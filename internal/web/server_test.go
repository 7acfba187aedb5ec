package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/events"
	"github.com/kozaktomas/face-attendance/internal/session"
	"github.com/kozaktomas/face-attendance/internal/web/handlers"
)

type stubController struct{ stops int }

func (c *stubController) Status() session.Status { return session.Status{State: session.StateRecording} }
func (c *stubController) Current() (*session.Session, bool) { return nil, false }
func (c *stubController) Stop() { c.stops++ }

func testServer(token string) (*Server, *stubController) {
	cfg := &config.Config{Web: config.WebConfig{Host: "127.0.0.1", Port: 0, Token: token}}
	ctrl := &stubController{}
	return NewServer(cfg, ctrl, events.NewBroadcaster(), handlers.NewFrameHub()), ctrl
}

func TestServer_Routes(t *testing.T) {
	s, _ := testServer("")

	tests := []struct {
		method     string
		path       string
		wantStatus int
	}{
		{http.MethodGet, "/api/v1/health", http.StatusOK},
		{http.MethodGet, "/api/v1/session", http.StatusOK},
		{http.MethodGet, "/api/v1/attendance", http.StatusNotFound},
		{http.MethodPost, "/api/v1/session/stop", http.StatusAccepted},
		{http.MethodGet, "/api/v1/session/stop", http.StatusMethodNotAllowed},
		{http.MethodGet, "/", http.StatusOK},
		{http.MethodGet, "/api/v1/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			s.Router().ServeHTTP(recorder, httptest.NewRequest(tt.method, tt.path, nil))
			if recorder.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, recorder.Code)
			}
		})
	}
}

func TestServer_IndexPage(t *testing.T) {
	s, _ := testServer("")
	recorder := httptest.NewRecorder()
	s.Router().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	body := recorder.Body.String()
	if !strings.Contains(body, "/stream.mjpeg") || !strings.Contains(body, "/api/v1/events") {
		t.Error("index page does not reference the frame and event streams")
	}
	if recorder.Header().Get("Content-Security-Policy") == "" {
		t.Error("expected security headers on the index page")
	}
}

func TestServer_StopRequiresToken(t *testing.T) {
	s, ctrl := testServer("s3cret")

	recorder := httptest.NewRecorder()
	s.Router().ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/api/v1/session/stop", nil))
	if recorder.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", recorder.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/session/stop", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	recorder = httptest.NewRecorder()
	s.Router().ServeHTTP(recorder, req)
	if recorder.Code != http.StatusAccepted {
		t.Errorf("expected status 202, got %d", recorder.Code)
	}
	if ctrl.stops != 1 {
		t.Errorf("expected 1 stop call, got %d", ctrl.stops)
	}
}

func TestServer_ShutdownWithoutStart(t *testing.T) {
	s, _ := testServer("")
	if err := s.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}
