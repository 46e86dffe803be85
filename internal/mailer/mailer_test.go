package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spec-kit/adoption-service/internal/config"
	"github.com/spec-kit/adoption-service/internal/domain"
)

func TestAdoptionDecision(t *testing.T) {
	approved := AdoptionDecision("a@example.com", "Ann", "Milo", domain.AdoptionStatusApproved)
	if !strings.HasPrefix(approved.Body, `Great news! Your adoption request for "Milo" has been approved.`) {
		t.Fatalf("unexpected approved body: %s", approved.Body)
	}
	rejected := AdoptionDecision("a@example.com", "Ann", "Milo", domain.AdoptionStatusRejected)
	if !strings.Contains(rejected.Body, `request for "Milo" has been rejected`) {
		t.Fatalf("unexpected rejected body: %s", rejected.Body)
	}
}

func TestEmailJSSenderPostsTemplate(t *testing.T) {
	var got emailJSRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}))
	defer srv.Close()

	sender := NewEmailJSSender(config.NotificationConfig{
		EmailJSURL:      srv.URL,
		EmailJSService:  "svc",
		EmailJSTemplate: "tpl",
		EmailJSPublic:   "pub",
		EmailJSPrivate:  "priv",
	})
	msg := AdoptionDecision("a@example.com", "Ann", "Milo", domain.AdoptionStatusApproved)
	if err := sender.Send(context.Background(), msg); err != nil {
		t.Fatalf("send: %v", err)
	}

	if got.ServiceID != "svc" || got.TemplateID != "tpl" || got.UserID != "pub" || got.AccessToken != "priv" {
		t.Fatalf("unexpected envelope: %+v", got)
	}
	if got.TemplateParams["email"] != "a@example.com" || got.TemplateParams["name"] != "Ann" {
		t.Fatalf("unexpected params: %+v", got.TemplateParams)
	}
	if got.TemplateParams["message"] != msg.Body {
		t.Fatalf("unexpected message: %s", got.TemplateParams["message"])
	}
}

func TestEmailJSSenderReportsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "The Public Key is invalid", http.StatusBadRequest)
	}))
	defer srv.Close()

	sender := NewEmailJSSender(config.NotificationConfig{EmailJSURL: srv.URL})
	err := sender.Send(context.Background(), Message{ToEmail: "a@example.com"})
	var sendErr *SendError
	if !errors.As(err, &sendErr) || sendErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected SendError 400, got %v", err)
	}
}
