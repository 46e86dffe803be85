package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/adoption-service/internal/api/http/handlers"
	"github.com/spec-kit/adoption-service/internal/auth"
	"github.com/spec-kit/adoption-service/internal/config"
	"github.com/spec-kit/adoption-service/internal/events"
	"github.com/spec-kit/adoption-service/internal/imagestore"
	"github.com/spec-kit/adoption-service/internal/observability"
	"github.com/spec-kit/adoption-service/internal/persistence"
	"github.com/spec-kit/adoption-service/internal/repository/memory"
	"github.com/spec-kit/adoption-service/internal/service"
	"github.com/spec-kit/adoption-service/internal/worker"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type testServer struct {
	app    *fiber.App
	auth   *service.AuthService
	images *imagestore.MemoryStore
	queue  *worker.MemoryQueue
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	cfg := config.Config{
		App:  config.AppConfig{Name: "test", CORSOrigins: "*", RequestTimeoutSeconds: 5},
		Auth: config.AuthConfig{JWTSecret: "secret", AccessTokenTTLMinutes: 60, BcryptCost: 4},
	}
	metrics := observability.NewMetrics("test")
	store := memory.NewStore()
	images := imagestore.NewMemoryStore("test", "")
	queue := worker.NewMemoryQueue(16)
	dispatcher := events.NewInMemoryDispatcher()
	service.NewNotificationService(dispatcher, queue, logger, metrics).RegisterHandlers()

	authService := service.NewAuthService(cfg, store.Users(), logger)
	pets := service.NewPetService(service.PetDependencies{
		PetRepo:      store.Pets(),
		AdoptionRepo: store.Adoptions(),
		Images:       images,
		Dispatcher:   dispatcher,
		Logger:       logger,
	})
	adoptions := service.NewAdoptionService(service.AdoptionDependencies{
		AdoptionRepo: store.Adoptions(),
		PetRepo:      store.Pets(),
		UserRepo:     store.Users(),
		Dispatcher:   dispatcher,
		Metrics:      metrics,
		Logger:       logger,
	})

	app := NewServer(cfg.App, logger, metrics, RouteConfig{
		Health:         handlers.NewHealthHandler("test", "dev", &persistence.Postgres{}, &persistence.Redis{}),
		Auth:           handlers.NewAuthHandler(authService),
		Pets:           handlers.NewPetsHandler(pets),
		Adoptions:      handlers.NewAdoptionsHandler(adoptions),
		Admin:          handlers.NewAdminHandler(pets, adoptions),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), store.Users(), logger),
		Metrics:        metrics,
	})
	return &testServer{app: app, auth: authService, images: images, queue: queue}
}

func (s *testServer) do(t *testing.T, req *nethttp.Request) (int, map[string]any, []byte) {
	t.Helper()
	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	var body map[string]any
	_ = json.Unmarshal(raw, &body)
	return resp.StatusCode, body, raw
}

func jsonRequest(method, path, token string, payload any) *nethttp.Request {
	var body io.Reader
	if payload != nil {
		data, _ := json.Marshal(payload)
		body = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	return req
}

func petForm(t *testing.T, method, path, token string, fields map[string]string, image []byte) *nethttp.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if image != nil {
		part, err := w.CreateFormFile("image", "pet.png")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		_, _ = part.Write(image)
	}
	_ = w.Close()

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	return req
}

func (s *testServer) register(t *testing.T, email string) string {
	t.Helper()
	status, body, raw := s.do(t, jsonRequest(fiber.MethodPost, "/auth/register", "", map[string]string{
		"fullName": "Jane Doe",
		"email":    email,
		"phone":    "555-0101",
		"password": "secret123",
	}))
	if status != fiber.StatusCreated {
		t.Fatalf("register: %d %s", status, raw)
	}
	return body["token"].(string)
}

func (s *testServer) adminToken(t *testing.T) string {
	t.Helper()
	if _, _, err := s.auth.EnsureAdmin(context.Background(), service.RegisterInput{
		FullName: "Admin",
		Email:    "admin@example.com",
		Phone:    "555-0199",
		Password: "admin-pass",
	}); err != nil {
		t.Fatalf("ensure admin: %v", err)
	}
	status, body, raw := s.do(t, jsonRequest(fiber.MethodPost, "/auth/login", "", map[string]string{
		"email":    "admin@example.com",
		"password": "admin-pass",
	}))
	if status != fiber.StatusOK {
		t.Fatalf("admin login: %d %s", status, raw)
	}
	return body["token"].(string)
}

func TestAdoptionLifecycle(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken(t)
	alice := s.register(t, "alice@example.com")
	bob := s.register(t, "bob@example.com")

	status, body, raw := s.do(t, petForm(t, fiber.MethodPost, "/admin/pets", admin, map[string]string{
		"name":    "Milo",
		"breed":   "Beagle",
		"age":     "3",
		"species": "Dog",
		"gender":  "Male",
	}, pngBytes))
	if status != fiber.StatusCreated {
		t.Fatalf("create pet: %d %s", status, raw)
	}
	if body["message"] != "Pet added successfully" {
		t.Fatalf("unexpected message: %v", body["message"])
	}
	pet := body["pet"].(map[string]any)
	petID := pet["_id"].(string)
	if pet["status"] != "available" || pet["image"] == "" {
		t.Fatalf("unexpected pet: %v", pet)
	}
	if s.images.Len() != 1 {
		t.Fatalf("expected image stored, got %d", s.images.Len())
	}

	status, body, raw = s.do(t, jsonRequest(fiber.MethodPost, "/users/adopt", alice, map[string]string{"petId": petID}))
	if status != fiber.StatusCreated {
		t.Fatalf("adopt: %d %s", status, raw)
	}
	adoptionID := body["adoption"].(map[string]any)["_id"].(string)

	status, _, _ = s.do(t, jsonRequest(fiber.MethodPost, "/users/adopt", alice, map[string]string{"petId": petID}))
	if status != fiber.StatusBadRequest {
		t.Fatalf("duplicate request: expected 400, got %d", status)
	}
	status, _, _ = s.do(t, jsonRequest(fiber.MethodPost, "/users/adopt", bob, map[string]string{"petId": petID}))
	if status != fiber.StatusBadRequest {
		t.Fatalf("request on pending pet: expected 400, got %d", status)
	}

	status, _, raw = s.do(t, jsonRequest(fiber.MethodPut, "/admin/adoptions/"+adoptionID+"/approve", admin, nil))
	if status != fiber.StatusOK {
		t.Fatalf("approve: %d %s", status, raw)
	}
	status, body, _ = s.do(t, jsonRequest(fiber.MethodPut, "/admin/adoptions/"+adoptionID+"/reject", admin, nil))
	if status != fiber.StatusBadRequest || body["message"] != "Adoption already approved" {
		t.Fatalf("second resolve: %d %v", status, body)
	}

	status, body, raw = s.do(t, jsonRequest(fiber.MethodDelete, "/users/adoptions/"+adoptionID, alice, nil))
	if status != fiber.StatusBadRequest {
		t.Fatalf("withdraw approved: %d %s", status, raw)
	}

	status, _, raw = s.do(t, jsonRequest(fiber.MethodGet, "/pets", "", nil))
	if status != fiber.StatusOK {
		t.Fatalf("list pets: %d", status)
	}
	var listed []map[string]any
	if err := json.Unmarshal(raw, &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("adopted pet must be hidden from the catalog, got %v", listed)
	}

	job, err := s.queue.Dequeue(context.Background())
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if job.ToEmail != "alice@example.com" || job.PetName != "Milo" {
		t.Fatalf("unexpected notification: %+v", job)
	}
}

func TestAuthorization(t *testing.T) {
	s := newTestServer(t)
	user := s.register(t, "carol@example.com")

	status, body, _ := s.do(t, jsonRequest(fiber.MethodGet, "/users/adoptions", "", nil))
	if status != fiber.StatusUnauthorized || body["code"] != "UNAUTHORIZED" {
		t.Fatalf("missing token: %d %v", status, body)
	}
	status, _, _ = s.do(t, jsonRequest(fiber.MethodGet, "/users/adoptions", "garbage", nil))
	if status != fiber.StatusUnauthorized {
		t.Fatalf("bad token: expected 401, got %d", status)
	}
	status, _, _ = s.do(t, jsonRequest(fiber.MethodGet, "/admin/pets", user, nil))
	if status != fiber.StatusForbidden {
		t.Fatalf("non-admin: expected 403, got %d", status)
	}

	status, body, _ = s.do(t, jsonRequest(fiber.MethodGet, "/auth/me", user, nil))
	if status != fiber.StatusOK || body["email"] != "carol@example.com" || body["role"] != "user" {
		t.Fatalf("me: %d %v", status, body)
	}
	if _, ok := body["password"]; ok {
		t.Fatal("password hash exposed")
	}
}

func TestRegisterAndLoginErrors(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "dave@example.com")

	status, body, _ := s.do(t, jsonRequest(fiber.MethodPost, "/auth/register", "", map[string]string{
		"fullName": "Dave",
		"email":    "DAVE@example.com",
		"phone":    "555",
		"password": "secret123",
	}))
	if status != fiber.StatusBadRequest || body["message"] != "Email already registered" {
		t.Fatalf("duplicate email: %d %v", status, body)
	}

	status, _, _ = s.do(t, jsonRequest(fiber.MethodPost, "/auth/login", "", map[string]string{
		"email":    "dave@example.com",
		"password": "wrong-password",
	}))
	if status != fiber.StatusUnauthorized {
		t.Fatalf("wrong password: expected 401, got %d", status)
	}

	status, body, _ = s.do(t, jsonRequest(fiber.MethodPost, "/auth/register", "", map[string]string{
		"email": "not-an-email",
	}))
	if status != fiber.StatusBadRequest || body["code"] != "VALIDATION_FAILED" {
		t.Fatalf("invalid register: %d %v", status, body)
	}
}

func TestAdminPetValidation(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken(t)

	status, body, _ := s.do(t, petForm(t, fiber.MethodPost, "/admin/pets", admin, map[string]string{
		"name": "Nameless",
	}, nil))
	if status != fiber.StatusBadRequest || body["code"] != "VALIDATION_FAILED" {
		t.Fatalf("missing fields: %d %v", status, body)
	}

	status, body, _ = s.do(t, petForm(t, fiber.MethodPost, "/admin/pets", admin, map[string]string{
		"name":    "Tom",
		"breed":   "Tabby",
		"age":     "2",
		"species": "Cat",
		"gender":  "Male",
	}, []byte("plain text is not an image")))
	if status != fiber.StatusBadRequest || body["message"] != "Only JPEG, PNG, and WebP images are allowed" {
		t.Fatalf("bad image: %d %v", status, body)
	}
	if s.images.Len() != 0 {
		t.Fatal("rejected upload must not reach the image store")
	}

	status, _, _ = s.do(t, jsonRequest(fiber.MethodPut, "/admin/pets/does-not-exist", admin, map[string]string{"name": "X"}))
	if status != fiber.StatusNotFound {
		t.Fatalf("update missing pet: expected 404, got %d", status)
	}
}

func TestUpdateAndDeletePet(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken(t)

	_, body, _ := s.do(t, petForm(t, fiber.MethodPost, "/admin/pets", admin, map[string]string{
		"name":    "Kiwi",
		"breed":   "Parrot",
		"age":     "1",
		"species": "Bird",
		"gender":  "Female",
	}, pngBytes))
	petID := body["pet"].(map[string]any)["_id"].(string)

	status, body, raw := s.do(t, jsonRequest(fiber.MethodPut, "/admin/pets/"+petID, admin, map[string]any{
		"description": "Talks a lot",
		"age":         2,
	}))
	if status != fiber.StatusOK {
		t.Fatalf("update: %d %s", status, raw)
	}
	updated := body["pet"].(map[string]any)
	if updated["description"] != "Talks a lot" || updated["name"] != "Kiwi" {
		t.Fatalf("partial update lost fields: %v", updated)
	}

	status, _, _ = s.do(t, jsonRequest(fiber.MethodGet, "/pets/breeds", "", nil))
	if status != fiber.StatusOK {
		t.Fatalf("breeds: %d", status)
	}

	status, body, _ = s.do(t, jsonRequest(fiber.MethodDelete, "/admin/pets/"+petID, admin, nil))
	if status != fiber.StatusOK || body["message"] != "Pet deleted successfully" {
		t.Fatalf("delete: %d %v", status, body)
	}
	if s.images.Len() != 0 {
		t.Fatal("expected pet image removed")
	}
	status, _, _ = s.do(t, jsonRequest(fiber.MethodGet, "/pets/"+petID, "", nil))
	if status != fiber.StatusNotFound {
		t.Fatalf("deleted pet: expected 404, got %d", status)
	}
}

func TestOperationalEndpoints(t *testing.T) {
	s := newTestServer(t)

	status, body, _ := s.do(t, jsonRequest(fiber.MethodGet, "/health/ready", "", nil))
	if status != fiber.StatusOK {
		t.Fatalf("ready: %d %v", status, body)
	}
	deps := body["dependencies"].(map[string]any)
	if deps["postgres"] != "disabled" || deps["redis"] != "disabled" {
		t.Fatalf("unexpected dependency report: %v", deps)
	}

	status, _, raw := s.do(t, jsonRequest(fiber.MethodGet, "/metrics", "", nil))
	if status != fiber.StatusOK || !bytes.Contains(raw, []byte("http_requests_total")) {
		t.Fatalf("metrics: %d", status)
	}

	status, body, _ = s.do(t, jsonRequest(fiber.MethodGet, "/nowhere", "", nil))
	if status != fiber.StatusNotFound || body["code"] != "NOT_FOUND" {
		t.Fatalf("unmatched route: %d %v", status, body)
	}
}
