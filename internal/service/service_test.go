package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/adoption-service/internal/config"
	"github.com/spec-kit/adoption-service/internal/domain"
	"github.com/spec-kit/adoption-service/internal/events"
	"github.com/spec-kit/adoption-service/internal/imagestore"
	"github.com/spec-kit/adoption-service/internal/repository"
	"github.com/spec-kit/adoption-service/internal/repository/memory"
	"github.com/spec-kit/adoption-service/internal/worker"
	apperrors "github.com/spec-kit/adoption-service/pkg/util/errorutil"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type fixture struct {
	store     *memory.Store
	images    *imagestore.MemoryStore
	queue     *worker.MemoryQueue
	auth      *AuthService
	pets      *PetService
	adoptions *AdoptionService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()
	store := memory.NewStore()
	images := imagestore.NewMemoryStore("test", "")
	queue := worker.NewMemoryQueue(16)
	dispatcher := events.NewInMemoryDispatcher()
	NewNotificationService(dispatcher, queue, logger, nil).RegisterHandlers()

	cfg := config.Config{Auth: config.AuthConfig{JWTSecret: "secret", BcryptCost: 4}}
	return &fixture{
		store:  store,
		images: images,
		queue:  queue,
		auth:   NewAuthService(cfg, store.Users(), logger),
		pets: NewPetService(PetDependencies{
			PetRepo:      store.Pets(),
			AdoptionRepo: store.Adoptions(),
			Images:       images,
			Dispatcher:   dispatcher,
			Logger:       logger,
		}),
		adoptions: NewAdoptionService(AdoptionDependencies{
			AdoptionRepo: store.Adoptions(),
			PetRepo:      store.Pets(),
			UserRepo:     store.Users(),
			Dispatcher:   dispatcher,
			Logger:       logger,
		}),
	}
}

func (f *fixture) user(t *testing.T, email string) *domain.User {
	t.Helper()
	user, _, err := f.auth.Register(context.Background(), RegisterInput{
		FullName: "Test " + email,
		Email:    email,
		Phone:    "555-0100",
		Password: "secret123",
	})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return user
}

func (f *fixture) pet(t *testing.T, name string, withImage bool) *domain.Pet {
	t.Helper()
	species, gender, age, breed := domain.SpeciesDog, domain.GenderMale, 3, "Beagle"
	var upload *imagestore.Upload
	if withImage {
		upload = &imagestore.Upload{Body: bytes.NewReader(pngBytes), Size: int64(len(pngBytes)), ContentType: "image/png"}
	}
	pet, err := f.pets.Create(context.Background(), PetInput{
		Name: &name, Breed: &breed, Age: &age, Species: &species, Gender: &gender,
	}, upload)
	if err != nil {
		t.Fatalf("create pet: %v", err)
	}
	return pet
}

// drain returns every queued notification job.
func (f *fixture) drain() []worker.NotificationJob {
	var jobs []worker.NotificationJob
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		job, err := f.queue.Dequeue(ctx)
		cancel()
		if err != nil {
			return jobs
		}
		jobs = append(jobs, job)
	}
}

func (f *fixture) petStatus(t *testing.T, id string) domain.PetStatus {
	t.Helper()
	pet, err := f.store.Pets().GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get pet: %v", err)
	}
	return pet.Status
}

func assertDomainError(t *testing.T, err error, code, message string) {
	t.Helper()
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError %s, got %v", code, err)
	}
	if domainErr.Code != code {
		t.Fatalf("expected code %s, got %s (%s)", code, domainErr.Code, domainErr.Message)
	}
	if message != "" && domainErr.Message != message {
		t.Fatalf("expected message %q, got %q", message, domainErr.Message)
	}
}

func TestApproveThenOtherUserIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice@example.com"), f.user(t, "bob@example.com")
	admin := &domain.User{ID: "admin", Role: domain.RoleAdmin}
	pet := f.pet(t, "Milo", false)

	detail, err := f.adoptions.Request(ctx, alice, pet.ID)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if detail.Status != domain.AdoptionStatusPending || f.petStatus(t, pet.ID) != domain.PetStatusPending {
		t.Fatalf("expected pending adoption and pet")
	}

	approved, err := f.adoptions.Approve(ctx, admin, detail.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.AdoptedAt == nil {
		t.Fatal("expected adoptedAt set on approval")
	}
	if f.petStatus(t, pet.ID) != domain.PetStatusAdopted {
		t.Fatal("expected pet adopted")
	}

	jobs := f.drain()
	if len(jobs) != 1 || jobs[0].ToEmail != "alice@example.com" || jobs[0].PetName != "Milo" || jobs[0].Status != domain.AdoptionStatusApproved {
		t.Fatalf("expected one approval email job, got %+v", jobs)
	}

	_, err = f.adoptions.Request(ctx, bob, pet.ID)
	assertDomainError(t, err, apperrors.CodeConflict, msgPetAdopted)

	_, err = f.adoptions.Approve(ctx, admin, detail.ID)
	assertDomainError(t, err, apperrors.CodeConflict, "Adoption already approved")
	_, err = f.adoptions.Reject(ctx, admin, detail.ID)
	assertDomainError(t, err, apperrors.CodeConflict, "Adoption already approved")
	if len(f.drain()) != 0 {
		t.Fatal("repeated resolve must not queue another email")
	}
	if f.petStatus(t, pet.ID) != domain.PetStatusAdopted {
		t.Fatal("repeated resolve must not touch the pet")
	}
}

func TestRejectThenRequestAgain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice@example.com")
	admin := &domain.User{ID: "admin", Role: domain.RoleAdmin}
	pet := f.pet(t, "Luna", false)

	first, err := f.adoptions.Request(ctx, alice, pet.ID)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := f.adoptions.Reject(ctx, admin, first.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if f.petStatus(t, pet.ID) != domain.PetStatusAvailable {
		t.Fatal("expected pet available after reject")
	}
	jobs := f.drain()
	if len(jobs) != 1 || jobs[0].Status != domain.AdoptionStatusRejected {
		t.Fatalf("expected one rejection email job, got %+v", jobs)
	}

	second, err := f.adoptions.Request(ctx, alice, pet.ID)
	if err != nil {
		t.Fatalf("second request: %v", err)
	}
	if second.ID == first.ID {
		t.Fatal("expected a new adoption record")
	}
}

func TestRequestPreconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice@example.com"), f.user(t, "bob@example.com")
	pet := f.pet(t, "Rex", false)

	_, err := f.adoptions.Request(ctx, alice, "  ")
	assertDomainError(t, err, apperrors.CodeValidation, msgPetIDRequired)

	_, err = f.adoptions.Request(ctx, alice, "not-a-uuid")
	assertDomainError(t, err, apperrors.CodeNotFound, "Pet not found")

	_, err = f.adoptions.Request(ctx, alice, "1b4e28ba-2fa1-11d2-883f-0016d3cca427")
	assertDomainError(t, err, apperrors.CodeNotFound, "Pet not found")

	if _, err := f.adoptions.Request(ctx, alice, pet.ID); err != nil {
		t.Fatalf("request: %v", err)
	}
	_, err = f.adoptions.Request(ctx, alice, pet.ID)
	assertDomainError(t, err, apperrors.CodeConflict, msgDuplicateRequest)

	_, err = f.adoptions.Request(ctx, bob, pet.ID)
	assertDomainError(t, err, apperrors.CodeConflict, msgPetPending)
}

func TestWithdraw(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice@example.com"), f.user(t, "bob@example.com")
	admin := &domain.User{ID: "admin", Role: domain.RoleAdmin}
	pending := f.pet(t, "Kiwi", false)
	adopted := f.pet(t, "Pip", false)

	a1, _ := f.adoptions.Request(ctx, alice, pending.ID)
	a2, _ := f.adoptions.Request(ctx, alice, adopted.ID)
	if _, err := f.adoptions.Approve(ctx, admin, a2.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	err := f.adoptions.Withdraw(ctx, bob, a1.ID)
	assertDomainError(t, err, apperrors.CodeNotFound, "Adoption request not found")

	err = f.adoptions.Withdraw(ctx, alice, a2.ID)
	assertDomainError(t, err, apperrors.CodeConflict, msgApprovedWithdrawn)
	if f.petStatus(t, adopted.ID) != domain.PetStatusAdopted {
		t.Fatal("failed withdraw must leave the pet adopted")
	}

	if err := f.adoptions.Withdraw(ctx, alice, a1.ID); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if f.petStatus(t, pending.ID) != domain.PetStatusAvailable {
		t.Fatal("expected pet available after withdraw")
	}
	list, _ := f.adoptions.ListForUser(ctx, alice.ID)
	if len(list) != 1 || list[0].ID != a2.ID {
		t.Fatalf("expected only the approved adoption to remain, got %d", len(list))
	}
}

func TestListsAreNewestFirstWithDetails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice@example.com")
	p1, p2 := f.pet(t, "One", false), f.pet(t, "Two", false)

	if _, err := f.adoptions.Request(ctx, alice, p1.ID); err != nil {
		t.Fatalf("request: %v", err)
	}
	newest, err := f.adoptions.Request(ctx, alice, p2.ID)
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	all, err := f.adoptions.ListAll(ctx)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 || all[0].ID != newest.ID {
		t.Fatalf("expected newest first, got %+v", all)
	}
	if all[0].User == nil || all[0].User.Email != "alice@example.com" || all[0].Pet == nil || all[0].Pet.Name != "Two" {
		t.Fatalf("expected embedded user and pet, got %+v", all[0])
	}
}

func TestDeletePetCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice@example.com"), f.user(t, "bob@example.com")
	admin := &domain.User{ID: "admin", Role: domain.RoleAdmin}
	pet := f.pet(t, "Bolt", true)
	if !f.images.Has(pet.ImageKey) {
		t.Fatal("expected image uploaded on create")
	}

	first, _ := f.adoptions.Request(ctx, alice, pet.ID)
	if _, err := f.adoptions.Reject(ctx, admin, first.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := f.adoptions.Request(ctx, bob, pet.ID); err != nil {
		t.Fatalf("request: %v", err)
	}

	if err := f.pets.Delete(ctx, admin, pet.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if f.images.Len() != 0 {
		t.Fatal("expected remote image removed")
	}
	all, _ := f.adoptions.ListAll(ctx)
	if len(all) != 0 {
		t.Fatalf("expected adoptions removed, got %d", len(all))
	}
	_, err := f.pets.Get(ctx, pet.ID)
	assertDomainError(t, err, apperrors.CodeNotFound, "Pet not found")

	err = f.pets.Delete(ctx, admin, pet.ID)
	assertDomainError(t, err, apperrors.CodeNotFound, "Pet not found")
}

type failingUploads struct {
	*imagestore.MemoryStore
}

func (failingUploads) Upload(context.Context, imagestore.Upload) (imagestore.Image, error) {
	return imagestore.Image{}, errors.New("upload refused")
}

func TestUpdateReplacesImageAfterPersist(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pet := f.pet(t, "Shadow", true)
	oldKey := pet.ImageKey

	name := "Shadow II"
	updated, err := f.pets.Update(ctx, pet.ID, PetInput{Name: &name}, &imagestore.Upload{
		Body: bytes.NewReader(pngBytes), Size: int64(len(pngBytes)), ContentType: "image/png",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != name || updated.ImageKey == oldKey {
		t.Fatalf("expected new name and image, got %+v", updated)
	}
	if f.images.Has(oldKey) || !f.images.Has(updated.ImageKey) {
		t.Fatal("expected old image deleted and new image kept")
	}

	broken := NewPetService(PetDependencies{
		PetRepo:      f.store.Pets(),
		AdoptionRepo: f.store.Adoptions(),
		Images:       failingUploads{f.images},
		Logger:       zap.NewNop(),
	})
	_, err = broken.Update(ctx, pet.ID, PetInput{}, &imagestore.Upload{Body: bytes.NewReader(pngBytes), ContentType: "image/png"})
	assertDomainError(t, err, apperrors.CodeInternal, "")

	got, _ := f.pets.Get(ctx, pet.ID)
	if got.ImageKey != updated.ImageKey || !f.images.Has(updated.ImageKey) {
		t.Fatal("failed upload must keep the current image")
	}
}

func TestUpdateStatusGuardedByActiveAdoptions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice@example.com")
	pet := f.pet(t, "Nemo", false)

	for _, target := range []domain.PetStatus{domain.PetStatusPending, domain.PetStatusAdopted} {
		_, err := f.pets.Update(ctx, pet.ID, PetInput{Status: &target}, nil)
		assertDomainError(t, err, apperrors.CodeConflict, msgStatusWorkflow)
		if f.petStatus(t, pet.ID) != domain.PetStatusAvailable {
			t.Fatalf("refused edit to %s changed the pet", target)
		}
	}

	// The pet stays requestable after the refused edits.
	if _, err := f.adoptions.Request(ctx, alice, pet.ID); err != nil {
		t.Fatalf("request: %v", err)
	}
	available := domain.PetStatusAvailable
	_, err := f.pets.Update(ctx, pet.ID, PetInput{Status: &available}, nil)
	assertDomainError(t, err, apperrors.CodeConflict, msgStatusLocked)
	if f.petStatus(t, pet.ID) != domain.PetStatusPending {
		t.Fatal("guarded status edit must not change the pet")
	}

	bogus := domain.PetStatus("lost")
	_, err = f.pets.Update(ctx, pet.ID, PetInput{Status: &bogus}, nil)
	assertDomainError(t, err, apperrors.CodeValidation, "")
}

// seedStrandedPet stores a pending pet with no adoption behind it.
func (f *fixture) seedStrandedPet(t *testing.T) *domain.Pet {
	t.Helper()
	pet := &domain.Pet{
		Name:    "Stray",
		Breed:   "Mixed",
		Age:     4,
		Species: domain.SpeciesCat,
		Gender:  domain.GenderFemale,
		Status:  domain.PetStatusPending,
	}
	if err := f.store.Pets().Create(context.Background(), pet); err != nil {
		t.Fatalf("seed pet: %v", err)
	}
	return pet
}

func TestFailedUpdateKeepsStoredStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pet := f.seedStrandedPet(t)
	available := domain.PetStatusAvailable

	empty := ""
	_, err := f.pets.Update(ctx, pet.ID, PetInput{Status: &available, Name: &empty}, nil)
	assertDomainError(t, err, apperrors.CodeValidation, "")
	if f.petStatus(t, pet.ID) != domain.PetStatusPending {
		t.Fatal("status written despite invalid fields")
	}

	broken := NewPetService(PetDependencies{
		PetRepo:      f.store.Pets(),
		AdoptionRepo: f.store.Adoptions(),
		Images:       failingUploads{f.images},
		Logger:       zap.NewNop(),
	})
	_, err = broken.Update(ctx, pet.ID, PetInput{Status: &available},
		&imagestore.Upload{Body: bytes.NewReader(pngBytes), ContentType: "image/png"})
	assertDomainError(t, err, apperrors.CodeInternal, "")
	if f.petStatus(t, pet.ID) != domain.PetStatusPending {
		t.Fatal("status written despite failed upload")
	}

	updated, err := f.pets.Update(ctx, pet.ID, PetInput{Status: &available}, nil)
	if err != nil {
		t.Fatalf("release stranded pet: %v", err)
	}
	if updated.Status != domain.PetStatusAvailable || f.petStatus(t, pet.ID) != domain.PetStatusAvailable {
		t.Fatalf("expected available, got %s", updated.Status)
	}
}

func TestUpdateLosesToConcurrentRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice@example.com")
	pet := f.pet(t, "Biscuit", false)

	stale := *pet
	if _, err := f.adoptions.Request(ctx, alice, pet.ID); err != nil {
		t.Fatalf("request: %v", err)
	}
	stale.Name = "Renamed"
	if err := f.store.Pets().Update(ctx, &stale, domain.PetStatusAvailable); !errors.Is(err, repository.ErrStateChanged) {
		t.Fatalf("expected state changed, got %v", err)
	}
	got, _ := f.store.Pets().GetByID(ctx, pet.ID)
	if got.Status != domain.PetStatusPending || got.Name != "Biscuit" {
		t.Fatalf("stale write applied: %+v", got)
	}
}

// racedFindActive misses the caller's first active-adoption lookup, as when a
// second request from the same user lands between lookup and insert.
type racedFindActive struct {
	repository.AdoptionRepository
	missed bool
}

func (r *racedFindActive) FindActive(ctx context.Context, userID, petID string) (*domain.Adoption, error) {
	if !r.missed {
		r.missed = true
		return nil, repository.ErrNotFound
	}
	return r.AdoptionRepository.FindActive(ctx, userID, petID)
}

func TestSameUserRaceReportsDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice@example.com")
	pet := f.pet(t, "Pepper", false)

	if _, err := f.adoptions.Request(ctx, alice, pet.ID); err != nil {
		t.Fatalf("first request: %v", err)
	}
	raced := NewAdoptionService(AdoptionDependencies{
		AdoptionRepo: &racedFindActive{AdoptionRepository: f.store.Adoptions()},
		PetRepo:      f.store.Pets(),
		UserRepo:     f.store.Users(),
		Dispatcher:   events.NewInMemoryDispatcher(),
		Logger:       zap.NewNop(),
	})
	_, err := raced.Request(ctx, alice, pet.ID)
	assertDomainError(t, err, apperrors.CodeConflict, msgDuplicateRequest)

	bob := f.user(t, "bob@example.com")
	_, err = f.adoptions.Request(ctx, bob, pet.ID)
	assertDomainError(t, err, apperrors.CodeConflict, msgPetPending)
}

func TestPublicListHidesAdopted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice@example.com")
	admin := &domain.User{ID: "admin", Role: domain.RoleAdmin}
	visible := f.pet(t, "Visible", false)
	hidden := f.pet(t, "Hidden", false)

	req, _ := f.adoptions.Request(ctx, alice, hidden.ID)
	if _, err := f.adoptions.Approve(ctx, admin, req.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	for _, q := range []PetQuery{{}, {Search: "hidden"}, {Breed: "beagle"}, {Species: "Dog"}} {
		pets, err := f.pets.List(ctx, q)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		for _, p := range pets {
			if p.ID == hidden.ID {
				t.Fatalf("query %+v leaked an adopted pet", q)
			}
		}
	}
	pets, _ := f.pets.List(ctx, PetQuery{Search: "VISIB"})
	if len(pets) != 1 || pets[0].ID != visible.ID {
		t.Fatalf("expected case-insensitive search hit, got %+v", pets)
	}
	all, _ := f.pets.ListAll(ctx)
	if len(all) != 2 {
		t.Fatalf("admin list must include adopted pets, got %d", len(all))
	}
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t, "Carol@Example.com ")
	if user.Email != "carol@example.com" || user.Role != domain.RoleUser {
		t.Fatalf("unexpected user %+v", user)
	}

	_, _, err := f.auth.Register(ctx, RegisterInput{FullName: "Dup", Email: "CAROL@example.com", Password: "secret123"})
	assertDomainError(t, err, apperrors.CodeConflict, msgEmailRegistered)

	_, token, err := f.auth.Login(ctx, "carol@example.com", "secret123")
	if err != nil || token.Value == "" {
		t.Fatalf("login: %v", err)
	}
	claims, err := f.auth.TokenManager().ParseToken(token.Value)
	if err != nil || claims.UserID != user.ID {
		t.Fatalf("token does not identify user: %v", err)
	}

	_, _, err = f.auth.Login(ctx, "carol@example.com", "wrong")
	assertDomainError(t, err, apperrors.CodeUnauthorized, msgInvalidCredentials)
	_, _, err = f.auth.Login(ctx, "nobody@example.com", "secret123")
	assertDomainError(t, err, apperrors.CodeUnauthorized, msgInvalidCredentials)
	_, _, err = f.auth.Login(ctx, "", "secret123")
	assertDomainError(t, err, apperrors.CodeValidation, msgMissingCredentials)
}

func TestEnsureAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	admin, created, err := f.auth.EnsureAdmin(ctx, RegisterInput{FullName: "Root", Email: "root@example.com", Password: "toor123"})
	if err != nil || !created || admin.Role != domain.RoleAdmin {
		t.Fatalf("create admin: %v created=%v", err, created)
	}

	user := f.user(t, "dave@example.com")
	promoted, created, err := f.auth.EnsureAdmin(ctx, RegisterInput{Email: "dave@example.com"})
	if err != nil || created || promoted.ID != user.ID || promoted.Role != domain.RoleAdmin {
		t.Fatalf("promote: %v created=%v", err, created)
	}
	if _, _, err := f.auth.Login(ctx, "dave@example.com", "secret123"); err != nil {
		t.Fatalf("promotion without password must keep the old one: %v", err)
	}
}
