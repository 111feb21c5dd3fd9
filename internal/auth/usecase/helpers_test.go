package usecase_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"secure-auth/internal/auth/adapter/persistence/memory"
	"secure-auth/internal/auth/adapter/security"
	"secure-auth/internal/auth/config"
	"secure-auth/internal/auth/domain/model"
	"secure-auth/internal/auth/testutil"
	"secure-auth/internal/auth/usecase"

	"github.com/stretchr/testify/mock"
)

var errStoreDown = errors.New("connection refused")

// harness wires every session usecase against in-memory stores and a fake clock.
type harness struct {
	sessions *memory.SessionRepository
	users    *memory.UserRepository
	tokens   *security.JWTokenService
	clock    *testutil.Clock
	observer *recordingObserver
	comps    *usecase.SessionComponents
	user     *model.User
}

func newHarness(opts ...config.PolicyOption) *harness {
	h := &harness{
		sessions: memory.NewSessionRepository(),
		users:    memory.NewUserRepository(),
		clock:    testutil.NewClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)),
		observer: &recordingObserver{},
	}
	tokens, err := security.NewJWTokenService(&config.Config{
		JWTSecretKey: "test-secret-key-32-characters-long-12345",
		JWTIssuer:    "test-issuer",
		TokenTTL:     7 * 24 * time.Hour,
	})
	if err != nil {
		panic(err)
	}
	h.tokens = tokens

	h.user = testutil.NewUserFixture().ValidUser()
	if err := h.users.CreateUser(context.Background(), h.user); err != nil {
		panic(err)
	}

	comps, err := usecase.NewSessionComponents(h.deps(opts...))
	if err != nil {
		panic(err)
	}
	h.comps = comps
	return h
}

func (h *harness) deps(opts ...config.PolicyOption) usecase.SessionDeps {
	return usecase.SessionDeps{
		Sessions: h.sessions,
		Users:    h.users,
		Tokens:   h.tokens,
		Policy:   config.NewSessionPolicy(opts...),
		Observer: h.observer,
		Clock:    h.clock.Now,
	}
}

// login issues a session for the harness user one second after the previous one.
func (h *harness) login(cc model.ClientContext) *usecase.IssuedSession {
	h.clock.Advance(time.Second)
	issued, err := h.comps.Issuer.Issue(context.Background(), h.user.ID, cc)
	if err != nil {
		panic(err)
	}
	return issued
}

func (h *harness) stored(id string) *model.Session {
	s, err := h.sessions.FindByID(context.Background(), id)
	if err != nil {
		panic(err)
	}
	return s
}

type recordingObserver struct {
	mu          sync.Mutex
	issued      []string
	revocations []usecase.Revocation
	outcomes    []string
	hijacks     []usecase.HijackSignal
}

func (o *recordingObserver) SessionIssued(_ context.Context, s *model.Session) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.issued = append(o.issued, s.SessionID)
}

func (o *recordingObserver) SessionsRevoked(_ context.Context, rev usecase.Revocation) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.revocations = append(o.revocations, rev)
}

func (o *recordingObserver) ValidationCompleted(_ context.Context, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func (o *recordingObserver) HijackDetected(_ context.Context, sig usecase.HijackSignal) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.hijacks = append(o.hijacks, sig)
}

func (o *recordingObserver) lastOutcome() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.outcomes) == 0 {
		return ""
	}
	return o.outcomes[len(o.outcomes)-1]
}

// flakySessions fails selected operations and delegates the rest to memory.
type flakySessions struct {
	*memory.SessionRepository
	failCreate   bool
	failFind     bool
	failCount    bool
	failTouch    bool
	failBulk     bool
	failByID     bool
	failDeactive bool
}

func (f *flakySessions) Create(ctx context.Context, s *model.Session) error {
	if f.failCreate {
		return errStoreDown
	}
	return f.SessionRepository.Create(ctx, s)
}

func (f *flakySessions) FindActive(ctx context.Context, id, userID string) (*model.Session, error) {
	if f.failFind {
		return nil, errStoreDown
	}
	return f.SessionRepository.FindActive(ctx, id, userID)
}

func (f *flakySessions) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if f.failByID {
		return nil, errStoreDown
	}
	return f.SessionRepository.FindByID(ctx, id)
}

func (f *flakySessions) CountActive(ctx context.Context, userID string) (int64, error) {
	if f.failCount {
		return 0, errStoreDown
	}
	return f.SessionRepository.CountActive(ctx, userID)
}

func (f *flakySessions) TouchActivity(ctx context.Context, id string, at time.Time) error {
	if f.failTouch {
		return errStoreDown
	}
	return f.SessionRepository.TouchActivity(ctx, id, at)
}

func (f *flakySessions) Deactivate(ctx context.Context, id, reason string, at time.Time) (bool, error) {
	if f.failDeactive {
		return false, errStoreDown
	}
	return f.SessionRepository.Deactivate(ctx, id, reason, at)
}

func (f *flakySessions) DeactivateAllExcept(ctx context.Context, userID, keep, reason string, at time.Time) (int64, error) {
	if f.failBulk {
		return 0, errStoreDown
	}
	return f.SessionRepository.DeactivateAllExcept(ctx, userID, keep, reason, at)
}

// mockGeoLocator implements repository.GeoLocator.
type mockGeoLocator struct {
	mock.Mock
}

func (m *mockGeoLocator) Locate(ctx context.Context, ip string) (model.GeoResult, error) {
	args := m.Called(ctx, ip)
	return args.Get(0).(model.GeoResult), args.Error(1)
}
