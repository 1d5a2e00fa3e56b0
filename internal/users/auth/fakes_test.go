// Copyright (c) 2026 Roomkeeper. All rights reserved.

package auth_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/campuslab/roomkeeper/internal/platform/apperr"
	"github.com/campuslab/roomkeeper/internal/platform/sec"
	"github.com/campuslab/roomkeeper/internal/users/auth"
	"github.com/campuslab/roomkeeper/pkg/pagination"
)

// # Test Doubles

// fakeUserRepository is an in-memory UserRepository keyed by user ID.
// failWith, when set, is returned from every method to simulate outages.
type fakeUserRepository struct {
	mu       sync.Mutex
	users    map[string]*auth.User
	failWith error

	findByIDCalls int
}

func newFakeUserRepository(users ...*auth.User) *fakeUserRepository {
	repo := &fakeUserRepository{users: make(map[string]*auth.User)}
	for _, u := range users {
		clone := *u
		repo.users[u.ID] = &clone
	}
	return repo
}

func (repo *fakeUserRepository) FindByID(_ context.Context, id string) (*auth.User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	repo.findByIDCalls++
	if repo.failWith != nil {
		return nil, repo.failWith
	}
	if user, ok := repo.users[id]; ok {
		clone := *user
		return &clone, nil
	}
	return nil, apperr.NotFound("User")
}

func (repo *fakeUserRepository) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if repo.failWith != nil {
		return nil, repo.failWith
	}
	for _, user := range repo.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (repo *fakeUserRepository) FindByUsername(_ context.Context, username string) (*auth.User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if repo.failWith != nil {
		return nil, repo.failWith
	}
	for _, user := range repo.users {
		if user.Username == username {
			clone := *user
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (repo *fakeUserRepository) Create(_ context.Context, user *auth.User) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if repo.failWith != nil {
		return repo.failWith
	}
	for _, existing := range repo.users {
		if existing.Email == user.Email || existing.Username == user.Username {
			return apperr.Conflict("User already exists")
		}
	}
	clone := *user
	clone.CreatedAt = time.Now().UTC()
	clone.UpdatedAt = clone.CreatedAt
	repo.users[user.ID] = &clone
	return nil
}

func (repo *fakeUserRepository) Update(_ context.Context, user *auth.User) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if repo.failWith != nil {
		return repo.failWith
	}
	if _, ok := repo.users[user.ID]; !ok {
		return apperr.NotFound("User")
	}
	clone := *user
	clone.UpdatedAt = time.Now().UTC()
	repo.users[user.ID] = &clone
	return nil
}

func (repo *fakeUserRepository) UpdatePassword(_ context.Context, userID, newHash string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if repo.failWith != nil {
		return repo.failWith
	}
	user, ok := repo.users[userID]
	if !ok {
		return apperr.NotFound("User")
	}
	user.PasswordHash = newHash
	user.UpdatedAt = time.Now().UTC()
	return nil
}

func (repo *fakeUserRepository) List(_ context.Context, params pagination.Params) ([]*auth.User, int, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if repo.failWith != nil {
		return nil, 0, repo.failWith
	}
	page := make([]*auth.User, 0, len(repo.users))
	for _, user := range repo.users {
		clone := *user
		page = append(page, &clone)
	}
	return page, len(repo.users), nil
}

// fakeStore is an in-memory VerificationStore. Expirations are not simulated;
// tests that need real TTL behavior use miniredis instead. failWith, when
// set, is returned from every method; failDeleteWith only from Delete.
type fakeStore struct {
	mu             sync.Mutex
	values         map[string]string
	failWith       error
	failDeleteWith error

	getCalls int
	setCalls int
	delCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: make(map[string]string)}
}

func (store *fakeStore) SetWithTTL(_ context.Context, key, value string, _ time.Duration) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.setCalls++
	if store.failWith != nil {
		return store.failWith
	}
	store.values[key] = value
	return nil
}

func (store *fakeStore) Get(_ context.Context, key string) (string, bool, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.getCalls++
	if store.failWith != nil {
		return "", false, store.failWith
	}
	value, ok := store.values[key]
	return value, ok, nil
}

func (store *fakeStore) GetAndRefresh(_ context.Context, key string, _ time.Duration) (string, bool, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.getCalls++
	if store.failWith != nil {
		return "", false, store.failWith
	}
	value, ok := store.values[key]
	return value, ok, nil
}

func (store *fakeStore) Delete(_ context.Context, key string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.delCalls++
	if store.failWith != nil {
		return store.failWith
	}
	if store.failDeleteWith != nil {
		return store.failDeleteWith
	}
	delete(store.values, key)
	return nil
}

func (store *fakeStore) put(key, value string) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.values[key] = value
}

func (store *fakeStore) has(key string) bool {
	store.mu.Lock()
	defer store.mu.Unlock()
	_, ok := store.values[key]
	return ok
}

// fakeMailer records every message handed to it.
type sentMail struct {
	To      string
	Subject string
	Body    string
}

type fakeMailer struct {
	mu       sync.Mutex
	sent     []sentMail
	failWith error
}

func (mailer *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	mailer.mu.Lock()
	defer mailer.mu.Unlock()

	if mailer.failWith != nil {
		return mailer.failWith
	}
	mailer.sent = append(mailer.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (mailer *fakeMailer) last() (sentMail, bool) {
	mailer.mu.Lock()
	defer mailer.mu.Unlock()

	if len(mailer.sent) == 0 {
		return sentMail{}, false
	}
	return mailer.sent[len(mailer.sent)-1], true
}

func (mailer *fakeMailer) count() int {
	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	return len(mailer.sent)
}

// # Fixture Assembly

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testHasher(t *testing.T) *sec.Hasher {
	t.Helper()

	// Minimum legal costs keep the suite fast.
	hasher, err := sec.NewHasher(sec.HasherConfig{
		Pepper:      []byte("test-pepper"),
		Time:        1,
		MemoryKiB:   8 * 1024,
		Parallelism: 1,
	})
	require.NoError(t, err)
	return hasher
}

// testFixture wires a full Service graph over in-memory doubles.
type testFixture struct {
	repo     *fakeUserRepository
	store    *fakeStore
	sessions *auth.SessionManager
	backend  *auth.Backend
	mailer   *fakeMailer
	service  *auth.Service
	hasher   *sec.Hasher
}

func newTestFixture(t *testing.T, users ...*auth.User) *testFixture {
	t.Helper()

	repo := newFakeUserRepository(users...)
	store := newFakeStore()
	hasher := testHasher(t)
	sessions := auth.NewSessionManager(store)
	logger := testLogger()
	backend := auth.NewBackend(repo, store, sessions, hasher, logger)
	mailer := &fakeMailer{}
	service := auth.NewService(backend, repo, store, sessions, hasher, mailer, logger)

	return &testFixture{
		repo:     repo,
		store:    store,
		sessions: sessions,
		backend:  backend,
		mailer:   mailer,
		service:  service,
		hasher:   hasher,
	}
}

// seedUser creates a User with a real hash for the given password.
func seedUser(t *testing.T, hasher *sec.Hasher, id, username, email, password string, role sec.Role) *auth.User {
	t.Helper()

	hash, err := hasher.Hash(context.Background(), []byte(password))
	require.NoError(t, err)

	return &auth.User{
		ID:           id,
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		PhoneNumber:  "0900000000",
		Role:         role,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
}
