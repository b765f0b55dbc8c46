// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spade Contributors

package auth_test

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/spademh/spade/internal/auth"
)

// mockCredentialRepository is a mock for auth.CredentialRepository.
type mockCredentialRepository struct {
	mock.Mock
}

func (m *mockCredentialRepository) ExistsByEmail(ctx context.Context, email auth.Email) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *mockCredentialRepository) Create(ctx context.Context, c *auth.Credential) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockCredentialRepository) GetByEmail(ctx context.Context, email auth.Email) (*auth.Credential, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Credential), args.Error(1)
}

func (m *mockCredentialRepository) GetByID(ctx context.Context, id uuid.UUID) (*auth.Credential, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Credential), args.Error(1)
}

func (m *mockCredentialRepository) GetBySubject(ctx context.Context, subject ulid.ULID) (*auth.Credential, error) {
	args := m.Called(ctx, subject)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Credential), args.Error(1)
}

func (m *mockCredentialRepository) SetRefreshTokenHash(ctx context.Context, id uuid.UUID, digest string) error {
	return m.Called(ctx, id, digest).Error(0)
}

func (m *mockCredentialRepository) UpdateEmail(ctx context.Context, id uuid.UUID, email auth.Email) error {
	return m.Called(ctx, id, email).Error(0)
}

func (m *mockCredentialRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return m.Called(ctx, id, hash).Error(0)
}

func (m *mockCredentialRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// mockProfileProvisioner is a mock for auth.ProfileProvisioner.
type mockProfileProvisioner struct {
	mock.Mock
}

func (m *mockProfileProvisioner) CreateProfile(ctx context.Context, subject ulid.ULID, fields auth.ProfileFields) error {
	return m.Called(ctx, subject, fields).Error(0)
}

func (m *mockProfileProvisioner) DeleteProfile(ctx context.Context, subject ulid.ULID) error {
	return m.Called(ctx, subject).Error(0)
}

// memCredentials is an in-memory auth.CredentialRepository for flow tests.
// failNext makes the next call of the named method fail with the given error.
type memCredentials struct {
	mu       sync.Mutex
	byID     map[uuid.UUID]auth.Credential
	failNext map[string]error
}

func newMemCredentials() *memCredentials {
	return &memCredentials{byID: map[uuid.UUID]auth.Credential{}, failNext: map[string]error{}}
}

func (m *memCredentials) fail(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext[method] = err
}

func (m *memCredentials) injected(method string) error {
	err := m.failNext[method]
	delete(m.failNext, method)
	return err
}

func (m *memCredentials) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

func (m *memCredentials) get(id uuid.UUID) (auth.Credential, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	return c, ok
}

func (m *memCredentials) ExistsByEmail(_ context.Context, email auth.Email) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("ExistsByEmail"); err != nil {
		return false, err
	}
	for _, c := range m.byID {
		if c.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *memCredentials) Create(_ context.Context, c *auth.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("Create"); err != nil {
		return err
	}
	for _, existing := range m.byID {
		if existing.Email == c.Email {
			return auth.ErrDuplicateEmail
		}
	}
	m.byID[c.ID] = *c
	return nil
}

func (m *memCredentials) find(match func(auth.Credential) bool) (*auth.Credential, error) {
	for _, c := range m.byID {
		if match(c) {
			found := c
			return &found, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (m *memCredentials) GetByEmail(_ context.Context, email auth.Email) (*auth.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("GetByEmail"); err != nil {
		return nil, err
	}
	return m.find(func(c auth.Credential) bool { return c.Email == email })
}

func (m *memCredentials) GetByID(_ context.Context, id uuid.UUID) (*auth.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("GetByID"); err != nil {
		return nil, err
	}
	return m.find(func(c auth.Credential) bool { return c.ID == id })
}

func (m *memCredentials) GetBySubject(_ context.Context, subject ulid.ULID) (*auth.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("GetBySubject"); err != nil {
		return nil, err
	}
	return m.find(func(c auth.Credential) bool { return c.SubjectID == subject })
}

func (m *memCredentials) update(method string, id uuid.UUID, apply func(*auth.Credential) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected(method); err != nil {
		return err
	}
	c, ok := m.byID[id]
	if !ok {
		return auth.ErrNotFound
	}
	if err := apply(&c); err != nil {
		return err
	}
	m.byID[id] = c
	return nil
}

func (m *memCredentials) SetRefreshTokenHash(_ context.Context, id uuid.UUID, digest string) error {
	return m.update("SetRefreshTokenHash", id, func(c *auth.Credential) error {
		c.RefreshTokenHash = digest
		return nil
	})
}

func (m *memCredentials) UpdateEmail(_ context.Context, id uuid.UUID, email auth.Email) error {
	return m.update("UpdateEmail", id, func(c *auth.Credential) error {
		for otherID, other := range m.byID {
			if otherID != id && other.Email == email {
				return auth.ErrDuplicateEmail
			}
		}
		c.Email = email
		return nil
	})
}

func (m *memCredentials) UpdatePasswordHash(_ context.Context, id uuid.UUID, hash string) error {
	return m.update("UpdatePasswordHash", id, func(c *auth.Credential) error {
		c.PasswordHash = hash
		return nil
	})
}

func (m *memCredentials) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("Delete"); err != nil {
		return err
	}
	if _, ok := m.byID[id]; !ok {
		return auth.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

// memProfiles is an in-memory auth.ProfileProvisioner.
type memProfiles struct {
	mu       sync.Mutex
	bySub    map[ulid.ULID]auth.ProfileFields
	failNext map[string]error
}

func newMemProfiles() *memProfiles {
	return &memProfiles{bySub: map[ulid.ULID]auth.ProfileFields{}, failNext: map[string]error{}}
}

func (m *memProfiles) fail(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext[method] = err
}

func (m *memProfiles) has(subject ulid.ULID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.bySub[subject]
	return ok
}

func (m *memProfiles) CreateProfile(_ context.Context, subject ulid.ULID, fields auth.ProfileFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failNext["CreateProfile"]; err != nil {
		delete(m.failNext, "CreateProfile")
		return err
	}
	m.bySub[subject] = fields
	return nil
}

func (m *memProfiles) DeleteProfile(_ context.Context, subject ulid.ULID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failNext["DeleteProfile"]; err != nil {
		delete(m.failNext, "DeleteProfile")
		return err
	}
	if _, ok := m.bySub[subject]; !ok {
		return auth.ErrNotFound
	}
	delete(m.bySub, subject)
	return nil
}
