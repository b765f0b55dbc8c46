// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spade Contributors

package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/spademh/spade/internal/observability"
)

var tracer = otel.Tracer("spade/auth")

// dummyPasswordHash is used when an email is not registered to prevent timing attacks.
// We still run password verification to make response time consistent.
// This is NOT a real credential - it's a fake hash that will never match any password.
//
//nolint:gosec // G101: This is an intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Tokens is the access/refresh pair handed to the session transport.
type Tokens struct {
	Access  string
	Refresh string
}

// Registration is the raw input of Service.Register.
type Registration struct {
	Email    string
	Password string
	Profile  ProfileFields
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithCompensationAttempts sets how many times a failed compensation is tried.
func WithCompensationAttempts(n uint64) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.compensationAttempts = n
		}
	}
}

// WithIDGenerators overrides account and subject id generation.
func WithIDGenerators(account func() uuid.UUID, subject func() ulid.ULID) ServiceOption {
	return func(s *Service) {
		if account != nil {
			s.newAccountID = account
		}
		if subject != nil {
			s.newSubjectID = subject
		}
	}
}

// Service orchestrates the account lifecycle across the auth store and the
// profile collaborator.
type Service struct {
	credentials CredentialRepository
	profiles    ProfileProvisioner
	hasher      PasswordHasher
	tokens      *TokenManager
	logger      *slog.Logger

	compensationAttempts uint64
	newAccountID         func() uuid.UUID
	newSubjectID         func() ulid.ULID
}

// NewService creates a Service that logs to slog.Default().
func NewService(credentials CredentialRepository, profiles ProfileProvisioner, hasher PasswordHasher, tokens *TokenManager, opts ...ServiceOption) (*Service, error) {
	return NewServiceWithLogger(credentials, profiles, hasher, tokens, slog.Default(), opts...)
}

// NewServiceWithLogger creates a Service with an explicit logger.
func NewServiceWithLogger(credentials CredentialRepository, profiles ProfileProvisioner, hasher PasswordHasher, tokens *TokenManager, logger *slog.Logger, opts ...ServiceOption) (*Service, error) {
	if credentials == nil {
		return nil, oops.Errorf("credentials repository is required")
	}
	if profiles == nil {
		return nil, oops.Errorf("profile provisioner is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Errorf("token manager is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}

	s := &Service{
		credentials:          credentials,
		profiles:             profiles,
		hasher:               hasher,
		tokens:               tokens,
		logger:               logger,
		compensationAttempts: defaultCompensationAttempts,
		newAccountID:         uuid.New,
		newSubjectID:         ulid.Make,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register creates a credential and its profile, then returns a token pair.
// If the profile cannot be created, the credential insert is compensated.
func (s *Service) Register(ctx context.Context, reg Registration) (tokens *Tokens, err error) {
	ctx, span := tracer.Start(ctx, "auth.Register")
	defer func() { finish(span, "register", err) }()

	email, err := ParseEmail(reg.Email)
	if err != nil {
		return nil, err
	}
	password, err := ParsePassword(reg.Password)
	if err != nil {
		return nil, err
	}

	exists, err := s.credentials.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").With("operation", "check email").Wrap(err)
	}
	if exists {
		return nil, errDuplicateUser()
	}

	hash, err := password.Hash(s.hasher)
	if err != nil {
		return nil, err
	}

	cred := &Credential{
		ID:           s.newAccountID(),
		Email:        email,
		PasswordHash: hash,
		SubjectID:    s.newSubjectID(),
	}
	span.SetAttributes(attribute.String("subject_id", cred.SubjectID.String()))

	tokens, err = s.issueTokens(cred)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").With("operation", "issue tokens").Wrap(err)
	}
	cred.RefreshTokenHash = HashToken(tokens.Refresh)

	err = newSaga("register", s.logger, s.compensationAttempts).
		step("insert_credential",
			func(ctx context.Context) error {
				if err := s.credentials.Create(ctx, cred); err != nil {
					if errors.Is(err, ErrDuplicateEmail) {
						return errDuplicateUser()
					}
					return oops.Code("AUTH_REGISTER_FAILED").With("operation", "insert credential").Wrap(err)
				}
				return nil
			},
			func(ctx context.Context) error {
				return ignoreNotFound(s.credentials.Delete(ctx, cred.ID))
			}).
		step("create_profile",
			func(ctx context.Context) error {
				if err := s.profiles.CreateProfile(ctx, cred.SubjectID, reg.Profile); err != nil {
					return oops.Code("AUTH_REGISTER_FAILED").
						With("operation", "create profile").
						With("subject_id", cred.SubjectID.String()).
						Wrap(err)
				}
				return nil
			},
			nil).
		run(ctx)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "account registered", "subject_id", cred.SubjectID.String())
	return tokens, nil
}

// Login verifies credentials and issues a new token pair. The new refresh
// token supersedes any earlier one. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, rawEmail, rawPassword string) (tokens *Tokens, err error) {
	ctx, span := tracer.Start(ctx, "auth.Login")
	defer func() { finish(span, "login", err) }()

	email, emailErr := ParseEmail(rawEmail)
	password, passwordErr := ParsePassword(rawPassword)
	if emailErr != nil || passwordErr != nil {
		return nil, errInvalidCredentials()
	}

	cred, lookupErr := s.credentials.GetByEmail(ctx, email)

	targetHash := dummyPasswordHash
	exists := false
	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			return nil, oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "get credential by email").
				Wrap(lookupErr)
		}
	} else {
		targetHash = cred.PasswordHash
		exists = true
	}

	// Always verify, even for unknown emails, so response time does not
	// reveal whether the account exists.
	verifyErr := password.Verify(s.hasher, targetHash)
	if !exists {
		return nil, errInvalidCredentials()
	}
	if verifyErr != nil {
		if errors.Is(verifyErr, ErrPasswordMismatch) {
			return nil, errInvalidCredentials()
		}
		return nil, oops.Code("AUTH_LOGIN_FAILED").With("operation", "verify password").Wrap(verifyErr)
	}

	tokens, err = s.issueTokens(cred)
	if err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").With("operation", "issue tokens").Wrap(err)
	}

	if err := s.credentials.SetRefreshTokenHash(ctx, cred.ID, HashToken(tokens.Refresh)); err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "persist refresh token").
			With("subject_id", cred.SubjectID.String()).
			Wrap(err)
	}

	s.upgradeHash(ctx, cred, password)

	return tokens, nil
}

// upgradeHash re-hashes a password stored with outdated parameters.
// Login succeeds regardless of the outcome.
func (s *Service) upgradeHash(ctx context.Context, cred *Credential, password Password) {
	if !s.hasher.NeedsUpgrade(cred.PasswordHash) {
		return
	}
	newHash, err := password.Hash(s.hasher)
	if err == nil {
		err = s.credentials.UpdatePasswordHash(ctx, cred.ID, newHash)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "best-effort password hash upgrade failed",
			"operation", "upgrade_hash",
			"subject_id", cred.SubjectID.String(),
			"error", err)
	}
}

// Logout clears the stored refresh token of the account owning accessToken.
// Access tokens already issued stay valid until they expire.
func (s *Service) Logout(ctx context.Context, accessToken string) (err error) {
	ctx, span := tracer.Start(ctx, "auth.Logout")
	defer func() { finish(span, "logout", err) }()

	subject, err := s.subjectFromAccess(accessToken)
	if err != nil {
		return err
	}

	cred, err := s.credentials.GetBySubject(ctx, subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return errUnauthorized("account not found")
		}
		return oops.Code("AUTH_LOGOUT_FAILED").With("operation", "get credential by subject").Wrap(err)
	}

	if err := s.credentials.SetRefreshTokenHash(ctx, cred.ID, ""); err != nil {
		if errors.Is(err, ErrNotFound) {
			return errUnauthorized("account not found")
		}
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "clear refresh token").
			With("subject_id", subject.String()).
			Wrap(err)
	}
	return nil
}

// Refresh issues a new access token. The presented refresh token must be the
// one stored by the most recent login; logged-out accounts and superseded
// tokens are rejected.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (access string, err error) {
	ctx, span := tracer.Start(ctx, "auth.Refresh")
	defer func() { finish(span, "refresh", err) }()

	claims, err := s.tokens.DecodeRefresh(refreshToken)
	if err != nil {
		return "", errForbidden("invalid refresh token")
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return "", errForbidden("invalid refresh token subject")
	}

	cred, err := s.credentials.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", errForbidden("account not found")
		}
		return "", oops.Code("AUTH_REFRESH_FAILED").With("operation", "get credential by id").Wrap(err)
	}
	if !cred.LoggedIn() {
		return "", errForbidden("logged out")
	}
	if subtle.ConstantTimeCompare([]byte(cred.RefreshTokenHash), []byte(HashToken(refreshToken))) != 1 {
		return "", errForbidden("refresh token superseded")
	}

	access, err = s.tokens.IssueAccess(cred.SubjectID.String())
	if err != nil {
		return "", oops.Code("AUTH_REFRESH_FAILED").With("operation", "issue access token").Wrap(err)
	}
	return access, nil
}

// UpdateEmail replaces the email of the account owning accessToken.
func (s *Service) UpdateEmail(ctx context.Context, accessToken, rawEmail string) (err error) {
	ctx, span := tracer.Start(ctx, "auth.UpdateEmail")
	defer func() { finish(span, "update_email", err) }()

	email, err := ParseEmail(rawEmail)
	if err != nil {
		return err
	}

	cred, err := s.credentialFromAccess(ctx, accessToken, "AUTH_UPDATE_EMAIL_FAILED")
	if err != nil {
		return err
	}
	if cred.Email == email {
		return nil
	}

	exists, err := s.credentials.ExistsByEmail(ctx, email)
	if err != nil {
		return oops.Code("AUTH_UPDATE_EMAIL_FAILED").With("operation", "check email").Wrap(err)
	}
	if exists {
		return errDuplicateUser()
	}

	if err := s.credentials.UpdateEmail(ctx, cred.ID, email); err != nil {
		switch {
		case errors.Is(err, ErrDuplicateEmail):
			return errDuplicateUser()
		case errors.Is(err, ErrNotFound):
			return errUnauthorized("account not found")
		}
		return oops.Code("AUTH_UPDATE_EMAIL_FAILED").
			With("operation", "update email").
			With("subject_id", cred.SubjectID.String()).
			Wrap(err)
	}
	return nil
}

// UpdatePassword replaces the password hash of the account owning accessToken.
func (s *Service) UpdatePassword(ctx context.Context, accessToken, rawPassword string) (err error) {
	ctx, span := tracer.Start(ctx, "auth.UpdatePassword")
	defer func() { finish(span, "update_password", err) }()

	password, err := ParsePassword(rawPassword)
	if err != nil {
		return err
	}

	cred, err := s.credentialFromAccess(ctx, accessToken, "AUTH_UPDATE_PASSWORD_FAILED")
	if err != nil {
		return err
	}

	hash, err := password.Hash(s.hasher)
	if err != nil {
		return err
	}

	if err := s.credentials.UpdatePasswordHash(ctx, cred.ID, hash); err != nil {
		if errors.Is(err, ErrNotFound) {
			return errUnauthorized("account not found")
		}
		return oops.Code("AUTH_UPDATE_PASSWORD_FAILED").
			With("operation", "update password hash").
			With("subject_id", cred.SubjectID.String()).
			Wrap(err)
	}
	return nil
}

// Delete removes the credential and the profile of the account owning
// accessToken. If the profile cannot be deleted the credential is restored
// from a snapshot, on a best-effort basis.
func (s *Service) Delete(ctx context.Context, accessToken string) (err error) {
	ctx, span := tracer.Start(ctx, "auth.Delete")
	defer func() { finish(span, "delete", err) }()

	cred, err := s.credentialFromAccess(ctx, accessToken, "AUTH_DELETE_FAILED")
	if err != nil {
		return err
	}
	snapshot := *cred

	err = newSaga("delete", s.logger, s.compensationAttempts).
		step("delete_credential",
			func(ctx context.Context) error {
				if err := s.credentials.Delete(ctx, cred.ID); err != nil {
					if errors.Is(err, ErrNotFound) {
						return errUnauthorized("account not found")
					}
					return oops.Code("AUTH_DELETE_FAILED").With("operation", "delete credential").Wrap(err)
				}
				return nil
			},
			func(ctx context.Context) error {
				return s.restoreCredential(ctx, snapshot)
			}).
		step("delete_profile",
			func(ctx context.Context) error {
				if err := ignoreNotFound(s.profiles.DeleteProfile(ctx, cred.SubjectID)); err != nil {
					return oops.Code("AUTH_DELETE_FAILED").
						With("operation", "delete profile").
						With("subject_id", cred.SubjectID.String()).
						Wrap(err)
				}
				return nil
			},
			nil).
		run(ctx)
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "account deleted", "subject_id", cred.SubjectID.String())
	return nil
}

// restoreCredential re-inserts a deleted credential. It is a no-op when the
// credential already exists, so retries are safe.
func (s *Service) restoreCredential(ctx context.Context, snapshot Credential) error {
	if _, err := s.credentials.GetByID(ctx, snapshot.ID); err == nil {
		return nil
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	restored := snapshot
	return s.credentials.Create(ctx, &restored)
}

// Authenticate resolves the subject of a valid access token. Content
// operations use it to attribute their writes.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (subject ulid.ULID, err error) {
	_, span := tracer.Start(ctx, "auth.Authenticate")
	defer func() { finish(span, "authenticate", err) }()

	subject, err = s.subjectFromAccess(accessToken)
	if err != nil {
		return ulid.ULID{}, errUnauthorized("invalid access token")
	}
	return subject, nil
}

// AccessTTL exposes the access-token lifetime for the session transport.
func (s *Service) AccessTTL() int { return int(s.tokens.AccessTTL().Seconds()) }

// RefreshTTL exposes the refresh-token lifetime for the session transport.
func (s *Service) RefreshTTL() int { return int(s.tokens.RefreshTTL().Seconds()) }

// issueTokens binds the refresh token to the account id and the access
// token to the subject id.
func (s *Service) issueTokens(cred *Credential) (*Tokens, error) {
	refresh, err := s.tokens.IssueRefresh(cred.ID.String())
	if err != nil {
		return nil, err
	}
	access, err := s.tokens.IssueAccess(cred.SubjectID.String())
	if err != nil {
		return nil, err
	}
	return &Tokens{Access: access, Refresh: refresh}, nil
}

func (s *Service) subjectFromAccess(accessToken string) (ulid.ULID, error) {
	claims, err := s.tokens.DecodeAccess(accessToken)
	if err != nil {
		return ulid.ULID{}, err
	}
	subject, err := ulid.Parse(claims.Subject)
	if err != nil {
		return ulid.ULID{}, errInvalidToken()
	}
	return subject, nil
}

// credentialFromAccess loads the credential owning accessToken. Invalid
// tokens and unknown subjects are both reported as unauthorized.
func (s *Service) credentialFromAccess(ctx context.Context, accessToken, failureCode string) (*Credential, error) {
	subject, err := s.subjectFromAccess(accessToken)
	if err != nil {
		return nil, errUnauthorized("invalid access token")
	}
	cred, err := s.credentials.GetBySubject(ctx, subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, errUnauthorized("account not found")
		}
		return nil, oops.Code(failureCode).With("operation", "get credential by subject").Wrap(err)
	}
	return cred, nil
}

func finish(span trace.Span, operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = KindOf(err).String()
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	span.SetAttributes(attribute.String("outcome", outcome))
	observability.RecordAuthOperation(operation, outcome)
	span.End()
}
