// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spade Contributors

package community

import (
	"context"
	"errors"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/spademh/spade/internal/auth"
)

// Provisioner lets the auth service create and remove profiles without
// depending on this package.
type Provisioner struct {
	service *Service
}

// NewProvisioner adapts service to auth.ProfileProvisioner.
func NewProvisioner(service *Service) *Provisioner {
	return &Provisioner{service: service}
}

// CreateProfile implements auth.ProfileProvisioner.
func (p *Provisioner) CreateProfile(ctx context.Context, subject ulid.ULID, fields auth.ProfileFields) error {
	_, err := p.service.CreateProfile(ctx, subject, NewProfile{Username: fields.Username, Avatar: fields.Avatar})
	return err
}

// DeleteProfile implements auth.ProfileProvisioner. A missing profile is
// reported as auth.ErrNotFound.
func (p *Provisioner) DeleteProfile(ctx context.Context, subject ulid.ULID) error {
	err := p.service.DeleteProfile(ctx, subject)
	if errors.Is(err, ErrNotFound) {
		return oops.With("subject_id", subject.String()).Wrap(errors.Join(auth.ErrNotFound, err))
	}
	return err
}

// Compile-time interface check.
var _ auth.ProfileProvisioner = (*Provisioner)(nil)
