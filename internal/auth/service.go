// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/zacanbrcom/auditorium-booking/internal/core"
	"github.com/zacanbrcom/auditorium-booking/internal/role"
)

var tracer = otel.Tracer("github.com/zacanbrcom/auditorium-booking/internal/auth")

type UserProvider interface {
	// FindByEmail returns core.ErrNotFound when no user has email.
	FindByEmail(ctx context.Context, email string) (*UserInfo, error)

	// Provision stores a user with the default role unless one already
	// exists for email, and returns the stored record and whether it was
	// created.
	Provision(ctx context.Context, name, email string) (*UserInfo, bool, error)
}

type Resolver struct {
	users UserProvider
}

func NewResolver(users UserProvider) *Resolver {
	return &Resolver{users: users}
}

// ResolveHeader decodes an Authorization header value and resolves it.
// Decoding failures are returned before any user lookup.
func (r *Resolver) ResolveHeader(
	ctx context.Context,
	header string,
	required role.Role,
) (*Identity, error) {
	claim, err := DecodeClaim(header)
	if err != nil {
		return nil, err
	}
	return r.Resolve(ctx, claim, required)
}

// Resolve finds the user behind claim, creating it on first sight, and
// checks it against required.
func (r *Resolver) Resolve(
	ctx context.Context,
	claim Claim,
	required role.Role,
) (*Identity, error) {
	ctx, span := tracer.Start(ctx, "auth.Resolve")
	defer span.End()

	span.SetAttributes(
		attribute.String("user.email", claim.Email),
		attribute.String("auth.required_role", required.String()),
	)

	provisioned := false
	user, err := r.users.FindByEmail(ctx, claim.Email)
	switch {
	case errors.Is(err, core.ErrNotFound):
		user, provisioned, err = r.users.Provision(ctx, claim.Name, claim.Email)
		if err != nil {
			span.SetStatus(codes.Error, "provision failed")
			span.RecordError(err)
			return nil, fmt.Errorf("provision user: %w", err)
		}
	case err != nil:
		span.SetStatus(codes.Error, "lookup failed")
		span.RecordError(err)
		return nil, fmt.Errorf("find user: %w", err)
	}

	span.SetAttributes(
		attribute.Bool("auth.provisioned", provisioned),
		attribute.String("user.role", user.Role),
	)

	if !role.Satisfies(user.Role, required) {
		span.SetStatus(codes.Error, "forbidden")
		return nil, fmt.Errorf(
			"role %q does not satisfy %s: %w",
			user.Role,
			required,
			core.ErrForbidden,
		)
	}

	return &Identity{
		User:        *user,
		Required:    required,
		Provisioned: provisioned,
	}, nil
}
