// AngelaMos | 2026
// repository.go

package user

import (
	"context"
	"fmt"

	"github.com/zacanbrcom/auditorium-booking/internal/core"
	"github.com/zacanbrcom/auditorium-booking/internal/store"
)

type Repository interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]store.Entry[string, User], error)
	InsertIfAbsent(ctx context.Context, user User) (*User, bool, error)
	Upsert(ctx context.Context, user User) error
	UpdateRole(ctx context.Context, email, role string) (*User, error)
}

type repository struct {
	users  *store.Store[string, User]
	strict bool
}

// NewRepository wraps the user table. With strict set, a stored user
// that fails to decode is an error instead of a miss.
func NewRepository(users *store.Store[string, User], strict bool) Repository {
	return &repository{users: users, strict: strict}
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	var (
		u   User
		ok  bool
		err error
	)
	if r.strict {
		u, ok, err = r.users.Lookup(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("get user: %w", err)
		}
	} else {
		u, ok = r.users.Get(ctx, email)
	}

	if !ok {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}

	return &u, nil
}

// FindByEmail scans the table for a record whose email field matches.
// Unlike GetByEmail it does not depend on how keys were written.
func (r *repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	for _, u := range r.users.All(ctx) {
		if u.Email == email {
			return &u, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	return nil, fmt.Errorf("find user: %w", core.ErrNotFound)
}

func (r *repository) List(ctx context.Context) ([]store.Entry[string, User], error) {
	users := store.Collect(r.users.All(ctx), nil)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// InsertIfAbsent stores user unless its email is taken, returning the
// record that ends up stored.
func (r *repository) InsertIfAbsent(ctx context.Context, user User) (*User, bool, error) {
	var (
		stored  User
		created bool
	)

	err := r.users.Update(ctx, user.Email, func(cur User, ok bool) (User, bool) {
		if ok {
			stored = cur
			return cur, true
		}
		stored, created = user, true
		return user, true
	})
	if err != nil {
		return nil, false, fmt.Errorf("insert user: %w", err)
	}

	return &stored, created, nil
}

func (r *repository) Upsert(ctx context.Context, user User) error {
	if _, err := r.users.Insert(ctx, user.Email, user); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (r *repository) UpdateRole(ctx context.Context, email, role string) (*User, error) {
	var (
		updated User
		found   bool
	)

	err := r.users.Update(ctx, email, func(cur User, ok bool) (User, bool) {
		if !ok {
			return cur, false
		}
		cur.Role = role
		updated, found = cur, true
		return cur, true
	})
	if err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}

	if !found {
		return nil, fmt.Errorf("update role: %w", core.ErrNotFound)
	}

	return &updated, nil
}
