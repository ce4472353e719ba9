package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/sekkot/portal/internal/repository"
)

// Resolver answers whether a user is an admin from the admins side table.
type Resolver struct {
	admins repository.AdminRepository
}

func NewResolver(admins repository.AdminRepository) *Resolver {
	return &Resolver{admins: admins}
}

// IsAdmin reports the admin flag of userID. A user without a row is not
// an admin and that is not an error.
func (r *Resolver) IsAdmin(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}

	flag, err := r.admins.Flag(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrAdminFlagNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to look up admin flag: %w", err)
	}

	return flag.IsAdmin, nil
}

func (r *Resolver) Grant(ctx context.Context, userID string) error {
	return r.admins.Set(ctx, userID, true)
}

func (r *Resolver) Revoke(ctx context.Context, userID string) error {
	return r.admins.Set(ctx, userID, false)
}

func (r *Resolver) Admins(ctx context.Context) ([]*repository.AdminEntry, error) {
	return r.admins.Admins(ctx)
}
