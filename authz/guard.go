// Package authz decides whether the current user may act on a resource.
package authz

import (
	"github.com/krshsl/praxis/feedback/apperrors"
	"github.com/krshsl/praxis/feedback/models"
)

// Decision is the outcome of an ownership check.
type Decision struct {
	Authorized bool
}

// CheckOwnership allows the operation only when there is a current user and
// that user owns the resource.
func CheckOwnership(resourceOwnerID string, current *models.User) Decision {
	if current == nil || current.ID == "" {
		return Decision{}
	}
	return Decision{Authorized: current.ID == resourceOwnerID}
}

// Require returns apperrors.ErrUnauthorized when there is no current user and
// apperrors.ErrForbidden when the user does not own the resource.
func Require(resourceOwnerID string, current *models.User) error {
	if current == nil || current.ID == "" {
		return apperrors.ErrUnauthorized
	}
	if !CheckOwnership(resourceOwnerID, current).Authorized {
		return apperrors.ErrForbidden
	}
	return nil
}
