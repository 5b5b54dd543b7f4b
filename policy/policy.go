// Package policy decides whether a caller may perform an operation on an issue.
package policy

import (
	"fmt"

	"civicreport-be/models"
)

// Operation names a guarded issue operation.
type Operation string

const (
	Create       Operation = "create"
	Read         Operation = "read"
	ReadOwn      Operation = "read-own"
	Update       Operation = "update"
	UpdateStatus Operation = "update-status"
	Delete       Operation = "delete"
)

// Gate holds the one configurable rule: which roles may change status and
// assignment. An empty list lets any authenticated caller through.
type Gate struct {
	statusRoles map[models.Role]bool
}

// New builds a Gate. statusRoles restricts the status/assignment path.
func New(statusRoles []models.Role) *Gate {
	g := &Gate{}
	if len(statusRoles) > 0 {
		g.statusRoles = make(map[models.Role]bool, len(statusRoles))
		for _, r := range statusRoles {
			g.statusRoles[r] = true
		}
	}
	return g
}

// Authorize returns nil when caller may perform op on issue, ErrForbidden or
// ErrConflict otherwise. caller is nil for anonymous requests; issue is nil
// for operations without a target.
func (g *Gate) Authorize(op Operation, caller *models.Caller, issue *models.Issue) error {
	switch op {
	case Read:
		return nil
	case Create, ReadOwn:
		return requireCaller(caller)
	case Update:
		if err := requireCaller(caller); err != nil {
			return err
		}
		if issue.ReportedBy != caller.UserID {
			return fmt.Errorf("%w: not authorized to update this issue", models.ErrForbidden)
		}
		if issue.Status != models.Pending {
			return fmt.Errorf("%w: cannot update issue once it's being processed", models.ErrConflict)
		}
		return nil
	case UpdateStatus:
		if err := requireCaller(caller); err != nil {
			return err
		}
		if g.statusRoles != nil && !g.statusRoles[caller.Role] {
			return fmt.Errorf("%w: role %q may not change issue status", models.ErrForbidden, caller.Role)
		}
		return nil
	case Delete:
		if err := requireCaller(caller); err != nil {
			return err
		}
		if issue.ReportedBy != caller.UserID && caller.Role != models.Admin {
			return fmt.Errorf("%w: not authorized to delete this issue", models.ErrForbidden)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown operation %q", models.ErrForbidden, op)
}

func requireCaller(caller *models.Caller) error {
	if caller == nil {
		return fmt.Errorf("%w: authentication required", models.ErrUnauthorized)
	}
	return nil
}
