package capability

import (
	"context"

	"github.com/coursemeet/backend/internal/models"
)

type grantSet map[Capability]bool

// RoleChecker grants capabilities from a fixed role matrix.
type RoleChecker struct {
	module map[models.Role]grantSet
	system map[models.Role]grantSet
}

// NewRoleChecker returns the default role matrix.
func NewRoleChecker() *RoleChecker {
	return &RoleChecker{
		module: map[models.Role]grantSet{
			models.RoleManager: {View: true, Record: true, Moderation: true, AddInstance: true},
			models.RoleTeacher: {View: true, Record: true, Moderation: true, AddInstance: true},
			models.RoleStudent: {View: true},
		},
		system: map[models.Role]grantSet{
			models.RoleManager: {View: true, Record: true, Moderation: true},
			models.RoleTeacher: {View: true},
			models.RoleStudent: {View: true},
		},
	}
}

// Has implements Checker.
func (r *RoleChecker) Has(_ context.Context, subject Subject, c Capability, scope Scope) bool {
	matrix := r.module
	if scope == ScopeSystem {
		matrix = r.system
	}
	return matrix[subject.Role][c]
}
