// Package capability answers permission questions for conferencing actions.
package capability

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/coursemeet/backend/internal/models"
)

// ErrAccessDenied is returned when a subject lacks a required capability.
var ErrAccessDenied = errors.New("access denied")

// Capability names a permission.
type Capability string

const (
	View        Capability = "mod/jitsi:view"
	Record      Capability = "mod/jitsi:record"
	Moderation  Capability = "mod/jitsi:moderation"
	AddInstance Capability = "mod/jitsi:addinstance"
)

// Scope is the context a capability is checked in.
type Scope int

const (
	// ScopeModule is a session inside a course.
	ScopeModule Scope = iota
	// ScopeSystem is site-wide, used for private rooms.
	ScopeSystem
)

// Subject is the user on whose behalf a request runs. It is passed explicitly
// through calls instead of being read from ambient request state.
type Subject struct {
	UserID    uuid.UUID
	Role      models.Role
	Email     string
	FirstName string
	LastName  string
	AvatarURL string
}

// DisplayName returns the name shown in the conferencing widget.
func (s Subject) DisplayName() string {
	if s.LastName == "" {
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

// Checker answers whether a subject holds a capability in a scope.
type Checker interface {
	Has(ctx context.Context, subject Subject, c Capability, scope Scope) bool
}

// Require returns ErrAccessDenied when the subject lacks c.
func Require(ctx context.Context, checker Checker, subject Subject, c Capability, scope Scope) error {
	if !checker.Has(ctx, subject, c, scope) {
		return ErrAccessDenied
	}
	return nil
}

// Flags is the capability set the embed builder needs.
type Flags struct {
	Record     bool
	Moderation bool
}

// FlagsFor computes the embed capability flags for subject.
func FlagsFor(ctx context.Context, checker Checker, subject Subject, scope Scope) Flags {
	return Flags{
		Record:     checker.Has(ctx, subject, Record, scope),
		Moderation: checker.Has(ctx, subject, Moderation, scope),
	}
}
