// Package access holds the view and mutation rules every video entry point goes through.
package access

import "strings"

// Visibility controls who may see a video.
type Visibility string

const (
	VisibilityHidden   Visibility = "hidden"
	VisibilityLinkOnly Visibility = "link-only"
	VisibilityPublic   Visibility = "public"
)

// Valid reports whether v is a known visibility.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityHidden, VisibilityLinkOnly, VisibilityPublic:
		return true
	}
	return false
}

// ParseVisibility normalizes raw input. Empty input yields fallback.
func ParseVisibility(raw string, fallback Visibility) (Visibility, bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return fallback, fallback.Valid()
	}
	v := Visibility(raw)
	return v, v.Valid()
}

// Role is the coarse authority level of a requester.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Requester identifies who is asking. The zero value is an anonymous caller.
type Requester struct {
	UserID string
	Role   Role
}

// Anonymous returns a requester with no identity.
func Anonymous() Requester {
	return Requester{}
}

// IsAnonymous reports whether the requester carries no identity.
func (r Requester) IsAnonymous() bool {
	return strings.TrimSpace(r.UserID) == ""
}

// IsAdmin reports whether the requester is an authenticated admin.
func (r Requester) IsAdmin() bool {
	return !r.IsAnonymous() && r.Role == RoleAdmin
}

// Owns reports whether the requester is the given owner.
func (r Requester) Owns(ownerID string) bool {
	return !r.IsAnonymous() && r.UserID == ownerID
}

// Resource is the slice of a video the policy decides on.
type Resource struct {
	OwnerID    string
	Visibility Visibility
	Published  bool
}

// Action is a mutation kind.
type Action string

const (
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

// CanView reports whether requester may see the resource. Link-only videos are
// treated as hidden; unpublished videos are visible to their owner and admins only.
func CanView(res Resource, requester Requester) bool {
	if requester.Owns(res.OwnerID) || requester.IsAdmin() {
		return true
	}
	return res.Visibility == VisibilityPublic && res.Published
}

// CanMutate reports whether requester may perform action on the resource.
// Edits are owner only; deletes are also open to admins.
func CanMutate(res Resource, requester Requester, action Action) bool {
	if requester.Owns(res.OwnerID) {
		return true
	}
	return action == ActionDelete && requester.IsAdmin()
}

// Scope describes how far a listing may reach beyond public, published videos.
type Scope struct {
	IncludeNonPublic   bool
	IncludeUnpublished bool
}

// ListScope returns the listing scope for requester. ownerID is empty for the
// global catalog; only an owner listing their own videos, or an admin listing
// someone's channel, gets the widened scope.
func ListScope(requester Requester, ownerID string) Scope {
	if ownerID == "" {
		return Scope{}
	}
	if requester.Owns(ownerID) || requester.IsAdmin() {
		return Scope{IncludeNonPublic: true, IncludeUnpublished: true}
	}
	return Scope{}
}
