// Package authz implements the ownership invariant: a stored record is only
// visible and mutable to the identity that created it.
//
// Callers must resolve the record first, so a missing id surfaces as
// common.ErrNotFound before ownership is ever evaluated. The two outcomes
// stay distinguishable to the caller even though the transport may collapse
// them into similar client-facing responses.
package authz

import "github.com/avorobjovs/keyguard/internal/common"

// Owned is any record carrying an owning user id.
type Owned interface {
	OwnedBy() string
}

// Authorize returns nil when userID owns the record and common.ErrForbidden
// otherwise.
func Authorize(record Owned, userID string) error {
	if record.OwnedBy() != userID {
		return common.ErrForbidden
	}
	return nil
}
