package models

// GuardianEdge is a directed trust relation: the user identified by
// GuardianID protects the account identified by ProtectedEmail and holds
// RecoveryKey as their credential toward that account's recovery. The key is
// generated server-side at creation and is never regenerated; replacing it
// means deleting and recreating the edge.
type GuardianEdge struct {
	ID             string
	GuardianID     string
	ProtectedEmail string
	RecoveryKey    string
}
