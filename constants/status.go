package constants

// SessionStatus is the lifecycle state of a staging session.
type SessionStatus string

const (
	SessionStaged    SessionStatus = "STAGED"    // records extracted, waiting for review
	SessionCommitted SessionStatus = "COMMITTED" // merged into the ledger
	SessionCancelled SessionStatus = "CANCELLED" // discarded by the operator
)

// Terminal reports whether the session can no longer be committed.
func (s SessionStatus) Terminal() bool {
	return s == SessionCommitted || s == SessionCancelled
}
