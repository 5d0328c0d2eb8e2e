package domain

// ErrorKind classifies an internal failure observed while deciding a request.
// Kinds are recorded on the ActivityRecord so an operator can distinguish
// "classified as X" from "classification failed, defaulted". A cache miss is
// a control state, not an error, and has no kind.
type ErrorKind string

const (
	// ErrorKindNone marks a decision with no internal failure.
	ErrorKindNone ErrorKind = ""
	// ErrorKindOracleUnreachable marks a failed connection to the
	// categorization service, including missing credentials.
	ErrorKindOracleUnreachable ErrorKind = "OracleUnreachable"
	// ErrorKindOracleTimeout marks a categorization call that exceeded its
	// deadline.
	ErrorKindOracleTimeout ErrorKind = "OracleTimeout"
	// ErrorKindOracleMalformedResponse marks a reply the client could not
	// extract a category from.
	ErrorKindOracleMalformedResponse ErrorKind = "OracleMalformedResponse"
	// ErrorKindOracleRateLimited marks a categorization call rejected for
	// quota reasons.
	ErrorKindOracleRateLimited ErrorKind = "OracleRateLimited"
	// ErrorKindStoreReadFailure marks an unreadable durable table.
	ErrorKindStoreReadFailure ErrorKind = "StoreReadFailure"
	// ErrorKindStoreWriteFailure marks a durable write that exhausted its
	// retries. The in-memory state still serves the current process.
	ErrorKindStoreWriteFailure ErrorKind = "StoreWriteFailure"
	// ErrorKindInvalidPolicyValue marks a policy file entry with an
	// unrecognized verdict value.
	ErrorKindInvalidPolicyValue ErrorKind = "InvalidPolicyValue"
)

// IsZero reports whether no failure was recorded.
func (k ErrorKind) IsZero() bool { return k == ErrorKindNone }
