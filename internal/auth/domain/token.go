package domain

// IssuedToken is one ledger row per token ever issued, access and refresh
// alike. Rows are never deleted; revocation flips the flag.
type IssuedToken struct {
	JTI      string
	UserID   string
	DeviceID string
	Revoked  bool
}
