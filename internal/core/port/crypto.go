package port

// PasswordMatcher compares a submitted password against the secret held by
// the directory. The default matcher compares plaintext to preserve the
// observed behavior of the legacy system; an Argon2id matcher exists as the
// remediation path once stored secrets are migrated to hashes.
type PasswordMatcher interface {
	Match(submitted, stored string) (bool, error)
	// Encode converts a new password into the representation the directory
	// stores for this matcher.
	Encode(password string) (string, error)
}
