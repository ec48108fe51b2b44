package models

// Principal is the request-scoped identity rebuilt from a validated token.
type Principal struct {
	AccountID   string
	Username    string
	Email       string
	Authorities []string
	// ResetFingerprint is set when the request carried a password reset
	// token.
	ResetFingerprint string
}

func (p Principal) HasAuthority(name string) bool {
	for _, a := range p.Authorities {
		if a == name {
			return true
		}
	}
	return false
}

func (p Principal) HasAnyAuthority(names ...string) bool {
	for _, n := range names {
		if p.HasAuthority(n) {
			return true
		}
	}
	return false
}
