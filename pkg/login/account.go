package login

// Account is the local identity being synchronized on login. The engine
// mutates only Roles and Affiliations; everything else belongs to the
// caller.
type Account struct {
	// Name is the external login name (sunetid).
	Name  string   `json:"name"`
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles"`
	// Affiliations mirrors the eduPersonAffiliation attribute from the most
	// recent login.
	Affiliations []string `json:"affiliations,omitempty"`
}

// HasRole reports whether the account currently holds the role.
func (a *Account) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}
