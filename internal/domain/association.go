package domain

// Association is a shared ledger pooled by several users.
type Association struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Membership is a user's participation in an association under a display name.
type Membership struct {
	Association Association `json:"association"`
	DisplayName string      `json:"display_name"`
}

// Memberships is the list of associations a user belongs to.
type Memberships []Membership

// Contains reports whether associationID is one of the memberships.
func (m Memberships) Contains(associationID string) bool {
	for _, ms := range m {
		if ms.Association.ID == associationID {
			return true
		}
	}
	return false
}
