package models

// Principal is the authenticated identity attached to a connection or
// request. Persisted principals are backed by a user row; guest principals
// exist only for the lifetime of their credential and never resolve to a row.
type Principal struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
	Guest  bool   `json:"guest"`
}

// Snapshot returns the inlined sender representation used on messages that
// cannot carry a foreign-key sender reference.
func (p *Principal) Snapshot() *SenderSnapshot {
	return &SenderSnapshot{
		ID:     p.ID,
		Name:   p.Name,
		Avatar: p.Avatar,
	}
}
