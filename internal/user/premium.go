package user

import "time"

// Premium marks a paid subscription window. A user is premium iff a record
// exists and now is before ExpiresAt; expired records are evicted lazily the
// first time they are read (see state.Manager.IsPremium).
type Premium struct {
	Tier        string    `json:"tier"`
	ActivatedAt time.Time `json:"activated_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Active reports whether the subscription is still valid at now.
func (p *Premium) Active(now time.Time) bool {
	return p != nil && now.Before(p.ExpiresAt)
}
