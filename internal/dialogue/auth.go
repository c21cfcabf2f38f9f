package dialogue

// Allowlist authorizes state-mutating commands. An empty list means
// open to all.
type Allowlist struct {
	ids map[int64]struct{}
}

// NewAllowlist builds an Allowlist from user IDs.
func NewAllowlist(ids []int64) *Allowlist {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return &Allowlist{ids: set}
}

// Allowed reports whether the sender may run write commands.
func (a *Allowlist) Allowed(senderID int64) bool {
	if len(a.ids) == 0 {
		return true
	}
	_, ok := a.ids[senderID]
	return ok
}
