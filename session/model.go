package session

// Session defines a public type used by goSecretQ APIs.
//
// Session instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Session struct {
	SessionID string
	UserID    string
	Realm     string

	Notes map[string]string

	CreatedAt int64
	ExpiresAt int64
}

// ClientNote returns the named note, or "" when unset.
func (s *Session) ClientNote(name string) string {
	if s == nil {
		return ""
	}
	return s.Notes[name]
}

func cloneNotes(notes map[string]string) map[string]string {
	out := make(map[string]string, len(notes))
	for k, v := range notes {
		out[k] = v
	}
	return out
}
