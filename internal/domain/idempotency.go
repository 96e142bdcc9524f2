package domain

// IdempotencyRecord binds a client-supplied key to the request it first
// produced. A key is recorded once and never rewritten.
type IdempotencyRecord struct {
	Key         string
	RequestHash string
	EventID     int64
}

// Matches reports whether a request with the given hash is a replay of
// the recorded one.
func (r IdempotencyRecord) Matches(requestHash string) bool {
	return r.RequestHash == requestHash
}
