package domain

import "time"

type AuditAction string

const (
	AuditActionCreate   AuditAction = "CREATE"
	AuditActionPurchase AuditAction = "PURCHASE"
)

// AuditEntry records a mutation. Entries are written in the same
// transaction as the change they describe and never updated.
type AuditEntry struct {
	ActorID   string
	Action    AuditAction
	EventID   int64
	Payload   []byte
	SourceIP  string
	CreatedAt time.Time
}
