package model

import (
	"time"

	"github.com/google/uuid"
)

// ContractEdit is one accepted change of a draft contract: full field
// snapshots before and after, the mandatory human reason, and the editor.
// Rows are append-only, never mutated or deleted.
type ContractEdit struct {
	ID           uuid.UUID `json:"id"`
	ContractID   uuid.UUID `json:"contract_id"`
	EditedBy     uuid.UUID `json:"edited_by"`
	EditedAt     time.Time `json:"edited_at"`
	EditReason   string    `json:"edit_reason"`
	FieldsBefore string    `json:"fields_before"`
	FieldsAfter  string    `json:"fields_after"`
	IPAddress    string    `json:"ip_address"`
}
