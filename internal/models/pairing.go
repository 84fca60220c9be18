package models

import "time"

// PairingState is the card pairing session state. Idle means no live session.
type PairingState string

const (
	PairingStateIdle    PairingState = "idle"
	PairingStateWaiting PairingState = "waiting"
	PairingStateScanned PairingState = "scanned"
)

// PairingStatus is the view of the pairing slot returned to its owner.
type PairingStatus struct {
	State        PairingState `json:"state"`
	PairedCardID *string      `json:"paired_card_id,omitempty"`
	ExpiresAt    *time.Time   `json:"expires_at,omitempty"`
}

// PairingScanResult reports how a hardware scan interacted with a live
// pairing session.
type PairingScanResult struct {
	Accepted bool   `json:"accepted"`
	CardID   string `json:"card_id"`
	Message  string `json:"message"`
}
