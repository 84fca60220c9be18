package models

import "time"

// CardBinding maps a physical card identifier to a person. card_id is unique;
// bindings are created only through a confirmed pairing session.
type CardBinding struct {
	CardID    string    `db:"card_id" json:"card_id"`
	PersonID  string    `db:"person_id" json:"person_id"`
	OrgID     string    `db:"org_id" json:"org_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
