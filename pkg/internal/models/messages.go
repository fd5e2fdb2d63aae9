package models

// Message is one entry posted to a record's message feed, e.g. a missed
// call notice on a contact or a call summary on a referenced record.
type Message struct {
	BaseModel

	Uuid    string `json:"uuid"`
	Subject string `json:"subject"`
	Body    string `json:"body"`

	// Feed the message lives on.
	RefKind RefKind `json:"ref_kind" gorm:"index"`
	RefID   uint    `json:"ref_id" gorm:"index"`

	// Internal user id the message is addressed to, if any.
	AddresseeID *uint `json:"addressee_id" gorm:"index"`
}
