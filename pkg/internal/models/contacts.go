package models

// Contact is the CRM side of a call: somebody we know by number.
type Contact struct {
	BaseModel

	Name            string `json:"name"`
	Phone           string `json:"phone" gorm:"index"`
	PhoneNormalized string `json:"phone_normalized" gorm:"index"`

	// Internal user id of the contact's account manager, if any.
	ManagerID *uint `json:"manager_id"`

	Tags []Tag `json:"tags" gorm:"many2many:contact_tags"`
}

type Tag struct {
	BaseModel

	Name string `json:"name" gorm:"uniqueIndex"`
}
