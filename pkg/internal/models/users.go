package models

// PbxUser binds an internal user identity to a PBX server extension.
type PbxUser struct {
	BaseModel

	UserID   uint   `json:"user_id" gorm:"index"`
	ServerID uint   `json:"server_id" gorm:"index"`
	Server   Server `json:"server"`

	Name  string `json:"name"`
	Exten string `json:"exten" gorm:"size:32;index"`

	MissedCallsNotify bool `json:"missed_calls_notify"`
	CallPopupEnabled  bool `json:"call_popup_enabled" gorm:"default:true"`
	CallPopupSticky   bool `json:"call_popup_sticky"`

	Channels []UserChannel `json:"channels" gorm:"constraint:OnDelete:CASCADE"`
}

// UserChannel is a channel name as configured for a user, e.g. SIP/1001.
// Incoming leg names are matched against it by their short form.
type UserChannel struct {
	BaseModel

	PbxUserID uint    `json:"pbx_user_id" gorm:"index"`
	PbxUser   PbxUser `json:"pbx_user"`

	Name             string `json:"name" gorm:"index"`
	OriginateEnabled bool   `json:"originate_enabled" gorm:"default:true"`
}
