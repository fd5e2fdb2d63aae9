package models

import (
	"strings"
	"time"
)

// Channel is one signaling leg of a call. E.g. SIP/1001-000000bd.
type Channel struct {
	BaseModel

	ServerID uint   `json:"server_id"`
	Server   Server `json:"server"`

	Name     string `json:"name" gorm:"index"`
	Uniqueid string `json:"uniqueid" gorm:"size:150;index"`
	Linkedid string `json:"linkedid" gorm:"size:150;index"`

	CallID *uint `json:"call_id" gorm:"index"`

	Context           string `json:"context" gorm:"size:80"`
	Exten             string `json:"exten" gorm:"size:32"`
	CallerIDNum       string `json:"callerid_num" gorm:"size:32"`
	CallerIDName      string `json:"callerid_name" gorm:"size:32"`
	ConnectedLineNum  string `json:"connected_line_num" gorm:"size:80"`
	ConnectedLineName string `json:"connected_line_name" gorm:"size:80"`
	State             string `json:"state" gorm:"size:80"`
	StateDesc         string `json:"state_desc" gorm:"size:256"`
	AccountCode       string `json:"accountcode" gorm:"size:80"`
	Priority          string `json:"priority" gorm:"size:4"`
	App               string `json:"app" gorm:"size:32"`
	AppData           string `json:"app_data" gorm:"size:512"`
	Language          string `json:"language" gorm:"size:2"`
	SystemName        string `json:"system_name" gorm:"size:32"`

	// Hangup outcome. The first writer of Cause is authoritative.
	Active   bool       `json:"active" gorm:"default:true;index"`
	Cause    string     `json:"cause" gorm:"index"`
	CauseTxt string     `json:"cause_txt"`
	EndTime  *time.Time `json:"end_time" gorm:"index"`

	// Resolved ownership, weak edges only.
	UserID    *uint    `json:"user_id"`
	User      *PbxUser `json:"user" gorm:"constraint:OnDelete:SET NULL"`
	ContactID *uint    `json:"contact_id"`
	Contact   *Contact `json:"contact" gorm:"constraint:OnDelete:SET NULL"`

	// Related business record, resolved via the ref dispatch table.
	RefKind RefKind `json:"ref_kind"`
	RefID   uint    `json:"ref_id"`
}

// ShortName strips the trailing instance suffix so the name can be
// compared with a user channel as it is configured.
// Makes SIP/1001-000000bd to be SIP/1001.
func (v Channel) ShortName() string {
	return ChannelShort(v.Name)
}

// IsParent reports whether this is the originating leg of its call.
func (v Channel) IsParent() bool {
	return v.Uniqueid == v.Linkedid
}

func (v Channel) Ref() *Ref {
	if v.RefKind == "" || v.RefID == 0 {
		return nil
	}
	return &Ref{Kind: v.RefKind, ID: v.RefID}
}

func ChannelShort(name string) string {
	parts := strings.Split(name, "-")
	return strings.Join(parts[:len(parts)-1], "-")
}
