package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

type CallDirection = string

const (
	DirectionIn  = CallDirection("in")
	DirectionOut = CallDirection("out")
)

type CallStatus = string

const (
	StatusProgress = CallStatus("progress")
	StatusAnswered = CallStatus("answered")
	StatusNoAnswer = CallStatus("noanswer")
	StatusBusy     = CallStatus("busy")
	StatusFailed   = CallStatus("failed")
)

// Call groups the channels sharing one linkedid into a single
// conversation attempt.
type Call struct {
	BaseModel

	ServerID uint   `json:"server_id"`
	Server   Server `json:"server"`

	Uniqueid string `json:"uniqueid" gorm:"size:64;index"`

	CallingNumber string `json:"calling_number" gorm:"index"`
	CallingName   string `json:"calling_name"`
	CalledNumber  string `json:"called_number" gorm:"index"`

	Started  *time.Time `json:"started" gorm:"index"`
	Answered *time.Time `json:"answered" gorm:"index"`
	Ended    *time.Time `json:"ended" gorm:"index"`

	Direction CallDirection `json:"direction" gorm:"index"`
	Status    CallStatus    `json:"status" gorm:"index;default:progress"`

	// Calls are active until moved to history. The flip to false is
	// one-way and fires the registration hooks exactly once.
	IsActive bool `json:"is_active" gorm:"index;default:true"`

	Channels []Channel   `json:"channels"`
	Events   []CallEvent `json:"events"`

	ContactID     *uint    `json:"contact_id"`
	Contact       *Contact `json:"contact" gorm:"constraint:OnDelete:SET NULL"`
	CallingUserID *uint    `json:"calling_user_id"`
	CallingUser   *PbxUser `json:"calling_user" gorm:"constraint:OnDelete:SET NULL"`
	CalledUserID  *uint    `json:"called_user_id"`
	CalledUser    *PbxUser `json:"called_user" gorm:"constraint:OnDelete:SET NULL"`

	RefKind RefKind `json:"ref_kind"`
	RefID   uint    `json:"ref_id"`

	Notes string `json:"notes"`
}

func (v Call) Ref() *Ref {
	if v.RefKind == "" || v.RefID == 0 {
		return nil
	}
	return &Ref{Kind: v.RefKind, ID: v.RefID}
}

// Duration is the talk time in whole seconds, zero until the call has
// both answered and ended stamps.
func (v Call) Duration() int {
	if v.Answered == nil || v.Ended == nil {
		return 0
	}
	return int(v.Ended.Sub(*v.Answered) / time.Second)
}

// DurationHuman renders the duration as H:MM:SS.
func (v Call) DurationHuman() string {
	d := v.Duration()
	return fmt.Sprintf("%d:%02d:%02d", d/3600, d%3600/60, d%60)
}

// CallEvent keeps the raw manager event that touched a call, for the
// per-call event trail.
type CallEvent struct {
	BaseModel

	CallID uint              `json:"call_id" gorm:"index"`
	Call   Call              `json:"call"`
	Kind   string            `json:"kind"`
	Body   datatypes.JSONMap `json:"body"`
}
