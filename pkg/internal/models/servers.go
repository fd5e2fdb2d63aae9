package models

// Server is one PBX instance we keep a manager-interface session with.
// Dropping a server cascades into its channels and calls.
type Server struct {
	BaseModel

	Name        string `json:"name" gorm:"uniqueIndex"`
	Host        string `json:"host"`
	Port        int    `json:"port"`
	Username    string `json:"username"`
	Secret      string `json:"-"`
	AutoConnect bool   `json:"auto_connect"`

	Channels []Channel `json:"channels" gorm:"constraint:OnDelete:CASCADE"`
	Calls    []Call    `json:"calls" gorm:"constraint:OnDelete:CASCADE"`
}
