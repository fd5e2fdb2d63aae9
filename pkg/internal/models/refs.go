package models

// RefKind tags the small set of record kinds a call or channel may be
// linked to. References are weak (kind, id) pairs, never foreign keys.
type RefKind = string

const (
	RefContact = RefKind("contact")
	RefPbxUser = RefKind("pbx_user")
)

type Ref struct {
	Kind RefKind `json:"kind"`
	ID   uint    `json:"id"`
}

// RefResolver loads the display name of a referenced record.
type RefResolver func(id uint) (string, error)

// RefResolvers dispatches ref kinds to their loaders. Services register
// themselves here during startup; unknown kinds stay unresolvable.
var RefResolvers = map[RefKind]RefResolver{}

func (r Ref) DisplayName() (string, error) {
	resolve, ok := RefResolvers[r.Kind]
	if !ok {
		return "", ErrUnknownRefKind
	}
	return resolve(r.ID)
}
