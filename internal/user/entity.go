// AngelaMos | 2026
// entity.go

package user

import (
	"github.com/zacanbrcom/auditorium-booking/internal/store"
)

// User is keyed by email. Role is stored as a name so that records
// written with a role this build does not know survive untouched; such
// users are authorized for nothing.
type User struct {
	Name  string `json:"name"  cbor:"name"`
	Email string `json:"email" cbor:"email"`
	Role  string `json:"role"  cbor:"role"`
}

// Table is the "user" partition.
var Table = store.Table[string, User]{
	Name:    "user",
	Acquire: store.VerifyDecodable[string, User](16),
}

const SuperadminName = "Superadmin"
