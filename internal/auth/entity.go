// AngelaMos | 2026
// entity.go

package auth

import (
	"github.com/zacanbrcom/auditorium-booking/internal/role"
)

type UserInfo struct {
	Name  string
	Email string
	Role  string
}

// Identity is a resolved caller that met the role it was resolved
// against.
type Identity struct {
	User        UserInfo
	Required    role.Role
	Provisioned bool
}

func (i *Identity) Email() string {
	return i.User.Email
}

// Has reports whether the caller also satisfies r.
func (i *Identity) Has(r role.Role) bool {
	return role.Satisfies(i.User.Role, r)
}
