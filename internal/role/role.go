// AngelaMos | 2026
// role.go

package role

import "slices"

// Role is a node in the fixed privilege hierarchy. Every role names one
// parent; Noob is the root and names itself.
//
//	Noob
//	├── Approver
//	│   └── Superadmin
//	└── FacilityManager
type Role uint8

const (
	Noob Role = iota
	Approver
	FacilityManager
	Superadmin
)

var names = [...]string{
	Noob:            "Noob",
	Approver:        "Approver",
	FacilityManager: "FacilityManager",
	Superadmin:      "Superadmin",
}

var parents = [...]Role{
	Noob:            Noob,
	Approver:        Noob,
	FacilityManager: Noob,
	Superadmin:      Approver,
}

// Default is the role given to newly provisioned users.
const Default = Noob

func (r Role) String() string {
	if !r.valid() {
		return "Unknown"
	}
	return names[r]
}

func (r Role) Parent() Role {
	if !r.valid() {
		return Default
	}
	return parents[r]
}

func (r Role) IsRoot() bool {
	return r.Parent() == r
}

func (r Role) valid() bool {
	return int(r) < len(names)
}

// Parse maps a stored role name to its Role. Matching is exact.
func Parse(name string) (Role, bool) {
	for i, n := range names {
		if n == name {
			return Role(i), true
		}
	}
	return 0, false
}

// All returns every role, root first.
func All() []Role {
	out := make([]Role, len(names))
	for i := range names {
		out[i] = Role(i)
	}
	return out
}

// Names returns the name of every role. It doubles as the allow-list for
// role changes.
func Names() []string {
	out := make([]string, len(names))
	copy(out, names[:])
	return out
}

// AncestorChain lists r and each parent above it, stopping before the
// root. The root yields an empty chain.
func AncestorChain(r Role) []string {
	var chain []string
	for i := 0; !r.IsRoot() && i < len(names); i++ {
		chain = append(chain, r.String())
		r = r.Parent()
	}
	return chain
}

// Satisfies reports whether a user holding the role named held meets a
// requirement of required: required is the root or appears in the
// ancestor chain of held. Seniority only flows up the chain, so a
// Superadmin satisfies Approver and an Approver does not satisfy
// Superadmin. Unknown names satisfy nothing.
func Satisfies(held string, required Role) bool {
	r, ok := Parse(held)
	if !ok || !required.valid() {
		return false
	}
	if required.IsRoot() {
		return true
	}

	return slices.Contains(AncestorChain(r), required.String())
}
