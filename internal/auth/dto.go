// AngelaMos | 2026
// dto.go

package auth

// Claim is the identity a client asserts in its Authorization header.
// It is not signed; the server trusts it as given.
type Claim struct {
	Name  string `json:"name"  validate:"max=255"`
	Email string `json:"email" validate:"required,email,max=255"`
}

type IdentityResponse struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Required string `json:"required_role"`
}

func ToIdentityResponse(id *Identity) IdentityResponse {
	return IdentityResponse{
		Name:     id.User.Name,
		Email:    id.User.Email,
		Role:     id.User.Role,
		Required: id.Required.String(),
	}
}
