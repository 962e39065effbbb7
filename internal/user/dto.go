// AngelaMos | 2026
// dto.go

package user

import (
	"github.com/zacanbrcom/auditorium-booking/internal/store"
)

type ChangeRoleRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
	Role  string `json:"role"  validate:"required,oneof=Noob Approver FacilityManager Superadmin"`
}

type GenerateSuperadminRequest struct {
	Email  string `json:"email"  validate:"required,email,max=255"`
	Secret string `json:"secret" validate:"required"`
}

type UserResponse struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func ToUserResponse(u *User) UserResponse {
	return UserResponse{
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	}
}

// ToUserResponseList keeps the stored [email, user] pairing.
func ToUserResponseList(users []store.Entry[string, User]) []store.Entry[string, UserResponse] {
	out := make([]store.Entry[string, UserResponse], 0, len(users))
	for _, e := range users {
		out = append(out, store.Entry[string, UserResponse]{
			Key:   e.Key,
			Value: ToUserResponse(&e.Value),
		})
	}
	return out
}
