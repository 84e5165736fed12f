package user

// UpdateProfileRequest carries the fields a user may change on their own
// account. Nil fields are left untouched.
type UpdateProfileRequest struct {
	Email        *string `json:"email"`
	Introduction *string `json:"introduction"`
}
