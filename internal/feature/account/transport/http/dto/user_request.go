package dto

// NewUserReq represents the request body for POST /api/users.
type NewUserReq struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UpdateUserReq represents the request body for PUT /api/users/:id.
// Password is the current password and is only used for verification.
type UpdateUserReq struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// PasswordReq represents the request body for PATCH and DELETE /api/users/:id.
// NewPassword is nil when the field is absent.
type PasswordReq struct {
	Password    string  `json:"password" binding:"required"`
	NewPassword *string `json:"new_password"`
}
