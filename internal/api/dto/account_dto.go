package dto

import (
	"time"

	"github.com/classhub/subject-service/internal/domain"
)

// CreateAccountRequest payload for admin account creation.
type CreateAccountRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
	Role        string `json:"role"`
}

// UpdateRoleRequest payload for role changes.
type UpdateRoleRequest struct {
	Role string `json:"role"`
}

// UpdateStatusRequest payload for status changes.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// AccountResponse is the public projection of an account. The password
// hash never appears in a response.
type AccountResponse struct {
	ID          string               `json:"id"`
	Username    string               `json:"username"`
	DisplayName string               `json:"display_name,omitempty"`
	Role        domain.Role          `json:"role"`
	Status      domain.AccountStatus `json:"status"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}
