// internal/app/features/members/types.go
package members

import (
	"github.com/dalemusser/studyhub/internal/app/system/viewdata"
	"github.com/dalemusser/studyhub/internal/domain/models"
)

// Table row for the members list
type memberRow struct {
	UserID   string
	Name     string
	Email    string
	Role     models.Role
	Joined   string
	IsCaller bool
	// Locked rows cannot be changed by this caller (owners, for a
	// non-owner admin).
	Locked bool
}

type listData struct {
	viewdata.BaseVM
	Base        string
	SearchQuery string
	RoleFilter  string
	Roles       []models.Role
	Rows        []memberRow
	Total       int
	Error       string
}
