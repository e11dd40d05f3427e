package accessrequests

import (
	"github.com/dalemusser/studyhub/internal/app/system/inputval"
	"github.com/dalemusser/studyhub/internal/app/system/viewdata"
	"github.com/dalemusser/studyhub/internal/domain/models"
)

type requestInput struct {
	Role    string `validate:"required,role" label:"Role"`
	Message string `validate:"max=1000" label:"Message"`
}

type requestFormData struct {
	viewdata.BaseVM
	Action  string
	Roles   []models.Role
	Role    string
	Message string
	Pending bool
	Errors  []inputval.FieldError
}

type pendingRow struct {
	ID        string
	Name      string
	Email     string
	Role      models.Role
	Message   string
	Requested string
}

type pendingData struct {
	viewdata.BaseVM
	Base  string
	Rows  []pendingRow
	Stale bool // the last decision lost a race with another admin
}
