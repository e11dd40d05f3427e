package courseadmin

import (
	"github.com/dalemusser/studyhub/internal/app/system/inputval"
	"github.com/dalemusser/studyhub/internal/app/system/viewdata"
	"github.com/dalemusser/studyhub/internal/domain/models"
)

type courseInput struct {
	Slug        string `validate:"required,max=80,slug" label:"Slug"`
	Title       string `validate:"required,max=200" label:"Title"`
	Description string `validate:"max=2000" label:"Description"`
	Status      string `validate:"oneof=draft published" label:"Status"`
}

type sessionInput struct {
	Title     string `validate:"required,max=200" label:"Title"`
	Summary   string `validate:"max=1000" label:"Summary"`
	Status    string `validate:"oneof=draft published" label:"Status"`
	SortOrder int
	Content   string `validate:"max=200000" label:"Content"`
}

type listData struct {
	viewdata.BaseVM
	Base    string
	Courses []models.Course
}

type courseFormData struct {
	viewdata.BaseVM
	Base   string
	Action string
	IsEdit bool
	Input  courseInput
	Errors []inputval.FieldError
}

type courseViewData struct {
	viewdata.BaseVM
	Base      string
	Course    models.Course
	Sessions  []models.CourseSession
	PublicURL string
}

type sessionFormData struct {
	viewdata.BaseVM
	Base      string
	CourseURL string
	Action    string
	IsEdit    bool
	Input     sessionInput
	Errors    []inputval.FieldError
}
