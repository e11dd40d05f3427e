package church

import (
	"github.com/dalemusser/studyhub/internal/app/system/courseprogress"
	"github.com/dalemusser/studyhub/internal/app/system/viewdata"
	"github.com/dalemusser/studyhub/internal/domain/models"
)

type homeData struct {
	viewdata.BaseVM
	Courses []models.Course
	Role    models.Role
	Member  bool
	// Pending is true when a non-member already has a request waiting.
	Pending       bool
	CanManage     bool
	CanAdminister bool
}

type courseData struct {
	viewdata.BaseVM
	Course   models.Course
	Items    []courseprogress.Item
	Enrolled bool
	Percent  int
	ResumeID string
	Tracked  bool // a signed-in caller; progress is shown
}

type sessionData struct {
	viewdata.BaseVM
	Course    models.Course
	Session   models.CourseSession
	CourseURL string
	State     courseprogress.State
	Tracked   bool
	PrevID    string
	NextID    string
}
