// internal/app/features/studies/types.go
package studies

import (
	"github.com/dalemusser/studyhub/internal/app/system/inputval"
	"github.com/dalemusser/studyhub/internal/app/system/viewdata"
	"github.com/dalemusser/studyhub/internal/domain/models"
)

const dateLayout = "2006-01-02"

type planInput struct {
	Title   string   `validate:"required,max=200" label:"Title"`
	Book    string   `validate:"max=100" label:"Book"`
	Passage string   `validate:"max=200" label:"Passage"`
	Tags    []string `validate:"max=20,dive,max=40" label:"Tags"`
}

type sessionInput struct {
	SessionDate string `validate:"omitempty,datetime=2006-01-02" label:"Date"`
	Passage     string `validate:"max=200" label:"Passage"`
	PassageText string `validate:"max=20000" label:"Passage text"`
	Track       string `validate:"omitempty,track" label:"Track"`
	Mode        string `validate:"omitempty,studymode" label:"Mode"`
	Genre       string `validate:"max=60" label:"Genre"`
	Status      string `validate:"omitempty,oneof=draft complete" label:"Status"`
}

type listData struct {
	viewdata.BaseVM
	Base    string
	Tag     string
	Plans   []models.StudyPlan
	CanEdit bool
}

type planFormData struct {
	viewdata.BaseVM
	Base      string
	Action    string
	IsEdit    bool
	PlanTitle string
	Book      string
	Passage   string
	Tags      string
	Errors    []inputval.FieldError
}

type sessionRow struct {
	ID          string
	Date        string
	Passage     string
	Track       string
	Mode        string
	Genre       string
	Status      string
	IsComplete  bool
	CompletedOn string
}

type planViewData struct {
	viewdata.BaseVM
	Base     string
	Plan     models.StudyPlan
	Sessions []sessionRow
	CanEdit  bool
}

type option struct {
	Value    string
	Label    string
	Selected bool
}

type sessionFormData struct {
	viewdata.BaseVM
	Base        string
	Plan        models.StudyPlan
	Action      string
	IsEdit      bool
	SessionDate string
	Passage     string
	PassageText string
	Genre       string
	Tracks      []option
	Modes       []option
	Statuses    []option
	Errors      []inputval.FieldError
}

type responseRow struct {
	Key   string
	Label string
	Value string
}

type sessionViewData struct {
	viewdata.BaseVM
	Base        string
	Plan        models.StudyPlan
	Session     sessionRow
	PassageText string
	Prompts     []responseRow
	Other       []responseRow // stored answers outside the track's prompts
	CanEdit     bool
}

func choices(values []string, selected string) []option {
	out := make([]option, 0, len(values))
	for _, v := range values {
		out = append(out, option{Value: v, Label: v, Selected: v == selected})
	}
	return out
}

var (
	trackValues  = []string{models.TrackBeginner, models.TrackIntermediate, models.TrackAdvanced}
	modeValues   = []string{models.ModeGuided, models.ModeFree}
	statusValues = []string{models.SessionDraft, models.SessionComplete}
)

func toRow(ss models.StudySession) sessionRow {
	row := sessionRow{
		ID:         ss.ID.Hex(),
		Passage:    ss.Passage,
		Track:      ss.Track,
		Mode:       ss.Mode,
		Genre:      ss.Genre,
		Status:     ss.Status,
		IsComplete: ss.Status == models.SessionComplete,
	}
	if ss.SessionDate != nil {
		row.Date = ss.SessionDate.Format(dateLayout)
	}
	if ss.CompletedAt != nil {
		row.CompletedOn = ss.CompletedAt.Format(dateLayout)
	}
	return row
}
