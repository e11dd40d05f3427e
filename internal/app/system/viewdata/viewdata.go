// internal/app/system/viewdata/viewdata.go
package viewdata

import (
	"net/http"

	"github.com/dalemusser/studyhub/internal/app/system/auth"
	"github.com/dalemusser/studyhub/internal/app/system/workspace"
	"github.com/dalemusser/waffle/pantry/httpnav"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/gorilla/csrf"
)

// DefaultSiteName is shown in the header and in outgoing mail.
const DefaultSiteName = "StudyHub"

// siteName is set once at startup by SetSiteName.
var siteName = DefaultSiteName

// SetSiteName overrides the display name. Call it once from bootstrap.
func SetSiteName(name string) {
	if name != "" {
		siteName = name
	}
}

// SiteName returns the configured display name.
func SiteName() string { return siteName }

// BaseVM contains common fields for all view models.
// Embed this struct in your feature-specific view models.
//
// Usage:
//
//	type myPageData struct {
//	    viewdata.BaseVM
//	    // page-specific fields...
//	}
//
//	data := myPageData{
//	    BaseVM: viewdata.NewBaseVM(r, "Page Title", "/default-back"),
//	}
type BaseVM struct {
	SiteName string

	// User context (from auth middleware)
	IsLoggedIn bool
	UserName   string
	UserEmail  string

	// Workspace context; empty outside /{churchslug} and personal pages.
	WorkspaceName string
	BasePath      string // "/{churchslug}" for churches, "" for personal
	IsChurch      bool

	// Page context
	Title       string
	BackURL     string
	CurrentPath string
	Saved       bool // the request carried ?saved=1

	// CSRF protection
	CSRFToken string
}

// NewBaseVM creates a fully populated BaseVM for a page.
func NewBaseVM(r *http.Request, title, backDefault string) BaseVM {
	vm := BaseVM{
		SiteName:    siteName,
		Title:       title,
		BackURL:     httpnav.ResolveBackURL(r, backDefault),
		CurrentPath: httpnav.CurrentPath(r),
		Saved:       query.Get(r, "saved") == "1",
		CSRFToken:   csrf.Token(r),
	}

	if u, ok := auth.CurrentUser(r); ok {
		vm.IsLoggedIn = true
		vm.UserName = u.Name
		vm.UserEmail = u.Email
	}

	if ws := workspace.FromRequest(r); ws != nil {
		vm.WorkspaceName = ws.Name
		vm.BasePath = ws.BasePath()
		vm.IsChurch = !ws.IsPersonal()
	}

	return vm
}
