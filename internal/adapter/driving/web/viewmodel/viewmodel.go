// Package viewmodel defines presentation-ready structs for templ components.
// View models decouple template rendering from domain model types.
package viewmodel

// Tab names for the auth page.
const (
	TabLogin  = "login"
	TabSignUp = "signup"
)

// Flash is a one-shot status message shown above a form.
type Flash struct {
	Kind    string // "success" or "error"
	Message string
}

// AuthPageViewModel holds everything the auth page renders.
type AuthPageViewModel struct {
	CSRFToken string

	// ConfigError, when set, replaces the whole page body.
	ConfigError string

	ActiveTab string
	Flash     *Flash

	LoginEmail  string
	SignUpEmail string
	SignUpRole  string
	Roles       []string

	SignedIn *SignedInViewModel
}

// SignedInViewModel describes the current session on the auth page.
type SignedInViewModel struct {
	Email string
	Role  string
}

// ConsolePageViewModel holds everything the query console renders.
type ConsolePageViewModel struct {
	CSRFToken string

	ConfigError string
	NoticeHTML  string
	Mode        string
	ReadOnly    bool
	Principal   string
	SignedIn    bool

	SQL    string
	Flash  *Flash
	Result *ResultViewModel

	History []HistoryRowViewModel
}

// ResultViewModel is a rendered result set.
type ResultViewModel struct {
	Columns  []string
	Rows     [][]CellViewModel
	Summary  string
	Duration string
}

// CellViewModel is a single formatted value; Null marks SQL NULL.
type CellViewModel struct {
	Text string
	Null bool
}

// HistoryRowViewModel is one line in the recent query list.
type HistoryRowViewModel struct {
	SQL      string
	Status   string
	Detail   string
	When     string
	Duration string
	Failed   bool
}
