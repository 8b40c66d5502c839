package selection

// ChangeReason records what caused the active company to change.
type ChangeReason string

const (
	ReasonLoad       ChangeReason = "load"
	ReasonRefresh    ChangeReason = "refresh"
	ReasonSelect     ChangeReason = "select"
	ReasonBreadcrumb ChangeReason = "breadcrumb"
)

// Event is emitted by Controller operations once the state change they
// describe is complete.
type Event interface {
	isEvent()
}

// ActiveCompanyChanged tells collaborators a new active company was chosen.
// Seq increases with every selection and tags KPI requests so late
// responses can be recognised.
type ActiveCompanyChanged struct {
	ID       int
	Seq      uint64
	Resolved bool // false when the id is not in the loaded hierarchy
	Reason   ChangeReason
}

// SelectionCleared is emitted when navigation returns to the top level.
type SelectionCleared struct {
	Seq uint64
}

// ExpandToggled reports the new expansion state of a node.
type ExpandToggled struct {
	ID       int
	Expanded bool
}

// TeamPanelRequested asks the presentation layer to open the team panel.
type TeamPanelRequested struct {
	ID int
}

func (ActiveCompanyChanged) isEvent() {}
func (SelectionCleared) isEvent()     {}
func (ExpandToggled) isEvent()        {}
func (TeamPanelRequested) isEvent()   {}
