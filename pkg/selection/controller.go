// Package selection owns the dashboard's selection state: the active
// company, the set of expanded nodes and the breadcrumb path.
//
// The Controller is not safe for concurrent use. It is driven from the UI
// update loop; asynchronous work (KPI fetches, remote notifications) is
// started by the caller from the events an operation returns, after the
// state change has completed.
package selection

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/vanderheijden86/companyview/pkg/hierarchy"
	"github.com/vanderheijden86/companyview/pkg/kpi"
	"github.com/vanderheijden86/companyview/pkg/logging"
	"github.com/vanderheijden86/companyview/pkg/model"
)

// State is the controller lifecycle.
type State int

const (
	Uninitialized State = iota
	Ready
)

func (s State) String() string {
	if s == Ready {
		return "ready"
	}
	return "uninitialized"
}

// Options configures a Controller.
type Options struct {
	MaxVisible int
	Strictness hierarchy.Strictness
	KPIScope   kpi.Scope
	Logger     logrus.FieldLogger
}

// Controller tracks what the user is looking at.
type Controller struct {
	opts Options
	log  logrus.FieldLogger

	state     State
	companies []model.Company
	index     *hierarchy.Index
	forest    *hierarchy.Forest

	activeID  int
	hasActive bool
	expanded  map[int]struct{}

	breadcrumb []model.Company
	// trail is the deepest full path seen for the current branch. Selecting
	// a company already on it keeps it so the levels below stay reachable.
	trail []model.Company

	seq uint64
	kpi KPIState
}

// KPIState is the KPI panel content for the current selection.
type KPIState struct {
	KPI    model.KPI
	Err    error // set when the fetch that produced KPI failed
	Loaded bool  // false until a result for the current selection arrives
}

// New creates an uninitialized controller.
func New(opts Options) *Controller {
	if opts.MaxVisible <= 0 {
		opts.MaxVisible = hierarchy.DefaultMaxVisible
	}
	if !opts.KPIScope.IsValid() {
		opts.KPIScope = kpi.ScopeNode
	}
	return &Controller{
		opts:     opts,
		log:      logging.OrDiscard(opts.Logger),
		index:    hierarchy.NewIndex(nil),
		expanded: make(map[int]struct{}),
	}
}

// LoadCompanies replaces the company list and rebuilds the forest.
//
// On the first load, and whenever the previous active company is gone, the
// primary company (or the first record) becomes active and is the only
// expanded node. A refresh that still contains the active company keeps it
// and drops expanded ids that no longer exist. In strict mode a structural
// error leaves the controller unchanged.
func (c *Controller) LoadCompanies(companies []model.Company) ([]Event, error) {
	forest, err := hierarchy.BuildTree(companies, hierarchy.WithStrictness(c.opts.Strictness))
	if err != nil {
		c.log.WithError(err).Warn("rejecting company list")
		return nil, err
	}
	if n := len(forest.Orphans) + len(forest.Promoted); n > 0 {
		c.log.WithFields(logrus.Fields{
			"orphans":  forest.Orphans,
			"promoted": forest.Promoted,
		}).Warn("promoted companies with unresolvable parents to roots")
	}
	if len(forest.Duplicates) > 0 {
		c.log.WithField("ids", forest.Duplicates).Warn("duplicate company ids")
	}

	refresh := c.state == Ready
	c.companies = append([]model.Company(nil), companies...)
	c.index = hierarchy.NewIndex(c.companies)
	c.forest = forest
	c.state = Ready
	c.trail = nil

	if len(companies) == 0 {
		c.expanded = make(map[int]struct{})
		if c.hasActive {
			return []Event{c.clear()}, nil
		}
		c.breadcrumb = nil
		return nil, nil
	}

	if refresh && c.hasActive {
		if _, ok := forest.Node(c.activeID); ok {
			for id := range c.expanded {
				if _, ok := forest.Node(id); !ok {
					delete(c.expanded, id)
				}
			}
			return []Event{c.activate(c.activeID, ReasonRefresh)}, nil
		}
	}

	initial := c.initialSelection()
	c.expanded = map[int]struct{}{initial: {}}
	return []Event{c.activate(initial, ReasonLoad)}, nil
}

func (c *Controller) initialSelection() int {
	for _, co := range c.companies {
		if co.IsPrimary {
			return co.ID
		}
	}
	return c.companies[0].ID
}

// SelectCompany makes id the active company. Selecting the active company
// again does nothing. An id that is not in the hierarchy still becomes
// active, with an empty breadcrumb.
func (c *Controller) SelectCompany(id int) []Event {
	if c.hasActive && c.activeID == id {
		return nil
	}
	return []Event{c.activate(id, ReasonSelect)}
}

// NavigateBreadcrumb jumps to a breadcrumb entry. A nil id returns to the
// top level and clears the selection.
func (c *Controller) NavigateBreadcrumb(id *int) []Event {
	if id == nil {
		if !c.hasActive && len(c.breadcrumb) == 0 {
			return nil
		}
		return []Event{c.clear()}
	}
	if c.hasActive && c.activeID == *id {
		return nil
	}
	return []Event{c.activate(*id, ReasonBreadcrumb)}
}

// ToggleExpand flips the expansion state of id.
func (c *Controller) ToggleExpand(id int) []Event {
	_, open := c.expanded[id]
	if open {
		delete(c.expanded, id)
	} else {
		c.expanded[id] = struct{}{}
	}
	return []Event{ExpandToggled{ID: id, Expanded: !open}}
}

// SetExpanded replaces the expanded set, ignoring ids that are not in the
// forest. Used to restore persisted tree state.
func (c *Controller) SetExpanded(ids []int) {
	c.expanded = make(map[int]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := c.forest.Node(id); ok {
			c.expanded[id] = struct{}{}
		}
	}
}

// OpenTeamPanel asks for the team panel of id. Selection state is not
// touched.
func (c *Controller) OpenTeamPanel(id int) []Event {
	return []Event{TeamPanelRequested{ID: id}}
}

func (c *Controller) activate(id int, reason ChangeReason) Event {
	c.seq++
	c.activeID = id
	c.hasActive = true
	c.kpi = KPIState{}

	log := c.log.WithFields(logrus.Fields{"company_id": id, "seq": c.seq, "reason": reason})

	if _, ok := hierarchy.FindCompanyByID(c.forest, id); !ok {
		log.Warn("selected company is not in the hierarchy")
		c.breadcrumb = nil
		c.trail = nil
		return ActiveCompanyChanged{ID: id, Seq: c.seq, Resolved: false, Reason: reason}
	}

	target, _ := c.index.Find(id)
	full, pos, status := c.index.FullPath(target)
	if status == hierarchy.PathCyclic {
		log.Warn("parent chain loops; breadcrumb unavailable")
		c.breadcrumb = nil
		c.trail = nil
		return ActiveCompanyChanged{ID: id, Seq: c.seq, Resolved: false, Reason: reason}
	}
	if status == hierarchy.PathBroken {
		log.WithField("top_id", full[0].ID).Debug("breadcrumb stops at missing parent")
	}

	c.breadcrumb = append([]model.Company(nil), full[:pos+1]...)
	if hierarchy.IndexOf(c.trail, id) < 0 || !c.trailExtends(c.breadcrumb) {
		c.trail = full
	}
	log.Debug("active company changed")
	return ActiveCompanyChanged{ID: id, Seq: c.seq, Resolved: true, Reason: reason}
}

// trailExtends reports whether the current trail starts with path.
func (c *Controller) trailExtends(path []model.Company) bool {
	if len(c.trail) < len(path) {
		return false
	}
	for i := range path {
		if c.trail[i].ID != path[i].ID {
			return false
		}
	}
	return true
}

func (c *Controller) clear() Event {
	c.seq++
	c.activeID = 0
	c.hasActive = false
	c.breadcrumb = nil
	c.trail = nil
	c.kpi = KPIState{}
	c.log.WithField("seq", c.seq).Debug("selection cleared")
	return SelectionCleared{Seq: c.seq}
}

// ApplyKPI stores a KPI result if it was requested for the current
// selection. Results for an earlier selection, including an earlier
// selection of the same company, are dropped. It reports whether the
// result was applied.
func (c *Controller) ApplyKPI(r kpi.Result) bool {
	if !c.hasActive || r.ActiveID != c.activeID || r.Seq != c.seq {
		c.log.WithFields(logrus.Fields{
			"result_for": r.ActiveID,
			"result_seq": r.Seq,
			"active_id":  c.activeID,
		}).Debug("discarding stale kpi result")
		return false
	}
	if r.Err != nil {
		c.kpi = KPIState{KPI: model.ZeroKPI(r.KPI.CompanyIDs), Err: r.Err, Loaded: true}
		return true
	}
	c.kpi = KPIState{KPI: r.KPI, Loaded: true}
	return true
}

// KPIRequest builds the fetch request for the current selection.
func (c *Controller) KPIRequest() (kpi.Request, bool) {
	if !c.hasActive {
		return kpi.Request{}, false
	}
	return kpi.Request{
		Seq:      c.seq,
		ActiveID: c.activeID,
		IDs:      c.opts.KPIScope.IDs(c.forest, c.activeID),
	}, true
}

// Window returns the sliding breadcrumb window for the active company.
func (c *Controller) Window() hierarchy.Window {
	if !c.hasActive || len(c.trail) == 0 {
		return hierarchy.Window{}
	}
	return hierarchy.WindowOnPath(c.trail, hierarchy.IndexOf(c.trail, c.activeID), c.opts.MaxVisible)
}

// SetMaxVisible changes the window size. Values below 1 are ignored.
func (c *Controller) SetMaxVisible(n int) {
	if n >= 1 {
		c.opts.MaxVisible = n
	}
}

// MaxVisible returns the configured window size.
func (c *Controller) MaxVisible() int { return c.opts.MaxVisible }

// State returns the lifecycle state.
func (c *Controller) State() State { return c.state }

// ActiveID returns the active company id, if any.
func (c *Controller) ActiveID() (int, bool) { return c.activeID, c.hasActive }

// ActiveCompany returns the active company record when it is in the forest.
func (c *Controller) ActiveCompany() (model.Company, bool) {
	if !c.hasActive {
		return model.Company{}, false
	}
	n, ok := c.forest.Node(c.activeID)
	if !ok {
		return model.Company{}, false
	}
	return n.Company, true
}

// Breadcrumb returns the path from a root to the active company.
func (c *Controller) Breadcrumb() []model.Company {
	return append([]model.Company(nil), c.breadcrumb...)
}

// Trail returns the full path the window is computed over.
func (c *Controller) Trail() []model.Company {
	return append([]model.Company(nil), c.trail...)
}

// Expanded returns the expanded ids in ascending order.
func (c *Controller) Expanded() []int {
	ids := make([]int, 0, len(c.expanded))
	for id := range c.expanded {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// IsExpanded reports whether id is expanded.
func (c *Controller) IsExpanded(id int) bool {
	_, ok := c.expanded[id]
	return ok
}

// Forest returns the current forest. It is nil before the first load.
func (c *Controller) Forest() *hierarchy.Forest { return c.forest }

// Companies returns the loaded flat list.
func (c *Controller) Companies() []model.Company { return c.companies }

// KPI returns the KPI state of the current selection.
func (c *Controller) KPI() KPIState { return c.kpi }
