package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/vanderheijden86/companyview/pkg/export"
	"github.com/vanderheijden86/companyview/pkg/hierarchy"
	"github.com/vanderheijden86/companyview/pkg/kpi"
	"github.com/vanderheijden86/companyview/pkg/loader"
	"github.com/vanderheijden86/companyview/pkg/logging"
	"github.com/vanderheijden86/companyview/pkg/model"
	"github.com/vanderheijden86/companyview/pkg/selection"
)

const (
	SplitViewThreshold = 100
	WideViewThreshold  = 140
)

type mode int

const (
	modeTree mode = iota
	modeJump
	modeTeam
)

// Messages produced by the dashboard's own commands.
type (
	switchFailedMsg struct {
		ID  int
		Err error
	}
	copiedMsg struct {
		Text string
		Err  error
	}
)

// Options wires the dashboard to its collaborators.
type Options struct {
	Controller *selection.Controller
	Companies  []model.Company
	Title      string

	KPI      *kpi.Service  // nil disables KPI fetching
	Notifier *kpi.Notifier // nil skips active-company notifications

	// Worker reloads the data file on change. Without one, Reload is used
	// for manual refreshes.
	Worker *BackgroundWorker
	Reload func() ([]model.Company, error)

	// StatePath is the tree-state.json location; empty disables persistence.
	StatePath string
	Logger    logrus.FieldLogger
	Theme     *Theme
}

// Model is the bubbletea model of the company dashboard. All selection
// state lives in the controller; the model turns controller events into
// commands and renders.
type Model struct {
	ctrl      *selection.Controller
	kpiSvc    *kpi.Service
	notifier  *kpi.Notifier
	worker    *BackgroundWorker
	reload    func() ([]model.Company, error)
	statePath string
	log       logrus.FieldLogger
	title     string

	theme    Theme
	keys     KeyMap
	help     help.Model
	tree     TreeModel
	viewport viewport.Model
	renderer *glamour.TermRenderer
	jump     textinput.Model
	team     TeamPanelModel

	mode        mode
	showDetails bool
	isSplitView bool
	ready       bool
	width       int
	height      int

	status      string
	statusError bool

	initial []selection.Event
}

// NewModel loads the companies into the controller, restores persisted
// tree state and prepares the panels. The returned error comes from the
// controller (strict mode).
func NewModel(opts Options) (Model, error) {
	if opts.Controller == nil {
		opts.Controller = selection.New(selection.Options{Logger: opts.Logger})
	}
	theme := DefaultTheme(lipgloss.DefaultRenderer())
	if opts.Theme != nil {
		theme = *opts.Theme
	}
	title := opts.Title
	if title == "" {
		title = "cv"
	}

	m := Model{
		ctrl:      opts.Controller,
		kpiSvc:    opts.KPI,
		notifier:  opts.Notifier,
		worker:    opts.Worker,
		reload:    opts.Reload,
		statePath: opts.StatePath,
		log:       logging.OrDiscard(opts.Logger).WithField("component", "ui"),
		title:     title,
		theme:     theme,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		tree:      NewTreeModel(theme),
		viewport:  viewport.New(80, 20),
	}

	events, err := m.ctrl.LoadCompanies(opts.Companies)
	if err != nil {
		return Model{}, err
	}
	events = append(events, m.restoreState()...)
	m.initial = events

	ti := textinput.New()
	ti.Prompt = "Jump to id: "
	ti.Placeholder = "company id"
	ti.CharLimit = 12
	m.jump = ti

	m.renderer, _ = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	m.syncTree()
	if id, ok := m.ctrl.ActiveID(); ok {
		m.tree.SelectByID(id)
	}
	m.updateViewportContent()
	return m, nil
}

// restoreState applies tree-state.json. Errors only cost the saved layout.
func (m *Model) restoreState() []selection.Event {
	if m.statePath == "" {
		return nil
	}
	state, err := LoadTreeState(m.statePath)
	if err != nil {
		m.log.WithError(err).Warn("ignoring tree state")
		return nil
	}
	if state == nil {
		return nil
	}
	m.ctrl.SetExpanded(state.Expanded)
	if state.Active == nil {
		return nil
	}
	if _, ok := m.ctrl.Forest().Node(*state.Active); !ok {
		return nil
	}
	return m.ctrl.SelectCompany(*state.Active)
}

func (m Model) Init() tea.Cmd {
	// The initial selection is not announced to the backend; only its KPI
	// are fetched.
	var cmds []tea.Cmd
	for _, ev := range m.initial {
		if _, ok := ev.(selection.ActiveCompanyChanged); ok {
			cmds = append(cmds, m.fetchKPICmd())
			break
		}
	}
	cmds = append(cmds, textinput.Blink)
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case kpi.Result:
		if m.ctrl.ApplyKPI(msg) {
			if msg.Failed() {
				m.log.WithError(msg.Err).WithField("request_id", msg.RequestID).Warn("kpi fetch failed")
			}
			m.updateViewportContent()
		}
		return m, nil

	case CompaniesLoadedMsg:
		cmd := m.applyCompanies(msg.Snapshot)
		return m, cmd

	case LoadErrorMsg:
		m.setStatus(fmt.Sprintf("Reload failed: %v", msg.Err.Cause), true)
		return m, nil

	case switchFailedMsg:
		m.setStatus(fmt.Sprintf("Could not switch to #%d: %v", msg.ID, msg.Err), true)
		return m, nil

	case copiedMsg:
		if msg.Err != nil {
			m.setStatus(fmt.Sprintf("Copy failed: %v", msg.Err), true)
		} else {
			m.setStatus("Copied: "+msg.Text, false)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeJump:
			return m.updateJump(msg)
		case modeTeam:
			return m.updateTeam(msg)
		}
		return m.updateTree(msg)
	}
	return m, nil
}

func (m Model) updateTree(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	detailFocus := m.showDetails && !m.isSplitView

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Cancel):
		m.showDetails = false
		m.help.ShowAll = false
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.layout()
	case detailFocus && (key.Matches(msg, m.keys.Up) || key.Matches(msg, m.keys.Down)):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	case key.Matches(msg, m.keys.Up):
		m.tree.MoveUp()
	case key.Matches(msg, m.keys.Down):
		m.tree.MoveDown()
	case key.Matches(msg, m.keys.PageDown):
		m.tree.PageDown()
	case key.Matches(msg, m.keys.PageUp):
		m.tree.PageUp()
	case key.Matches(msg, m.keys.Select):
		if id, ok := m.tree.SelectedID(); ok {
			cmd := m.handleEvents(m.ctrl.SelectCompany(id))
			return m, cmd
		}
	case key.Matches(msg, m.keys.Toggle):
		if id, ok := m.tree.SelectedID(); ok {
			cmd := m.handleEvents(m.ctrl.ToggleExpand(id))
			return m, cmd
		}
	case key.Matches(msg, m.keys.Parent):
		bc := m.ctrl.Breadcrumb()
		if len(bc) >= 2 {
			id := bc[len(bc)-2].ID
			cmd := m.handleEvents(m.ctrl.NavigateBreadcrumb(&id))
			return m, cmd
		}
		cmd := m.handleEvents(m.ctrl.NavigateBreadcrumb(nil))
		return m, cmd
	case key.Matches(msg, m.keys.TopLevel):
		cmd := m.handleEvents(m.ctrl.NavigateBreadcrumb(nil))
		return m, cmd
	case key.Matches(msg, m.keys.Team):
		if id, ok := m.tree.SelectedID(); ok {
			cmd := m.handleEvents(m.ctrl.OpenTeamPanel(id))
			return m, cmd
		}
	case key.Matches(msg, m.keys.Jump):
		m.mode = modeJump
		m.jump.SetValue("")
		cmd := m.jump.Focus()
		return m, cmd
	case key.Matches(msg, m.keys.Refresh):
		cmd := m.refreshCmd()
		return m, cmd
	case key.Matches(msg, m.keys.CopyPath):
		cmd := m.copyPathCmd()
		return m, cmd
	case key.Matches(msg, m.keys.Detail):
		m.showDetails = !m.showDetails
		m.updateViewportContent()
	}
	return m, nil
}

func (m Model) updateJump(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeTree
		m.jump.Blur()
		return m, nil
	case tea.KeyEnter:
		m.mode = modeTree
		m.jump.Blur()
		raw := strings.TrimSpace(m.jump.Value())
		id, err := strconv.Atoi(raw)
		if err != nil {
			m.setStatus(fmt.Sprintf("Not a company id: %q", raw), true)
			return m, nil
		}
		m.reveal(id)
		cmd := m.handleEvents(m.ctrl.SelectCompany(id))
		return m, cmd
	}
	var cmd tea.Cmd
	m.jump, cmd = m.jump.Update(msg)
	return m, cmd
}

func (m Model) updateTeam(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel), key.Matches(msg, m.keys.Quit), key.Matches(msg, m.keys.Team):
		m.mode = modeTree
	case key.Matches(msg, m.keys.Up):
		m.team.MoveUp()
	case key.Matches(msg, m.keys.Down):
		m.team.MoveDown()
	case key.Matches(msg, m.keys.Select):
		m.mode = modeTree
		if id, ok := m.team.SelectedID(); ok {
			m.reveal(id)
			cmd := m.handleEvents(m.ctrl.SelectCompany(id))
			return m, cmd
		}
	}
	return m, nil
}

// handleEvents reacts to controller events after the state change is
// complete: it persists, refreshes the panels and returns the fetch and
// notification commands.
func (m *Model) handleEvents(events []selection.Event) tea.Cmd {
	var cmds []tea.Cmd
	fetch, persist := false, false

	for _, ev := range events {
		switch e := ev.(type) {
		case selection.ActiveCompanyChanged:
			fetch = true
			if e.Reason != selection.ReasonRefresh {
				persist = true
				cmds = append(cmds, m.notifyCmd(e.ID))
			}
			if !e.Resolved {
				m.setStatus(fmt.Sprintf("Company #%d is not in the hierarchy", e.ID), true)
			}
		case selection.SelectionCleared:
			persist = true
			m.setStatus("Showing all companies", false)
		case selection.ExpandToggled:
			persist = true
		case selection.TeamPanelRequested:
			panel, ok := NewTeamPanelModel(m.ctrl.Forest(), e.ID, m.theme)
			if ok {
				panel.SetSize(m.width, m.bodyHeight())
				m.team = panel
				m.mode = modeTeam
			}
		}
	}

	m.syncTree()
	if id, ok := m.ctrl.ActiveID(); ok && fetch {
		m.tree.SelectByID(id)
	}
	if persist {
		m.saveState()
	}
	if fetch {
		cmds = append(cmds, m.fetchKPICmd())
	}
	m.updateViewportContent()
	return tea.Batch(cmds...)
}

// reveal expands every ancestor of id so the tree can show it.
func (m *Model) reveal(id int) {
	node, ok := hierarchy.FindCompanyByID(m.ctrl.Forest(), id)
	if !ok {
		return
	}
	expanded := m.ctrl.Expanded()
	for _, a := range node.Ancestors() {
		if a != node && !m.ctrl.IsExpanded(a.Company.ID) {
			expanded = append(expanded, a.Company.ID)
		}
	}
	m.ctrl.SetExpanded(expanded)
}

func (m *Model) applyCompanies(s *Snapshot) tea.Cmd {
	if s == nil {
		return nil
	}
	events, err := m.ctrl.LoadCompanies(s.Companies)
	if err != nil {
		m.setStatus(fmt.Sprintf("Reload rejected: %v", err), true)
		return nil
	}
	status := fmt.Sprintf("Loaded %d companies", len(s.Companies))
	if n := len(s.Warnings) + s.Skipped; n > 0 {
		status += fmt.Sprintf(" (%d warnings)", n)
	}
	m.setStatus("", false)
	cmd := m.handleEvents(events)
	if m.status == "" {
		m.setStatus(status, false)
	}
	return cmd
}

func (m *Model) syncTree() {
	m.tree.Build(m.ctrl.Forest(), m.ctrl.IsExpanded)
	id, ok := m.ctrl.ActiveID()
	m.tree.SetActive(id, ok)
}

func (m *Model) saveState() {
	if m.statePath == "" {
		return
	}
	state := TreeState{Expanded: m.ctrl.Expanded()}
	if id, ok := m.ctrl.ActiveID(); ok {
		state.Active = &id
	}
	if err := SaveTreeState(m.statePath, state); err != nil {
		m.log.WithError(err).Warn("saving tree state")
	}
}

func (m *Model) fetchKPICmd() tea.Cmd {
	req, ok := m.ctrl.KPIRequest()
	if !ok || m.kpiSvc == nil {
		return nil
	}
	svc := m.kpiSvc
	return func() tea.Msg {
		return svc.Fetch(context.Background(), req)
	}
}

func (m *Model) notifyCmd(id int) tea.Cmd {
	if m.notifier == nil {
		return nil
	}
	n := m.notifier
	return func() tea.Msg {
		if err := n.Notify(context.Background(), id); err != nil {
			return switchFailedMsg{ID: id, Err: err}
		}
		return nil
	}
}

func (m *Model) refreshCmd() tea.Cmd {
	if m.worker != nil {
		m.setStatus("Reloading…", false)
		m.worker.TriggerRefresh()
		return nil
	}
	if m.reload == nil {
		m.setStatus("Nothing to reload", false)
		return nil
	}
	reload := m.reload
	return func() tea.Msg {
		companies, err := reload()
		if err != nil {
			return LoadErrorMsg{Err: &WorkerError{Phase: "load", Cause: err, Time: time.Now(), Retries: 1}, Recoverable: true}
		}
		return CompaniesLoadedMsg{Snapshot: &Snapshot{
			Companies: companies,
			Hash:      loader.ContentHash(companies),
			LoadedAt:  time.Now(),
		}}
	}
}

// copyPathCmd copies the full breadcrumb of the active company.
func (m *Model) copyPathCmd() tea.Cmd {
	bc := m.ctrl.Breadcrumb()
	if len(bc) == 0 {
		m.setStatus("No path to copy", true)
		return nil
	}
	names := make([]string, len(bc))
	for i, c := range bc {
		names[i] = c.Name
	}
	text := strings.Join(names, breadcrumbSep)
	return func() tea.Msg {
		return copiedMsg{Text: text, Err: clipboard.WriteAll(text)}
	}
}

func (m *Model) setStatus(s string, isError bool) {
	m.status = s
	m.statusError = isError
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.isSplitView = width > SplitViewThreshold
	m.ready = true
	m.help.Width = width
	m.layout()

	if m.isSplitView {
		m.renderer, _ = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(m.viewport.Width),
		)
	}
	m.updateViewportContent()
}

// layout sizes the tree, detail and team panels from the window size.
func (m *Model) layout() {
	body := m.bodyHeight()
	treeWidth := m.width
	if m.isSplitView {
		treeWidth = int(float64(m.width) * 0.4)
		if m.width > WideViewThreshold {
			treeWidth = int(float64(m.width) * 0.35)
		}
		m.viewport.Width = m.width - treeWidth - 4
		m.viewport.Height = body - 2
	} else {
		m.viewport.Width = m.width
		m.viewport.Height = body
	}
	m.tree.SetSize(treeWidth-2, body-2)
	m.team.SetSize(m.width, body)
}

// bodyHeight is the space left after the header bars and the footer.
func (m *Model) bodyHeight() int {
	footer := 2
	if m.help.ShowAll {
		footer = 1 + len(m.keys.FullHelp()[0])
	}
	h := m.height - 3 - footer
	if h < 3 {
		h = 3
	}
	return h
}

func (m *Model) updateViewportContent() {
	c, ok := m.ctrl.ActiveCompany()
	if !ok {
		m.viewport.SetContent("No company selected")
		return
	}
	var k *model.KPI
	if state := m.ctrl.KPI(); state.Loaded {
		k = &state.KPI
	}
	md := export.CompanyMarkdown(c, m.ctrl.Breadcrumb(), k)
	if m.renderer == nil {
		m.viewport.SetContent(md)
		return
	}
	rendered, err := m.renderer.Render(md)
	if err != nil {
		m.viewport.SetContent(fmt.Sprintf("Error rendering markdown: %v", err))
		return
	}
	m.viewport.SetContent(rendered)
}

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	header := m.renderHeader()
	crumbs := RenderBreadcrumb(m.ctrl.Window(), m.theme, m.width)
	kpiBar := RenderKPI(m.ctrl, m.theme)

	var body string
	switch {
	case m.mode == modeTeam:
		body = m.team.View()
	case m.isSplitView:
		treeView := PanelStyle(m.theme, true).
			Width(m.tree.width).Height(m.bodyHeight() - 2).
			Render(m.tree.View())
		detailView := PanelStyle(m.theme, false).
			Width(m.viewport.Width + 2).Height(m.bodyHeight() - 2).
			Render(m.viewport.View())
		body = lipgloss.JoinHorizontal(lipgloss.Top, treeView, detailView)
	case m.showDetails:
		body = m.viewport.View()
	default:
		body = m.tree.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, crumbs, kpiBar, body, m.renderFooter())
}

// PanelStyle is the bordered frame around a panel.
func PanelStyle(t Theme, focused bool) lipgloss.Style {
	border := t.Border
	if focused {
		border = t.Primary
	}
	return t.Renderer.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(border)
}

func (m *Model) renderHeader() string {
	r := m.theme.Renderer
	title := r.NewStyle().Foreground(m.theme.Primary).Bold(true).Padding(0, 1).Render(m.title)
	count := r.NewStyle().Foreground(m.theme.Subtext).
		Render(fmt.Sprintf("%d companies · %d top-level", len(m.ctrl.Companies()), m.tree.RootCount()))
	return title + count
}

func (m *Model) renderFooter() string {
	r := m.theme.Renderer
	var line string
	switch {
	case m.mode == modeJump:
		line = m.jump.View()
	case m.status != "":
		color := m.theme.Subtext
		if m.statusError {
			color = m.theme.Error
		}
		line = r.NewStyle().Foreground(color).Render(m.status)
	}
	return lipgloss.JoinVertical(lipgloss.Left, line, m.help.View(m.keys))
}

// Controller exposes the selection controller (for tests and the CLI).
func (m Model) Controller() *selection.Controller {
	return m.ctrl
}

// Status returns the footer message and whether it is an error.
func (m Model) Status() (string, bool) {
	return m.status, m.statusError
}
