// Package kpi fetches aggregated statistics for the active company.
//
// Fetches are asynchronous from the dashboard's point of view: the UI issues
// a Request tagged with the selection sequence number, and the Result comes
// back as a message. The controller decides whether the result is still
// relevant.
package kpi

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/vanderheijden86/companyview/pkg/hierarchy"
	"github.com/vanderheijden86/companyview/pkg/logging"
	"github.com/vanderheijden86/companyview/pkg/model"
)

// DefaultTimeout bounds a single KPI fetch.
const DefaultTimeout = 5 * time.Second

// Fetcher retrieves the KPI aggregate for a set of company ids.
type Fetcher interface {
	FetchKPI(ctx context.Context, ids []int) (model.KPI, error)
}

// Switcher notifies a remote system that the active company changed.
type Switcher interface {
	SwitchActiveCompany(ctx context.Context, id int) error
}

// Scope selects which companies a KPI request covers.
type Scope string

const (
	ScopeNode    Scope = "node"    // the active company only
	ScopeSubtree Scope = "subtree" // the active company and its descendants
)

// IsValid reports whether s is a known scope.
func (s Scope) IsValid() bool {
	return s == ScopeNode || s == ScopeSubtree
}

// ParseScope converts a config string to a Scope. Empty means ScopeNode.
func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "node":
		return ScopeNode, nil
	case "subtree", "tree":
		return ScopeSubtree, nil
	}
	return "", fmt.Errorf("unknown kpi scope %q", s)
}

// IDs returns the ids covered by a request for id under scope s.
// An id that is not in the forest covers only itself.
func (s Scope) IDs(forest *hierarchy.Forest, id int) []int {
	if s == ScopeSubtree && forest != nil {
		if ids := forest.Subtree(id); len(ids) > 0 {
			return ids
		}
	}
	return []int{id}
}

// Request describes one fetch.
type Request struct {
	Seq      uint64
	ActiveID int
	IDs      []int
}

// Result is a completed fetch tagged with the selection it was issued for.
// On failure KPI is the zero aggregate for the requested ids and Err is set.
type Result struct {
	Seq       uint64
	ActiveID  int
	KPI       model.KPI
	Err       error
	RequestID string
}

// Failed reports whether the fetch failed.
func (r Result) Failed() bool {
	return r.Err != nil
}

// Service wraps a Fetcher with a timeout and collapses identical requests
// that are in flight at the same time.
type Service struct {
	fetcher Fetcher
	timeout time.Duration
	log     logrus.FieldLogger
	group   singleflight.Group
}

// Option configures a Service.
type Option func(*Service)

// WithTimeout sets the per-request timeout. Zero or less keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the logger used for fetch diagnostics.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Service) {
		s.log = logging.OrDiscard(l)
	}
}

// NewService creates a Service around f.
func NewService(f Fetcher, opts ...Option) *Service {
	s := &Service{
		fetcher: f,
		timeout: DefaultTimeout,
		log:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch runs req to completion. It never returns a nil-KPI result: failures
// and cancellations produce the zero aggregate with Err set.
func (s *Service) Fetch(ctx context.Context, req Request) Result {
	reqID := uuid.NewString()
	log := s.log.WithFields(logrus.Fields{
		"request_id": reqID,
		"active_id":  req.ActiveID,
		"seq":        req.Seq,
		"ids":        len(req.IDs),
	})

	res := Result{Seq: req.Seq, ActiveID: req.ActiveID, RequestID: reqID}
	if s.fetcher == nil {
		res.KPI = model.ZeroKPI(req.IDs)
		res.Err = fmt.Errorf("no kpi source configured")
		return res
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	v, err, shared := s.group.Do(groupKey(req.IDs), func() (any, error) {
		return s.fetcher.FetchKPI(ctx, req.IDs)
	})
	if err != nil {
		log.WithError(err).Warn("kpi fetch failed")
		res.KPI = model.ZeroKPI(req.IDs)
		res.Err = fmt.Errorf("fetching kpi for %d: %w", req.ActiveID, err)
		return res
	}

	k := v.(model.KPI)
	k.CompanyIDs = slices.Clone(k.CompanyIDs)
	if k.CompanyIDs == nil {
		k.CompanyIDs = slices.Clone(req.IDs)
	}
	res.KPI = k
	log.WithFields(logrus.Fields{
		"shared":  shared,
		"elapsed": time.Since(start),
	}).Debug("kpi fetched")
	return res
}

func groupKey(ids []int) string {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	var b strings.Builder
	for i, id := range sorted {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(id))
	}
	return b.String()
}

// Notifier sends active-company switches to a Switcher. Failures are logged
// and dropped; there is no retry.
type Notifier struct {
	switcher Switcher
	timeout  time.Duration
	log      logrus.FieldLogger
}

// NewNotifier creates a Notifier. A nil switcher makes Notify a no-op.
func NewNotifier(sw Switcher, timeout time.Duration, log logrus.FieldLogger) *Notifier {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Notifier{switcher: sw, timeout: timeout, log: logging.OrDiscard(log)}
}

// Notify reports id as the new active company and returns the error, if
// any, after logging it.
func (n *Notifier) Notify(ctx context.Context, id int) error {
	if n == nil || n.switcher == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	if err := n.switcher.SwitchActiveCompany(ctx, id); err != nil {
		n.log.WithError(err).WithField("company_id", id).Warn("switching active company failed")
		return err
	}
	return nil
}

// MemoryFetcher aggregates KPIs from the counters on loaded company
// records. It backs the dashboard when no database is configured.
type MemoryFetcher struct {
	byID map[int]model.Company
}

// NewMemoryFetcher indexes companies. Later duplicates are ignored.
func NewMemoryFetcher(companies []model.Company) *MemoryFetcher {
	m := &MemoryFetcher{byID: make(map[int]model.Company, len(companies))}
	for _, c := range companies {
		if _, dup := m.byID[c.ID]; !dup {
			m.byID[c.ID] = c
		}
	}
	return m
}

// FetchKPI sums form and event counters over ids. Unknown ids contribute
// nothing.
func (m *MemoryFetcher) FetchKPI(ctx context.Context, ids []int) (model.KPI, error) {
	if err := ctx.Err(); err != nil {
		return model.KPI{}, err
	}
	k := model.ZeroKPI(ids)
	for _, id := range ids {
		c, ok := m.byID[id]
		if !ok {
			continue
		}
		k.TotalForms += c.FormCount
		k.ActiveEvents += c.EventCount
	}
	return k, nil
}
