package model

import (
	"fmt"
	"strings"
)

// Company is one record of the flat company list as delivered by the data
// source. Child relationships are never stored here; they only exist on the
// forest built from the list (see package hierarchy).
type Company struct {
	ID               int              `json:"id"`
	Name             string           `json:"name"`
	RelationshipType RelationshipType `json:"relationship_type"`
	Role             Role             `json:"role"`
	ParentID         *int             `json:"parent_id"`
	EventCount       int              `json:"event_count"`
	FormCount        int              `json:"form_count"`
	IsPrimary        bool             `json:"is_primary"`

	// HierarchyLevel is derived by the tree builder. Values present in the
	// source data are ignored.
	HierarchyLevel int `json:"hierarchy_level"`
}

// HasParent reports whether the company declares a parent reference.
func (c Company) HasParent() bool {
	return c.ParentID != nil
}

// ParentIs reports whether the company's parent reference equals id.
func (c Company) ParentIs(id int) bool {
	return c.ParentID != nil && *c.ParentID == id
}

// Clone creates a deep copy of the company
func (c Company) Clone() Company {
	clone := c
	if c.ParentID != nil {
		v := *c.ParentID
		clone.ParentID = &v
	}
	return clone
}

// Validate checks if the company data is logically valid
func (c *Company) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("company %d: name cannot be empty", c.ID)
	}
	if !c.RelationshipType.IsValid() {
		return fmt.Errorf("company %d: invalid relationship type: %q", c.ID, c.RelationshipType)
	}
	if !c.Role.IsValid() {
		return fmt.Errorf("company %d: invalid role: %q", c.ID, c.Role)
	}
	if c.ParentIs(c.ID) {
		return fmt.Errorf("company %d: cannot be its own parent", c.ID)
	}
	if c.EventCount < 0 {
		return fmt.Errorf("company %d: event_count (%d) cannot be negative", c.ID, c.EventCount)
	}
	if c.FormCount < 0 {
		return fmt.Errorf("company %d: form_count (%d) cannot be negative", c.ID, c.FormCount)
	}
	return nil
}

// IntPtr returns a pointer to v. Handy for building parent references.
func IntPtr(v int) *int {
	return &v
}

// RelationshipType describes how a company relates to the account owner
type RelationshipType string

const (
	RelHeadOffice RelationshipType = "head_office"
	RelBranch     RelationshipType = "branch"
	RelFreelancer RelationshipType = "freelancer"
	RelPartner    RelationshipType = "partner"
)

// IsValid returns true if the relationship type is a recognized value
func (r RelationshipType) IsValid() bool {
	switch r {
	case RelHeadOffice, RelBranch, RelFreelancer, RelPartner:
		return true
	}
	return false
}

// Label returns the display spelling used by the dashboard.
func (r RelationshipType) Label() string {
	switch r {
	case RelHeadOffice:
		return "Head Office"
	case RelBranch:
		return "Branch"
	case RelFreelancer:
		return "Freelancer"
	case RelPartner:
		return "Partner"
	default:
		return string(r)
	}
}

// ParseRelationshipType accepts both the wire form ("head_office") and the
// display form ("Head Office"), case-insensitively.
func ParseRelationshipType(s string) (RelationshipType, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	r := RelationshipType(norm)
	if !r.IsValid() {
		return "", fmt.Errorf("unknown relationship type: %q", s)
	}
	return r, nil
}

// Role is the caller's role at a given company. It is displayed only;
// permission checks happen elsewhere.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// IsValid returns true if the role is a recognized value
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleUser
}

// Label returns the display spelling of the role.
func (r Role) Label() string {
	switch r {
	case RoleAdmin:
		return "Admin"
	case RoleUser:
		return "User"
	default:
		return string(r)
	}
}

// ParseRole parses a role case-insensitively.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", fmt.Errorf("unknown role: %q", s)
	}
	return r, nil
}

// KPI is the dashboard summary for a set of active companies.
type KPI struct {
	TotalForms   int   `json:"total_forms"`
	TotalLeads   int   `json:"total_leads"`
	ActiveEvents int   `json:"active_events"`
	CompanyIDs   []int `json:"company_ids"`
}

// ZeroKPI returns the fallback record shown when a fetch fails.
func ZeroKPI(ids []int) KPI {
	cp := make([]int, len(ids))
	copy(cp, ids)
	return KPI{CompanyIDs: cp}
}

// IsZero reports whether all counters are zero.
func (k KPI) IsZero() bool {
	return k.TotalForms == 0 && k.TotalLeads == 0 && k.ActiveEvents == 0
}

// Validate checks if the KPI data is logically valid.
func (k *KPI) Validate() error {
	if k.TotalForms < 0 {
		return fmt.Errorf("total_forms (%d) cannot be negative", k.TotalForms)
	}
	if k.TotalLeads < 0 {
		return fmt.Errorf("total_leads (%d) cannot be negative", k.TotalLeads)
	}
	if k.ActiveEvents < 0 {
		return fmt.Errorf("active_events (%d) cannot be negative", k.ActiveEvents)
	}
	return nil
}
