// Package locator resolves logical element descriptions to concrete screen
// points by running an ordered list of location strategies over snapshots.
package locator

import (
	"fmt"
	"strings"
)

// Criteria describes the desired target element. Any combination of fields
// may be set; strategies apply the fields they understand. Immutable value.
type Criteria struct {
	ResourceID string // exact resource-id match
	Text       string // element text; substring unless ExactText
	ExactText  bool
	ClassName  string // exact class name match
	Template   string // named template in the store
	Index      *int   // pick the nth qualifying match (0-based)
}

// Index helper for literal criteria.
func At(i int) *int { return &i }

// IsEmpty reports whether no selector field is set.
func (c Criteria) IsEmpty() bool {
	return c.ResourceID == "" && c.Text == "" && c.ClassName == "" && c.Template == ""
}

// Describe returns a human-readable summary for logs and errors.
func (c Criteria) Describe() string {
	var parts []string
	if c.ResourceID != "" {
		parts = append(parts, fmt.Sprintf("id=%q", c.ResourceID))
	}
	if c.Text != "" {
		if c.ExactText {
			parts = append(parts, fmt.Sprintf("text=%q", c.Text))
		} else {
			parts = append(parts, fmt.Sprintf("text~%q", c.Text))
		}
	}
	if c.ClassName != "" {
		parts = append(parts, fmt.Sprintf("class=%q", c.ClassName))
	}
	if c.Template != "" {
		parts = append(parts, fmt.Sprintf("template=%q", c.Template))
	}
	if c.Index != nil {
		parts = append(parts, fmt.Sprintf("index=%d", *c.Index))
	}
	if len(parts) == 0 {
		return "<empty>"
	}
	return strings.Join(parts, " ")
}
