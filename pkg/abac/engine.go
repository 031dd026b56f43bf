package abac

import (
	"fmt"
	"strings"
)

// Request carries every attribute an ABAC decision needs. Cross-tenant
// checks happen upstream at the handler, before the engine is invoked: the
// engine itself is single-tenant and stateless.
type Request struct {
	UserID              string      `json:"user_id"`
	TenantID            string      `json:"tenant_id"`
	Role                Role        `json:"role"`
	Action              Action      `json:"action"`
	ResourceType        string      `json:"resource_type"`
	ResourceSensitivity Sensitivity `json:"resource_sensitivity"`
	ColumnNames         []string    `json:"column_names"`
}

// Decision is the outcome of an Evaluate call.
type Decision struct {
	Allowed        bool     `json:"allowed"`
	Reason         string   `json:"reason"`
	MaskedColumns  []string `json:"masked_columns"`
	VisibleColumns []string `json:"visible_columns"`
}

// Evaluate is the pure ABAC decision function: (role, resource-type, action,
// sensitivity, column-set) → (allow/deny, reason, masked, visible).
func Evaluate(req Request) Decision {
	if !isActionAllowed(req.Role, req.ResourceType, req.Action) {
		return Decision{
			Allowed: false,
			Reason: fmt.Sprintf("role %q is not permitted to %q on resource type %q",
				req.Role, req.Action, req.ResourceType),
		}
	}

	masked, visible := computeColumnMasks(req.Role, req.ResourceSensitivity, req.ColumnNames)

	reason := fmt.Sprintf("allowed: role=%s action=%s resource=%s", req.Role, req.Action, req.ResourceType)
	if len(masked) > 0 {
		reason += fmt.Sprintf(" | %d column(s) masked for sensitivity=%s", len(masked), req.ResourceSensitivity)
	}

	return Decision{
		Allowed:        true,
		Reason:         reason,
		MaskedColumns:  masked,
		VisibleColumns: visible,
	}
}

// computeColumnMasks partitions columnNames into masked and visible sets. If
// the resource's sensitivity is below the role's gate, every column is
// visible. Otherwise each column name is matched case-insensitively against
// the PII substring set.
func computeColumnMasks(role Role, resourceSensitivity Sensitivity, columnNames []string) (masked, visible []string) {
	if len(columnNames) == 0 {
		return nil, nil
	}

	gate, ok := columnSensitivityGates[role]
	if !ok {
		gate = SensitivityPublic
	}
	if sensitivityRank[resourceSensitivity] < sensitivityRank[gate] {
		return nil, append([]string(nil), columnNames...)
	}

	for _, col := range columnNames {
		lower := strings.ToLower(col)
		isPII := false
		for _, pattern := range piiColumnPatterns {
			if strings.Contains(lower, pattern) {
				isPII = true
				break
			}
		}
		if isPII {
			masked = append(masked, col)
		} else {
			visible = append(visible, col)
		}
	}
	return masked, visible
}
