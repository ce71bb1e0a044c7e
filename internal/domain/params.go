package domain

import "time"

// ─── Governable Parameters ──────────────────────────────────────────────────

// ParamCategory groups governable parameters for listing and review.
type ParamCategory string

const (
	ParamCategoryGovernance ParamCategory = "governance"
	ParamCategoryUpgrade    ParamCategory = "upgrade"
	ParamCategoryBreaker    ParamCategory = "breaker"
	ParamCategoryPower      ParamCategory = "power"
)

// ProtectionLevel controls which proposal kind may change a parameter.
type ProtectionLevel int

const (
	// ProtectionNormal parameters change through a Parameter proposal.
	ProtectionNormal ProtectionLevel = iota

	// ProtectionElevated parameters need at least a Standard proposal.
	ProtectionElevated

	// ProtectionCritical parameters need a Critical or Emergency proposal.
	ProtectionCritical

	// ProtectionImmutable parameters cannot be changed by any vote.
	ProtectionImmutable
)

func (p ProtectionLevel) String() string {
	switch p {
	case ProtectionNormal:
		return "normal"
	case ProtectionElevated:
		return "elevated"
	case ProtectionCritical:
		return "critical"
	case ProtectionImmutable:
		return "immutable"
	default:
		return "unknown"
	}
}

// Satisfied reports whether a proposal of the given kind clears this
// protection level. Emergency clears everything mutable.
func (p ProtectionLevel) Satisfied(kind ProposalKind) bool {
	switch p {
	case ProtectionNormal:
		return true
	case ProtectionElevated:
		return kind != KindParameter
	case ProtectionCritical:
		return kind == KindCritical || kind == KindEmergency
	default:
		return false
	}
}

// Param is one governable runtime parameter. Values are strings at this
// layer; consumers parse them with the Validate hook guarding format.
type Param struct {
	Key          string          `json:"key"`
	Category     ParamCategory   `json:"category"`
	CurrentValue string          `json:"current_value"`
	Description  string          `json:"description"`
	Protection   ProtectionLevel `json:"protection"`
	LastChanged  time.Time       `json:"last_changed"`
	ChangedBy    string          `json:"changed_by,omitempty"` // proposal ID
}
