package models

// Category is one review category. The set is closed: new categories are
// additions here, and a matching stage in the orchestrator.
type Category string

const (
	CategoryLogic           Category = "logic"
	CategorySecurity        Category = "security"
	CategoryCriticalBug     Category = "critical-bug"
	CategoryNaming          Category = "naming"
	CategoryOptimization    Category = "optimization"
	CategoryDesignPrinciple Category = "design-principle"
)

// Categories lists all review categories in pipeline order.
func Categories() []Category {
	return []Category{
		CategoryLogic,
		CategorySecurity,
		CategoryCriticalBug,
		CategoryNaming,
		CategoryOptimization,
		CategoryDesignPrinciple,
	}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// Severity represents how serious a finding is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Rank returns a numeric rank for sorting (higher = more severe).
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 5
	case SeverityHigh:
		return 4
	case SeverityMedium:
		return 3
	case SeverityLow:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// Finding is one reported issue. Findings are immutable value objects:
// stages produce them, the orchestrator filters and ranks them.
type Finding struct {
	Category   Category `json:"category"`
	Severity   Severity `json:"severity"`
	Path       string   `json:"path"`
	Line       int      `json:"line,omitempty"`     // 0 = no line anchor
	EndLine    int      `json:"end_line,omitempty"` // 0 = single line
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion,omitempty"`
	Confidence float64  `json:"confidence"`
}

// Anchored reports whether the finding has a resolvable line anchor and is
// therefore eligible for inline placement.
func (f Finding) Anchored() bool {
	return f.Path != "" && f.Line > 0
}

// Overlaps reports whether two findings' line anchors overlap. Anchorless
// findings on the same path are treated as overlapping.
func (f Finding) Overlaps(other Finding) bool {
	if f.Path != other.Path {
		return false
	}
	if f.Line == 0 || other.Line == 0 {
		return true
	}
	aEnd, bEnd := f.EndLine, other.EndLine
	if aEnd < f.Line {
		aEnd = f.Line
	}
	if bEnd < other.Line {
		bEnd = other.Line
	}
	return f.Line <= bEnd && other.Line <= aEnd
}
