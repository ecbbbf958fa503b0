package importer

import "fmt"

// ErrorType distinguishes the two hard failure channels of an import.
type ErrorType string

const (
	// ErrorValidation is a structural failure found before any write.
	ErrorValidation ErrorType = "validation"
	// ErrorGeneral is a write-phase failure that rolled back the import.
	ErrorGeneral ErrorType = "general"
)

// ImportError is one recorded hard failure.
type ImportError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Context string    `json:"context,omitempty"`
}

// Span actions reported for the primary span.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
)

// MainSpanResult describes what happened to the record's primary span.
type MainSpanResult struct {
	Action string `json:"action"`
	ID     string `json:"id"`
	Name   string `json:"name"`
}

// SectionDetail is one successfully imported relationship item.
type SectionDetail struct {
	Name   string `json:"name"`
	Action string `json:"action"`
}

// SectionStats accumulates per-relationship-section counts.
type SectionStats struct {
	Created  int             `json:"created"`
	Existing int             `json:"existing"`
	Total    int             `json:"total"`
	Details  []SectionDetail `json:"details"`
}

func (s *SectionStats) add(name string, created bool) {
	action := "existing"
	if created {
		action = ActionCreated
		s.Created++
	} else {
		s.Existing++
	}
	s.Total++
	s.Details = append(s.Details, SectionDetail{Name: name, Action: action})
}

// Report is the sole return value of an import call. It is mutated throughout
// the call (errors and warnings are append-only, never cleared) and must be
// treated as immutable once returned.
type Report struct {
	Success  bool                     `json:"success"`
	Errors   []ImportError            `json:"errors,omitempty"`
	Warnings []string                 `json:"warnings,omitempty"`
	MainSpan *MainSpanResult          `json:"main_span,omitempty"`
	Sections map[string]*SectionStats `json:"sections,omitempty"`
}

// NewReport returns an empty report in the success state.
func NewReport() *Report {
	return &Report{
		Success:  true,
		Sections: make(map[string]*SectionStats),
	}
}

// AddValidationError records one structural validation failure. Validation
// errors accumulate; persistence is skipped when any are present.
func (r *Report) AddValidationError(message, context string) {
	r.Success = false
	r.Errors = append(r.Errors, ImportError{Type: ErrorValidation, Message: message, Context: context})
}

// AddGeneralError records one unexpected write-phase failure.
func (r *Report) AddGeneralError(format string, args ...any) {
	r.Success = false
	r.Errors = append(r.Errors, ImportError{Type: ErrorGeneral, Message: fmt.Sprintf(format, args...)})
}

// Warnf records one per-item recoverable failure. Warnings never flip
// Success.
func (r *Report) Warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// HasErrors reports whether any hard error has been recorded.
func (r *Report) HasErrors() bool {
	return len(r.Errors) > 0
}

// Section returns the named section's stats, creating them on first use.
func (r *Report) Section(name string) *SectionStats {
	if r.Sections == nil {
		r.Sections = make(map[string]*SectionStats)
	}
	s, ok := r.Sections[name]
	if !ok {
		s = &SectionStats{}
		r.Sections[name] = s
	}
	return s
}
