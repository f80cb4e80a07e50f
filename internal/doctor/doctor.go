// Package doctor checks everything warden depends on: the Docker daemon,
// the project manifest, the stack containers, the application endpoints,
// and the places warden writes.
package doctor

import (
	"fmt"
	"io"

	"github.com/praxislabs/warden/internal/ui"
)

// Section is one diagnostic area of the doctor report.
type Section interface {
	// Name returns the section heading (e.g. "Docker").
	Name() string

	// Print writes the section's findings to w. A returned error marks
	// the section as failed; partial output before the failure is kept.
	Print(w io.Writer) error
}

// Registry holds doctor sections in report order.
type Registry struct {
	sections []Section
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a section to the report.
func (r *Registry) Register(s Section) {
	r.sections = append(r.sections, s)
}

// Sections returns all registered sections.
func (r *Registry) Sections() []Section {
	return r.sections
}

// Run prints every section with a heading. A failing section is annotated
// with its error and the report continues. Returns the names of the
// sections that failed.
func (r *Registry) Run(w io.Writer) []string {
	var failed []string
	for i, s := range r.sections {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, ui.Bold(s.Name()))
		if err := s.Print(w); err != nil {
			fmt.Fprintf(w, "  %s %v\n", ui.FailTag(), err)
			failed = append(failed, s.Name())
		}
	}
	return failed
}
