package forum

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator produces schema-valid topic payloads for load testing.
// Safe for concurrent use.
type Generator struct {
	// CategoryID is posted on every payload. A fresh UUID is generated
	// at construction when empty.
	CategoryID string

	// CourseID, when set, is attached to every payload.
	CourseID string

	// Pinned sets isPinned on every payload.
	Pinned bool

	seq atomic.Int64
}

// NewGenerator returns a generator posting into categoryID, or into a
// fresh random category when categoryID is empty.
func NewGenerator(categoryID string) *Generator {
	if categoryID == "" {
		categoryID = uuid.NewString()
	}
	return &Generator{CategoryID: categoryID}
}

// Next returns the next payload. Titles carry a sequence number so
// individual requests can be traced in the service's logs.
func (g *Generator) Next() CreateTopicRequest {
	n := g.seq.Add(1)
	req := CreateTopicRequest{
		Title:      fmt.Sprintf("Load test topic %d", n),
		CategoryID: g.CategoryID,
	}
	if g.CourseID != "" {
		courseID := g.CourseID
		req.CourseID = &courseID
	}
	if g.Pinned {
		pinned := true
		req.IsPinned = &pinned
	}
	return req
}
