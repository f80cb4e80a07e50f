// Package forum holds client-side payload models for the forum service
// API. The service is deployed and operated separately; warden only
// builds, validates, and submits requests against its published surface.
package forum

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the shared validator. Field names in errors use the json
// tag so operators see the wire name, not the Go name.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// CreateTopicRequest is the payload the forum service accepts for
// creating a topic. categoryId must always be present and well-formed;
// courseId is optional but must be well-formed when present. The
// optional flags are pointers so an unset flag is omitted from the
// payload instead of being sent as false.
type CreateTopicRequest struct {
	Title      string  `json:"title" validate:"required"`
	IsPinned   *bool   `json:"isPinned,omitempty"`
	IsClosed   *bool   `json:"isClosed,omitempty"`
	CourseID   *string `json:"courseId,omitempty" validate:"omitempty,uuid4"`
	CategoryID string  `json:"categoryId" validate:"required,uuid4"`
}

// NewTopicRequest returns a minimal valid request.
func NewTopicRequest(title, categoryID string) CreateTopicRequest {
	return CreateTopicRequest{Title: title, CategoryID: categoryID}
}

// Validate checks the request against the schema the service enforces.
// Validating locally keeps load tests from counting schema rejects as
// service failures.
func (r CreateTopicRequest) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating topic request: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("invalid topic request: %s", strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "uuid4":
		return fmt.Sprintf("%s must be a UUID, got %q", fe.Field(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %q validation", fe.Field(), fe.Tag())
	}
}
