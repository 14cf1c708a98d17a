package apiclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"washdesk/frontend/shared/api"
	"washdesk/frontend/shared/drafttable"
)

// Error is a non-2xx API response. It unwraps to the matching api sentinel and, for
// validation failures, to the reported field errors.
type Error struct {
	Status  int
	Message string
	Fields  drafttable.ValidationErrors
}

func newError(status int, body []byte) *Error {
	e := &Error{Status: status}
	var eb api.ErrorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Error != "" {
		e.Message = eb.Error
		if len(eb.Fields) > 0 {
			e.Fields = drafttable.ValidationErrorsFromFields(eb.Fields)
		}
	} else {
		e.Message = strings.TrimSpace(string(body))
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}

func (e *Error) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

func (e *Error) Unwrap() []error {
	var errs []error
	switch e.Status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		errs = append(errs, api.ErrInvalid)
	case http.StatusNotFound:
		errs = append(errs, api.ErrNotFound)
	case http.StatusConflict:
		errs = append(errs, api.ErrReadOnly)
	}
	if len(e.Fields) > 0 {
		errs = append(errs, e.Fields)
	}
	return errs
}
