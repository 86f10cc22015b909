package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainagg "github.com/tripweaver/tripweaver-backend/internal/domain/aggregates"
	"github.com/tripweaver/tripweaver-backend/internal/plan"
)

type APIError struct {
	Message string   `json:"message"`
	Code    string   `json:"code,omitempty"`
	Issues  []Issue  `json:"issues,omitempty"`
	Names   []string `json:"names,omitempty"`
}

// Issue is one path-qualified validation failure.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondAggregateError translates the typed error taxonomy to HTTP. Conflict
// is distinct from the authorization statuses so clients can offer a
// reload-and-retry flow; validation failures carry the full issue list; name
// resolution failures carry every offending name.
func RespondAggregateError(c *gin.Context, err error) {
	code := domainagg.CodeOf(err)

	status := http.StatusInternalServerError
	switch code {
	case domainagg.CodeNotFound:
		status = http.StatusNotFound
	case domainagg.CodeForbidden, domainagg.CodeOwnerMismatch:
		status = http.StatusForbidden
	case domainagg.CodeConflict:
		status = http.StatusConflict
	case domainagg.CodeValidation, domainagg.CodeInvariantViolation, domainagg.CodePreconditionFailed:
		status = http.StatusUnprocessableEntity
	case domainagg.CodeRetryable:
		status = http.StatusServiceUnavailable
	}

	out := APIError{Message: err.Error(), Code: string(code)}

	var vErr *plan.ValidationError
	if errors.As(err, &vErr) {
		out.Issues = make([]Issue, 0, len(vErr.Issues))
		for _, is := range vErr.Issues {
			out.Issues = append(out.Issues, Issue{Path: is.Path, Message: is.Message})
		}
	}
	var rErr *plan.ReorderError
	if errors.As(err, &rErr) {
		out.Names = append(out.Names, rErr.Unmatched...)
		out.Names = append(out.Names, rErr.Ambiguous...)
	}
	var nErr *plan.NameResolutionError
	if errors.As(err, &nErr) {
		out.Names = append(out.Names, nErr.Name)
	}

	c.JSON(status, ErrorEnvelope{Error: out})
}
