package display

import (
	"fmt"
	"sort"
	"strings"

	"github.com/arthur-debert/formulary/pkg/errors"
)

// ErrorView splits an error into the parts renderers draw separately
type ErrorView struct {
	Code    string
	Message string
	// Details are "key: value" lines sorted by key, without output.
	Details []string
	// Output is the captured tail of a failed command, if any.
	Output string
}

// NewErrorView builds an ErrorView from err
func NewErrorView(err error) ErrorView {
	v := ErrorView{Message: err.Error()}
	fErr, ok := errors.AsFormularyError(err)
	if !ok {
		return v
	}
	v.Code = string(fErr.Code)
	v.Message = fErr.Message
	if fErr.Wrapped != nil {
		v.Message = fmt.Sprintf("%s: %v", fErr.Message, fErr.Wrapped)
	}

	keys := make([]string, 0, len(fErr.Details))
	for k := range fErr.Details {
		if k == "output" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v.Details = append(v.Details, fmt.Sprintf("%s: %v", k, fErr.Details[k]))
	}
	if out, ok := fErr.Details["output"].(string); ok {
		v.Output = strings.TrimRight(out, "\n")
	}
	return v
}

// ShortSHA trims a commit to 12 characters
func ShortSHA(sha string) string {
	if len(sha) > 12 {
		return sha[:12]
	}
	return sha
}
