package policies

import (
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"pacrepack/internal/types"
)

// listedFailureCap bounds how many failed paths the error message spells out.
const listedFailureCap = 8

// FailurePolicy decides whether a staging run with accumulated per-path
// failures may continue. Limit 0 aborts on the first failure, a positive
// limit tolerates up to that many, a negative limit tolerates any number.
type FailurePolicy struct {
	Limit int
}

func NewFailurePolicy(limit int) FailurePolicy {
	return FailurePolicy{Limit: limit}
}

func (p FailurePolicy) Check(report types.StageReport) error {
	count := len(report.Failures)
	if count == 0 {
		return nil
	}
	if p.Limit < 0 || count <= p.Limit {
		return nil
	}

	listed := make([]string, 0, listedFailureCap)
	for i, failure := range report.Failures {
		if i == listedFailureCap {
			listed = append(listed, fmt.Sprintf("and %d more", count-listedFailureCap))
			break
		}
		listed = append(listed, failure.Path+": "+failure.Reason)
	}
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(fmt.Sprintf("staging incomplete, %d paths failed (limit %d): %s",
			count, p.Limit, strings.Join(listed, "; ")))
}
