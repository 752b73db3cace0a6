package stats

import (
	"strings"

	"github.com/waabox/gitpulse/internal/domain"
)

// Classify maps a run to exactly one outcome. It reads the conclusion when
// the provider reported one and falls back to the status otherwise; the
// comparison is case-insensitive. Anything unrecognised is OutcomeOther.
func Classify(r domain.RunRecord) domain.Outcome {
	return classify(r.Conclusion, r.Status)
}

// ClassifyJob applies the run policy to a job.
func ClassifyJob(j domain.JobRecord) domain.Outcome {
	return classify(j.Conclusion, j.Status)
}

// ClassifyStep applies the run policy to a step conclusion.
func ClassifyStep(s domain.StepRecord) domain.Outcome {
	return classify(s.Conclusion, "")
}

func classify(conclusion, status string) domain.Outcome {
	v := strings.TrimSpace(conclusion)
	if v == "" {
		v = strings.TrimSpace(status)
	}
	switch strings.ToUpper(v) {
	case "SUCCESS", "FINISHED":
		return domain.OutcomeSuccess
	case "FAILURE", "ERRORED":
		return domain.OutcomeFailure
	case "CANCELLED", "CANCELED":
		return domain.OutcomeCancelled
	default:
		return domain.OutcomeOther
	}
}

// countsAsSuccess is the success-rate numerator policy.
func countsAsSuccess(o domain.Outcome) bool {
	return o == domain.OutcomeSuccess || o == domain.OutcomeCancelled
}
