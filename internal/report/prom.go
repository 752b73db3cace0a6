package report

import (
	"io"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/waabox/gitpulse/internal/dashboard"
	"github.com/waabox/gitpulse/internal/domain"
	"github.com/waabox/gitpulse/internal/lifecycle"
)

func gauge(name, help string) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: proto.String(name),
		Help: proto.String(help),
		Type: dto.MetricType_GAUGE.Enum(),
	}
}

// sample appends a gauge value. labels are name/value pairs.
func sample(mf *dto.MetricFamily, value float64, labels ...string) {
	m := &dto.Metric{Gauge: &dto.Gauge{Value: proto.Float64(value)}}
	for i := 0; i+1 < len(labels); i += 2 {
		m.Label = append(m.Label, &dto.LabelPair{Name: proto.String(labels[i]), Value: proto.String(labels[i+1])})
	}
	mf.Metric = append(mf.Metric, m)
}

// writeFamilies writes every family that has at least one sample.
func writeFamilies(w io.Writer, families []*dto.MetricFamily) error {
	for _, mf := range families {
		if len(mf.Metric) == 0 {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

func ciFamilies(r dashboard.CIReport) []*dto.MetricFamily {
	runs := gauge("gitpulse_ci_runs", "Runs in the reporting window by workflow and outcome.")
	rate := gauge("gitpulse_ci_success_rate", "Success rate of a workflow in percent; cancelled runs count as successful.")
	sourceRate := gauge("gitpulse_ci_source_success_rate", "Success rate of all workflows of a source in percent.")
	latest := gauge("gitpulse_ci_latest_status", "Workflows by the state of their latest run.")
	overall := gauge("gitpulse_ci_overall_success_rate", "Success rate across every source in percent.")
	daily := gauge("gitpulse_ci_daily_success_rate", "Success rate of concluded runs per weekday in percent.")
	auth := gauge("gitpulse_provider_authenticated", "Whether a provider authenticated (1) or not (0).")

	for _, a := range r.Auth {
		v := 0.0
		if a.Authenticated {
			v = 1
		}
		sample(auth, v, "provider", a.Provider)
	}
	for _, sec := range r.Sections {
		for _, g := range sec.Groups {
			sample(runs, float64(g.Success), "source", sec.Source, "workflow", g.Name, "outcome", string(domain.OutcomeSuccess))
			sample(runs, float64(g.Failed), "source", sec.Source, "workflow", g.Name, "outcome", string(domain.OutcomeFailure))
			sample(runs, float64(g.Cancelled), "source", sec.Source, "workflow", g.Name, "outcome", string(domain.OutcomeCancelled))
			sample(runs, float64(g.Other), "source", sec.Source, "workflow", g.Name, "outcome", string(domain.OutcomeOther))
			sample(rate, g.SuccessRate, "source", sec.Source, "workflow", g.Name)
		}
		sample(sourceRate, sec.Overall.SuccessRate, "source", sec.Source)
		sample(latest, float64(sec.Status.Failing), "source", sec.Source, "state", "failing")
		sample(latest, float64(sec.Status.InProgress), "source", sec.Source, "state", "in_progress")
		sample(latest, float64(sec.Status.Passing), "source", sec.Source, "state", "passing")
	}
	if r.Summary.Overall.Total > 0 {
		sample(overall, r.Summary.Overall.SuccessRate)
	}
	for _, d := range r.Summary.Daily {
		if v, ok := d.Rate(); ok {
			sample(daily, v, "date", d.Date, "weekday", d.Label)
		}
	}
	return []*dto.MetricFamily{auth, runs, rate, sourceRate, latest, overall, daily}
}

func issueFamilies(r dashboard.IssueReport) []*dto.MetricFamily {
	sections := gauge("gitpulse_issues", "Items per triage dashboard section.")
	sample(sections, float64(len(r.NeedsReviewUnassigned)), "section", "needs_review_unassigned")
	sample(sections, float64(len(r.NeedsReviewAssigned)), "section", "needs_review_assigned")
	sample(sections, float64(len(r.AcceptedUnassigned)), "section", "accepted_unassigned")
	sample(sections, float64(len(r.Unresponded)), "section", "unresponded")
	sample(sections, float64(len(r.Stale)), "section", "stale")
	sample(sections, float64(len(r.ExternalPRs)), "section", "external_prs")

	flow := gauge("gitpulse_issue_flow", "Issue and pull request movement over the reporting window.")
	flowSamples(flow, "issue", r.Flow.Issues)
	flowSamples(flow, "pull_request", r.Flow.PullRequests)

	return []*dto.MetricFamily{sections, flow}
}

func flowSamples(mf *dto.MetricFamily, kind string, s lifecycle.Snapshot) {
	sample(mf, float64(s.OpenAtStart), "kind", kind, "measure", "open_at_start")
	sample(mf, float64(s.OpenAtEnd), "kind", kind, "measure", "open_at_end")
	sample(mf, float64(s.Opened), "kind", kind, "measure", "opened")
	sample(mf, float64(s.Closed), "kind", kind, "measure", "closed")
}
