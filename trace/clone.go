package trace

// Clone returns a deep copy of the evaluation, decoupled from the receiver.
func (c CandidateEvaluation) Clone() CandidateEvaluation {
	out := c
	out.Data = CloneValue(c.Data)
	if c.FilterResults != nil {
		out.FilterResults = make(map[string]FilterResult, len(c.FilterResults))
		for k, v := range c.FilterResults {
			out.FilterResults[k] = v
		}
	}
	if c.Score != nil {
		score := *c.Score
		out.Score = &score
	}
	if c.ScoreBreakdown != nil {
		out.ScoreBreakdown = make(map[string]float64, len(c.ScoreBreakdown))
		for k, v := range c.ScoreBreakdown {
			out.ScoreBreakdown[k] = v
		}
	}
	if c.Rank != nil {
		rank := *c.Rank
		out.Rank = &rank
	}
	return out
}

// Clone returns a deep copy of the metrics.
func (m StepMetrics) Clone() StepMetrics {
	out := m
	out.InputCount = cloneIntPtr(m.InputCount)
	out.OutputCount = cloneIntPtr(m.OutputCount)
	out.PassedCount = cloneIntPtr(m.PassedCount)
	out.FailedCount = cloneIntPtr(m.FailedCount)
	return out
}

func cloneIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Clone returns a deep copy of the step, decoupled from the receiver.
func (s Step) Clone() Step {
	out := s
	out.Input = CloneValue(s.Input)
	out.Output = CloneValue(s.Output)
	out.Metrics = s.Metrics.Clone()
	if s.Evaluations != nil {
		out.Evaluations = make([]CandidateEvaluation, len(s.Evaluations))
		for i, ev := range s.Evaluations {
			out.Evaluations[i] = ev.Clone()
		}
	}
	if s.FiltersApplied != nil {
		out.FiltersApplied = make(map[string]FilterConfig, len(s.FiltersApplied))
		for k, fc := range s.FiltersApplied {
			out.FiltersApplied[k] = FilterConfig{Value: CloneValue(fc.Value), Rule: fc.Rule}
		}
	}
	out.Metadata = s.Metadata.Clone()
	return out
}

// Clone returns a deep copy of the execution, decoupled from the receiver.
// The store relies on this to hand out snapshots that cannot corrupt the
// authoritative copy, and the builder relies on it for live snapshots.
func (e Execution) Clone() Execution {
	out := e
	if e.Steps != nil {
		out.Steps = make([]Step, len(e.Steps))
		for i, st := range e.Steps {
			out.Steps[i] = st.Clone()
		}
	}
	out.Context = e.Context.Clone()
	out.FinalOutput = CloneValue(e.FinalOutput)
	if e.Tags != nil {
		out.Tags = make([]string, len(e.Tags))
		copy(out.Tags, e.Tags)
	}
	return out
}
