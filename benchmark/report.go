package benchmark

import engine "tradebench/benchmark/engines/abstract"

// Report is the outcome of one run. Times are in seconds.
type Report struct {
	RunID       string            `json:"runId"`
	Engine      string            `json:"engine"`
	LoadPolicy  string            `json:"loadPolicy"`
	Repetitions int               `json:"repetitions"`
	Dataset     map[string]int    `json:"dataset"` // rows per entity
	Configs     map[string]string `json:"configs"`
	Metrics     map[string]string `json:"metrics"`
	Steps       []Step            `json:"steps"`
	Passes      []Pass            `json:"passes"`
}

type Step struct {
	Name     string  `json:"name"`
	Passed   bool    `json:"passed"`
	Duration float64 `json:"duration"`
	Error    string  `json:"error,omitempty"`
}

type Pass struct {
	Name    string        `json:"name"`
	Results []QueryResult `json:"results"`
}

type QueryResult struct {
	Query       string  `json:"query"`
	Description string  `json:"description"`
	Mean        float64 `json:"mean"`
	P95         float64 `json:"p95"`
	Rows        int     `json:"rows"`
	// False when the rows differ from the previous pass
	Consistent bool `json:"consistent"`
}

// Pass returns the pass called name, or nil when it did not run.
func (r *Report) Pass(name string) *Pass {
	for i := range r.Passes {
		if r.Passes[i].Name == name {
			return &r.Passes[i]
		}
	}
	return nil
}

// Succeeded reports whether every step passed and both passes completed.
func (r *Report) Succeeded() bool {
	for _, s := range r.Steps {
		if !s.Passed {
			return false
		}
	}
	for _, name := range []string{Unindexed, Indexed} {
		p := r.Pass(name)
		if p == nil || len(p.Results) != len(engine.Queries) {
			return false
		}
	}
	return true
}

// Result returns the timing of query in pass, or nil.
func (p *Pass) Result(query string) *QueryResult {
	for i := range p.Results {
		if p.Results[i].Query == query {
			return &p.Results[i]
		}
	}
	return nil
}
