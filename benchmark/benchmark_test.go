package benchmark

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	engine "tradebench/benchmark/engines/abstract"
	"tradebench/dataset"
	benchErrors "tradebench/errors"
)

// fakeEngine answers from memory and records the calls it receives.
type fakeEngine struct {
	calls     []string
	ds        *dataset.Dataset
	indexed   bool
	failStep  string
	failQuery engine.Query
	// drops the first row of every answer once indexed
	dropIndexed bool
}

func (f *fakeEngine) fail(step string) error {
	f.calls = append(f.calls, step)
	if step == f.failStep {
		return benchErrors.NewLoadError(benchErrors.CodeWriteFailed, step+" failed", nil)
	}
	return nil
}

func (f *fakeEngine) Connect(context.Context) error    { return f.fail("connect") }
func (f *fakeEngine) Disconnect(context.Context) error { return f.fail("disconnect") }
func (f *fakeEngine) Reset(context.Context) error      { return f.fail("reset") }
func (f *fakeEngine) ProvisionSchema(context.Context) error {
	return f.fail("schema")
}

func (f *fakeEngine) LoadDataset(_ context.Context, ds *dataset.Dataset) error {
	f.ds = ds
	return f.fail("load")
}

func (f *fakeEngine) ProvisionIndexes(context.Context) error {
	f.indexed = true
	return f.fail("indexes")
}

func (f *fakeEngine) RunQuery(_ context.Context, q engine.Query, params engine.Params) (*engine.ResultSet, error) {
	f.calls = append(f.calls, q.String())
	if q == f.failQuery {
		return nil, errors.New("backend went away")
	}
	rs, err := engine.Evaluate(q, params, f.ds)
	if err != nil {
		return nil, err
	}
	if f.indexed && f.dropIndexed && len(rs.UserContacts) > 0 {
		rs.UserContacts = rs.UserContacts[1:]
	}
	return rs, nil
}

func (f *fakeEngine) LoadPolicy() engine.LoadPolicy { return engine.BestEffort }

func (f *fakeEngine) GetConfigs() map[string]string { return map[string]string{"store": "fake"} }

func (f *fakeEngine) GetMetrics(context.Context) map[string]string {
	return map[string]string{"indexed": "true"}
}

func (f *fakeEngine) count(call string) int {
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func newFake(t *testing.T, f *fakeEngine, repetitions int) *Benchmark {
	t.Helper()
	b, err := NewWithEngine(Config{EngineName: "fake", Repetitions: repetitions, Reset: true}, f)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestRunLifecycle(t *testing.T) {
	f := &fakeEngine{}
	ds := dataset.Fixture()
	report, err := newFake(t, f, 3).Run(context.Background(), ds)
	if err != nil {
		t.Fatal(err)
	}

	var steps []string
	for _, c := range f.calls {
		if !strings.HasPrefix(c, "Q") {
			steps = append(steps, c)
		}
	}
	if got := strings.Join(steps, ","); got != "connect,reset,schema,load,indexes,disconnect" {
		t.Errorf("steps = %s", got)
	}
	for _, q := range engine.Queries {
		if n := f.count(q.String()); n != 6 {
			t.Errorf("%s ran %d times, want 2 passes of 3", q, n)
		}
	}

	if _, err := uuid.Parse(report.RunID); err != nil {
		t.Errorf("run id %q: %v", report.RunID, err)
	}
	if !report.Succeeded() {
		t.Errorf("report not successful: %+v", report.Steps)
	}
	if report.LoadPolicy != "best-effort" || report.Configs["store"] != "fake" || report.Metrics["indexed"] != "true" {
		t.Errorf("engine details missing: %+v", report)
	}
	if report.Dataset["order_items"] != len(ds.OrderItems) {
		t.Errorf("dataset counts = %v", report.Dataset)
	}

	for _, name := range []string{Unindexed, Indexed} {
		p := report.Pass(name)
		for _, q := range engine.Queries {
			want, _ := engine.Evaluate(q, nil, ds)
			r := p.Result(q.String())
			if r == nil {
				t.Fatalf("%s/%s missing", name, q)
			}
			if r.Rows != want.Len() || !r.Consistent || r.Mean < 0 || r.P95 < 0 {
				t.Errorf("%s/%s = %+v, want %d rows", name, q, r, want.Len())
			}
		}
	}
}

func TestRunWithoutReset(t *testing.T) {
	f := &fakeEngine{}
	b := newFake(t, f, 1)
	b.cfg.Reset = false
	if _, err := b.Run(context.Background(), dataset.MiniFixture()); err != nil {
		t.Fatal(err)
	}
	if f.count("reset") != 0 {
		t.Error("reset ran although disabled")
	}
}

func TestRunStopsAtFailingStep(t *testing.T) {
	f := &fakeEngine{failStep: "load"}
	report, err := newFake(t, f, 2).Run(context.Background(), dataset.Fixture())
	if benchErrors.GetCategory(err) != benchErrors.ErrCategoryLoad {
		t.Fatalf("got %v, want LOAD error", err)
	}
	if f.count("Q1") != 0 || f.count("indexes") != 0 {
		t.Errorf("run continued after the failing step: %v", f.calls)
	}
	if f.count("disconnect") != 1 {
		t.Error("engine not disconnected")
	}
	if report.Succeeded() || len(report.Passes) != 0 {
		t.Errorf("report = %+v", report)
	}
	last := report.Steps[len(report.Steps)-2]
	if last.Name != "load" || last.Passed || last.Error == "" {
		t.Errorf("failing step = %+v", last)
	}
}

func TestQueryFailureAbortsPass(t *testing.T) {
	f := &fakeEngine{failQuery: engine.Q3}
	report, err := newFake(t, f, 4).Run(context.Background(), dataset.Fixture())
	if benchErrors.GetCategory(err) != benchErrors.ErrCategoryQuery {
		t.Fatalf("got %v, want QUERY error", err)
	}
	if f.count("Q3") != 1 || f.count("Q4") != 0 {
		t.Errorf("calls = %v", f.calls)
	}
	if f.count("disconnect") != 1 {
		t.Error("engine not disconnected")
	}
	p := report.Pass(Unindexed)
	if p == nil || len(p.Results) != 2 {
		t.Fatalf("partial pass = %+v", p)
	}
}

func TestIndexedPassFlagsChangedAnswers(t *testing.T) {
	f := &fakeEngine{dropIndexed: true}
	report, err := newFake(t, f, 1).Run(context.Background(), dataset.Fixture())
	if err != nil {
		t.Fatal(err)
	}
	if r := report.Pass(Indexed).Result("Q1"); r.Consistent {
		t.Error("Q1 lost a row after indexing but is reported consistent")
	}
	if r := report.Pass(Indexed).Result("Q2"); !r.Consistent {
		t.Error("Q2 reported inconsistent")
	}
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte("engine: keyvalue\nparams:\n  q1:\n    continent: Europe\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Repetitions != DefaultRepetitions || !cfg.Reset || cfg.Dataset.Source != dataset.SourceFixture {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if got := cfg.QueryParams(engine.Q1)[engine.ParamContinent]; got != "Europe" {
		t.Errorf("Q1 continent = %q", got)
	}
	if got := cfg.QueryParams(engine.Q2)[engine.ParamStatus]; got != dataset.StatusShipped {
		t.Errorf("Q2 status = %q", got)
	}

	tests := map[string]string{
		"engine: keyvalue\nrepetitions: 0\n":                      benchErrors.CodeInvalidRepetitions,
		"engine: keyvalue\nrepetitions: -3\n":                     benchErrors.CodeInvalidRepetitions,
		"engine: keyvalue\nparams:\n  Q9: {}\n":                   benchErrors.CodeInvalidConfig,
		"engine: keyvalue\nparams:\n  Q2:\n    status: Lost\n":    benchErrors.CodeInvalidConfig,
		"engine: keyvalue\nparams:\n  Q3:\n    continent: Asia\n": benchErrors.CodeInvalidConfig,
		"engine: [keyvalue\n":                                     benchErrors.CodeInvalidConfig,
	}
	for data, code := range tests {
		if _, err := ParseConfig([]byte(data)); benchErrors.GetCode(err) != code {
			t.Errorf("%q: got %v, want %s", data, err, code)
		}
	}
}

func TestNewEngine(t *testing.T) {
	_, err := New([]byte("engine: oracle\n"))
	if benchErrors.GetCode(err) != benchErrors.CodeUnknownEngine {
		t.Errorf("got %v, want UNKNOWN_ENGINE", err)
	}

	_, err = New([]byte("engine: mongodb\n"))
	if benchErrors.GetCategory(err) != benchErrors.ErrCategoryConfig {
		t.Errorf("missing section: got %v, want CONFIG error", err)
	}

	b, err := New([]byte("engine: keyvalue\nkeyvalue:\n  store: buntdb\n"))
	if err != nil {
		t.Fatal(err)
	}
	if b.Config().EngineName != EngineKeyValue || b.Engine() == nil {
		t.Errorf("benchmark = %+v", b)
	}
}

func TestRunEmbeddedStore(t *testing.T) {
	b, err := New([]byte("engine: keyvalue\nrepetitions: 2\nkeyvalue:\n  store: badger\n"))
	if err != nil {
		t.Fatal(err)
	}
	ds := dataset.Fixture()
	report, err := b.Run(context.Background(), ds)
	if err != nil {
		t.Fatal(err)
	}
	if !report.Succeeded() {
		t.Fatalf("steps = %+v", report.Steps)
	}
	for _, p := range report.Passes {
		for _, q := range engine.Queries {
			want, _ := engine.Evaluate(q, nil, ds)
			if r := p.Result(q.String()); r.Rows != want.Len() || !r.Consistent {
				t.Errorf("%s/%s = %+v, want %d rows", p.Name, q, r, want.Len())
			}
		}
	}
}
