package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"tradebench/benchmark"
)

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Sum of the query means of a pass
func passTotal(p *benchmark.Pass) float64 {
	if p == nil {
		return 0
	}
	var total float64
	for _, r := range p.Results {
		total += r.Mean
	}
	return total
}

// Prints a summary of the report: a "Csv:" line with the engine details and
// the total of each pass, one "CsvOps:" line per timed query, and the same
// values in a key-value format to ease reading.
func printSummary(w io.Writer, report *benchmark.Report, firstLine bool) {
	sortedConfigs := sortedKeys(report.Configs)
	sortedMetrics := sortedKeys(report.Metrics)

	// CSV header
	if firstLine {
		header := "engine,run,repetitions,loadPolicy"
		if len(sortedConfigs) > 0 {
			header += "," + strings.Join(sortedConfigs, ",")
		}
		if len(sortedMetrics) > 0 {
			fmt.Fprintln(w, "Csv:"+header+","+strings.Join(sortedMetrics, ",")+",succeeded,unindexed,indexed")
		} else {
			fmt.Fprintln(w, "Csv:"+header+",succeeded,unindexed,indexed")
		}
		fmt.Fprintln(w, "CsvOps:"+header+",pass,query,mean,p95,rows,consistent")
	}

	// string for the run totals ("Csv:" prefix)
	csv := fmt.Sprintf("Csv:%s,%s,%d,%s", report.Engine, report.RunID, report.Repetitions, report.LoadPolicy)
	// string for the queries ("CsvOps:" prefix)
	csvOps := fmt.Sprintf("CsvOps:%s,%s,%d,%s", report.Engine, report.RunID, report.Repetitions, report.LoadPolicy)
	kv := fmt.Sprintf("engine: %s\nrun: %s\nrepetitions: %d\nloadPolicy: %s",
		report.Engine, report.RunID, report.Repetitions, report.LoadPolicy)

	for _, config := range sortedConfigs {
		csv += fmt.Sprintf(",%s", report.Configs[config])
		csvOps += fmt.Sprintf(",%s", report.Configs[config])
		kv += fmt.Sprintf("\n%s: %s", config, report.Configs[config])
	}

	for _, metric := range sortedMetrics {
		csv += fmt.Sprintf(",%s", report.Metrics[metric])
		kv += fmt.Sprintf("\n%s: %s", metric, report.Metrics[metric])
	}

	for _, s := range report.Steps {
		if s.Passed {
			kv += fmt.Sprintf("\nstep.%s: ok %.6f", s.Name, s.Duration)
		} else {
			kv += fmt.Sprintf("\nstep.%s: failed %s", s.Name, s.Error)
		}
	}

	for _, p := range report.Passes {
		for _, r := range p.Results {
			fmt.Fprintln(w, csvOps+fmt.Sprintf(",%s,%s,%.6f,%.6f,%d,%t", p.Name, r.Query, r.Mean, r.P95, r.Rows, r.Consistent))
			kv += fmt.Sprintf("\n%s.%s: %.6f (%d rows)", p.Name, r.Query, r.Mean, r.Rows)
		}
	}

	csv += fmt.Sprintf(",%t,%.6f,%.6f", report.Succeeded(),
		passTotal(report.Pass(benchmark.Unindexed)), passTotal(report.Pass(benchmark.Indexed)))

	fmt.Fprintln(w, csv)
	fmt.Fprintln(w, kv)
}

func printJSON(w io.Writer, report *benchmark.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
