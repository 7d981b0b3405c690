// Package sarif reads the SARIF logs produced by `codeql database analyze`.
package sarif

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Log is the top level of a SARIF file. Only the fields the toolkit reads
// are modeled.
type Log struct {
	Version string `json:"version"`
	Schema  string `json:"$schema,omitempty"`
	Runs    []Run  `json:"runs"`
}

// Run is a single analysis run.
type Run struct {
	Tool    Tool     `json:"tool"`
	Results []Result `json:"results"`
}

// Tool identifies the producer of a run.
type Tool struct {
	Driver Driver `json:"driver"`
}

// Driver is the tool component that produced the results.
type Driver struct {
	Name            string `json:"name"`
	SemanticVersion string `json:"semanticVersion,omitempty"`
	Rules           []Rule `json:"rules,omitempty"`
}

// Rule describes a query.
type Rule struct {
	ID         string         `json:"id"`
	Name       string         `json:"name,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Result is a single alert.
type Result struct {
	RuleID    string     `json:"ruleId"`
	Level     string     `json:"level,omitempty"`
	Message   Message    `json:"message"`
	Locations []Location `json:"locations,omitempty"`
}

// Message is a result message.
type Message struct {
	Text string `json:"text"`
}

// Location points at a region of an artifact.
type Location struct {
	PhysicalLocation PhysicalLocation `json:"physicalLocation"`
}

// PhysicalLocation is a file and region.
type PhysicalLocation struct {
	ArtifactLocation ArtifactLocation `json:"artifactLocation"`
	Region           *Region          `json:"region,omitempty"`
}

// ArtifactLocation is a file URI.
type ArtifactLocation struct {
	URI string `json:"uri"`
}

// Region is a line range.
type Region struct {
	StartLine int `json:"startLine"`
	EndLine   int `json:"endLine,omitempty"`
}

// Load reads and decodes the SARIF file at path.
func Load(path string) (*Log, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read SARIF file: %w", err)
	}

	var log Log
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("failed to parse SARIF file %s: %w", path, err)
	}
	return &log, nil
}

// ResultCount returns the number of results across all runs.
func (l *Log) ResultCount() int {
	n := 0
	for _, run := range l.Runs {
		n += len(run.Results)
	}
	return n
}

// CountByRule returns the number of results per rule id.
func (l *Log) CountByRule() map[string]int {
	counts := make(map[string]int)
	for _, run := range l.Runs {
		for _, r := range run.Results {
			counts[r.RuleID]++
		}
	}
	return counts
}

// Rules returns the rule ids with results, sorted.
func (l *Log) Rules() []string {
	counts := l.CountByRule()
	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
