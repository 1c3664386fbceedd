// File path: internal/profile/profiler.go
package profile

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/nicodishanthj/talkdata/internal/dataset"
)

const topValueLimit = 5

// ValueCount pairs a categorical value with its frequency.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// ColumnProfile summarizes one column of a dataset.
type ColumnProfile struct {
	Name          string             `json:"name"`
	Type          dataset.ColumnType `json:"type"`
	NullCount     int                `json:"null_count"`
	NullPercent   float64            `json:"null_percent"`
	DistinctCount int                `json:"distinct_count"`
	Min           *float64           `json:"min,omitempty"`
	Max           *float64           `json:"max,omitempty"`
	Mean          *float64           `json:"mean,omitempty"`
	TopValues     []ValueCount       `json:"top_values,omitempty"`
	MinTime       string             `json:"min_time,omitempty"`
	MaxTime       string             `json:"max_time,omitempty"`
}

// Report is the full profile of a registered dataset.
type Report struct {
	RowCount           int             `json:"row_count"`
	ColumnCount        int             `json:"column_count"`
	DuplicateRows      int             `json:"duplicate_rows"`
	QualityScore       float64         `json:"quality_score"`
	Columns            []ColumnProfile `json:"columns"`
	SuggestedQuestions []string        `json:"suggested_questions,omitempty"`
}

// Build computes a profile for the given dataset. The computation is
// deterministic and makes a single pass per column.
func Build(schema dataset.Schema, rows []dataset.Row) *Report {
	report := &Report{
		RowCount:    len(rows),
		ColumnCount: len(schema),
		Columns:     make([]ColumnProfile, 0, len(schema)),
	}
	for i, col := range schema {
		report.Columns = append(report.Columns, profileColumn(col, rows, i))
	}
	report.DuplicateRows = countDuplicates(rows)
	report.QualityScore = qualityScore(report)
	report.SuggestedQuestions = suggestQuestions(schema)
	return report
}

func profileColumn(col dataset.Column, rows []dataset.Row, idx int) ColumnProfile {
	p := ColumnProfile{Name: col.Name, Type: col.Type}
	distinct := make(map[string]int)
	var sum float64
	var numCount int
	minV := math.Inf(1)
	maxV := math.Inf(-1)
	var minTime, maxTime string

	for _, row := range rows {
		if idx >= len(row) || row[idx] == nil {
			p.NullCount++
			continue
		}
		cell := row[idx]
		distinct[fmt.Sprint(cell)]++
		switch v := cell.(type) {
		case int64:
			accumulate(&sum, &numCount, &minV, &maxV, float64(v))
		case float64:
			accumulate(&sum, &numCount, &minV, &maxV, v)
		case string:
			if col.Type == dataset.TypeTimestamp {
				if minTime == "" || v < minTime {
					minTime = v
				}
				if v > maxTime {
					maxTime = v
				}
			}
		}
	}
	p.DistinctCount = len(distinct)
	if len(rows) > 0 {
		p.NullPercent = round2(float64(p.NullCount) / float64(len(rows)) * 100)
	}
	if numCount > 0 {
		mean := round2(sum / float64(numCount))
		minR, maxR := round2(minV), round2(maxV)
		p.Min, p.Max, p.Mean = &minR, &maxR, &mean
	}
	if col.Type == dataset.TypeText || col.Type == dataset.TypeBoolean {
		p.TopValues = topValues(distinct)
	}
	p.MinTime, p.MaxTime = minTime, maxTime
	return p
}

func accumulate(sum *float64, count *int, min, max *float64, v float64) {
	*sum += v
	*count++
	if v < *min {
		*min = v
	}
	if v > *max {
		*max = v
	}
}

func topValues(counts map[string]int) []ValueCount {
	out := make([]ValueCount, 0, len(counts))
	for value, count := range counts {
		out = append(out, ValueCount{Value: value, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Value < out[j].Value
		}
		return out[i].Count > out[j].Count
	})
	if len(out) > topValueLimit {
		out = out[:topValueLimit]
	}
	return out
}

func countDuplicates(rows []dataset.Row) int {
	seen := make(map[string]int, len(rows))
	duplicates := 0
	for _, row := range rows {
		var b strings.Builder
		for _, cell := range row {
			fmt.Fprintf(&b, "%v\x1f", cell)
		}
		key := b.String()
		if seen[key] > 0 {
			duplicates++
		}
		seen[key]++
	}
	return duplicates
}

// qualityScore starts at 100 and deducts for null density and duplicate rows.
func qualityScore(report *Report) float64 {
	if report.RowCount == 0 || report.ColumnCount == 0 {
		return 0
	}
	var nullPct float64
	for _, col := range report.Columns {
		nullPct += col.NullPercent
	}
	nullPct /= float64(report.ColumnCount)
	dupPct := float64(report.DuplicateRows) / float64(report.RowCount) * 100
	score := 100 - nullPct - dupPct/2
	if score < 0 {
		score = 0
	}
	return round2(score)
}

// suggestQuestions proposes starter questions from the schema shape.
func suggestQuestions(schema dataset.Schema) []string {
	var numeric, categorical, temporal []string
	for _, col := range schema {
		switch {
		case col.Type.Numeric():
			numeric = append(numeric, col.Name)
		case col.Type == dataset.TypeTimestamp:
			temporal = append(temporal, col.Name)
		case col.Type == dataset.TypeText:
			categorical = append(categorical, col.Name)
		}
	}
	var questions []string
	if len(numeric) > 0 && len(categorical) > 0 {
		questions = append(questions, fmt.Sprintf("What is the total %s by %s?", numeric[0], categorical[0]))
		questions = append(questions, fmt.Sprintf("Which %s has the highest average %s?", categorical[0], numeric[0]))
	}
	if len(numeric) > 0 && len(temporal) > 0 {
		questions = append(questions, fmt.Sprintf("How does %s change over %s?", numeric[0], temporal[0]))
	}
	if len(categorical) > 0 {
		questions = append(questions, fmt.Sprintf("How many rows are there per %s?", categorical[0]))
	}
	if len(questions) == 0 {
		questions = append(questions, "How many rows does this dataset contain?")
	}
	return questions
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
