// File path: internal/prompt/builder.go
package prompt

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/nicodishanthj/talkdata/internal/dataset"
	"github.com/nicodishanthj/talkdata/internal/llm"
	"github.com/nicodishanthj/talkdata/internal/profile"
)

// Config bounds the rendered oracle context.
type Config struct {
	MaxContextChars int
	MaxSampleRows   int
	MaxHistoryTurns int
}

// DefaultConfig returns the standard context budgets.
func DefaultConfig() Config {
	return Config{
		MaxContextChars: 6000,
		MaxSampleRows:   3,
		MaxHistoryTurns: 5,
	}
}

// LoadConfig applies environment overrides onto the defaults.
func LoadConfig() Config {
	cfg := DefaultConfig()
	if raw := strings.TrimSpace(os.Getenv("TTD_PROMPT_MAX_CHARS")); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.MaxContextChars = value
		}
	}
	if raw := strings.TrimSpace(os.Getenv("TTD_PROMPT_SAMPLE_ROWS")); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value >= 0 {
			cfg.MaxSampleRows = value
		}
	}
	if raw := strings.TrimSpace(os.Getenv("TTD_PROMPT_HISTORY_TURNS")); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value >= 0 {
			cfg.MaxHistoryTurns = value
		}
	}
	return cfg
}

// TableContext is the schema and sample material for one registered table.
type TableContext struct {
	Name       string
	Schema     dataset.Schema
	SampleRows []dataset.Row
}

// HistoryTurn is one prior question/query pair from the session history.
type HistoryTurn struct {
	Question string
	SQL      string
}

// Builder renders bounded, deterministic oracle context.
type Builder struct {
	cfg Config
}

func NewBuilder(cfg Config) *Builder {
	defaults := DefaultConfig()
	if cfg.MaxContextChars <= 0 {
		cfg.MaxContextChars = defaults.MaxContextChars
	}
	if cfg.MaxSampleRows < 0 {
		cfg.MaxSampleRows = defaults.MaxSampleRows
	}
	if cfg.MaxHistoryTurns < 0 {
		cfg.MaxHistoryTurns = defaults.MaxHistoryTurns
	}
	return &Builder{cfg: cfg}
}

// BuildContext renders the schema, sample rows and recent history into a
// single text blob under the configured character budget. When the budget is
// exceeded, sample rows are dropped first, then the oldest history turns.
// The schema itself is never truncated: the validator and the oracle both
// depend on it being complete.
func (b *Builder) BuildContext(tables []TableContext, history []HistoryTurn) string {
	sampleRows := b.cfg.MaxSampleRows
	turns := b.cfg.MaxHistoryTurns
	if turns > len(history) {
		turns = len(history)
	}
	for {
		text := renderContext(tables, history, sampleRows, turns)
		if utf8.RuneCountInString(text) <= b.cfg.MaxContextChars {
			return text
		}
		switch {
		case sampleRows > 0:
			sampleRows--
		case turns > 0:
			turns--
		default:
			return text
		}
	}
}

func renderContext(tables []TableContext, history []HistoryTurn, sampleRows, turns int) string {
	var sb strings.Builder
	for i, table := range tables {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "Table: %s\n", table.Name)
		sb.WriteString("Columns:\n")
		for _, col := range table.Schema {
			fmt.Fprintf(&sb, "  - %s: %s\n", col.Name, col.Type)
		}
		limit := sampleRows
		if limit > len(table.SampleRows) {
			limit = len(table.SampleRows)
		}
		if limit > 0 {
			sb.WriteString("Sample rows:\n")
			sb.WriteString("  " + strings.Join(table.Schema.Names(), " | ") + "\n")
			for _, row := range table.SampleRows[:limit] {
				cells := make([]string, len(row))
				for j, cell := range row {
					cells[j] = formatCell(cell)
				}
				sb.WriteString("  " + strings.Join(cells, " | ") + "\n")
			}
		}
	}
	if turns > 0 {
		sb.WriteString("\nPrevious questions in this session:\n")
		for _, turn := range history[len(history)-turns:] {
			fmt.Fprintf(&sb, "  Q: %s\n  SQL: %s\n", turn.Question, turn.SQL)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatCell(cell any) string {
	if cell == nil {
		return "NULL"
	}
	return fmt.Sprint(cell)
}

// GenerationMessages builds the oracle conversation for a fresh question.
func (b *Builder) GenerationMessages(contextText, question string) ([]llm.Message, error) {
	system, err := systemTemplate.Format(map[string]any{"context": contextText})
	if err != nil {
		return nil, fmt.Errorf("render system prompt: %w", err)
	}
	return []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: question},
	}, nil
}

// RegenerationMessages builds the oracle conversation for the single
// regeneration attempt after a validation rejection.
func (b *Builder) RegenerationMessages(contextText, question, rejectedSQL, reason string) ([]llm.Message, error) {
	system, err := systemTemplate.Format(map[string]any{"context": contextText})
	if err != nil {
		return nil, fmt.Errorf("render system prompt: %w", err)
	}
	feedback, err := regenerationTemplate.Format(map[string]any{
		"rejected": rejectedSQL,
		"reason":   reason,
		"question": question,
	})
	if err != nil {
		return nil, fmt.Errorf("render regeneration prompt: %w", err)
	}
	return []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: feedback},
	}, nil
}

// InsightsMessages builds the oracle conversation used to narrate a dataset
// profile after upload.
func (b *Builder) InsightsMessages(report *profile.Report) ([]llm.Message, error) {
	var stats strings.Builder
	for _, col := range report.Columns {
		fmt.Fprintf(&stats, "- %s (%s): %d distinct, %.1f%% null", col.Name, col.Type, col.DistinctCount, col.NullPercent)
		if col.Mean != nil {
			fmt.Fprintf(&stats, ", mean=%.2f", *col.Mean)
		}
		stats.WriteString("\n")
	}
	user, err := insightsTemplate.Format(map[string]any{
		"rows":       report.RowCount,
		"columns":    report.ColumnCount,
		"duplicates": report.DuplicateRows,
		"quality":    fmt.Sprintf("%.0f", report.QualityScore),
		"stats":      strings.TrimRight(stats.String(), "\n"),
	})
	if err != nil {
		return nil, fmt.Errorf("render insights prompt: %w", err)
	}
	return []llm.Message{{Role: "user", Content: user}}, nil
}
