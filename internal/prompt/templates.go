// File path: internal/prompt/templates.go
package prompt

import (
	"github.com/tmc/langchaingo/prompts"
)

var systemTemplate = prompts.PromptTemplate{
	Template: `You are an expert data analyst. Your role is to translate natural language
questions about tabular data into SQL.

You have access to the following tables:

{{.context}}

Your task:
1. Understand the user's question.
2. Translate it into a precise SQL query using the SQLite dialect.
3. Return ONLY the SQL query, nothing else.

Guidelines:
- Produce exactly one read-only SELECT statement. Never produce INSERT,
  UPDATE, DELETE, DROP, CREATE, ALTER or any other modifying statement.
- Reference only the tables and columns listed above.
- Apply aggregations (SUM, AVG, COUNT) with GROUP BY when the question asks
  for totals or breakdowns by category.
- Use ORDER BY for "top"/"highest" (DESC) and "bottom"/"lowest" (ASC), with
  LIMIT for "top N" questions.
- Handle NULL values appropriately.

Return ONLY the SQL query. Do not include explanations or markdown fences.`,
	InputVariables: []string{"context"},
	TemplateFormat: prompts.TemplateFormatGoTemplate,
}

var regenerationTemplate = prompts.PromptTemplate{
	Template: `The previous SQL query was rejected by a safety check and was not executed.

Rejected query:
{{.rejected}}

Rejection reason: {{.reason}}

Original question: {{.question}}

Generate a corrected query that satisfies the rules: exactly one read-only
SELECT statement that references only the tables listed in the schema.
Return ONLY the SQL query.`,
	InputVariables: []string{"rejected", "reason", "question"},
	TemplateFormat: prompts.TemplateFormatGoTemplate,
}

var insightsTemplate = prompts.PromptTemplate{
	Template: `You are a data analyst. Review the following dataset profile and produce
3-5 concise, actionable observations about the data.

Dataset overview:
- Rows: {{.rows}}
- Columns: {{.columns}}
- Duplicate rows: {{.duplicates}}
- Quality score: {{.quality}}/100

Column statistics:
{{.stats}}

Each observation should be one short sentence. Return them as a plain list,
one per line, without numbering or markdown.`,
	InputVariables: []string{"rows", "columns", "duplicates", "quality", "stats"},
	TemplateFormat: prompts.TemplateFormatGoTemplate,
}
