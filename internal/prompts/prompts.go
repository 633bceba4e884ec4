// Package prompts assembles the instruction text sent to the language model
// for each pipeline stage. All builders return a single-turn prompt; the
// JSON-only output contract is part of the instruction text because the
// responses are machine-parsed.
package prompts

import (
	"fmt"
	"strings"
)

const jsonOnly = `CRITICAL OUTPUT REQUIREMENTS:
- Return ONLY valid JSON, nothing else
- No explanations before or after the JSON
- No markdown code fences
- The response must start with { and end with }`

// SchemaSelection asks the model to pick a database and the tables needed to
// answer the question. The catalog is the overview blob rendered as JSON.
func SchemaSelection(question, catalogJSON, preselectedDB string, selectedTables []string) string {
	var b strings.Builder
	b.WriteString("Select the database and tables needed to answer a natural language question.\n\n")
	if preselectedDB != "" {
		fmt.Fprintf(&b, "The user has already selected database %q. You MUST use it.\n\n", preselectedDB)
	}
	if len(selectedTables) > 0 {
		fmt.Fprintf(&b, "The user explicitly selected these tables: %s. Use ONLY these tables.\n\n",
			strings.Join(selectedTables, ", "))
	}
	fmt.Fprintf(&b, "Available databases and their tables:\n%s\n\n", catalogJSON)
	fmt.Fprintf(&b, "Question: %s\n\n", question)
	b.WriteString(`Return JSON:
{
  "database": "selected_database_name",
  "tables": ["table1", "table2"],
  "reasoning": "why this database and these tables",
  "confidence": 90
}

`)
	b.WriteString(jsonOnly)
	return b.String()
}

// SQLGeneration asks for a SQLite query over the detailed schema. A non-empty
// priorSQL/priorError pair switches the prompt into correction mode.
func SQLGeneration(question, detailedSchema string, selectedTables []string, priorSQL, priorError string) string {
	var b strings.Builder
	if priorError != "" {
		b.WriteString("Fix the SQL query that failed execution. Read the error, check the schema for correct table and column names, and preserve the question's intent.\n\n")
		fmt.Fprintf(&b, "Failed SQL:\n%s\n\nError message:\n%s\n\n", priorSQL, priorError)
	} else {
		b.WriteString("Generate a SQLite query for a natural language question.\n\nRequirements:\n1. Use ONLY tables and columns from the schema below\n2. Follow SQLite syntax strictly\n3. Use JOINs based on the declared foreign keys\n4. Apply correct aggregation functions\n\n")
	}
	if len(selectedTables) > 0 {
		fmt.Fprintf(&b, "Use ONLY these tables: %s\n\n", strings.Join(selectedTables, ", "))
	}
	fmt.Fprintf(&b, "Question: %s\n\nDatabase schema:\n%s\n\n", question, detailedSchema)
	b.WriteString(`Return JSON:
{
  "sql": "SELECT ...",
  "reasoning": "step-by-step explanation",
  "confidence": 90
}

`)
	b.WriteString(jsonOnly)
	return b.String()
}

// ReasoningEvaluation asks the model to judge whether the executed SQL
// actually answers the question.
func ReasoningEvaluation(question, sql, reasoning string, confidence float64, formattedResults string, rowCount int, executionTimeMs float64) string {
	var b strings.Builder
	b.WriteString("Evaluate whether the SQL query below correctly answers the question, given its reasoning and results.\n\n")
	fmt.Fprintf(&b, "Question: %s\n\nSQL:\n%s\n\nGeneration reasoning:\n%s\nGeneration confidence: %.0f\n\n", question, sql, reasoning, confidence)
	fmt.Fprintf(&b, "Results (%d rows, %.1f ms):\n%s\n\n", rowCount, executionTimeMs, formattedResults)
	b.WriteString(`Return JSON:
{
  "is_correct": true,
  "confidence": 90,
  "explanation": "why the query does or does not answer the question",
  "suggestions": "optional improvement, or empty"
}

`)
	b.WriteString(jsonOnly)
	return b.String()
}

// NLResponse asks for a conversational Markdown answer grounded in the
// pre-formatted results.
func NLResponse(question, sql, formattedResults string) string {
	var b strings.Builder
	b.WriteString("Convert SQL query results into a natural language answer.\n\nRequirements:\n1. Answer the original question clearly and conversationally\n2. Use Markdown formatting (bold, lists, tables where helpful)\n3. Be concise but informative\n\n")
	fmt.Fprintf(&b, "Original question: %s\n\nSQL query:\n%s\n\nQuery results:\n%s\n\n", question, sql, formattedResults)
	b.WriteString(`Return JSON:
{
  "response": "natural language answer with Markdown formatting",
  "summary": "brief summary of results",
  "confidence": 90
}

`)
	b.WriteString(jsonOnly)
	return b.String()
}
