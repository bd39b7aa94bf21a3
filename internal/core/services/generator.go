package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/manthysbr/labforge/internal/core/domain"
	"github.com/manthysbr/labforge/internal/core/ports"
)

// JobContext carries the job-level fields embedded into the prompt.
type JobContext struct {
	Subject        string
	SubjectCode    string
	InstructorName string
	PracticalTitle string
}

// ExperimentContext carries the per-experiment fields embedded into the prompt.
type ExperimentContext struct {
	ExperimentNumber int
	Title            string
	Aim              string
	AdditionalNotes  string
}

// ContentGenerator produces one ExperimentContent per call by driving the
// LLM through a structured prompt, coercing its free-text output into the
// schema, and enforcing the programming-lab completeness policy.
type ContentGenerator struct {
	logger *slog.Logger
	llm    ports.TextGenerator
}

func NewContentGenerator(logger *slog.Logger, llm ports.TextGenerator) *ContentGenerator {
	return &ContentGenerator{logger: logger, llm: llm}
}

// Generate runs a single generation attempt. Provider failures come back as
// *domain.ProviderError; unparseable output survives one repair pass before
// surfacing as *domain.SchemaValidationError. It performs no persistence.
func (g *ContentGenerator) Generate(ctx context.Context, job JobContext, exp ExperimentContext, apiKey string) (*domain.ExperimentContent, error) {
	programming := domain.IsProgrammingLab(job.Subject, job.SubjectCode)
	prompt := buildPrompt(job, exp, programming)

	raw, err := g.llm.GenerateText(ctx, apiKey, prompt)
	if err != nil {
		return nil, &domain.ProviderError{Err: err}
	}

	content, parseErr := parseContent(raw)
	if parseErr != nil {
		g.logger.Warn("generated output failed schema parse, attempting repair",
			"experiment", exp.ExperimentNumber, "error", parseErr)
		content, err = g.repair(ctx, apiKey, prompt, raw, parseErr)
		if err != nil {
			return nil, err
		}
	}

	if programming && strings.TrimSpace(content.CodeOutput) == "" {
		g.logger.Warn("programming lab missing code output, re-prompting",
			"experiment", exp.ExperimentNumber)
		content = g.fillCodeOutput(ctx, apiKey, prompt, exp, content)
	}

	return content, nil
}

// repair issues exactly one corrective re-prompt asking the model to fix
// its own malformed output. A second parse failure is final.
func (g *ContentGenerator) repair(ctx context.Context, apiKey, prompt, raw string, cause error) (*domain.ExperimentContent, error) {
	fixPrompt := fmt.Sprintf(`%s

Your previous response could not be parsed into the required JSON structure.
Parser error: %v

Previous response:
%s

Respond again with ONLY a single valid JSON object matching the required structure. No commentary, no code fences.`,
		prompt, cause, raw)

	fixed, err := g.llm.GenerateText(ctx, apiKey, fixPrompt)
	if err != nil {
		return nil, &domain.ProviderError{Err: err}
	}

	content, parseErr := parseContent(fixed)
	if parseErr != nil {
		if sve, ok := parseErr.(*domain.SchemaValidationError); ok {
			return nil, sve
		}
		return nil, &domain.SchemaValidationError{Cause: parseErr}
	}
	return content, nil
}

// fillCodeOutput enforces the programming-lab invariant: one corrective
// re-prompt naming the missing field, then a synthesized placeholder
// transcript if the model still will not produce one. The placeholder is a
// policy choice, not a failure.
func (g *ContentGenerator) fillCodeOutput(ctx context.Context, apiKey, prompt string, exp ExperimentContext, content *domain.ExperimentContent) *domain.ExperimentContent {
	retryPrompt := prompt + "\n\nIMPORTANT: You FAILED to provide the required terminal output. " +
		"Regenerate with a comprehensive codeOutput field showing program execution with sample data, " +
		"test cases, and 'Program exited with code 0'."

	raw, err := g.llm.GenerateText(ctx, apiKey, retryPrompt)
	if err == nil {
		if retried, parseErr := parseContent(raw); parseErr == nil && strings.TrimSpace(retried.CodeOutput) != "" {
			content.CodeOutput = retried.CodeOutput
			return content
		}
	} else {
		g.logger.Warn("code output re-prompt failed, synthesizing placeholder", "error", err)
	}

	content.CodeOutput = placeholderTranscript(exp.Title)
	return content
}

// placeholderTranscript builds a deterministic minimal terminal session
// for the rare case where the model refuses to emit one.
func placeholderTranscript(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = regexp.MustCompile(`\s+`).ReplaceAllString(slug, "_")
	if slug == "" {
		slug = "experiment"
	}
	return fmt.Sprintf(`$ python %s.py
Program executed successfully with sample data
Test case 1: Input processed
Test case 2: Expected output generated
All operations completed successfully
Program exited with code 0`, slug)
}

var (
	fenceRe    = regexp.MustCompile("(?s)```[a-zA-Z]*\n?(.*?)\n?```")
	backtickRe = regexp.MustCompile("`")
)

// stripFences removes markdown code fences and stray backticks some models
// wrap their output in; they must not leak into plain-text fields.
func stripFences(s string) string {
	s = fenceRe.ReplaceAllString(s, "$1")
	return backtickRe.ReplaceAllString(s, "")
}

// parseContent coerces raw model output into ExperimentContent: strip
// fences, locate the JSON object by brace matching, unmarshal, validate.
func parseContent(raw string) (*domain.ExperimentContent, error) {
	cleaned := stripFences(raw)

	jsonStr := extractJSONObject(cleaned)
	if jsonStr == "" {
		return nil, &domain.SchemaValidationError{Cause: fmt.Errorf("no JSON object found in response")}
	}

	var content domain.ExperimentContent
	if err := json.Unmarshal([]byte(jsonStr), &content); err != nil {
		return nil, &domain.SchemaValidationError{Cause: err}
	}

	// codeOutput must be present as a key even when empty: non-programming
	// labs legitimately produce an empty transcript, but an absent key means
	// the model drifted from the schema.
	var keys map[string]json.RawMessage
	if err := json.Unmarshal([]byte(jsonStr), &keys); err == nil {
		if _, ok := keys["codeOutput"]; !ok {
			return nil, &domain.SchemaValidationError{Missing: []string{"codeOutput"}}
		}
	}

	if err := content.Validate(); err != nil {
		return nil, err
	}
	return &content, nil
}

// extractJSONObject finds the first balanced top-level JSON object using
// brace-depth counting, string- and escape-aware so nested braces inside
// values do not break the match.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}

	depth := 0
	inStr := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inStr {
			escaped = true
			continue
		}
		if ch == '"' {
			inStr = !inStr
			continue
		}
		if inStr {
			continue
		}
		if ch == '{' {
			depth++
		} else if ch == '}' {
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// buildPrompt assembles the deterministic generation prompt from the job
// and experiment context plus structural and style instructions.
func buildPrompt(job JobContext, exp ExperimentContext, programming bool) string {
	var b strings.Builder

	fmt.Fprintf(&b, `Write a detailed lab report for a practical experiment in an Indian university. The report should be professional, academic, and written in third person or general passive voice.

Subject: %s (%s)
Instructor: %s
Practical Title: %s

Experiment %d: %s
Objective: %s
Additional Context: %s

CRITICAL WRITING GUIDELINES:
- Write in THIRD PERSON or PASSIVE VOICE ("The experiment was conducted...", "Results were obtained...")
- Use **bold formatting** generously for headings, key terms, important values, and section titles
- Include REAL, working code examples with actual sample outputs where relevant
- NEVER use markdown code blocks (triple backticks) - return all code as plain text
- Write observations based on actual execution results
- Include specific details like execution times, memory usage, error handling
- Use professional academic language appropriate for the subject
- Keep text concise and avoid excessive spacing between paragraphs

CONTENT REQUIREMENTS:
- title: the experiment title
- aim: start with "**The aim of this experiment was to...**"
- apparatus: list of software/hardware/materials with **bold** names and versions
- theory: theoretical background with **key concepts** in bold and complexity analysis where relevant
- procedure: step-by-step methodology ("**Step 1**: The development environment was set up...")
- code: complete, runnable code as PLAIN TEXT ONLY, with comments; omit for non-programming subjects
- codeOutput: terminal-style transcript of program execution, starting with the command used, showing sample data and test cases, ending with "Program exited with code 0"
- observations: what was observed during execution, with actual outputs and performance metrics
- calculations: relevant formulas, derivations, or complexity analysis
- result: "**The experiment successfully demonstrated...**" with key outcomes in bold
- precautions: important considerations and best practices
- references: standard textbooks, documentation, and academic sources

`, job.Subject, job.SubjectCode, job.InstructorName, job.PracticalTitle,
		exp.ExperimentNumber, exp.Title, exp.Aim, exp.AdditionalNotes)

	b.WriteString(formatInstructions)

	if programming {
		b.WriteString("\n\nSPECIAL REQUIREMENT: This is a programming/CS lab. You MUST include detailed terminal output " +
			"showing program execution, test cases, and results. The codeOutput field is mandatory and should " +
			"demonstrate the program working with sample data.")
	}

	return b.String()
}

// formatInstructions is the machine-readable output contract derived from
// the ExperimentContent schema.
const formatInstructions = `OUTPUT FORMAT:
Respond with a single JSON object and nothing else. Shape:
{
  "title": string,
  "aim": string,
  "apparatus": [string, ...],
  "theory": string,
  "procedure": [string, ...],
  "code": string (optional),
  "codeOutput": string,
  "observations": string,
  "calculations": string,
  "result": string,
  "precautions": [string, ...],
  "references": [string, ...]
}
All string values are plain text with **bold** markup allowed. Do not wrap the JSON in code fences.`
