package analysis

import (
	"fmt"
	"strings"
)

const promptHeader = `Act as an expert code reviewer. Analyze the following code and reply following these rules.

Rules:
1. The reply must be **valid JSON** with no additional text.
2. Compute these metrics: Manutenibilità (maintainability), Leggibilità (readability), Performance, Sicurezza (security), Modularità (modularity).
3. For every issue found, report:
   - Line: the line of code where the issue is
   - Tipo: the kind of issue (e.g. potential bug, vulnerability, bad practice)
   - Severità: the severity
   - Descrizione: a description of the issue
   - Suggestion: a suggestion for fixing it
4. Use only realistic values:
   - Metric scores must be integers between **1 and 5**.
   - Line must be a positive number.
   - Severità must be **"Low", "Medium" or "High"**.
`

const promptExample = `
Example of a correct reply:

{
    "Metriche": [
        {
            "Filename": "main.py",
            "Manutenibilità": 4,
            "Leggibilità": 3,
            "Performance": 5,
            "Sicurezza": 3,
            "Modularità": 4
        }
    ],
    "Issue": [
        {
            "Filename": "main.py",
            "Line": 32,
            "Tipo": "Bad practice",
            "Severità": "High",
            "Descrizione": "Use of an uninitialized variable",
            "Suggestion": "Declare and initialize the variable before use."
        }
    ]
}

Do not add any explanation or extra text, return only the JSON.
`

// PromptInput is what BuildPrompt needs for one file.
type PromptInput struct {
	// Name is the display name reported back as Filename.
	Name string
	// Language is the code fence tag; empty leaves the fence bare.
	Language   string
	Code       string
	Guidelines *Guidelines
}

// BuildPrompt renders the fixed review template for one file.
func BuildPrompt(in PromptInput) string {
	var b strings.Builder

	b.WriteString(promptHeader)
	b.WriteString(in.Guidelines.promptSection())
	b.WriteString(promptExample)

	if in.Name != "" {
		fmt.Fprintf(&b, "\nFile: %s\n", in.Name)
	}
	fmt.Fprintf(&b, "\n```%s\n", in.Language)
	b.WriteString(in.Code)
	if !strings.HasSuffix(in.Code, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("```\n")

	return b.String()
}
