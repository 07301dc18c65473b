package chat

import (
	"fmt"
	"strings"
)

// Options are the ephemeral formatting hints attached to a single send.
// Each populated field contributes one section to the outbound message.
type Options struct {
	// TranscriptionType wraps the text in a report-formatting banner
	// (chest-xray, ct-scan, mri, ultrasound, ...).
	TranscriptionType string

	// OutputTemplate appends an explicit output template request.
	OutputTemplate string

	// GrammarRules appends a grammar-requirements block.
	GrammarRules string
}

// section is one optional transform over the draft message body. Sections
// run in declaration order; each fires only when its input is present.
type section struct {
	name  string
	apply func(body string, opts Options, files []FileRef) string
}

// sections is the fixed augmentation order: banner, output template,
// grammar requirements, attached-file listing.
var sections = []section{
	{"transcription_banner", applyBanner},
	{"output_template", applyTemplate},
	{"grammar_requirements", applyGrammar},
	{"file_listing", applyFileListing},
}

// Compose builds the outbound message body from the trimmed user text, the
// per-request options and the attachment metadata.
func Compose(text string, opts Options, files []FileRef) string {
	body := text
	for _, s := range sections {
		body = s.apply(body, opts, files)
	}
	return body
}

func applyBanner(body string, opts Options, _ []FileRef) string {
	if opts.TranscriptionType == "" {
		return body
	}
	return fmt.Sprintf(`[%s TRANSCRIPTION]
%s

Please format this as a professional radiology report with:
- Proper medical terminology
- Clear structure and organization
- Corrected grammar and syntax
- Standard medical report format`, strings.ToUpper(opts.TranscriptionType), body)
}

func applyTemplate(body string, opts Options, _ []FileRef) string {
	if opts.OutputTemplate == "" {
		return body
	}
	return body + "\n\nOutput Template: " + opts.OutputTemplate
}

func applyGrammar(body string, opts Options, _ []FileRef) string {
	if opts.GrammarRules == "" {
		return body
	}
	return body + "\n\nGrammar Requirements:\n" + opts.GrammarRules
}

func applyFileListing(body string, _ Options, files []FileRef) string {
	if len(files) == 0 {
		return body
	}
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	return body + "\n\nAttached Files: " + strings.Join(names, ", ")
}

// TranscriptionTypes are the quick transcription presets offered by the UI.
var TranscriptionTypes = []struct {
	Type   string
	Title  string
	Prompt string
}{
	{"chest-xray", "Chest X-Ray", "Please transcribe this chest X-ray finding with proper medical formatting"},
	{"ct-scan", "CT Scan", "Format this CT scan report with standard radiology structure"},
	{"mri", "MRI Report", "Create a structured MRI report from this transcription"},
	{"ultrasound", "Ultrasound", "Format this ultrasound finding with proper terminology"},
}

// GrammarSuggestions are the stock grammar-improvement hints offered by the UI.
var GrammarSuggestions = []string{
	"Correct medical terminology and spelling",
	"Improve sentence structure and clarity",
	"Standardize abbreviations and formatting",
	"Ensure proper tense and voice consistency",
	"Add appropriate medical report sections",
}
