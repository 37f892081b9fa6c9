package rewrite

import (
	"fmt"
	"regexp"
	"strings"
)

// excerptLength is how much of each reference body goes into the prompt.
const excerptLength = 800

const promptHeader = `You are an editor rewriting a news article for a different publication.

Rewrite the SOURCE ARTICLE below. Follow these rules:
1. Match the style, tone and structure of the REFERENCE ARTICLES.
2. Do not copy sentences verbatim from the source or the references.
3. Keep every fact from the source article accurate; do not invent new facts.
4. End the article with a references section citing exactly these URLs:
%s
5. Put the new headline on the first line as "Title: <headline>", then a blank line, then the article body in markdown.
`

// BuildPrompt renders the generation prompt for a source and its
// references.
func BuildPrompt(source SourceArticle, refs []ReferenceArticle) string {
	var urls strings.Builder
	for i, ref := range refs {
		fmt.Fprintf(&urls, "   %d. %s\n", i+1, ref.URL)
	}

	var b strings.Builder
	fmt.Fprintf(&b, promptHeader, strings.TrimRight(urls.String(), "\n"))

	b.WriteString("\nSOURCE ARTICLE\n")
	fmt.Fprintf(&b, "Title: %s\n\n%s\n", source.Title, strings.TrimSpace(source.Body))

	b.WriteString("\nREFERENCE ARTICLES\n")
	for i, ref := range refs {
		fmt.Fprintf(&b, "\n[%d] %s\nURL: %s\n%s\n", i+1, ref.Title, ref.URL, excerpt(ref.Body, excerptLength))
	}

	return b.String()
}

func excerpt(text string, n int) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return strings.TrimSpace(string(runes[:n])) + "..."
}

var (
	titleLine = regexp.MustCompile(`(?i)^\s*(?:#{1,6}\s*)?(?:\*\*)?title(?:\*\*)?\s*:\s*(?:\*\*)?\s*(.+?)\s*$`)
	// headingLine matches a markdown heading used as a fallback title.
	headingLine = regexp.MustCompile(`^\s*#{1,2}\s+(.+?)\s*$`)
	// referencesHeading matches a model-written references section header,
	// markdown or plain.
	referencesHeading = regexp.MustCompile(`(?im)^[ \t]*(?:#{1,6}[ \t]*)?(?:\*\*)?(?:references|sources|citations)(?:\*\*)?[ \t]*:?(?:\*\*)?[ \t]*$`)
	// citationLine matches an entry of a references list.
	citationLine = regexp.MustCompile(`^(?:[-*+•]|\d+[.)]|\[\d+\])\s+|https?://`)
)

// ParseOutput splits model output into a title and a body. A leading
// "Title:" line or top-level heading becomes the title; otherwise
// fallbackTitle is used and the whole text is the body.
func ParseOutput(text, fallbackTitle string) (string, string) {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	first, rest, _ := strings.Cut(text, "\n")

	if m := titleLine.FindStringSubmatch(first); m != nil {
		return cleanTitle(m[1], fallbackTitle), strings.TrimSpace(rest)
	}
	if m := headingLine.FindStringSubmatch(first); m != nil && !referencesHeading.MatchString(first) {
		return cleanTitle(m[1], fallbackTitle), strings.TrimSpace(rest)
	}
	return fallbackTitle, text
}

func cleanTitle(title, fallback string) string {
	title = strings.TrimSpace(strings.Trim(strings.TrimSpace(title), `*"`))
	if title == "" {
		return fallback
	}
	return title
}

// StripReferences removes a model-written references section. Only a
// trailing section counts: every non-blank line after the last heading must
// be a list item or carry a URL. A "Sources" subheading followed by prose is
// body text and is kept.
func StripReferences(body string) string {
	locs := referencesHeading.FindAllStringIndex(body, -1)
	if len(locs) == 0 {
		return strings.TrimSpace(body)
	}

	last := locs[len(locs)-1]
	for _, line := range strings.Split(body[last[1]:], "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !citationLine.MatchString(line) {
			return strings.TrimSpace(body)
		}
	}
	return strings.TrimSpace(body[:last[0]])
}

// ReferencesBlock renders the citation block appended to every rewrite.
func ReferencesBlock(urls []string) string {
	var b strings.Builder
	b.WriteString("## References\n\n")
	for i, u := range urls {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d. %s", i+1, u)
	}
	return b.String()
}
