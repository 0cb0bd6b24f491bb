// Package intent classifies an incoming chat message as either a research
// report request or plain conversation. The rules live in one policy table
// so they can evolve without touching the orchestrator.
package intent

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Kind is the routing outcome.
type Kind int

const (
	// Chat routes to the conversational model.
	Chat Kind = iota
	// Report routes to the research-report workflow.
	Report
)

// Decision is the classification result. Subject is the best-effort company
// name or bare stock code extracted from the message; only meaningful when
// Kind is Report.
type Decision struct {
	Kind    Kind
	Subject string
}

// Message length bounds in runes. Shorter is noise, longer is prose that a
// keyword match inside would misroute.
const (
	minMessageRunes = 2
	maxMessageRunes = 120
)

// reportKeywords trigger report routing when they appear anywhere in a
// message within the length bounds.
var reportKeywords = []string{
	"研报",
	"研究报告",
	"投资分析",
	"投资报告",
	"research report",
}

// exclusionPatterns capture questions about the report feature itself, which
// stay in chat even though they contain a report keyword.
var exclusionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(什么是|何为)`),
	regexp.MustCompile(`(怎么|如何)(写|做|看)`),
	regexp.MustCompile(`是什么意思`),
}

// subjectNoise is stripped from around the extracted subject: directive
// verbs, politeness, and the keywords themselves.
var subjectNoise = []string{
	"请", "帮我", "帮忙", "给我", "我要", "我想要", "我想",
	"生成", "写", "做", "出", "一份", "一个", "一下",
	"研究报告", "研报", "投资分析", "投资报告", "research report",
	"的", "吧", "。", ".", "，", ",", "！", "!", "？", "?",
}

// bareCodePattern matches a message that is nothing but a 6-digit A-share
// code, which is treated as a report request for that code.
var bareCodePattern = regexp.MustCompile(`^\d{6}$`)

// Classify applies the rule table to one user message.
func Classify(message string) Decision {
	trimmed := strings.TrimSpace(message)
	runes := utf8.RuneCountInString(trimmed)
	if runes < minMessageRunes || runes > maxMessageRunes {
		return Decision{Kind: Chat}
	}

	if bareCodePattern.MatchString(trimmed) {
		return Decision{Kind: Report, Subject: trimmed}
	}

	lower := strings.ToLower(trimmed)
	matched := false
	for _, kw := range reportKeywords {
		if strings.Contains(lower, kw) {
			matched = true
			break
		}
	}
	if !matched {
		return Decision{Kind: Chat}
	}

	for _, pattern := range exclusionPatterns {
		if pattern.MatchString(trimmed) {
			return Decision{Kind: Chat}
		}
	}

	subject := extractSubject(trimmed)
	if subject == "" {
		// A report keyword without a recoverable subject cannot start a
		// workflow; let chat ask the user for the company name.
		return Decision{Kind: Chat}
	}
	return Decision{Kind: Report, Subject: subject}
}

// extractSubject removes directive noise and keywords, leaving the company
// name or code.
func extractSubject(message string) string {
	subject := strings.ToLower(message)
	for _, noise := range subjectNoise {
		subject = strings.ReplaceAll(subject, noise, "")
	}
	subject = strings.TrimSpace(subject)
	if utf8.RuneCountInString(subject) < minMessageRunes {
		return ""
	}
	return subject
}
