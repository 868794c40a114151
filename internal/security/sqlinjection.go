package security

import (
	"regexp"
	"strings"
)

// maxPayloadLen is the length above which SQL-like input is flagged outright.
const maxPayloadLen = 1000

// patterns are heuristic SQL-injection indicators, matched against the
// lowercased input. Grouped roughly by attack shape.
var patterns = []*regexp.Regexp{
	// tautologies
	regexp.MustCompile(`\bor\s+1\s*=\s*1\b`),
	regexp.MustCompile(`' *or *'1' *= *'1'`),
	regexp.MustCompile(`" *or *"1" *= *"1"`),
	regexp.MustCompile(`\b1\s*=\s*1\b`),

	// union/select data extraction
	regexp.MustCompile(`\bunion(\s+all)?\s+select\b`),
	regexp.MustCompile(`\bselect\b.+\bfrom\b`),

	// stacked queries / statement terminators
	regexp.MustCompile(`;.+\b(drop|insert|update|delete|select|alter|create)\b`),
	regexp.MustCompile(`; *$`),

	// comments
	regexp.MustCompile(`--`),
	regexp.MustCompile(`/\*`),
	regexp.MustCompile(`\*/`),

	// exec/execute and common functions used in payloads
	regexp.MustCompile(`\b(exec|execute|sp_executesql|xp_cmdshell)\b`),
	regexp.MustCompile(`\b(char|nchar|varchar|nvarchar|cast|convert)\s*\(`),

	// meta-characters & encoded payloads
	regexp.MustCompile(`0x[0-9a-f]{2,}`),
	regexp.MustCompile(`%27|%22|%3b|%2d%2d`),

	// destructive keywords
	regexp.MustCompile(`\b(drop|truncate|delete|update|insert|alter|create|shutdown|kill)\b`),

	// system tables / metadata probes
	regexp.MustCompile(`\b(information_schema|pg_catalog|sysobjects|sys\.tables)\b`),
}

// suspiciousKeywords flag input when three or more appear together, even if
// no single pattern above matched.
var suspiciousKeywords = []string{
	"select", "union", "insert", "update", "delete", "drop",
	"alter", "create", "exec", "cast", "declare", "shutdown",
}

// IsSQLInjection reports whether input contains suspicious SQL-injection
// patterns. This is a detector for suspicious strings only — it is not a
// substitute for parameterized queries.
func IsSQLInjection(input string) bool {
	s := strings.ToLower(input)

	if len(s) > maxPayloadLen {
		return true
	}

	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}

	count := 0
	for _, kw := range suspiciousKeywords {
		if strings.Contains(s, kw) {
			count++
		}
		if count >= 3 {
			return true
		}
	}

	return false
}
