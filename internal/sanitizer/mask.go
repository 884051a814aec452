package sanitizer

import (
	"regexp"
	"strings"

	"wininvestigator/internal/model"
)

var (
	ipv4Regex = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
	ipv6Regex = regexp.MustCompile(`(?i)\b(?:[0-9a-f]{1,4}:){2,7}[0-9a-f]{0,4}\b`)
	userRegex = regexp.MustCompile(`(?i)user(?:name)?\\?[:= ]?([A-Za-z0-9._-]+)`)
	hostRegex = regexp.MustCompile(`(?i)host(?:name)?\\?[:= ]?([A-Za-z0-9._-]+)`)
)

// MaskString replaces addresses, user names and host names with ***.
func MaskString(in string) string {
	s := in
	s = ipv4Regex.ReplaceAllString(s, "***")
	s = ipv6Regex.ReplaceAllString(s, "***")
	s = maskGroup(userRegex, s)
	s = maskGroup(hostRegex, s)
	return s
}

func maskGroup(re *regexp.Regexp, s string) string {
	return re.ReplaceAllStringFunc(s, func(m string) string {
		sub := re.FindStringSubmatch(m)
		if len(sub) > 1 && sub[1] != "" {
			return strings.Replace(m, sub[1], "***", 1)
		}
		return m
	})
}

// MaskEvents masks event messages in place.
func MaskEvents(events []model.LogEvent) {
	for i := range events {
		events[i].Message = MaskString(events[i].Message)
	}
}

// MaskLines returns a masked copy of lines.
func MaskLines(lines []string) []string {
	out := make([]string, len(lines))
	for i, s := range lines {
		out[i] = MaskString(s)
	}
	return out
}

func MaskReliability(events []model.ReliabilityEvent) {
	for i := range events {
		if d := events[i].Description; d != nil {
			masked := MaskString(*d)
			events[i].Description = &masked
		}
	}
}

func MaskUpdateLog(l *model.UpdateLog) {
	l.Summary = MaskString(l.Summary)
	l.Excerpt = MaskLines(l.Excerpt)
}
