package eventlog

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SystemTimeLayout is the literal form accepted by TimeCreated[@SystemTime] comparisons.
const SystemTimeLayout = "2006-01-02T15:04:05.000Z"

var errUnquotable = errors.New("value cannot contain both single and double quotes")

// DataMatch restricts events to those whose named EventData field equals Value.
type DataMatch struct {
	Name  string
	Value string
}

// Criteria describes an event selection. Empty fields do not constrain.
type Criteria struct {
	Providers []string
	EventIDs  []uint32
	Levels    []uint8
	Start     *time.Time
	End       *time.Time
	// Raw holds additional predicates inside System[...], already well-formed.
	Raw  []string
	Data []DataMatch
}

// XPath renders the criteria as an event log structured query.
func (c Criteria) XPath() (string, error) {
	var preds []string

	if len(c.Providers) > 0 {
		alts := make([]string, 0, len(c.Providers))
		for _, p := range c.Providers {
			q, err := quote(p)
			if err != nil {
				return "", err
			}
			alts = append(alts, fmt.Sprintf("Provider[@Name=%s]", q))
		}
		preds = append(preds, or(alts))
	}
	if len(c.EventIDs) > 0 {
		alts := make([]string, 0, len(c.EventIDs))
		for _, id := range c.EventIDs {
			alts = append(alts, fmt.Sprintf("EventID=%d", id))
		}
		preds = append(preds, or(alts))
	}
	if len(c.Levels) > 0 {
		alts := make([]string, 0, len(c.Levels))
		for _, l := range c.Levels {
			alts = append(alts, fmt.Sprintf("Level=%d", l))
		}
		preds = append(preds, or(alts))
	}
	if t := timePredicate(c.Start, c.End); t != "" {
		preds = append(preds, t)
	}
	preds = append(preds, c.Raw...)

	var b strings.Builder
	if len(preds) == 0 {
		b.WriteString("*")
	} else {
		b.WriteString("*[System[")
		b.WriteString(strings.Join(preds, " and "))
		b.WriteString("]]")
	}
	for _, d := range c.Data {
		name, err := quote(d.Name)
		if err != nil {
			return "", err
		}
		val, err := quote(d.Value)
		if err != nil {
			return "", err
		}
		if b.String() == "*" {
			b.Reset()
		} else {
			b.WriteString(" and ")
		}
		fmt.Fprintf(&b, "*[EventData[Data[@Name=%s]=%s]]", name, val)
	}
	return b.String(), nil
}

// ProviderPredicate renders a single provider test for use in Criteria.Raw.
func ProviderPredicate(name string) string {
	q, err := quote(name)
	if err != nil {
		return "false()"
	}
	return fmt.Sprintf("Provider[@Name=%s]", q)
}

func timePredicate(start, end *time.Time) string {
	switch {
	case start != nil && end != nil:
		return fmt.Sprintf("TimeCreated[@SystemTime>='%s' and @SystemTime<='%s']",
			start.UTC().Format(SystemTimeLayout), end.UTC().Format(SystemTimeLayout))
	case start != nil:
		return fmt.Sprintf("TimeCreated[@SystemTime>='%s']", start.UTC().Format(SystemTimeLayout))
	case end != nil:
		return fmt.Sprintf("TimeCreated[@SystemTime<='%s']", end.UTC().Format(SystemTimeLayout))
	}
	return ""
}

func or(alts []string) string {
	if len(alts) == 1 {
		return alts[0]
	}
	return "(" + strings.Join(alts, " or ") + ")"
}

func quote(s string) (string, error) {
	switch {
	case !strings.Contains(s, "'"):
		return "'" + s + "'", nil
	case !strings.Contains(s, `"`):
		return `"` + s + `"`, nil
	}
	return "", errUnquotable
}
