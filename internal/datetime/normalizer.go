// =============================================================================
// TraceLink EPCIS Steps - Date Normalizer
// =============================================================================
//
// The trading partner's document format wants second-precision UTC timestamps
// with a literal trailing Z, and chokes on anything else. This module
// reconciles the timestamps carried on parsed events against the event's
// declared timezone offset and reformats them accordingly.
//
// A known upstream defect labels local timestamps as UTC ("+00:00") while the
// event declares a different offset; when that happens the declared offset is
// substituted into the string before parsing.
//
// Parse failures deliberately degrade to passing the original string through
// unchanged. That trades correctness for document completeness and is
// inherited behavior; do not tighten it without product sign-off.
//
// =============================================================================

package datetime

import (
	"strings"
	"time"

	"github.com/ginjaninja78/epcis-tracelink/internal/epcis"
)

// layouts tried in order when parsing inbound timestamp strings.
var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

const outputLayout = "2006-01-02T15:04:05Z"

// Normalizer reformats event timestamps for outbound documents.
type Normalizer struct {
	// ParseUTC converts parsed instants to UTC before formatting. On by
	// default in the step configuration.
	ParseUTC bool
}

// New returns a Normalizer that converts to UTC.
func New() *Normalizer {
	return &Normalizer{ParseUTC: true}
}

// Normalize parses ts and reformats it as YYYY-MM-DDTHH:MM:SSZ with second
// precision. When increment is set, incrementSeconds seconds are added to the
// parsed instant; callers use this to force strict chronological ordering
// among events that share a source timestamp. On any parse failure the
// original input is returned unchanged.
func (n *Normalizer) Normalize(ts string, increment bool, incrementSeconds int) string {
	parsed, ok := parseTimestamp(ts)
	if !ok {
		return ts
	}
	if n.ParseUTC {
		parsed = parsed.UTC()
	}
	if increment {
		parsed = parsed.Add(time.Duration(incrementSeconds) * time.Second)
	}
	return parsed.Format(outputLayout)
}

// NormalizeWithOffset behaves like Normalize but first corrects a timestamp
// mislabeled as UTC: when ts ends in "+00:00" and the event declared a
// different offset, the declared offset replaces the literal before parsing.
func (n *Normalizer) NormalizeWithOffset(ts, declaredOffset string, increment bool, incrementSeconds int) string {
	if strings.HasSuffix(ts, "+00:00") && declaredOffset != "" && declaredOffset != "+00:00" {
		ts = strings.TrimSuffix(ts, "+00:00") + declaredOffset
	}
	return n.Normalize(ts, increment, incrementSeconds)
}

// NormalizeEvent rewrites the event and record times of an event in place.
// The offset substitution applies to the event time only; the record time is
// stamped by the capturing system and carries a trustworthy zone.
func (n *Normalizer) NormalizeEvent(ev *epcis.Event, increment bool, incrementSeconds int) {
	ev.EventTime = n.NormalizeWithOffset(ev.EventTime, ev.EventTimezoneOffset, increment, incrementSeconds)
	if ev.RecordTime != "" {
		ev.RecordTime = n.Normalize(ev.RecordTime, increment, incrementSeconds)
	}
}

func parseTimestamp(ts string) (time.Time, bool) {
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, ts); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}
