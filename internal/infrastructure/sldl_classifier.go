package infrastructure

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/yourusername/sldl-jobs/internal/domain"
)

// statsSuffix matches the optional "[215s/320kbps/8.4MB]" tail of track lines
const statsSuffix = `(?:\s+\[(\d+)s/(\d+)kbps/([0-9.]+)MB\])?$`

// classifierRule maps one line pattern to an event constructor
type classifierRule struct {
	kind    domain.EventKind
	pattern *regexp.Regexp
	build   func(m []string) domain.JobEvent
}

// classifierRules are evaluated top to bottom; the first match wins.
// Every pattern is anchored on a distinct leading verb, so at most one can
// match any given line.
var classifierRules = []classifierRule{
	{
		kind:    domain.EventPlaylistDiscovered,
		pattern: regexp.MustCompile(`^Found (\d+) tracks? in playlist`),
		build: func(m []string) domain.JobEvent {
			return domain.JobEvent{Kind: domain.EventPlaylistDiscovered, Total: atoi(m[1])}
		},
	},
	{
		kind:    domain.EventLoadingPlaylist,
		pattern: regexp.MustCompile(`^Loading (?:\w+ )?playlist`),
		build: func(m []string) domain.JobEvent {
			return domain.JobEvent{Kind: domain.EventLoadingPlaylist}
		},
	},
	{
		kind:    domain.EventPlaylistNamed,
		pattern: regexp.MustCompile(`^Playlist:\s+(.+?)\s+by\s+(.+)$`),
		build: func(m []string) domain.JobEvent {
			return domain.JobEvent{Kind: domain.EventPlaylistNamed, Name: m[1], Creator: m[2]}
		},
	},
	{
		kind:    domain.EventSearching,
		pattern: regexp.MustCompile(`^Searching:\s+(.+?)(?:\s+\((\d+)s\))?$`),
		build: func(m []string) domain.JobEvent {
			ev := domain.JobEvent{Kind: domain.EventSearching, Name: m[1]}
			if m[2] != "" {
				ev.Stats = &domain.TrackStats{Seconds: atoi(m[2])}
			}
			return ev
		},
	},
	trackRule(domain.EventInitialize, "Initialize"),
	trackRule(domain.EventProgress, "InProgress"),
	{
		kind:    domain.EventTrackNotFound,
		pattern: regexp.MustCompile(`^Not found:\s+(.+?)(?:\s+\(([^()]+)\))?$`),
		build: func(m []string) domain.JobEvent {
			return domain.JobEvent{Kind: domain.EventTrackNotFound, Name: m[1], Detail: m[2]}
		},
	},
	trackRule(domain.EventTrackSucceeded, "Succeeded"),
	{
		kind:    domain.EventPlaylistCompleted,
		pattern: regexp.MustCompile(`^Completed:\s+(\d+) succeeded,\s+(\d+) failed`),
		build: func(m []string) domain.JobEvent {
			return domain.JobEvent{Kind: domain.EventPlaylistCompleted, Succeeded: atoi(m[1]), Failed: atoi(m[2])}
		},
	},
}

// trackRule builds a rule for the "Verb: name [Ns/Nkbps/N.NMB]" line shape
func trackRule(kind domain.EventKind, verb string) classifierRule {
	return classifierRule{
		kind:    kind,
		pattern: regexp.MustCompile(`^` + verb + `:\s+(.+?)` + statsSuffix),
		build: func(m []string) domain.JobEvent {
			ev := domain.JobEvent{Kind: kind, Name: m[1]}
			if m[2] != "" {
				size, _ := strconv.ParseFloat(m[4], 64)
				ev.Stats = &domain.TrackStats{Seconds: atoi(m[2]), BitrateKbps: atoi(m[3]), SizeMB: size}
			}
			return ev
		},
	}
}

// ClassifyLine maps one line of sldl stdout to at most one event.
// Lines that match no rule return ok=false; this is not an error.
func ClassifyLine(line string) (domain.JobEvent, bool) {
	line = strings.TrimSpace(strings.TrimRight(line, "\r\n"))
	if line == "" {
		return domain.JobEvent{}, false
	}
	for _, rule := range classifierRules {
		if m := rule.pattern.FindStringSubmatch(line); m != nil {
			return rule.build(m), true
		}
	}
	return domain.JobEvent{}, false
}

// ClassifierKinds lists the event kinds in evaluation order
func ClassifierKinds() []domain.EventKind {
	kinds := make([]domain.EventKind, len(classifierRules))
	for i, rule := range classifierRules {
		kinds[i] = rule.kind
	}
	return kinds
}

// atoi parses a digit run already validated by a pattern; overflow yields 0
func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
