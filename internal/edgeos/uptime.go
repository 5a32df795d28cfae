package edgeos

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rileyhilliard/edgewatch/internal/errors"
)

// Uptime component patterns. BusyBox and procps print different shapes:
//
//	12:34:56 up 3 days,  4:56,  2 users,  load average: ...
//	12:34:56 up 3 days, 4 hours, 1 user, ...
//	12:34:56 up 17 min, ...
//	up 10:42, ...
var (
	uptimeDaysRe  = regexp.MustCompile(`^(\d+)\s+days?$`)
	uptimeHoursRe = regexp.MustCompile(`^(\d+)\s+hours?$`)
	uptimeMinsRe  = regexp.MustCompile(`^(\d+)\s+min(ute)?s?$`)
	uptimeClockRe = regexp.MustCompile(`^(\d+):(\d{2})$`)
)

// ParseUptime extracts uptime in seconds from `uptime` output.
// It accepts both the bare "up 3 days, 4 hours" form and the full line with
// time, user count, and load averages.
func ParseUptime(raw string) (int64, error) {
	line := strings.TrimSpace(raw)
	if line == "" {
		return 0, errors.New(errors.ErrParse, "Empty uptime output", "")
	}

	// Isolate the duration portion after "up".
	idx := strings.Index(line, "up ")
	if idx < 0 {
		return 0, errors.New(errors.ErrParse,
			fmt.Sprintf("Unrecognized uptime output: %q", truncate(line, 80)), "")
	}
	rest := line[idx+len("up "):]

	// Everything from the user count onward is noise.
	if userIdx := strings.Index(rest, " user"); userIdx >= 0 {
		if commaIdx := strings.LastIndex(rest[:userIdx], ","); commaIdx >= 0 {
			rest = rest[:commaIdx]
		}
	}
	if loadIdx := strings.Index(rest, "load average"); loadIdx >= 0 {
		rest = rest[:loadIdx]
	}

	var seconds int64
	matched := false

	for _, part := range strings.Split(rest, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		switch {
		case uptimeDaysRe.MatchString(part):
			n := atoi64(uptimeDaysRe.FindStringSubmatch(part)[1])
			seconds += n * 86400
			matched = true
		case uptimeHoursRe.MatchString(part):
			n := atoi64(uptimeHoursRe.FindStringSubmatch(part)[1])
			seconds += n * 3600
			matched = true
		case uptimeMinsRe.MatchString(part):
			n := atoi64(uptimeMinsRe.FindStringSubmatch(part)[1])
			seconds += n * 60
			matched = true
		case uptimeClockRe.MatchString(part):
			m := uptimeClockRe.FindStringSubmatch(part)
			seconds += atoi64(m[1])*3600 + atoi64(m[2])*60
			matched = true
		}
	}

	if !matched {
		return 0, errors.New(errors.ErrParse,
			fmt.Sprintf("No duration found in uptime output: %q", truncate(line, 80)), "")
	}

	return seconds, nil
}

func atoi64(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
