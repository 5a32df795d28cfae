package edgeos

import (
	"bufio"
	"regexp"
	"strings"
)

// healthSignatures map flag names to the syslog patterns that raise them.
// All three come from field reports of EdgeRouter failure modes: dnsmasq
// duplicate-lease storms, kernel oopses, and SSH brute-force attempts.
var healthSignatures = map[string]*regexp.Regexp{
	FlagDHCPConflict:   regexp.MustCompile(`uid lease .* is duplicate on`),
	FlagKernelWarning:  regexp.MustCompile(`WARNING: CPU: |Call Trace:`),
	FlagSSHAuthFailure: regexp.MustCompile(`authentication failure`),
}

// ParseHealth scans a syslog tail window for known failure signatures.
// Detection is per-window: a flag is present if any line in this window
// matches, and clears on the next poll that has no match. The parser is
// total; arbitrary log text never fails it.
func ParseHealth(raw string) HealthReport {
	report := HealthReport{Flags: make(map[string]bool)}

	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		line := scanner.Text()
		for flag, re := range healthSignatures {
			if re.MatchString(line) {
				report.Flags[flag] = true
				report.ErrorCount++
			}
		}
	}

	return report
}
