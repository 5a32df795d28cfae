package edgeos

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/rileyhilliard/edgewatch/internal/errors"
)

// ParseImage extracts firmware image info from `show system image` output.
//
// Two grammars exist in the wild:
//
// v1.10+ table form:
//
//	The system currently has the following image(s) installed:
//
//	v2.0.9-hotfix.7    (running image) (default boot)
//	v1.10.11
//
// and a bare form where the firmware prints just the image name. The parser
// detects which one it got instead of assuming a single format.
func ParseImage(raw string) (*ImageInfo, error) {
	out := strings.TrimSpace(raw)
	if out == "" {
		return nil, errors.New(errors.ErrParse, "Empty system image output", "")
	}
	// Same sanity check the firmware wrapper fallback relies on: real image
	// output always mentions "image" somewhere.
	if !strings.Contains(strings.ToLower(out), "image") {
		return nil, errors.New(errors.ErrParse,
			fmt.Sprintf("Unrecognized system image output: %q", truncate(out, 80)), "")
	}

	info := &ImageInfo{}

	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasSuffix(line, ":") {
			continue // header or blank
		}

		name := strings.Fields(line)[0]
		if !looksLikeImageName(name) {
			continue
		}

		info.Installed = append(info.Installed, name)
		if strings.Contains(line, "(running image)") {
			info.Running = name
		}
		if strings.Contains(line, "(default boot)") {
			info.DefaultBoot = name
		}
	}

	// Bare form: one image line with no annotations.
	if info.Running == "" && len(info.Installed) == 1 {
		info.Running = info.Installed[0]
	}

	if info.Running == "" {
		return nil, errors.New(errors.ErrParse,
			"No running image found in system image output", "")
	}

	return info, nil
}

// looksLikeImageName filters table decoration from image version strings.
// EdgeOS images are "v<major>.<minor>..." or occasionally a bare number.
func looksLikeImageName(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == 'v' && len(s) > 1 {
		s = s[1:]
	}
	return s[0] >= '0' && s[0] <= '9'
}

// ParseMemory extracts the fields needed for a usage percentage from
// /proc/meminfo output. MemTotal is required; the remaining fields default to
// zero, which MemoryStats.UsedPercent handles.
func ParseMemory(raw string) (*MemoryStats, error) {
	stats := &MemoryStats{}
	found := false

	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		if len(parts) < 2 {
			continue
		}

		val, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			continue
		}

		switch strings.TrimSuffix(parts[0], ":") {
		case "MemTotal":
			stats.TotalKB = val
			found = true
		case "MemFree":
			stats.FreeKB = val
		case "MemAvailable":
			stats.AvailableKB = val
		case "Buffers":
			stats.BuffersKB = val
		case "Cached":
			stats.CachedKB = val
		}
	}

	if !found {
		return nil, errors.New(errors.ErrParse,
			"No MemTotal found in /proc/meminfo output", "")
	}

	return stats, nil
}

// ParseCPUSample reads the aggregate cpu line from /proc/stat.
// Only the first "cpu " line matters; per-core lines are skipped.
func ParseCPUSample(raw string) (*CPUSample, error) {
	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "cpu ") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 5 {
			return nil, errors.New(errors.ErrParse,
				fmt.Sprintf("Invalid /proc/stat cpu line: %q", truncate(line, 80)), "")
		}

		sample := &CPUSample{}
		for i := 1; i < len(fields); i++ {
			val, err := strconv.ParseInt(fields[i], 10, 64)
			if err != nil {
				return nil, errors.WrapWithCode(err, errors.ErrParse,
					fmt.Sprintf("Failed to parse cpu field %d", i), "")
			}
			sample.Total += val
			if i == 4 {
				sample.Idle = val
			}
		}
		return sample, nil
	}

	return nil, errors.New(errors.ErrParse,
		"No aggregate cpu line found in /proc/stat output", "")
}
