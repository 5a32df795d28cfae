package edgeos

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/rileyhilliard/edgewatch/internal/errors"
)

// ParseInterfaces extracts cumulative rx/tx byte counters per interface from
// /proc/net/dev output. Malformed lines are skipped rather than failing the
// whole table.
func ParseInterfaces(raw string) (map[string]InterfaceCounters, error) {
	counters := make(map[string]InterfaceCounters)

	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		line := scanner.Text()

		if strings.Contains(line, "|") {
			continue // header
		}

		// "eth0: 123 ..." and "eth0:123 ..." both occur.
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}

		name := strings.TrimSpace(parts[0])
		fields := strings.Fields(parts[1])

		// 8 receive + 8 transmit columns; rx bytes first, tx bytes ninth.
		if name == "" || len(fields) < 16 {
			continue
		}

		rx, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			continue
		}
		tx, err := strconv.ParseInt(fields[8], 10, 64)
		if err != nil {
			continue
		}

		counters[name] = InterfaceCounters{RxBytes: rx, TxBytes: tx}
	}

	if len(counters) == 0 {
		return nil, errors.New(errors.ErrParse,
			"No interfaces found in /proc/net/dev output", "")
	}

	return counters, nil
}

// IsLoopback reports whether an interface name is the loopback device.
// Loopback traffic is excluded from total-rate aggregation.
func IsLoopback(name string) bool {
	return name == "lo"
}
