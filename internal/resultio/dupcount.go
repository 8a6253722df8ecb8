package resultio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ReadDupCounts reads "seqID<TAB>count" lines. Repeated ids accumulate.
func ReadDupCounts(r io.Reader) (map[string]int, error) {
	return readDupCounts(r, "")
}

// OpenDupCounts reads a duplicate-count file from disk.
func OpenDupCounts(path string) (map[string]int, error) {
	f, err := os.Open(path) // #nosec G304 -- operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("open dup counts: %w", err)
	}
	defer func() { _ = f.Close() }()
	return readDupCounts(f, path)
}

func readDupCounts(r io.Reader, source string) (map[string]int, error) {
	counts := make(map[string]int)
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 2 {
			return nil, parseErr(source, line, "expected sequence id and count")
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil || n < 1 {
			return nil, parseErr(source, line, "invalid count %q", fields[1])
		}
		counts[fields[0]] += n
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read dup counts: %w", err)
	}
	return counts, nil
}
