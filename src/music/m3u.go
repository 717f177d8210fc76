package music

import (
	"bufio"
	"fmt"
	"strings"
)

// EntryPreview is one track reference of a stored playlist.
type EntryPreview struct {
	Title    string
	Location string
}

// PreviewEntries returns up to limit entries of content. Titles come from the
// text after the comma of an #EXTINF: line and apply to the next location line.
func PreviewEntries(content string, limit int) ([]EntryPreview, error) {
	var entries []EntryPreview
	var title string
	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for scanner.Scan() && len(entries) < limit {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(line, EntryMarker); ok {
			if _, t, found := strings.Cut(rest, ","); found {
				title = strings.TrimSpace(t)
			}
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}

		location := strings.Trim(line, "\"'")
		if location == "" {
			continue
		}
		entries = append(entries, EntryPreview{Title: title, Location: location})
		title = ""
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error parsing M3U content: %w", err)
	}
	return entries, nil
}
