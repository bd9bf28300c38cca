package cue

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"
)

var (
	// Matches timestamps like [00:12.34] or [00:12:34] or [00:12]
	timestampRe = regexp.MustCompile(`\[(\d+):(\d+)(?:[.:](\d+))?\]`)

	// Matches tags like [ar:Artist Name] or [offset:+250]
	tagRe = regexp.MustCompile(`^\[([a-z]+):(.+)\]$`)
)

// ParseLRC reads cues from LRC formatted text. Lines carrying several
// timestamps produce one cue per timestamp. Empty lines are skipped, and an
// [offset:ms] tag shifts every cue (positive values show lines earlier).
func ParseLRC(r io.Reader) ([]Cue, error) {
	var cues []Cue
	var offsetMs float64
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if tag := tagRe.FindStringSubmatch(line); tag != nil {
			if strings.ToLower(tag[1]) == "offset" {
				if v, err := strconv.ParseFloat(strings.TrimSpace(tag[2]), 64); err == nil {
					offsetMs = v
				}
			}
			continue
		}

		matches := timestampRe.FindAllStringSubmatchIndex(line, -1)
		if len(matches) == 0 {
			continue
		}

		lastMatch := matches[len(matches)-1]
		text := strings.TrimSpace(line[lastMatch[1]:])
		if text == "" {
			continue
		}

		for _, match := range matches {
			ts, ok := parseTimestamp(line[match[0]:match[1]])
			if !ok {
				continue
			}
			cues = append(cues, Cue{Time: ts, Text: text})
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if offsetMs != 0 {
		for i := range cues {
			cues[i].Time = max(0, cues[i].Time-offsetMs/1000)
		}
	}

	sortCues(cues)
	return cues, nil
}

// parseTimestamp converts [mm:ss.xx] into seconds.
func parseTimestamp(s string) (float64, bool) {
	m := timestampRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}

	minutes, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	seconds, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, false
	}

	var millis int
	if m[3] != "" {
		millis, err = strconv.Atoi(m[3])
		if err != nil {
			return 0, false
		}
		// .xx is centiseconds, .xxx milliseconds
		if len(m[3]) == 2 {
			millis *= 10
		}
	}

	return float64(minutes*60+seconds) + float64(millis)/1000, true
}
