package mapping

import (
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// The interviewer closes a session by embedding a result block in its final
// reply, optionally followed by a separate end-of-session marker:
//
//	<RESULT>{"area_fungsi":"Sains Data","level":3}</RESULT>[END OF CHAT]
var (
	resultBlockRe = regexp.MustCompile(`(?s)<RESULT>(.*?)</RESULT>`)
	endMarker     = "[END OF CHAT]"
)

// ErrNoResult reports that no result block is present.
var ErrNoResult = errors.New("no result block in text")

// ChatResult is the structured payload embedded in the terminal AI reply.
type ChatResult struct {
	AreaName string
	Level    int
}

// HasResultBlock reports whether the text contains a result block. Marker
// presence alone closes a session even when the payload fails to parse.
func HasResultBlock(text string) bool {
	return resultBlockRe.MatchString(text)
}

// ExtractResult finds the last result block in an AI reply and parses its
// payload. Returns ErrNoResult when no block exists; a parse failure of an
// existing block returns the parse error so callers can degrade gracefully.
func ExtractResult(text string) (*ChatResult, error) {
	matches := resultBlockRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil, ErrNoResult
	}

	raw := strings.TrimSpace(matches[len(matches)-1][1])
	return parseResult(raw)
}

// parseResult attempts a direct JSON parse, then retries after un-escaping
// the backslash-escaped encoding some model outputs use
// ({\"area_fungsi\":\"...\"}).
func parseResult(raw string) (*ChatResult, error) {
	if r, err := parseResultJSON(raw); err == nil {
		return r, nil
	}

	unescaped := strings.ReplaceAll(raw, `\"`, `"`)
	unescaped = strings.ReplaceAll(unescaped, `\\`, `\`)
	return parseResultJSON(unescaped)
}

func parseResultJSON(raw string) (*ChatResult, error) {
	var payload struct {
		AreaFungsi string          `json:"area_fungsi"`
		Level      json.RawMessage `json:"level"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, err
	}

	return &ChatResult{
		AreaName: payload.AreaFungsi,
		Level:    parseLevel(payload.Level),
	}, nil
}

// parseLevel tolerates both numeric and string-encoded levels; anything
// else reads as zero, which downstream classifies as unmappable.
func parseLevel(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}

	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return n
		}
	}

	return 0
}

// StripMarkers removes every result block and the end-of-session marker
// from text meant for display.
func StripMarkers(text string) string {
	text = resultBlockRe.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, endMarker, "")
	return strings.TrimSpace(text)
}
