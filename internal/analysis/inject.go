package analysis

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/kompakt-dev/kompakt/internal/core"
)

// InjectionInfo is what the analyzer can read out of a context-injection
// payload without committing to a schema.
type InjectionInfo struct {
	Valid bool
	Task  string
	Files []string
	Keys  []string
}

// ParseInjection inspects the JSON document following the injection
// marker. Malformed payloads yield Valid=false; the message itself is
// still treated as a context injection by classification.
func ParseInjection(text string) InjectionInfo {
	var info InjectionInfo

	markerIndex := strings.Index(text, core.ContextInjectionMarker)
	if markerIndex < 0 {
		return info
	}

	payload := strings.TrimSpace(text[markerIndex+len(core.ContextInjectionMarker):])
	if !gjson.Valid(payload) {
		return info
	}

	parsed := gjson.Parse(payload)
	if !parsed.IsObject() {
		return info
	}

	info.Valid = true
	info.Task = parsed.Get("task").String()

	for _, file := range parsed.Get("files").Array() {
		info.Files = append(info.Files, file.String())
	}

	parsed.ForEach(func(key, _ gjson.Result) bool {
		info.Keys = append(info.Keys, key.String())
		return true
	})

	return info
}
