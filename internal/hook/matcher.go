package hook

import (
	"path/filepath"
	"regexp"
	"sort"

	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/models"
)

// matches reports whether hook's event_pattern matches key: a
// "regex:" prefix compiles and matches as a regular expression, otherwise
// the pattern is a shell glob (filepath.Match's "*"/"?"/"[...]" classes).
func matches(h *models.Hook, key string) bool {
	if h.IsRegex() {
		re, err := regexp.Compile(h.RegexBody())
		if err != nil {
			return false
		}
		return re.MatchString(key)
	}

	ok, err := filepath.Match(h.EventPattern, key)
	return err == nil && ok
}

// matchHooks returns the hooks whose pattern matches either the full
// instance-scoped key or the workflow-level base key, sorted by priority
// descending with ties broken by hook_id.
func matchHooks(hooks []*models.Hook, event *models.Event) []*models.Hook {
	key := event.Key()
	baseKey := event.BaseKey()

	var out []*models.Hook
	for _, h := range hooks {
		if !h.Enabled {
			continue
		}
		if matches(h, key) || (baseKey != key && matches(h, baseKey)) {
			out = append(out, h)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].HookID < out[j].HookID
	})

	return out
}
