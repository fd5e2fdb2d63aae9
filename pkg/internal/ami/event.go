package ami

import "strings"

// Event is one decoded manager-interface frame, a flat set of
// key/value headers.
type Event map[string]string

// Name returns the event name, empty for response frames.
func (e Event) Name() string {
	return e.Get("Event")
}

// Get looks a header up by its wire name, falling back to a
// case-insensitive match since header casing differs between
// PBX versions.
func (e Event) Get(key string) string {
	if v, ok := e[key]; ok {
		return v
	}
	for k, v := range e {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

// Map converts the event into a plain map for JSON storage.
func (e Event) Map() map[string]any {
	out := make(map[string]any, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Action is one manager-interface request, e.g. Login or Originate.
type Action map[string]string
