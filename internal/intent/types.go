// Package intent holds the data model shared by the command pipeline:
// actions, media types, raw and resolved intents, candidates and
// execution results.
package intent

import (
	"fmt"
	"strings"
)

// Action is the operation a user asked for. The set is closed; adding an
// action requires explicit support in the engine and executor.
type Action string

const (
	ActionAdd              Action = "add"
	ActionRemove           Action = "remove"
	ActionSearch           Action = "search"
	ActionUpgrade          Action = "upgrade"
	ActionList             Action = "list"
	ActionInfo             Action = "info"
	ActionDelete           Action = "delete"
	ActionDownloadSubtitle Action = "download_subtitle"
	ActionSyncSubtitles    Action = "sync_subtitles"
)

// Actions returns every supported action in schema order.
func Actions() []Action {
	return []Action{
		ActionRemove,
		ActionSearch,
		ActionAdd,
		ActionUpgrade,
		ActionList,
		ActionInfo,
		ActionDelete,
		ActionDownloadSubtitle,
		ActionSyncSubtitles,
	}
}

// Valid reports whether a is one of the supported actions.
func (a Action) Valid() bool {
	for _, known := range Actions() {
		if a == known {
			return true
		}
	}
	return false
}

// RequiresTarget reports whether the action always operates on one concrete
// item and therefore needs title resolution. SEARCH is targeted only when it
// names a title; see Intent.Targeted.
func (a Action) RequiresTarget() bool {
	switch a {
	case ActionAdd, ActionRemove, ActionUpgrade, ActionInfo, ActionDelete, ActionDownloadSubtitle:
		return true
	default:
		return false
	}
}

// Destructive reports whether the action deletes data on a backend.
func (a Action) Destructive() bool {
	return a == ActionRemove || a == ActionDelete
}

// IsSubtitle reports whether the action is serviced by the subtitle companion.
func (a Action) IsSubtitle() bool {
	return a == ActionDownloadSubtitle || a == ActionSyncSubtitles
}

// ParseAction converts free text from a model response into an Action.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	if !a.Valid() {
		return "", fmt.Errorf("unknown action %q", s)
	}
	return a, nil
}

// MediaType selects which backend services a request.
type MediaType string

const (
	MediaTypeTV        MediaType = "tv"
	MediaTypeMovie     MediaType = "movie"
	MediaTypeMusic     MediaType = "music"
	MediaTypeBook      MediaType = "book"
	MediaTypeAudiobook MediaType = "audiobook"
	MediaTypeAdult     MediaType = "adult"
)

// MediaTypes returns every supported media type in schema order.
func MediaTypes() []MediaType {
	return []MediaType{
		MediaTypeTV,
		MediaTypeMovie,
		MediaTypeMusic,
		MediaTypeBook,
		MediaTypeAudiobook,
		MediaTypeAdult,
	}
}

// Valid reports whether m is one of the supported media types.
func (m MediaType) Valid() bool {
	for _, known := range MediaTypes() {
		if m == known {
			return true
		}
	}
	return false
}

// Label returns a human readable plural noun used in result messages.
func (m MediaType) Label() string {
	switch m {
	case MediaTypeTV:
		return "TV show(s)"
	case MediaTypeMovie:
		return "movie(s)"
	case MediaTypeMusic:
		return "artist(s)"
	case MediaTypeBook:
		return "author(s)"
	case MediaTypeAudiobook:
		return "audiobook(s)"
	case MediaTypeAdult:
		return "item(s)"
	default:
		return "item(s)"
	}
}

// ParseMediaType converts free text from a model response into a MediaType.
func ParseMediaType(s string) (MediaType, error) {
	m := MediaType(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("unknown media type %q", s)
	}
	return m, nil
}
