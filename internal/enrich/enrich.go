// Package enrich stamps validated messages with the fields every analytics message carries on the wire.
package enrich

import (
	"encoding/json"
	"reflect"
	"runtime"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/maps"

	"github.com/ingestkit/go-analytics-sdk/internal/validation"
)

// MessageIDPrefix is prepended to every generated messageId.
const MessageIDPrefix = "go-"

var idFields = []string{"userId", "anonymousId", "groupId", "previousId"} //nolint:gochecknoglobals

// Library identifies this client in context.library.
type Library struct {
	Name    string
	Version string
}

// Enricher produces wire-ready copies of messages. Now and NewID may be replaced in tests; nil values
// fall back to the wall clock and random UUIDs.
type Enricher struct {
	Library Library
	Now     func() time.Time
	NewID   func() string
}

// Enrich returns a new message for the given kind. The input map and its nested context and _metadata
// maps are never modified.
func (e Enricher) Enrich(message map[string]interface{}, kind string) map[string]interface{} {
	out := maps.Clone(message)
	if out == nil {
		out = make(map[string]interface{})
	}
	out["type"] = kind

	out["context"] = mergeOver(map[string]interface{}{
		"library": map[string]interface{}{
			"name":    e.Library.Name,
			"version": e.Library.Version,
		},
	}, out["context"])
	out["_metadata"] = mergeOver(map[string]interface{}{
		"goVersion": runtime.Version(),
	}, out["_metadata"])

	if validation.IsNil(out["timestamp"]) {
		out["timestamp"] = e.now()
	}
	if id, _ := out["messageId"].(string); id == "" {
		out["messageId"] = MessageIDPrefix + e.newID()
	}

	if from, ok := out["from"]; ok {
		if validation.IsNil(out["previousId"]) {
			out["previousId"] = from
		}
		delete(out, "from")
	}
	for _, field := range idFields {
		if s, ok := numberToString(out[field]); ok {
			out[field] = s
		}
	}
	return out
}

func (e Enricher) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now().UTC()
}

func (e Enricher) newID() string {
	if e.NewID != nil {
		return e.NewID()
	}
	return uuid.NewString()
}

// mergeOver copies the caller's object over defaults. Caller keys win. Any string-keyed map is copied
// key by key; a struct is first converted through its JSON encoding.
func mergeOver(defaults map[string]interface{}, caller interface{}) map[string]interface{} {
	if validation.IsNil(caller) {
		return defaults
	}
	if m, ok := caller.(map[string]interface{}); ok {
		maps.Copy(defaults, m)
		return defaults
	}
	v := reflect.ValueOf(caller)
	if v.Kind() == reflect.Map && v.Type().Key().Kind() == reflect.String {
		iter := v.MapRange()
		for iter.Next() {
			defaults[iter.Key().String()] = iter.Value().Interface()
		}
		return defaults
	}
	if validation.IsObject(caller) {
		var m map[string]interface{}
		if data, err := json.Marshal(caller); err == nil && json.Unmarshal(data, &m) == nil {
			maps.Copy(defaults, m)
		}
	}
	return defaults
}

func numberToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case int:
		return strconv.Itoa(v), true
	case int8:
		return strconv.FormatInt(int64(v), 10), true
	case int16:
		return strconv.FormatInt(int64(v), 10), true
	case int32:
		return strconv.FormatInt(int64(v), 10), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case uint:
		return strconv.FormatUint(uint64(v), 10), true
	case uint8:
		return strconv.FormatUint(uint64(v), 10), true
	case uint16:
		return strconv.FormatUint(uint64(v), 10), true
	case uint32:
		return strconv.FormatUint(uint64(v), 10), true
	case uint64:
		return strconv.FormatUint(v, 10), true
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case json.Number:
		return v.String(), true
	}
	return "", false
}
