// Package validation checks the shape of analytics messages before they are accepted by a client.
package validation

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"
)

// Message kinds.
const (
	KindIdentify = "identify"
	KindGroup    = "group"
	KindTrack    = "track"
	KindPage     = "page"
	KindScreen   = "screen"
	KindAlias    = "alias"
)

// Error describes why a message was rejected. Field is empty when the problem is not tied to one field.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

type fieldType int

const (
	stringOrNumber fieldType = iota
	stringOnly
	object
	date
)

var fieldRules = []struct { //nolint:gochecknoglobals
	field string
	ft    fieldType
}{
	{"anonymousId", stringOrNumber},
	{"userId", stringOrNumber},
	{"groupId", stringOrNumber},
	{"previousId", stringOrNumber},
	{"category", stringOnly},
	{"event", stringOnly},
	{"name", stringOnly},
	{"type", stringOnly},
	{"messageId", stringOnly},
	{"context", object},
	{"integrations", object},
	{"properties", object},
	{"traits", object},
	{"_metadata", object},
	{"timestamp", date},
}

// Validate returns a *Error if message cannot be sent as the given kind. Unknown fields are ignored.
func Validate(message map[string]interface{}, kind string) error {
	if message == nil {
		return &Error{Message: "You must pass a message object."}
	}
	for _, rule := range fieldRules {
		value, ok := message[rule.field]
		if !ok || IsNil(value) {
			continue
		}
		if err := checkType(rule.field, rule.ft, value); err != nil {
			return err
		}
	}

	switch kind {
	case KindIdentify, KindPage, KindScreen:
		return requireIdentity(message)
	case KindTrack:
		if err := requireIdentity(message); err != nil {
			return err
		}
		if s, _ := message["event"].(string); s == "" {
			return &Error{Field: "event", Message: `You must pass an "event".`}
		}
	case KindGroup:
		if err := requireIdentity(message); err != nil {
			return err
		}
		if !present(message, "groupId") {
			return &Error{Field: "groupId", Message: `You must pass a "groupId".`}
		}
	case KindAlias:
		if !present(message, "userId") {
			return &Error{Field: "userId", Message: `You must pass a "userId".`}
		}
		if !present(message, "previousId") && !present(message, "from") {
			return &Error{Field: "previousId", Message: `You must pass a "previousId".`}
		}
	default:
		return &Error{Field: "type", Message: fmt.Sprintf("Unknown message kind %q.", kind)}
	}
	return nil
}

func requireIdentity(message map[string]interface{}) error {
	if !present(message, "userId") && !present(message, "anonymousId") {
		return &Error{Field: "userId", Message: `You must pass either an "anonymousId" or a "userId".`}
	}
	return nil
}

// present treats nil and the empty string as absent.
func present(message map[string]interface{}, field string) bool {
	value, ok := message[field]
	if !ok || IsNil(value) {
		return false
	}
	if s, isString := value.(string); isString {
		return s != ""
	}
	return true
}

func checkType(field string, ft fieldType, value interface{}) error {
	switch ft {
	case stringOrNumber:
		if _, ok := value.(string); ok || isNumber(value) {
			return nil
		}
		return typeError(field, "a string or number")
	case stringOnly:
		if _, ok := value.(string); ok {
			return nil
		}
		return typeError(field, "a string")
	case object:
		if IsObject(value) {
			return nil
		}
		return typeError(field, "an object")
	case date:
		if isDate(value) {
			return nil
		}
		return typeError(field, "a date")
	}
	return nil
}

func typeError(field, expected string) error {
	return &Error{Field: field, Message: fmt.Sprintf("%q must be %s.", field, expected)}
}

func isNumber(value interface{}) bool {
	switch value.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		return true
	}
	return false
}

func isDate(value interface{}) bool {
	switch v := value.(type) {
	case time.Time:
		return true
	case *time.Time:
		return true
	case string:
		_, err := time.Parse(time.RFC3339Nano, v)
		return err == nil
	}
	return false
}

// IsNil reports whether value is nil or a nil pointer, map, slice, or interface. Such fields are treated
// as absent.
func IsNil(value interface{}) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// IsObject reports whether value encodes as a JSON object: a map with string keys, or a struct or
// pointer to one.
func IsObject(value interface{}) bool {
	v := reflect.ValueOf(value)
	for v.Kind() == reflect.Ptr && !v.IsNil() {
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Map:
		return v.Type().Key().Kind() == reflect.String
	case reflect.Struct:
		return true
	}
	return false
}
