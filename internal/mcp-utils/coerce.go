package mcputils

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// ArgumentGetter is an interface for getting arguments from a request
type ArgumentGetter interface {
	GetArguments() map[string]interface{}
}

// CoerceBindArguments binds MCP request arguments to a target struct with proper type coercion.
// MCP clients sometimes send every parameter as a string, including
// JSON-encoded arrays, booleans and numbers.
func CoerceBindArguments[T any](request ArgumentGetter, target *T) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			jsonStringHook,
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		Result:  target,
		TagName: "json", // Use json tags for field mapping
	})
	if err != nil {
		return err
	}

	return decoder.Decode(request.GetArguments())
}

// jsonStringHook decodes JSON-looking strings aimed at slices, maps,
// structs, booleans and numbers.
func jsonStringHook(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
	if f.Kind() != reflect.String {
		return data, nil
	}

	raw, ok := data.(string)
	if !ok || raw == "" {
		return data, nil
	}
	trimmed := strings.TrimSpace(raw)

	switch {
	case t.Kind() == reflect.Slice:
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			slicePtr := reflect.New(t)
			if err := json.Unmarshal([]byte(trimmed), slicePtr.Interface()); err == nil {
				return slicePtr.Elem().Interface(), nil
			}
		}

	case t.Kind() == reflect.Map || t.Kind() == reflect.Struct:
		if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
			var result interface{}
			if err := json.Unmarshal([]byte(trimmed), &result); err == nil {
				return result, nil
			}
		}

	case t.Kind() == reflect.Bool:
		if trimmed == "true" || trimmed == "false" {
			return trimmed == "true", nil
		}

	case t.Kind() >= reflect.Int && t.Kind() <= reflect.Float64:
		var result json.Number
		if err := json.Unmarshal([]byte(trimmed), &result); err == nil {
			// Let mapstructure handle the number conversion
			return result, nil
		}
	}

	return data, nil
}
