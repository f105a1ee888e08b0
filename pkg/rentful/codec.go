package rentful

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Engine is the pluggable JSON engine behind the codec. The default engine
// is encoding/json; swapping engines never changes the decode contract.
type Engine interface {
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
}

type stdEngine struct{}

func (stdEngine) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (stdEngine) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// Codec encodes and decodes JSON:API-shaped payloads. Decoding resolves
// `included` relationships onto resources, flattens attributes, and converts
// date/time-like fields into time.Time values.
type Codec struct {
	engine Engine
}

// NewCodec creates a codec backed by the given engine. A nil engine selects
// encoding/json.
func NewCodec(engine Engine) *Codec {
	if engine == nil {
		engine = stdEngine{}
	}

	return &Codec{engine: engine}
}

// Engine returns the JSON engine behind the codec.
func (c *Codec) Engine() Engine {
	return c.engine
}

// Encode serializes a value. Date/time leaves are rendered as UTC ISO-8601
// strings; all other leaves pass through unchanged.
func (c *Codec) Encode(v interface{}) ([]byte, error) {
	data, err := c.engine.Marshal(encodeValue(v))
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}

	return data, nil
}

// Decode parses a JSON:API payload. Empty or whitespace-only input decodes
// to nil without error.
func (c *Codec) Decode(data []byte) (interface{}, error) {
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}

	var v interface{}
	if err := c.engine.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decoding payload: %w", err)
	}

	return decodeValue("", v), nil
}

// encodeValue recursively converts time values to UTC ISO-8601 strings.
func encodeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case *time.Time:
		if t == nil {
			return nil
		}

		return t.UTC().Format(time.RFC3339)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = encodeValue(val)
		}

		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = encodeValue(val)
		}

		return out
	default:
		return v
	}
}

// decodeValue walks the decoded tree. For objects carrying an `included`
// key, relationship references under `data` are resolved against `included`
// before any flattening. Array-shaped payloads skip relationship population
// but still flatten per element.
func decodeValue(key string, v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		if included, ok := t["included"].([]interface{}); ok {
			if data, ok := t["data"]; ok {
				populateRelationships(data, included, map[string]bool{})
			}
		}

		flattenResource(t)

		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = decodeValue(k, val)
		}

		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = decodeValue("", val)
		}

		return out
	default:
		return typedValue(key, v)
	}
}

// populateRelationships replaces each relationship's {id,type} reference
// with the matching resource from included, recursing into resolved
// resources so nested relationships resolve too. Unresolved references are
// left untouched. The seen set breaks cycles between mutually related
// resources.
func populateRelationships(data interface{}, included []interface{}, seen map[string]bool) {
	switch resource := data.(type) {
	case []interface{}:
		for _, item := range resource {
			populateRelationships(item, included, seen)
		}
	case map[string]interface{}:
		identity := resourceIdentity(resource)
		if identity != "" {
			if seen[identity] {
				return
			}

			seen[identity] = true
		}

		relationships, ok := resource["relationships"].(map[string]interface{})
		if !ok {
			return
		}

		for _, rel := range relationships {
			relMap, ok := rel.(map[string]interface{})
			if !ok {
				continue
			}

			switch ref := relMap["data"].(type) {
			case map[string]interface{}:
				if found := lookupIncluded(included, ref); found != nil {
					populateRelationships(found, included, seen)
					relMap["data"] = found
				}
			case []interface{}:
				for i, item := range ref {
					refMap, ok := item.(map[string]interface{})
					if !ok {
						continue
					}

					if found := lookupIncluded(included, refMap); found != nil {
						populateRelationships(found, included, seen)
						ref[i] = found
					}
				}
			}
		}
	}
}

func resourceIdentity(resource map[string]interface{}) string {
	id, _ := resource["id"].(string)
	typ, _ := resource["type"].(string)

	if id == "" || typ == "" {
		return ""
	}

	return typ + "/" + id
}

// lookupIncluded finds the included resource matching a reference by id and
// type equality.
func lookupIncluded(included []interface{}, ref map[string]interface{}) map[string]interface{} {
	id, okID := ref["id"].(string)
	typ, okType := ref["type"].(string)

	if !okID || !okType {
		return nil
	}

	for _, item := range included {
		resource, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		if resource["id"] == id && resource["type"] == typ {
			return resource
		}
	}

	return nil
}

// flattenResource hoists the attributes map onto the resource itself and
// replaces the relationships wrapper with one key per relationship holding
// the resolved object, array, or raw reference.
func flattenResource(resource map[string]interface{}) {
	if attributes, ok := resource["attributes"].(map[string]interface{}); ok {
		for k, v := range attributes {
			resource[k] = v
		}

		delete(resource, "attributes")
	}

	if relationships, ok := resource["relationships"].(map[string]interface{}); ok {
		for name, rel := range relationships {
			relMap, ok := rel.(map[string]interface{})
			if !ok {
				continue
			}

			if data, present := relMap["data"]; present {
				resource[name] = data
			}
		}

		delete(resource, "relationships")
	}
}

// timeLayouts are tried in order when parsing string timestamp fields.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// typedValue converts values under date/time-like keys into time.Time.
// Strings that do not parse are left as-is; numbers are epoch seconds.
func typedValue(key string, v interface{}) interface{} {
	if v == nil || !isTimeKey(key) {
		return v
	}

	switch t := v.(type) {
	case string:
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed
			}
		}

		return t
	case float64:
		return time.Unix(int64(t), 0).UTC()
	default:
		return v
	}
}

func isTimeKey(key string) bool {
	return strings.HasSuffix(key, "_at") ||
		strings.HasSuffix(key, "_on") ||
		strings.HasSuffix(key, "_date") ||
		key == "date"
}
