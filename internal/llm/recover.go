package llm

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

var reBraceBlock = regexp.MustCompile(`(?s)\{.*\}`)

// recoverStage attempts to pull a JSON object out of a model reply. It
// reports false when the stage finds nothing parseable.
type recoverStage func(string) (map[string]json.RawMessage, bool)

// Stages run in order of decreasing strictness; the first success wins.
var recoverStages = []recoverStage{
	parseDirect,
	parseBraceWindow,
	parseBraceMatch,
}

// RecoverMapping extracts a best-effort key->value mapping from the raw model
// reply. It never fails: when no stage yields an object the mapping is empty
// and the returned candidate bytes are nil. The second return value is the
// JSON text of the winning stage, for schema validation and persistence.
func RecoverMapping(raw string) (map[string]Value, []byte) {
	for _, stage := range recoverStages {
		obj, ok := stage(raw)
		if !ok {
			continue
		}
		out := make(map[string]Value, len(obj))
		for k, v := range obj {
			out[k] = classifyValue(v)
		}
		candidate, _ := json.Marshal(obj)
		return out, candidate
	}
	return map[string]Value{}, nil
}

// parseDirect parses the whole reply as a JSON object.
func parseDirect(raw string) (map[string]json.RawMessage, bool) {
	return parseObject(raw)
}

// parseBraceWindow parses the substring between the first '{' and the last
// '}' in the reply. Recovers objects wrapped in code fences or prose.
func parseBraceWindow(raw string) (map[string]json.RawMessage, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	return parseObject(raw[start : end+1])
}

// parseBraceMatch applies a greedy pattern for the widest brace-delimited
// block anywhere in the reply.
func parseBraceMatch(raw string) (map[string]json.RawMessage, bool) {
	block := reBraceBlock.FindString(raw)
	if block == "" {
		return nil, false
	}
	return parseObject(block)
}

func parseObject(s string) (map[string]json.RawMessage, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

// classifyValue maps a raw JSON value onto the tagged variant used by the
// coercion step.
func classifyValue(raw json.RawMessage) Value {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return Value{Kind: KindOther}
	}
	switch t := v.(type) {
	case nil:
		return Value{Kind: KindNull}
	case string:
		return Value{Kind: KindText, Text: t}
	case json.Number:
		return Value{Kind: KindNumber, Number: t}
	default:
		return Value{Kind: KindOther}
	}
}
