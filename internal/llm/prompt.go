package llm

import (
	"encoding/json"
	"strings"
)

// BuildPrompt composes the extraction instruction for the generation model.
// It embeds the document text and a JSON description of every declared field,
// followed by the output contract the model must obey. Deterministic for a
// given input; no side effects.
func BuildPrompt(rawText string, fields FieldSpecSet) string {
	desc := fieldsDescription(fields)

	rules := []string{
		"1. Output MUST be ONLY VALID JSON. The first character must be '{' and the last '}'.",
		"2. Use ONLY the keys provided.",
		"3. Extract values EXACTLY as written in the text.",
		"4. For numbers, REMOVE spaces but keep all digits.",
		"5. Missing fields -> use null.",
		"6. NO explanations, NO markdown, NO comments, NO extra text.",
		"7. IF YOU OUTPUT ANYTHING OUTSIDE JSON, YOU FAIL.",
	}

	var b strings.Builder
	b.WriteString("You are an expert in parsing documents.\n")
	b.WriteString("Extract the requested fields EXACTLY as they appear - NO CORRECTIONS, NO INFERENCE.\n\n")
	b.WriteString("TEXT:\n")
	b.WriteString(rawText)
	b.WriteString("\n\nFIELDS TO EXTRACT (JSON):\n")
	b.WriteString(desc)
	b.WriteString("\n\nSTRICT RULES:\n")
	b.WriteString(strings.Join(rules, "\n"))
	b.WriteString("\n\nReturn ONLY the JSON object:\n")
	return b.String()
}

// fieldsDescription renders the declared fields as an indented JSON object,
// keys in declaration order.
func fieldsDescription(fields FieldSpecSet) string {
	var b strings.Builder
	b.WriteString("{\n")
	for i, f := range fields {
		kb, _ := json.Marshal(f.Key)
		vb, _ := json.MarshalIndent(struct {
			Type        FieldType `json:"type"`
			DisplayName string    `json:"display_name"`
		}{f.Type, f.DisplayName}, "  ", "  ")
		b.WriteString("  ")
		b.Write(kb)
		b.WriteString(": ")
		b.Write(vb)
		if i < len(fields)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteByte('}')
	return b.String()
}
