package llm

import (
	"strconv"
	"strings"
)

const trimCutset = " \t\r\n"

// CoerceFields maps a recovered mapping onto the declared field set. Every
// declared key gets exactly one entry; keys absent from the mapping and
// values that cannot be coerced degrade to nil. Never fails.
func CoerceFields(mapping map[string]Value, fields FieldSpecSet) Record {
	rec := NewRecord(fields)
	for _, f := range fields {
		v, ok := mapping[f.Key]
		if !ok {
			continue
		}
		switch f.Type {
		case FieldString:
			rec.Set(f.Key, coerceString(v))
		case FieldInteger:
			rec.Set(f.Key, coerceInteger(v))
		}
	}
	return rec
}

func coerceString(v Value) any {
	switch v.Kind {
	case KindText:
		return strings.Trim(v.Text, trimCutset)
	case KindNumber:
		// Whole numbers survive as integers; anything else is outside the
		// record's value domain and degrades to nil.
		if n, err := v.Number.Int64(); err == nil {
			return n
		}
		return nil
	default:
		return nil
	}
}

func coerceInteger(v Value) any {
	switch v.Kind {
	case KindNumber:
		if n, err := v.Number.Int64(); err == nil {
			return n
		}
		return nil
	case KindText:
		digits := keepDigits(v.Text)
		if digits == "" {
			return nil
		}
		n, err := strconv.ParseInt(digits, 10, 64)
		if err != nil {
			return nil
		}
		return n
	default:
		return nil
	}
}

// keepDigits removes every non-digit character.
func keepDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}
