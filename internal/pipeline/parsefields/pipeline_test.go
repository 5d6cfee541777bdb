package parsefields

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/SelahattinNazli/OCR-Service/internal/common"
	"github.com/SelahattinNazli/OCR-Service/internal/llm"
	"github.com/SelahattinNazli/OCR-Service/internal/repository"
)

type fakeGenerator struct {
	reply string
	err   error
	calls int
}

func (f *fakeGenerator) Generate(_ context.Context, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type fakeHistory struct {
	started      bool
	finishedOK   bool
	finishedFail bool
	rawReply     string
	recordJSON   string
	fallbackUsed bool
	schemaValid  bool
	message      string
}

func (h *fakeHistory) Start(_ context.Context, _, _ int) (uuid.UUID, error) {
	h.started = true
	return uuid.New(), nil
}

func (h *fakeHistory) FinishSuccess(_ context.Context, _ uuid.UUID, rawReply, recordJSON []byte, fallbackUsed, schemaValid bool) error {
	h.finishedOK = true
	h.rawReply = string(rawReply)
	h.recordJSON = string(recordJSON)
	h.fallbackUsed = fallbackUsed
	h.schemaValid = schemaValid
	return nil
}

func (h *fakeHistory) FinishFailure(_ context.Context, _ uuid.UUID, message string) error {
	h.finishedFail = true
	h.message = message
	return nil
}

func (h *fakeHistory) List(_ context.Context, _ int) ([]repository.Extraction, error) {
	return nil, nil
}

var taxFields = llm.FieldSpecSet{
	{Key: "taxId", Type: llm.FieldInteger, DisplayName: "Tax ID"},
}

func newTestPipeline(gen llm.Generator) *Pipeline {
	return NewPipeline(nil, Config{FallbackKeyword: "Tax"}, gen, nil)
}

func TestRun_WellFormedReply(t *testing.T) {
	fields := llm.FieldSpecSet{
		{Key: "name", Type: llm.FieldString, DisplayName: "Company Name"},
		{Key: "taxId", Type: llm.FieldInteger, DisplayName: "Tax ID"},
	}
	gen := &fakeGenerator{reply: `{"name": "  Acme Ltd\n", "taxId": "12 34"}`}
	p := newTestPipeline(gen)

	rec, err := p.Run(context.Background(), "some document", fields)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	out, _ := json.Marshal(rec)
	if string(out) != `{"name":"Acme Ltd","taxId":1234}` {
		t.Fatalf("record = %s", out)
	}
	if gen.calls != 1 {
		t.Fatalf("generator calls = %d", gen.calls)
	}
}

func TestRun_FencedReply(t *testing.T) {
	gen := &fakeGenerator{reply: "```json\n{\"taxId\": \"12 34\"}\n```"}
	p := newTestPipeline(gen)

	rec, err := p.Run(context.Background(), "doc", taxFields)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if got := rec.Get("taxId"); got != int64(1234) {
		t.Fatalf("taxId = %v", got)
	}
}

func TestRun_UnparsableReplyTriggersFallback(t *testing.T) {
	gen := &fakeGenerator{reply: "I'm sorry, I can't produce structured output for this."}
	p := newTestPipeline(gen)

	rec, err := p.Run(context.Background(), "VERGİ NO: 1234567890", taxFields)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if got := rec.Get("taxId"); got != int64(1234567890) {
		t.Fatalf("taxId = %v", got)
	}
}

func TestRun_FallbackSkippedWhenAnyFieldSet(t *testing.T) {
	fields := llm.FieldSpecSet{
		{Key: "name", Type: llm.FieldString, DisplayName: "Company Name"},
		{Key: "taxId", Type: llm.FieldInteger, DisplayName: "Tax ID"},
	}
	// Model found the name but not the tax id; the raw text holds a digit
	// run the fallback would otherwise pick up.
	gen := &fakeGenerator{reply: `{"name": "Acme", "taxId": null}`}
	p := newTestPipeline(gen)

	rec, err := p.Run(context.Background(), "ACME VERGİ NO: 1234567890", fields)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if got := rec.Get("taxId"); got != nil {
		t.Fatalf("fallback must not fire on a partial record, taxId = %v", got)
	}
	if got := rec.Get("name"); got != "Acme" {
		t.Fatalf("name = %v", got)
	}
}

func TestRun_GeneratorFailureSurfaces(t *testing.T) {
	cause := errors.New("connection refused")
	gen := &fakeGenerator{err: &common.GenerationAPIError{Cause: cause}}
	p := newTestPipeline(gen)

	_, err := p.Run(context.Background(), "doc", taxFields)
	if err == nil {
		t.Fatal("expected an error")
	}
	var apiErr *common.GenerationAPIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T", err)
	}
	if !strings.HasPrefix(err.Error(), "generation API error:") {
		t.Fatalf("error text = %q", err)
	}
}

func TestRun_InvalidFieldSet(t *testing.T) {
	gen := &fakeGenerator{reply: `{}`}
	p := newTestPipeline(gen)

	_, err := p.Run(context.Background(), "doc", llm.FieldSpecSet{})
	if err == nil {
		t.Fatal("expected an error for empty field set")
	}
	if gen.calls != 0 {
		t.Fatal("generator must not be called for invalid input")
	}
}

func TestRun_RecordsHistory(t *testing.T) {
	gen := &fakeGenerator{reply: `{"taxId": 99}`}
	hist := &fakeHistory{}
	p := NewPipeline(nil, Config{FallbackKeyword: "Tax"}, gen, hist)

	if _, err := p.Run(context.Background(), "doc", taxFields); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if !hist.started || !hist.finishedOK {
		t.Fatalf("history not recorded: %+v", hist)
	}
	if hist.rawReply != `{"taxId": 99}` {
		t.Fatalf("raw reply = %q", hist.rawReply)
	}
	if hist.recordJSON != `{"taxId":99}` {
		t.Fatalf("record json = %q", hist.recordJSON)
	}
	if !hist.schemaValid {
		t.Fatal("reply matches the schema, expected schema_valid")
	}
	if hist.fallbackUsed {
		t.Fatal("fallback did not run")
	}
}

func TestRun_RecordsFailure(t *testing.T) {
	gen := &fakeGenerator{err: &common.GenerationAPIError{Cause: errors.New("timeout")}}
	hist := &fakeHistory{}
	p := NewPipeline(nil, Config{FallbackKeyword: "Tax"}, gen, hist)

	if _, err := p.Run(context.Background(), "doc", taxFields); err == nil {
		t.Fatal("expected an error")
	}
	if !hist.finishedFail {
		t.Fatal("failure not recorded in history")
	}
	if !strings.Contains(hist.message, "generation API error") {
		t.Fatalf("message = %q", hist.message)
	}
}

func TestRun_SchemaInvalidStillCoerces(t *testing.T) {
	// Extra key violates the schema; coercion still maps the declared key.
	gen := &fakeGenerator{reply: `{"taxId": 7, "surprise": true}`}
	hist := &fakeHistory{}
	p := NewPipeline(nil, Config{FallbackKeyword: "Tax"}, gen, hist)

	rec, err := p.Run(context.Background(), "doc", taxFields)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if got := rec.Get("taxId"); got != int64(7) {
		t.Fatalf("taxId = %v", got)
	}
	if hist.schemaValid {
		t.Fatal("schema_valid should be false for an out-of-contract reply")
	}
}
