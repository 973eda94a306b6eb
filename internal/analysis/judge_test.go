package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// newStubOracle returns a judge backed by a test server that always answers
// with the given verdict content.
func newStubOracle(t *testing.T, content string) (*OracleJudge, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	judge := NewOracleJudge(OracleConfig{APIKey: "test-key", BaseURL: srv.URL})
	return judge, srv
}

func TestOracleJudge_Consistent(t *testing.T) {
	judge, srv := newStubOracle(t, `{"is_inconsistent": false}`)
	defer srv.Close()

	j := judge.Judge(context.Background(), "text a", "text b", "", "")
	if j.Outcome != OutcomeConsistent {
		t.Errorf("expected OutcomeConsistent, got %v", j.Outcome)
	}
	if j.Verdict != nil {
		t.Error("consistent judgment must carry no verdict")
	}
}

func TestOracleJudge_DataMismatch(t *testing.T) {
	judge, srv := newStubOracle(t, `{
		"is_inconsistent": true,
		"inconsistency_type": "DATA_MISMATCH",
		"severity": "HIGH",
		"description": "Delivery times differ",
		"explanation": "5 vs 10 business days",
		"recommendation": "Align the delivery terms",
		"source_excerpt": "5 business days",
		"target_excerpt": "10 business days",
		"source_start_offset": 16,
		"source_end_offset": 31,
		"target_start_offset": 16,
		"target_end_offset": 32
	}`)
	defer srv.Close()

	j := judge.Judge(context.Background(),
		"Delivery within 5 business days.",
		"Delivery within 10 business days.",
		"", "")

	if j.Outcome != OutcomeInconsistent {
		t.Fatalf("expected OutcomeInconsistent, got %v", j.Outcome)
	}
	if j.Verdict.Type != TypeDataMismatch {
		t.Errorf("expected DATA_MISMATCH, got %s", j.Verdict.Type)
	}
	if j.Verdict.Severity != SeverityHigh {
		t.Errorf("expected HIGH, got %s", j.Verdict.Severity)
	}
	if j.Verdict.SourceLocation.StartOffset != 16 || j.Verdict.SourceLocation.EndOffset != 31 {
		t.Errorf("unexpected source location: %+v", j.Verdict.SourceLocation)
	}
}

func TestOracleJudge_DefaultsForMissingFields(t *testing.T) {
	judge, srv := newStubOracle(t, `{"is_inconsistent": true}`)
	defer srv.Close()

	textA := "Source paragraph text."
	textB := "Target paragraph text."

	j := judge.Judge(context.Background(), textA, textB, "", "")
	if j.Outcome != OutcomeInconsistent {
		t.Fatalf("expected OutcomeInconsistent, got %v", j.Outcome)
	}

	v := j.Verdict
	if v.Type != TypeContradiction {
		t.Errorf("expected default type CONTRADICTION, got %s", v.Type)
	}
	if v.Severity != SeverityMedium {
		t.Errorf("expected default severity MEDIUM, got %s", v.Severity)
	}
	if v.SourceExcerpt != textA {
		t.Errorf("expected excerpt to default to input, got %q", v.SourceExcerpt)
	}
	if v.SourceLocation.StartOffset != 0 || v.SourceLocation.EndOffset != len(textA) {
		t.Errorf("expected source location [0, %d], got %+v", len(textA), v.SourceLocation)
	}
	if v.TargetLocation.StartOffset != 0 || v.TargetLocation.EndOffset != len(textB) {
		t.Errorf("expected target location [0, %d], got %+v", len(textB), v.TargetLocation)
	}
}

func TestOracleJudge_ExcerptDefaultTruncates(t *testing.T) {
	judge, srv := newStubOracle(t, `{"is_inconsistent": true}`)
	defer srv.Close()

	long := strings.Repeat("x", 450)

	j := judge.Judge(context.Background(), long, "short", "", "")
	if j.Outcome != OutcomeInconsistent {
		t.Fatalf("expected OutcomeInconsistent, got %v", j.Outcome)
	}
	if len(j.Verdict.SourceExcerpt) != defaultExcerptLen {
		t.Errorf("expected %d-char default excerpt, got %d", defaultExcerptLen, len(j.Verdict.SourceExcerpt))
	}
}

func TestOracleJudge_CoercesUnknownEnumTokens(t *testing.T) {
	judge, srv := newStubOracle(t, `{
		"is_inconsistent": true,
		"inconsistency_type": "SOMETHING_ELSE",
		"severity": "catastrophic"
	}`)
	defer srv.Close()

	j := judge.Judge(context.Background(), "a", "b", "", "")
	if j.Outcome != OutcomeInconsistent {
		t.Fatalf("expected OutcomeInconsistent, got %v", j.Outcome)
	}
	if j.Verdict.Type != TypeContradiction {
		t.Errorf("expected coercion to CONTRADICTION, got %s", j.Verdict.Type)
	}
	if j.Verdict.Severity != SeverityMedium {
		t.Errorf("expected coercion to MEDIUM, got %s", j.Verdict.Severity)
	}
}

func TestOracleJudge_CaseInsensitiveEnums(t *testing.T) {
	judge, srv := newStubOracle(t, `{
		"is_inconsistent": true,
		"inconsistency_type": "data_mismatch",
		"severity": "low"
	}`)
	defer srv.Close()

	j := judge.Judge(context.Background(), "a", "b", "", "")
	if j.Verdict.Type != TypeDataMismatch {
		t.Errorf("expected DATA_MISMATCH, got %s", j.Verdict.Type)
	}
	if j.Verdict.Severity != SeverityLow {
		t.Errorf("expected LOW, got %s", j.Verdict.Severity)
	}
}

func TestOracleJudge_MalformedOutputIsUndetermined(t *testing.T) {
	judge, srv := newStubOracle(t, `the passages look fine to me`)
	defer srv.Close()

	j := judge.Judge(context.Background(), "a", "b", "", "")
	if j.Outcome != OutcomeUndetermined {
		t.Errorf("expected OutcomeUndetermined for malformed output, got %v", j.Outcome)
	}
	if j.Reason == "" {
		t.Error("undetermined judgment must carry a reason")
	}
}

func TestOracleJudge_TransportFailureIsUndetermined(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	judge := NewOracleJudge(OracleConfig{APIKey: "test-key", BaseURL: srv.URL})

	j := judge.Judge(context.Background(), "a", "b", "", "")
	if j.Outcome != OutcomeUndetermined {
		t.Errorf("expected OutcomeUndetermined for transport failure, got %v", j.Outcome)
	}
}

func TestOracleJudge_PromptCarriesTitlesAndTexts(t *testing.T) {
	var prompt string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Messages) == 2 {
			prompt = req.Messages[1].Content
		}
		if req.ResponseFormat.Type != "json_object" {
			t.Errorf("expected json_object response format, got %q", req.ResponseFormat.Type)
		}
		fmt.Fprint(w, `{"choices":[{"message":{"content":"{\"is_inconsistent\": false}"}}]}`)
	}))
	defer srv.Close()

	judge := NewOracleJudge(OracleConfig{APIKey: "test-key", BaseURL: srv.URL})
	judge.Judge(context.Background(), "alpha text", "beta text", "Contract v1", "Contract v2")

	for _, want := range []string{
		"Document A (Contract v1)",
		"Document B (Contract v2)",
		"alpha text",
		"beta text",
		"CONTRADICTION, MISSING_REQUIREMENT, CONFLICTING_DEFINITION, INCONSISTENT_SCOPE, DATA_MISMATCH",
		"CRITICAL, HIGH, MEDIUM, LOW",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestParseOracleVerdict_OutOfRangeOffsetsPassThrough(t *testing.T) {
	content := `{
		"is_inconsistent": true,
		"source_start_offset": -5,
		"source_end_offset": 9000
	}`

	j, err := parseOracleVerdict(content, "short text", "other text")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if j.Verdict.SourceLocation.StartOffset != -5 || j.Verdict.SourceLocation.EndOffset != 9000 {
		t.Errorf("offsets are advisory and must pass through, got %+v", j.Verdict.SourceLocation)
	}
}
