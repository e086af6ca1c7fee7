package providers

import (
	"encoding/json"
	"testing"
)

func TestParseStructuredJSON_PlainObject(t *testing.T) {
	got, err := ParseStructuredJSON(`{"name":"أحمد بن علي","death_date":"1200"}`)
	if err != nil {
		t.Fatalf("ParseStructuredJSON() error = %v", err)
	}

	var parsed map[string]any
	if err := json.Unmarshal(got, &parsed); err != nil {
		t.Fatalf("failed to unmarshal parsed JSON: %v", err)
	}
	if parsed["name"] != "أحمد بن علي" {
		t.Fatalf("unexpected name: %#v", parsed["name"])
	}
}

func TestParseStructuredJSON_StripsCodeFence(t *testing.T) {
	content := "```json\n{\"ok\":true}\n```"
	got, err := ParseStructuredJSON(content)
	if err != nil {
		t.Fatalf("ParseStructuredJSON() error = %v", err)
	}

	var parsed map[string]any
	if err := json.Unmarshal(got, &parsed); err != nil {
		t.Fatalf("failed to unmarshal parsed JSON: %v", err)
	}
	if ok, _ := parsed["ok"].(bool); !ok {
		t.Fatalf("expected ok=true, got %#v", parsed)
	}
}

func TestParseStructuredJSON_ExtractsEmbeddedObject(t *testing.T) {
	content := "Here is the requested record:\n{\"name\":\"Yusuf\"}\nLet me know if you need more."
	got, err := ParseStructuredJSON(content)
	if err != nil {
		t.Fatalf("ParseStructuredJSON() error = %v", err)
	}
	if string(got) != `{"name":"Yusuf"}` {
		t.Fatalf("unexpected extraction: %s", string(got))
	}
}

func TestParseStructuredJSON_RejectsProse(t *testing.T) {
	if _, err := ParseStructuredJSON("I could not find any biographical data."); err == nil {
		t.Fatal("expected error for non-JSON content")
	}
	if _, err := ParseStructuredJSON(""); err == nil {
		t.Fatal("expected error for empty content")
	}
}

func TestValidateStructuredJSON_WrappedSchema(t *testing.T) {
	schema := json.RawMessage(`{
		"name":"author_record",
		"strict":true,
		"schema":{
			"type":"object",
			"properties":{
				"name":{"type":"string"},
				"death_date":{"type":["string","null"]}
			},
			"required":["name"],
			"additionalProperties":false
		}
	}`)

	valid := json.RawMessage(`{"name":"Ahmad","death_date":null}`)
	if err := ValidateStructuredJSON(schema, valid); err != nil {
		t.Fatalf("ValidateStructuredJSON(valid) error = %v", err)
	}

	missing := json.RawMessage(`{"death_date":"1200"}`)
	if err := ValidateStructuredJSON(schema, missing); err == nil {
		t.Fatal("ValidateStructuredJSON(missing required) expected error, got nil")
	}

	wrongType := json.RawMessage(`{"name":42}`)
	if err := ValidateStructuredJSON(schema, wrongType); err == nil {
		t.Fatal("ValidateStructuredJSON(wrong type) expected error, got nil")
	}
}
