package biography

import "encoding/json"

// recordSchema is the JSON Schema the model's response must satisfy. Only
// the name field is required; everything else may be null or empty when the
// source entry does not mention it.
const recordSchema = `{
  "type": "object",
  "properties": {
    "name": {
      "type": "string",
      "description": "Full name of the subject as written in the entry"
    },
    "birth_date": {
      "type": ["string", "null"],
      "description": "Birth date as given in the source, usually Hijri"
    },
    "death_date": {
      "type": ["string", "null"],
      "description": "Death date as given in the source, usually Hijri"
    },
    "profession": {
      "type": ["string", "null"],
      "description": "Occupation or scholarly role, e.g. muhaddith, faqih, poet"
    },
    "birthplace": {
      "type": ["string", "null"],
      "description": "Place of birth if mentioned"
    },
    "era": {
      "type": ["string", "null"],
      "description": "Dynasty or period the subject lived under, if mentioned"
    },
    "known_works": {
      "type": "array",
      "items": {"type": "string"},
      "description": "Titles attributed to the subject, in order of appearance"
    },
    "aliases": {
      "type": "array",
      "items": {"type": "string"},
      "description": "Kunyas, laqabs, and nisbas the entry uses for the subject"
    },
    "teachers": {
      "type": "array",
      "items": {"type": "string"},
      "description": "Named teachers the subject studied under"
    },
    "students": {
      "type": "array",
      "items": {"type": "string"},
      "description": "Named students who transmitted from the subject"
    },
    "scholarly_evaluations": {
      "type": "array",
      "items": {"type": "string"},
      "description": "Verbatim evaluations of the subject quoted in the entry"
    }
  },
  "required": ["name"],
  "additionalProperties": false
}`

// ResponseFormat returns the json_schema response-format payload sent with
// chat requests, in the shape OpenRouter and OpenAI both accept.
func ResponseFormat() json.RawMessage {
	wrapper := map[string]any{
		"name":   "author_record",
		"strict": true,
		"schema": json.RawMessage(recordSchema),
	}
	raw, err := json.Marshal(wrapper)
	if err != nil {
		panic(err)
	}
	return raw
}

// Schema returns the bare record schema used for local validation of model
// output before it is accepted into the index.
func Schema() json.RawMessage {
	return json.RawMessage(recordSchema)
}
