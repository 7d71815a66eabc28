package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/bills-extractor/constants"
	"github.com/joseph-ayodele/bills-extractor/internal/entity"
)

// BuildBillJSONSchema returns the persisted bill document shape as a generic map.
// Every category in categories must be present under items and subtotals.
func BuildBillJSONSchema(categories []string) map[string]any {
	itemProps := map[string]any{}
	subtotalProps := map[string]any{}
	for _, c := range categories {
		itemProps[c] = map[string]any{"type": "array", "items": map[string]any{"$ref": "#/$defs/line_item"}}
		subtotalProps[c] = map[string]any{"type": "number"}
	}

	lineItem := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"item_id":     map[string]any{"type": "string", "pattern": `^[0-9a-f]{40}$`},
			"description": map[string]any{"type": "string", "minLength": 1},
			"amount":      map[string]any{"type": "number", "exclusiveMinimum": 0},
			"category":    map[string]any{"type": "string", "enum": categories},
			"page":        map[string]any{"type": "integer", "minimum": 0},
			"section_raw": nullable("string"),
		},
		"required": []string{"item_id", "description", "amount", "category", "page"},
	}

	payment := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"payment_id":  map[string]any{"type": "string", "pattern": `^[0-9a-f]{40}$`},
			"description": map[string]any{"type": "string"},
			"amount":      nullable("number"),
			"reference":   nullable("string"),
			"mode":        nullable("string"),
			"page":        map[string]any{"type": "integer", "minimum": 0},
		},
		"required": []string{"payment_id", "description", "page"},
	}

	props := map[string]any{
		"upload_id":             map[string]any{"type": "string", "minLength": 1},
		"source_pdf":            map[string]any{"type": "string"},
		"page_count":            map[string]any{"type": "integer", "minimum": 1},
		"schema_version":        map[string]any{"type": "integer", "minimum": 1},
		"status":                map[string]any{"type": "string", "enum": []string{string(constants.BillStatusComplete), string(constants.BillStatusNoItems), string(constants.BillStatusEmpty)}},
		"extraction_date":       map[string]any{"type": "string", "format": "date-time"},
		"extraction_confidence": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
		"header": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"primary_bill_number": nullable("string"),
				"bill_numbers":        map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"billing_date":        nullable("string"),
				"hospital_name":       nullable("string"),
			},
			"required": []string{"bill_numbers"},
		},
		"patient": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name": map[string]any{"type": "string", "minLength": 1},
				"mrn":  nullable("string"),
			},
			"required": []string{"name"},
		},
		"items": map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"properties":           itemProps,
			"required":             categories,
		},
		"payments": map[string]any{"type": "array", "items": map[string]any{"$ref": "#/$defs/payment"}},
		"subtotals": map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"properties":           subtotalProps,
			"required":             categories,
		},
		"summary": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"gross_total":    map[string]any{"type": "number"},
				"amount_paid":    map[string]any{"type": "number"},
				"balance_to_pay": map[string]any{"type": "number"},
			},
		},
		"grand_total":  map[string]any{"type": "number", "minimum": 0},
		"raw_ocr_text": map[string]any{"type": []string{"string", "null"}, "maxLength": constants.RawTextExcerptLimit},
		"created_at":   map[string]any{"type": "string", "format": "date-time"},
		"updated_at":   map[string]any{"type": "string", "format": "date-time"},
	}

	return map[string]any{
		"$schema":              "https://json-schema.org/draft/2020-12/schema",
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required": []string{
			"upload_id", "source_pdf", "page_count", "extraction_date",
			"header", "patient", "items", "payments", "subtotals", "grand_total", "raw_ocr_text",
		},
		"$defs": map[string]any{
			"line_item": lineItem,
			"payment":   payment,
		},
	}
}

func nullable(typ string) map[string]any {
	return map[string]any{"type": []string{typ, "null"}}
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	schema, err := compile(schemaMap)
	if err != nil {
		return err
	}
	return validate(schema, data)
}

func compile(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	if err := compiler.AddResource("bill.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("bill.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

func validate(schema *jsonschema.Schema, data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

var (
	billSchemaOnce sync.Once
	billSchema     *jsonschema.Schema
	billSchemaErr  error
)

// ValidateDocument checks a bill document against the bill schema built for the fixed category set.
func ValidateDocument(doc *entity.BillDocument) error {
	billSchemaOnce.Do(func() {
		billSchema, billSchemaErr = compile(BuildBillJSONSchema(constants.AsStringSlice()))
	})
	if billSchemaErr != nil {
		return billSchemaErr
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	return validate(billSchema, data)
}
