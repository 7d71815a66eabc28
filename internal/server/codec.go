package server

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/bills-extractor/internal/entity"
)

// toStruct converts any JSON-tagged value to a protobuf Struct by way of its JSON form.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

// DecodeBill is the client-side inverse of GetBill.
func DecodeBill(s *structpb.Struct) (*entity.BillDocument, error) {
	if s == nil {
		return nil, fmt.Errorf("decode bill: empty struct")
	}
	b, err := s.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("decode bill: %w", err)
	}
	doc := entity.NewBillDocument()
	if err := json.Unmarshal(b, doc); err != nil {
		return nil, fmt.Errorf("decode bill: %w", err)
	}
	return doc, nil
}

func DecodeStatistics(s *structpb.Struct) (*entity.BillStatistics, error) {
	b, err := s.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("decode statistics: %w", err)
	}
	var st entity.BillStatistics
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, fmt.Errorf("decode statistics: %w", err)
	}
	return &st, nil
}
