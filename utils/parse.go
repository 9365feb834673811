package utils

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/mainframehq/paymo-go/types"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// ParsePaymentRequest parses and validates a PaymentRequest from JSON.
func ParsePaymentRequest(data []byte) (*types.PaymentRequest, error) {
	var req types.PaymentRequest

	if err := json.Unmarshal(data, &req); err != nil {
		return nil, types.Errorf(types.ErrValidation, "failed to parse payment request: %v", err)
	}

	if err := validate.Struct(&req); err != nil {
		return nil, types.Errorf(types.ErrValidation, "validation failed: %v", err)
	}

	return &req, nil
}

// ValidateStruct runs tag-based validation over any request type.
func ValidateStruct(v interface{}) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// SerializeRecord converts a TransactionRecord to JSON.
func SerializeRecord(rec *types.TransactionRecord) ([]byte, error) {
	return json.Marshal(rec)
}

// ParseRecord parses a TransactionRecord from JSON.
func ParseRecord(data []byte) (*types.TransactionRecord, error) {
	var rec types.TransactionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, types.Errorf(types.ErrStoreError, "failed to parse stored record: %v", err)
	}
	return &rec, nil
}
