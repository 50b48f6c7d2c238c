package pipeline

import (
	"encoding/json"
	"fmt"

	apperrors "github.com/relaydesk/relaydesk-backend/internal/errors"
	"github.com/relaydesk/relaydesk-backend/internal/models"
)

// DocumentType classifies what kind of bill the parsed data describes
type DocumentType string

// Known document types
const (
	DocumentElectricity  DocumentType = "electricity"
	DocumentGas          DocumentType = "gas"
	DocumentMeterReading DocumentType = "meter_reading"
	DocumentUnknown      DocumentType = "unknown"
)

// parsedBill is the subset of extraction output the pipeline acts on
type parsedBill struct {
	MPRN           string `json:"mprn"`
	MCCType        string `json:"mcc_type"`
	DGType         string `json:"dg_type"`
	GPRN           string `json:"gprn"`
	Phone          string `json:"phone"`
	IsMeterReading bool   `json:"is_meter_reading"`
}

// decodeParsedBill decodes the stored parsed_data JSON
func decodeParsedBill(parsedData []byte) (*parsedBill, error) {
	var bill parsedBill
	if err := json.Unmarshal(parsedData, &bill); err != nil {
		return nil, fmt.Errorf("unreadable parsed data: %w", apperrors.ErrInvalidInput)
	}
	return &bill, nil
}

// classify maps parsed fields to a document type. The explicit
// meter-reading flag wins over meter identifiers, since a reading
// submission also carries the meter's MPRN or GPRN.
func (b *parsedBill) classify() DocumentType {
	switch {
	case b.IsMeterReading:
		return DocumentMeterReading
	case b.MPRN != "" || b.MCCType != "" || b.DGType != "":
		return DocumentElectricity
	case b.GPRN != "":
		return DocumentGas
	}
	return DocumentUnknown
}

// APIRequestSample is the billing request rendered for operator
// inspection before an actual submission. It mirrors SubmitBillRequest
// minus the internal identifiers.
type APIRequestSample struct {
	DocumentType DocumentType    `json:"document_type"`
	Phone        string          `json:"phone,omitempty"`
	MPRN         string          `json:"mprn,omitempty"`
	MCCType      string          `json:"mcc_type,omitempty"`
	DGType       string          `json:"dg_type,omitempty"`
	GPRN         string          `json:"gprn,omitempty"`
	ParsedData   json.RawMessage `json:"parsed_data"`
}

// RenderAPIRequestSample projects parsed data into the request the
// billing submission would send. customerPhone, when present, takes
// precedence over any phone the extraction pulled off the bill.
// Pure projection: no network, no store access.
func RenderAPIRequestSample(parsedData []byte, customerPhone string) (*APIRequestSample, error) {
	if len(parsedData) == 0 {
		return nil, apperrors.ErrParseRequired
	}
	bill, err := decodeParsedBill(parsedData)
	if err != nil {
		return nil, err
	}

	phone := bill.Phone
	if customerPhone != "" {
		phone = customerPhone
	}

	return &APIRequestSample{
		DocumentType: bill.classify(),
		Phone:        phone,
		MPRN:         bill.MPRN,
		MCCType:      bill.MCCType,
		DGType:       bill.DGType,
		GPRN:         bill.GPRN,
		ParsedData:   json.RawMessage(parsedData),
	}, nil
}

// StatusBadge maps a submission status to the badge the UI renders
func StatusBadge(status models.SubmissionStatus) string {
	switch status {
	case models.SubmissionPending:
		return "spinner"
	case models.SubmissionCompleted:
		return "check"
	case models.SubmissionFailed:
		return "cross"
	}
	return ""
}
