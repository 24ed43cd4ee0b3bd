// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

package validation

import (
	"strings"
	"testing"
)

type interactionRequest struct {
	ProductID string `validate:"required"`
	Type      string `validate:"required,interaction_type"`
	Limit     int    `validate:"min=1,max=100"`
}

func TestValidateStruct_Valid(t *testing.T) {
	t.Parallel()

	req := interactionRequest{ProductID: "p1", Type: "upvote", Limit: 20}
	if err := ValidateStruct(&req); err != nil {
		t.Errorf("ValidateStruct() = %v, want nil", err)
	}
}

func TestValidateStruct_FieldErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		req       interactionRequest
		wantField string
	}{
		{"missing product", interactionRequest{Type: "view", Limit: 1}, "ProductID"},
		{"unknown interaction type", interactionRequest{ProductID: "p1", Type: "hover", Limit: 1}, "Type"},
		{"limit too large", interactionRequest{ProductID: "p1", Type: "view", Limit: 500}, "Limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateStruct(&tt.req)
			if err == nil {
				t.Fatal("ValidateStruct() = nil, want error")
			}
			if len(err.Errors()) != 1 || err.Errors()[0].Field() != tt.wantField {
				t.Errorf("errors = %v, want one failure on %s", err.Errors(), tt.wantField)
			}
		})
	}
}

func TestValidateStruct_CustomValidators(t *testing.T) {
	t.Parallel()

	type req struct {
		Action string `validate:"omitempty,feedback_action"`
		Blend  string `validate:"blend"`
	}

	if err := ValidateStruct(&req{Action: "like", Blend: "discovery"}); err != nil {
		t.Errorf("valid custom fields rejected: %v", err)
	}
	if err := ValidateStruct(&req{Blend: ""}); err != nil {
		t.Errorf("empty blend should pass: %v", err)
	}
	if err := ValidateStruct(&req{Action: "meh", Blend: "standard"}); err == nil {
		t.Error("unknown feedback action accepted")
	}
	if err := ValidateStruct(&req{Blend: "chaotic"}); err == nil {
		t.Error("unknown blend accepted")
	}
}

func TestToAPIError_MultipleFailures(t *testing.T) {
	t.Parallel()

	err := ValidateStruct(&interactionRequest{Limit: 0})
	if err == nil {
		t.Fatal("ValidateStruct() = nil, want errors")
	}

	apiErr := err.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("code = %s, want VALIDATION_ERROR", apiErr.Code)
	}
	if !strings.Contains(apiErr.Message, "ProductID") {
		t.Errorf("message %q should mention ProductID", apiErr.Message)
	}
	if _, ok := apiErr.Details["fields"]; !ok {
		t.Error("multi-failure details should list fields")
	}
}
