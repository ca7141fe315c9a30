// Shelfmark - Book Catalog and Library Management API
// Copyright 2026 The Shelfmark Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfmark/shelfmark

package validation

import (
	"errors"
	"testing"

	"github.com/shelfmark/shelfmark/internal/models"
)

func TestValidateStructRegisterRequest(t *testing.T) {
	tests := []struct {
		name       string
		req        models.RegisterRequest
		wantFields []string
	}{
		{
			name: "valid request",
			req:  models.RegisterRequest{Email: "reader@example.com", Password: "password123"},
		},
		{
			name:       "missing email",
			req:        models.RegisterRequest{Password: "password123"},
			wantFields: []string{"email"},
		},
		{
			name:       "malformed email",
			req:        models.RegisterRequest{Email: "not-an-email", Password: "password123"},
			wantFields: []string{"email"},
		},
		{
			name:       "short password",
			req:        models.RegisterRequest{Email: "reader@example.com", Password: "short"},
			wantFields: []string{"password"},
		},
		{
			name:       "both invalid",
			req:        models.RegisterRequest{Email: "nope", Password: "x"},
			wantFields: []string{"email", "password"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.req)
			if len(tt.wantFields) == 0 {
				if err != nil {
					t.Fatalf("ValidateStruct() unexpected error: %v", err)
				}
				return
			}

			var reqErr *RequestError
			if !errors.As(err, &reqErr) {
				t.Fatalf("ValidateStruct() error = %T, want *RequestError", err)
			}
			if len(reqErr.Fields) != len(tt.wantFields) {
				t.Fatalf("got %d field errors, want %d: %v", len(reqErr.Fields), len(tt.wantFields), reqErr)
			}
			for i, want := range tt.wantFields {
				if reqErr.Fields[i].Field != want {
					t.Errorf("field[%d] = %q, want %q", i, reqErr.Fields[i].Field, want)
				}
			}
		})
	}
}

func TestValidateStructOTPCode(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantErr bool
	}{
		{name: "six digits", code: "123456"},
		{name: "too short", code: "12345", wantErr: true},
		{name: "letters", code: "abcdef", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := models.Verify2FARequest{TempToken: "token", OTPCode: tt.code}
			err := ValidateStruct(req)
			if tt.wantErr && err == nil {
				t.Error("ValidateStruct() expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidateStruct() unexpected error: %v", err)
			}
		})
	}
}

func TestToAPIError(t *testing.T) {
	err := ValidateStruct(models.RegisterRequest{})
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("ValidateStruct() error = %T, want *RequestError", err)
	}

	apiErr := reqErr.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("ToAPIError() code = %q, want VALIDATION_ERROR", apiErr.Code)
	}
	if apiErr.Details == nil {
		t.Error("ToAPIError() details are nil")
	}
}
