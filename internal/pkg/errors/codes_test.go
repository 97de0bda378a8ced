package errors

import "testing"

func TestTaxonomyConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantCode   string
		wantStatus int
	}{
		{"MalformedPayload", ErrMalformedPayload("bad xml"), CodeMalformedPayload, 400},
		{"UnknownVtn", ErrUnknownVtn("vtn_9"), CodeUnknownVtn, 400},
		{"StaleModification", ErrStaleModification("e_1"), CodeStaleModification, 403},
		{"TargetingMismatch", ErrTargetingMismatch("e_1"), CodeTargetingMismatch, 403},
		{"NoUsableSignal", ErrNoUsableSignal("e_1"), CodeNoUsableSignal, 403},
		{"MarketContextMismatch", ErrMarketContextMismatch("e_1"), CodeMarketContextMismatch, 405},
		{"TransportError", ErrTransportError(nil), CodeTransportError, 502},
		{"StoreError", ErrStoreError(nil), CodeStoreError, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", tt.err.Code, tt.wantCode)
			}
			if tt.err.HTTPStatus != tt.wantStatus {
				t.Errorf("HTTPStatus = %d, want %d", tt.err.HTTPStatus, tt.wantStatus)
			}
		})
	}
}
