package rpc

import (
	"encoding/json"
	"testing"
)

// TestClassifierCoverage covers property 6.
func TestClassifierCoverage(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantKind Kind
	}{
		{"id + result is a response", `{"jsonrpc":"2.0","id":"1","result":{}}`, KindResponse},
		{"id + error is a response", `{"jsonrpc":"2.0","id":"1","error":{"code":-32601,"message":"nope"}}`, KindResponse},
		{"method + no id is a notification", `{"jsonrpc":"2.0","method":"textDocument/publishDiagnostics","params":{}}`, KindNotification},
		{"array is a batch", `[{"jsonrpc":"2.0","id":"1","result":{}},{"jsonrpc":"2.0","method":"x"}]`, KindBatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			incoming, err := Classify(json.RawMessage(tt.raw))
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if incoming.Kind != tt.wantKind {
				t.Errorf("kind = %v, want %v", incoming.Kind, tt.wantKind)
			}
		})
	}
}

func TestClassifyServerRequestDowngradesToNotification(t *testing.T) {
	raw := json.RawMessage(`{"jsonrpc":"2.0","id":"srv-1","method":"workspace/configuration","params":{}}`)
	incoming, err := Classify(raw)
	if err != nil {
		t.Fatal(err)
	}
	if incoming.Kind != KindNotification {
		t.Fatalf("kind = %v, want KindNotification", incoming.Kind)
	}
	if incoming.ID != "srv-1" {
		t.Errorf("ID = %q, want srv-1", incoming.ID)
	}
	if incoming.Notification.Method != "workspace/configuration" {
		t.Errorf("method = %q", incoming.Notification.Method)
	}
}

func TestClassifyRejectsResponseWithBothResultAndError(t *testing.T) {
	raw := json.RawMessage(`{"jsonrpc":"2.0","id":"1","result":{},"error":{"code":1,"message":"x"}}`)
	if _, err := Classify(raw); err == nil {
		t.Fatal("expected error for response with both result and error")
	}
}

func TestClassifyRejectsResponseWithNeitherResultNorError(t *testing.T) {
	raw := json.RawMessage(`{"jsonrpc":"2.0","id":"1"}`)
	if _, err := Classify(raw); err == nil {
		t.Fatal("expected error for response with neither result nor error")
	}
}

func TestClassifyRejectsNestedBatch(t *testing.T) {
	raw := json.RawMessage(`[[{"jsonrpc":"2.0","method":"x"}]]`)
	if _, err := Classify(raw); err == nil {
		t.Fatal("expected error for nested batch")
	}
}

func TestClassifyRejectsUnrecognizedShape(t *testing.T) {
	raw := json.RawMessage(`{"jsonrpc":"2.0","foo":"bar"}`)
	if _, err := Classify(raw); err == nil {
		t.Fatal("expected error for object with neither id nor method")
	}
}

func TestClassifyAcceptsNumericID(t *testing.T) {
	raw := json.RawMessage(`{"jsonrpc":"2.0","id":42,"result":{}}`)
	incoming, err := Classify(raw)
	if err != nil {
		t.Fatal(err)
	}
	if incoming.Response.ID != "42" {
		t.Errorf("ID = %q, want \"42\"", incoming.Response.ID)
	}
}

func TestClassifyBatchElementErrorIsFatal(t *testing.T) {
	raw := json.RawMessage(`[{"jsonrpc":"2.0","id":"1"},{"jsonrpc":"2.0","method":"x"}]`)
	if _, err := Classify(raw); err == nil {
		t.Fatal("expected the malformed first element to fail classification of the whole batch")
	}
}
