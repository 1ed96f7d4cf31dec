package gateway

import "testing"

func TestParseInbound_UserMessage(t *testing.T) {
	kind, payload, err := ParseInbound([]byte(`{"kind":"user_message","data":{"sessionID":"s1","content":"hello"}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kind != KindUserMessage {
		t.Fatalf("expected KindUserMessage, got %v", kind)
	}
	msg, ok := payload.(UserMessage)
	if !ok {
		t.Fatalf("expected UserMessage payload, got %T", payload)
	}
	if msg.SessionID != "s1" || msg.Content != "hello" {
		t.Fatalf("unexpected payload: %+v", msg)
	}
}

func TestParseInbound_MissingRequiredField(t *testing.T) {
	_, _, err := ParseInbound([]byte(`{"kind":"user_message","data":{"content":"hello"}}`))
	if err == nil {
		t.Fatal("expected error for missing sessionID")
	}
}

func TestParseInbound_UnknownKind(t *testing.T) {
	_, _, err := ParseInbound([]byte(`{"kind":"bogus","data":{}}`))
	if err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestParseInbound_InvalidEnvelope(t *testing.T) {
	_, _, err := ParseInbound([]byte(`not json`))
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestParseInbound_ToolResult(t *testing.T) {
	kind, payload, err := ParseInbound([]byte(`{"kind":"tool_result","data":{"sessionID":"s1","callID":"c1","output":"42"}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kind != KindToolResult {
		t.Fatalf("expected KindToolResult, got %v", kind)
	}
	res := payload.(ToolResult)
	if res.CallID != "c1" {
		t.Fatalf("unexpected call id: %s", res.CallID)
	}
}

func TestParseInbound_PlanDecision(t *testing.T) {
	kind, payload, err := ParseInbound([]byte(`{"kind":"plan_decision","data":{"sessionID":"s1","planID":"p1","decision":"approve"}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kind != KindPlanDecision {
		t.Fatalf("expected KindPlanDecision, got %v", kind)
	}
	dec := payload.(PlanDecision)
	if dec.Decision != "approve" {
		t.Fatalf("unexpected decision: %s", dec.Decision)
	}
}
