package edge

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/latticeworks/lattice/internal/graph/domain/command"
	"github.com/latticeworks/lattice/internal/graph/domain/event"
)

func fixedNow() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func bothPresent(string) bool { return true }

func decide(t *testing.T, state State, cmdType command.Type, edgeID string, payload any, nodePresent func(string) bool) command.Decision {
	t.Helper()
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return Decide(state, command.Command{
		GraphID:     "graph-1",
		Type:        cmdType,
		EntityID:    edgeID,
		PayloadJSON: payloadJSON,
	}, nodePresent, fixedNow)
}

func requireRejection(t *testing.T, d command.Decision, code string) {
	t.Helper()
	if len(d.Rejections) != 1 {
		t.Fatalf("expected 1 rejection, got %d (events: %d)", len(d.Rejections), len(d.Events))
	}
	if d.Rejections[0].Code != code {
		t.Fatalf("rejection code = %s, want %s", d.Rejections[0].Code, code)
	}
}

func TestDecideConnect(t *testing.T) {
	d := decide(t, State{}, command.TypeEdgeConnect, "edge-1", ConnectPayload{
		SourceID: "node-1",
		TargetID: "node-2",
		Category: " Supports ",
		Strength: 0.8,
	}, bothPresent)
	if len(d.Events) != 1 || d.Events[0].Type != event.TypeEdgeConnected {
		t.Fatalf("unexpected decision: %+v", d)
	}

	var payload ConnectPayload
	if err := json.Unmarshal(d.Events[0].PayloadJSON, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Category != "supports" {
		t.Fatalf("category = %q", payload.Category)
	}
	if payload.RelationshipCID == "" {
		t.Fatal("expected relationship cid to be stamped")
	}
}

func TestDecideConnectRejections(t *testing.T) {
	valid := ConnectPayload{SourceID: "node-1", TargetID: "node-2", Category: "supports"}

	requireRejection(t, decide(t, State{}, command.TypeEdgeConnect, "", valid, bothPresent), rejectionCodeEdgeIDRequired)
	requireRejection(t, decide(t, State{Present: true}, command.TypeEdgeConnect, "edge-1", valid, bothPresent), rejectionCodeEdgeAlreadyExists)
	requireRejection(t, decide(t, State{}, command.TypeEdgeConnect, "edge-1",
		ConnectPayload{SourceID: "node-1", TargetID: "node-1", Category: "supports"}, bothPresent), rejectionCodeEdgeSelfLoop)
	requireRejection(t, decide(t, State{}, command.TypeEdgeConnect, "edge-1", valid,
		func(id string) bool { return id != "node-1" }), rejectionCodeEdgeSourceMissing)
	requireRejection(t, decide(t, State{}, command.TypeEdgeConnect, "edge-1", valid,
		func(id string) bool { return id != "node-2" }), rejectionCodeEdgeTargetMissing)
	requireRejection(t, decide(t, State{}, command.TypeEdgeConnect, "edge-1",
		ConnectPayload{SourceID: "node-1", TargetID: "node-2", Category: "  "}, bothPresent), rejectionCodeEdgeCategoryEmpty)
}

func TestDecideUpdateKeepsEndpoints(t *testing.T) {
	state := State{Present: true, SourceID: "node-1", TargetID: "node-2", Category: "supports"}
	d := decide(t, state, command.TypeEdgeUpdate, "edge-1", UpdatePayload{Category: "contradicts", Strength: 0.3}, nil)
	if len(d.Events) != 1 || d.Events[0].Type != event.TypeEdgeUpdated {
		t.Fatalf("unexpected decision: %+v", d)
	}

	var payload UpdatePayload
	if err := json.Unmarshal(d.Events[0].PayloadJSON, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Category != "contradicts" || payload.RelationshipCID == "" {
		t.Fatalf("payload = %+v", payload)
	}

	requireRejection(t, decide(t, State{}, command.TypeEdgeUpdate, "edge-1", UpdatePayload{Category: "x"}, nil), rejectionCodeEdgeNotFound)
	requireRejection(t, decide(t, state, command.TypeEdgeUpdate, "edge-1", UpdatePayload{}, nil), rejectionCodeEdgeCategoryEmpty)
}

func TestDecideDisconnect(t *testing.T) {
	d := decide(t, State{Present: true, SourceID: "node-1", TargetID: "node-2"}, command.TypeEdgeDisconnect, "edge-1", DisconnectPayload{Reason: " merged "}, nil)
	if len(d.Events) != 1 || d.Events[0].Type != event.TypeEdgeDisconnected {
		t.Fatalf("unexpected decision: %+v", d)
	}
	var payload DisconnectPayload
	if err := json.Unmarshal(d.Events[0].PayloadJSON, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Reason != "merged" {
		t.Fatalf("reason = %q", payload.Reason)
	}

	requireRejection(t, decide(t, State{}, command.TypeEdgeDisconnect, "edge-1", DisconnectPayload{}, nil), rejectionCodeEdgeNotFound)
}
