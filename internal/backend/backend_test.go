package backend

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoadModel_ReplacesIndexWholesale(t *testing.T) {
	b := New(Opts{Out: &bytes.Buffer{}})

	b.LoadModel(Node{Parts: []Node{{ID: "first", Shape: singleShape(t, testCube())}}})
	if b.ShapeCount() != cubeHandles {
		t.Fatalf("ShapeCount() = %d, want %d", b.ShapeCount(), cubeHandles)
	}

	b.LoadModel(Node{Parts: []Node{{ID: "second", Shape: singleShape(t, testCube())}}})
	shapes := b.AvailableShapes()
	if shapes[0] != "second" {
		t.Errorf("shapes[0] = %q, want second", shapes[0])
	}
	for _, id := range shapes {
		if strings.HasPrefix(id, "first") {
			t.Errorf("stale handle %q survived the reload", id)
		}
	}
}

func TestLoadModel_WritesSummaryToOut(t *testing.T) {
	out := &bytes.Buffer{}
	b := New(Opts{Out: out})
	b.LoadModel(Node{Parts: []Node{{ID: "a", Shape: singleShape(t, testCube())}}})

	if !strings.Contains(out.String(), "model loaded with 27 objects from 1 parts") {
		t.Errorf("out = %q, want the load summary", out.String())
	}
}

func TestSetActiveTool_NoneClears(t *testing.T) {
	b, out := newTestBackend(t)

	b.SetActiveTool(ToolDistance)
	if b.ActiveTool() != ToolDistance {
		t.Errorf("ActiveTool() = %q, want %q", b.ActiveTool(), ToolDistance)
	}
	if !strings.Contains(out.String(), "active tool set to DistanceMeasurement") {
		t.Errorf("out = %q, want the arming notice", out.String())
	}

	b.SetActiveTool("None")
	if b.ActiveTool() != "" {
		t.Errorf("ActiveTool() = %q after None, want empty", b.ActiveTool())
	}

	b.SetActiveTool(ToolProperties)
	b.SetActiveTool("")
	if b.ActiveTool() != "" {
		t.Errorf("ActiveTool() = %q after empty, want empty", b.ActiveTool())
	}
}

func TestApplyUpdates_ArmsToolFromChangeSet(t *testing.T) {
	b, _ := newTestBackend(t)

	resps := b.ApplyUpdates(map[string]any{"activeTool": ToolProperties})
	if len(resps) != 0 {
		t.Fatalf("responses = %v, want none for arming alone", resps)
	}
	if b.ActiveTool() != ToolProperties {
		t.Errorf("ActiveTool() = %q, want %q", b.ActiveTool(), ToolProperties)
	}
}

func TestApplyUpdates_DistanceOverTwoTransformedFaces(t *testing.T) {
	b, _ := newTestBackend(t)
	b.SetActiveTool(ToolDistance)

	resps := b.ApplyUpdates(map[string]any{
		"selected": []any{"p1/faces/faces_5", "p2/faces/faces_4"},
	})
	if len(resps) != 1 {
		t.Fatalf("len(responses) = %d, want 1", len(resps))
	}
	dist, ok := resps[0]["distance"].(float64)
	if !ok || dist < 3.999 || dist > 4.001 {
		t.Errorf("distance = %v, want 4 (placed faces measured)", resps[0]["distance"])
	}
}

func TestApplyUpdates_DistanceWaitsForSecondPick(t *testing.T) {
	b, _ := newTestBackend(t)
	b.SetActiveTool(ToolDistance)

	resps := b.ApplyUpdates(map[string]any{"selected": []any{"p1"}})
	if len(resps) != 0 {
		t.Fatalf("responses = %v, want none while a pick is pending", resps)
	}
}

func TestApplyUpdates_DistanceWithTooManyPicks(t *testing.T) {
	b, _ := newTestBackend(t)
	b.SetActiveTool(ToolDistance)

	resps := b.ApplyUpdates(map[string]any{"selected": []any{"p1", "p2", "p1/faces/faces_0"}})
	if len(resps) != 1 {
		t.Fatalf("len(responses) = %d, want 1", len(resps))
	}
	if resps[0]["error"] != "Invalid tool request: DistanceMeasurement with 3 selections" {
		t.Errorf("error = %v, want invalid-request message", resps[0]["error"])
	}
}

func TestApplyUpdates_CenterFlagSticks(t *testing.T) {
	b, _ := newTestBackend(t)
	b.SetActiveTool(ToolDistance)

	b.ApplyUpdates(map[string]any{"center": true})
	resps := b.ApplyUpdates(map[string]any{"selected": []any{"p1", "p2"}})
	if len(resps) != 1 {
		t.Fatalf("len(responses) = %d, want 1", len(resps))
	}
	dist, _ := resps[0]["distance"].(float64)
	if dist < 4.999 || dist > 5.001 {
		t.Errorf("distance = %v, want 5 (center flag honored)", resps[0]["distance"])
	}
}

func TestApplyUpdates_PropertiesUsesFirstPick(t *testing.T) {
	b, _ := newTestBackend(t)
	b.SetActiveTool(ToolProperties)

	resps := b.ApplyUpdates(map[string]any{"selected": []any{"p1", "p2"}})
	if len(resps) != 1 {
		t.Fatalf("len(responses) = %d, want 1", len(resps))
	}
	if resps[0]["error"] != nil {
		t.Fatalf("error = %v, want none", resps[0]["error"])
	}
	if resps[0]["tool_type"] != ToolProperties {
		t.Errorf("tool_type = %v, want %s", resps[0]["tool_type"], ToolProperties)
	}
}

func TestApplyUpdates_SelectionWithoutToolIsQuiet(t *testing.T) {
	b, _ := newTestBackend(t)

	resps := b.ApplyUpdates(map[string]any{"selected": []any{"p1", "p2"}})
	if len(resps) != 0 {
		t.Fatalf("responses = %v, want none with no tool armed", resps)
	}
}

func TestApplyUpdates_SingleStringSelection(t *testing.T) {
	b, _ := newTestBackend(t)
	b.SetActiveTool(ToolProperties)

	resps := b.ApplyUpdates(map[string]any{"selected": "p2"})
	if len(resps) != 1 {
		t.Fatalf("len(responses) = %d, want 1", len(resps))
	}
	if resps[0]["error"] != nil {
		t.Errorf("error = %v, want none", resps[0]["error"])
	}
}
