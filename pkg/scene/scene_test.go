package scene

import (
	"encoding/json"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

func TestNewScene(t *testing.T) {
	s := New()
	if s.Nodes == nil {
		t.Fatal("Nodes map should be initialized")
	}
	if s.NameIndex == nil {
		t.Fatal("NameIndex map should be initialized")
	}
	if s.NodeCount() != 0 {
		t.Errorf("empty scene should have 0 nodes, got %d", s.NodeCount())
	}
	if len(s.Jobs) != 0 {
		t.Errorf("empty scene should have 0 jobs, got %d", len(s.Jobs))
	}
}

func TestAddNodeAndLookup(t *testing.T) {
	s := New()

	id := NewNodeID("box/plate")
	s.AddNode(&Node{
		ID:   id,
		Kind: NodePrimitive,
		Name: "plate",
		Data: BoxData{Size: v3.Vec{X: 4, Y: 2, Z: 0.5}},
	})

	if s.NodeCount() != 1 {
		t.Errorf("node count = %d, want 1", s.NodeCount())
	}
	found := s.Lookup("plate")
	if found == nil {
		t.Fatal("Lookup('plate') returned nil")
	}
	if found.ID != id {
		t.Errorf("lookup returned wrong node")
	}
	if s.MustLookup("plate").ID != id {
		t.Errorf("MustLookup returned wrong node")
	}
	if s.Get(id) != found {
		t.Errorf("Get returned a different node")
	}
	if s.Lookup("missing") != nil {
		t.Error("Lookup of unknown name should return nil")
	}
}

func TestMustLookupPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("MustLookup should panic for unknown names")
		}
	}()
	New().MustLookup("nope")
}

func TestChildren(t *testing.T) {
	s := New()
	a := NewNodeID("box/a")
	b := NewNodeID("sphere/b")
	u := NewNodeID("union/u")
	s.AddNode(&Node{ID: a, Kind: NodePrimitive, Name: "a", Data: BoxData{Size: v3.Vec{X: 1, Y: 1, Z: 1}}})
	s.AddNode(&Node{ID: b, Kind: NodePrimitive, Name: "b", Data: SphereData{Radius: 1}})
	s.AddNode(&Node{ID: u, Kind: NodeBoolean, Children: []NodeID{a, NewNodeID("ghost"), b}, Data: BooleanData{Op: OpUnion}})

	children := s.Children(s.Get(u))
	if len(children) != 2 {
		t.Fatalf("children = %d, want 2 (dangling skipped)", len(children))
	}
	if children[0].Name != "a" || children[1].Name != "b" {
		t.Errorf("children order = %q, %q; want a, b", children[0].Name, children[1].Name)
	}
}

func TestJobLookup(t *testing.T) {
	s := New()
	s.AddJob(Job{Name: "first", Params: DefaultJobParams()})
	s.AddJob(Job{Name: "second", Params: DefaultJobParams()})

	j, ok := s.Job("second")
	if !ok || j.Name != "second" {
		t.Fatalf("Job(second) = %v, %v", j, ok)
	}
	if _, ok := s.Job("third"); ok {
		t.Error("Job(third) should not be found")
	}
	if s.Jobs[0].Name != "first" {
		t.Error("jobs should keep insertion order")
	}
}

func TestNodeIDDeterministic(t *testing.T) {
	a := NewNodeID("box/plate")
	b := NewNodeID("box/plate")
	if a != b {
		t.Error("same path should produce same NodeID")
	}
	if a == NewNodeID("box/other") {
		t.Error("different paths should produce different NodeIDs")
	}
}

func TestNodeIDZero(t *testing.T) {
	var id NodeID
	if !id.IsZero() {
		t.Error("zero-value NodeID should be zero")
	}
	if NewNodeID("something").IsZero() {
		t.Error("non-zero NodeID should not be zero")
	}
}

func TestNodeIDText(t *testing.T) {
	id := NewNodeID("sphere/ball")
	text, err := id.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}
	var back NodeID
	if err := back.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if back != id {
		t.Errorf("text round trip changed the id")
	}
	if err := back.UnmarshalText([]byte("abc")); err == nil {
		t.Error("short id text should be rejected")
	}
}

func TestSceneJSON(t *testing.T) {
	s := New()
	id := NewNodeID("sphere/ball")
	s.AddNode(&Node{ID: id, Kind: NodePrimitive, Name: "ball", Data: SphereData{Radius: 2}})
	s.AddJob(Job{Name: "ball", Root: id, Params: DefaultJobParams()})

	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	for _, key := range []string{"nodes", "name_index", "jobs"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("encoded scene missing %q", key)
		}
	}
}

func TestNodeDataInterface(t *testing.T) {
	var _ NodeData = BoxData{}
	var _ NodeData = SphereData{}
	var _ NodeData = CylinderData{}
	var _ NodeData = BooleanData{}
	var _ NodeData = TransformData{}
}

func TestStringers(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{NodePrimitive.String(), "primitive"},
		{NodeBoolean.String(), "boolean"},
		{NodeTransform.String(), "transform"},
		{NodeKind(99).String(), "unknown"},
		{OpUnion.String(), "union"},
		{OpDifference.String(), "difference"},
		{OpIntersection.String(), "intersection"},
		{BooleanOp(7).String(), "unknown"},
		{SeverityError.String(), "error"},
		{SeverityWarning.String(), "warning"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("String() = %q, want %q", tt.got, tt.want)
		}
	}

	if len(NewNodeID("test").Short()) != 12 { // 6 bytes = 12 hex chars
		t.Errorf("Short() len = %d, want 12", len(NewNodeID("test").Short()))
	}
}
