package scene

import (
	"math"
	"strings"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// buildValidPlate creates a plate with a bore: a box minus a translated
// cylinder, with one job over the difference.
func buildValidPlate() *Scene {
	s := New()

	plateID := NewNodeID("box/plate")
	boreID := NewNodeID("cylinder/bore")
	moveID := NewNodeID("translate/bore")
	diffID := NewNodeID("difference/part")

	at := v3.Vec{X: 1, Y: 0, Z: 0}
	s.AddNode(&Node{
		ID: plateID, Kind: NodePrimitive, Name: "plate",
		Data: BoxData{Size: v3.Vec{X: 4, Y: 2, Z: 0.5}},
	})
	s.AddNode(&Node{
		ID: boreID, Kind: NodePrimitive, Name: "bore",
		Data: CylinderData{Height: 1, Radius: 0.3},
	})
	s.AddNode(&Node{
		ID: moveID, Kind: NodeTransform,
		Children: []NodeID{boreID},
		Data:     TransformData{Translation: &at},
	})
	s.AddNode(&Node{
		ID: diffID, Kind: NodeBoolean, Name: "part",
		Children: []NodeID{plateID, moveID},
		Data:     BooleanData{Op: OpDifference},
	})
	s.AddJob(Job{Name: "part", Root: diffID, Params: DefaultJobParams()})

	return s
}

// hasError returns true if errs contains at least one error-severity finding
// whose message contains substr.
func hasError(errs []ValidationError, substr string) bool {
	for _, e := range errs {
		if e.Severity == SeverityError && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

// hasWarning returns true if errs contains at least one warning-severity
// finding whose message contains substr.
func hasWarning(errs []ValidationError, substr string) bool {
	for _, e := range errs {
		if e.Severity == SeverityWarning && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestValidate_ValidScene(t *testing.T) {
	errs := Validate(buildValidPlate())
	for _, e := range errs {
		t.Errorf("unexpected validation finding: %s", e)
	}
}

func TestValidate_EmptyScene(t *testing.T) {
	errs := Validate(New())
	for _, e := range errs {
		t.Errorf("unexpected validation finding on empty scene: %s", e)
	}
}

func TestValidate_CycleDetection(t *testing.T) {
	s := buildValidPlate()
	// Make the plate a child of the difference and the difference a child of
	// a transform that the plate points back to.
	loopID := NewNodeID("translate/loop")
	diffID := NewNodeID("difference/part")
	s.AddNode(&Node{ID: loopID, Kind: NodeTransform, Children: []NodeID{diffID}, Data: TransformData{}})
	s.Get(diffID).Children = append(s.Get(diffID).Children, loopID)

	errs := Validate(s)
	if !hasError(errs, "cycle detected") {
		t.Errorf("expected cycle error, got %v", errs)
	}
}

func TestValidate_DanglingReference(t *testing.T) {
	s := buildValidPlate()
	diff := s.Get(NewNodeID("difference/part"))
	diff.Children = append(diff.Children, NewNodeID("ghost"))

	if !hasError(Validate(s), "does not exist") {
		t.Error("expected dangling child error")
	}
}

func TestValidate_JobRoots(t *testing.T) {
	tests := []struct {
		name   string
		root   NodeID
		substr string
	}{
		{"missing root", NewNodeID("ghost"), "root reference"},
		{"zero root", ZeroID, "no root solid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := buildValidPlate()
			s.AddJob(Job{Name: "broken", Root: tt.root, Params: DefaultJobParams()})
			errs := Validate(s)
			if !hasError(errs, tt.substr) {
				t.Errorf("expected %q error, got %v", tt.substr, errs)
			}
		})
	}
}

func TestValidate_DuplicateNames(t *testing.T) {
	s := buildValidPlate()
	s.AddNode(&Node{
		ID: NewNodeID("sphere/plate"), Kind: NodePrimitive, Name: "plate",
		Data: SphereData{Radius: 1},
	})
	if !hasError(Validate(s), `duplicate name "plate"`) {
		t.Error("expected duplicate node name error")
	}

	s = buildValidPlate()
	s.AddJob(s.Jobs[0])
	if !hasError(Validate(s), "duplicate job name") {
		t.Error("expected duplicate job name error")
	}

	s = buildValidPlate()
	s.AddJob(Job{Root: s.Jobs[0].Root, Params: DefaultJobParams()})
	if !hasError(Validate(s), "empty name") {
		t.Error("expected empty job name error")
	}
}

func TestValidate_NameIndexPointsToMissingNode(t *testing.T) {
	s := buildValidPlate()
	s.NameIndex["phantom"] = NewNodeID("phantom")
	if !hasError(Validate(s), "non-existent node") {
		t.Error("expected name index error")
	}
}

func TestValidate_Shapes(t *testing.T) {
	tests := []struct {
		name   string
		node   *Node
		substr string
	}{
		{
			name:   "zero box",
			node:   &Node{Kind: NodePrimitive, Data: BoxData{Size: v3.Vec{X: 1, Y: 0, Z: 1}}},
			substr: "box size",
		},
		{
			name:   "negative sphere",
			node:   &Node{Kind: NodePrimitive, Data: SphereData{Radius: -1}},
			substr: "sphere radius",
		},
		{
			name:   "nan cylinder",
			node:   &Node{Kind: NodePrimitive, Data: CylinderData{Height: math.NaN(), Radius: 1}},
			substr: "cylinder height",
		},
		{
			name:   "unary union",
			node:   &Node{Kind: NodeBoolean, Children: []NodeID{NewNodeID("box/plate")}, Data: BooleanData{Op: OpUnion}},
			substr: "union needs at least 2",
		},
		{
			name:   "childless transform",
			node:   &Node{Kind: NodeTransform, Data: TransformData{}},
			substr: "exactly 1 child",
		},
		{
			name:   "infinite rotation",
			node:   &Node{Kind: NodeTransform, Children: []NodeID{NewNodeID("box/plate")}, Data: TransformData{Rotation: &v3.Vec{X: math.Inf(1)}}},
			substr: "rotation must be finite",
		},
		{
			name:   "primitive with children",
			node:   &Node{Kind: NodePrimitive, Children: []NodeID{NewNodeID("box/plate")}, Data: SphereData{Radius: 1}},
			substr: "cannot have children",
		},
		{
			name:   "missing data",
			node:   &Node{Kind: NodeBoolean},
			substr: "has no data",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := buildValidPlate()
			tt.node.ID = NewNodeID("test/" + tt.name)
			s.AddNode(tt.node)
			errs := Validate(s)
			if !hasError(errs, tt.substr) {
				t.Errorf("expected %q error, got %v", tt.substr, errs)
			}
		})
	}
}

func TestValidate_JobParams(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*JobParams)
		substr string
	}{
		{"resolution", func(p *JobParams) { p.Resolution[1] = 1 }, "resolution[1]"},
		{"margin", func(p *JobParams) { p.Margin = -0.1 }, "margin"},
		{"nan margin", func(p *JobParams) { p.Margin = math.NaN() }, "margin"},
		{"absolute margin", func(p *JobParams) { p.AbsoluteMargin = math.Inf(1) }, "absolute margin"},
		{"level", func(p *JobParams) { p.Level = math.NaN() }, "must be finite"},
		{"upsample", func(p *JobParams) { p.Upsample = 0 }, "upsample"},
		{"iterations", func(p *JobParams) { p.SmoothIterations = -2 }, "smooth iterations"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := buildValidPlate()
			tt.mutate(&s.Jobs[0].Params)
			errs := Validate(s)
			if !hasError(errs, tt.substr) {
				t.Errorf("expected %q error, got %v", tt.substr, errs)
			}
			if errs[0].Job != "part" {
				t.Errorf("finding should name the job, got %+v", errs[0])
			}
		})
	}
}

func TestValidate_OrphanAndNoJobs(t *testing.T) {
	s := buildValidPlate()
	s.AddNode(&Node{ID: NewNodeID("sphere/spare"), Kind: NodePrimitive, Name: "spare", Data: SphereData{Radius: 1}})
	errs := Validate(s)
	if !hasWarning(errs, `"spare" is not used`) {
		t.Errorf("expected orphan warning, got %v", errs)
	}
	if HasErrors(errs) {
		t.Errorf("orphans must not be errors: %v", errs)
	}

	s = buildValidPlate()
	s.Jobs = nil
	if !hasWarning(Validate(s), "no grid jobs") {
		t.Error("expected no-jobs warning")
	}
}

func TestValidate_ErrorsSortFirst(t *testing.T) {
	s := buildValidPlate()
	s.AddNode(&Node{ID: NewNodeID("sphere/spare"), Kind: NodePrimitive, Name: "spare", Data: SphereData{Radius: 1}})
	s.Jobs[0].Params.Upsample = 0

	errs := Validate(s)
	if len(errs) < 2 {
		t.Fatalf("expected an error and a warning, got %v", errs)
	}
	if errs[0].Severity != SeverityError || errs[len(errs)-1].Severity != SeverityWarning {
		t.Errorf("findings not sorted errors first: %v", errs)
	}
}

func TestValidationError_String(t *testing.T) {
	id := NewNodeID("box/plate")
	tests := []struct {
		err  ValidationError
		want string
	}{
		{ValidationError{Message: "bad", Severity: SeverityError}, "[error] bad"},
		{ValidationError{Job: "j", Message: "bad", Severity: SeverityError}, `[error] job "j": bad`},
		{ValidationError{NodeID: id, Message: "odd", Severity: SeverityWarning}, "[warning] node " + id.Short() + ": odd"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}
