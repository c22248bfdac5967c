package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// 1. Empty source: non-nil slices so JSON serializes as [] not null.
// ---------------------------------------------------------------------------

func TestE2EEmptySourceExtended(t *testing.T) {
	result := NewApp(testConfig()).Run("")

	if result.Jobs == nil {
		t.Error("Jobs should be non-nil empty slice, got nil")
	}
	if result.Errors == nil {
		t.Error("Errors should be non-nil empty slice, got nil")
	}
	if result.Warnings == nil {
		t.Error("Warnings should be non-nil empty slice, got nil")
	}

	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if !strings.Contains(string(data), `"jobs":[]`) {
		t.Errorf("empty result should encode jobs as [], got %s", data)
	}
}

// ---------------------------------------------------------------------------
// 2. Syntax error on a later line.
// ---------------------------------------------------------------------------

func TestE2ESyntaxErrorWithLineInfo(t *testing.T) {
	source := "(+ 1 2)\n(grid \"test\""
	result := NewApp(testConfig()).Run(source)

	if len(result.Errors) == 0 {
		t.Fatal("expected at least one eval error for unmatched parens")
	}
	e := result.Errors[0]
	if e.Message == "" {
		t.Error("syntax error should have a non-empty message")
	}
	t.Logf("syntax error: line=%d, col=%d, message=%q", e.Line, e.Col, e.Message)
}

// ---------------------------------------------------------------------------
// 3. Undefined solid reference.
// ---------------------------------------------------------------------------

func TestE2EUndefinedSolidReference(t *testing.T) {
	result := NewApp(testConfig()).Run(`(grid "g" (solid "ghost"))`)

	if len(result.Errors) == 0 {
		t.Fatal("expected eval error for undefined solid reference")
	}
	found := false
	for _, e := range result.Errors {
		if strings.Contains(e.Message, "ghost") {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("expected error mentioning 'ghost', got: %v", result.Errors)
	}
	if len(result.Jobs) != 0 {
		t.Errorf("expected 0 jobs on error, got %d", len(result.Jobs))
	}
}

// ---------------------------------------------------------------------------
// 4. Degenerate and invalid parameters are errors, never panics.
// ---------------------------------------------------------------------------

func TestE2EInvalidScenes(t *testing.T) {
	tests := []struct {
		name   string
		source string
		substr string
	}{
		{"zero size box", `(grid "g" (box 0 1 1))`, "box size"},
		{"negative radius", `(grid "g" (sphere -1))`, "sphere radius"},
		{"tiny resolution", `(grid "g" (sphere 1) :resolution 1)`, "resolution"},
		{"zero upsample", `(grid "g" (sphere 1) :upsample 0)`, "upsample"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewApp(testConfig()).Run(tt.source)
			if len(result.Errors) == 0 {
				t.Fatal("expected an error")
			}
			if !strings.Contains(result.Errors[0].Message, tt.substr) {
				t.Errorf("error %q should mention %q", result.Errors[0].Message, tt.substr)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// 5. Rapid evaluation: no panics between error and success states.
// ---------------------------------------------------------------------------

func TestE2ERapidEvaluationAlternating(t *testing.T) {
	// zygomys keeps global state, so calls stay sequential.
	app := NewApp(testConfig())

	sources := []string{
		`(grid "ok" (sphere 1) :resolution 8)`,
		`(grid "broken"`,
		``,
		`(solid "missing")`,
		`(grid "also-ok" (box 1 2 3) :resolution 8)`,
		`(+ 1 2)`,
		`;; just a comment`,
		`(undefined-func 1 2 3)`,
		`(grid "last" (cylinder 2 0.5) :resolution 8)`,
	}
	for i, source := range sources {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("iteration %d panicked on source %q: %v", i, source, r)
				}
			}()
			_ = app.Run(source)
		}()
	}
}

// ---------------------------------------------------------------------------
// 6. Outputs, plots and the sdfx cross check.
// ---------------------------------------------------------------------------

func TestE2EWritesOutputs(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig()
	plots, cross := true, true
	cfg.OutputDir = &dir
	cfg.Plots = &plots
	cfg.CrossCheck = &cross

	result := mustRun(t, NewApp(cfg), `(grid "my ball" (sphere 1) :resolution 16)`)
	j := result.Jobs[0]

	want := []string{"my_ball.stl", "my_ball.json", "my_ball_slice.png", "my_ball_profile.png"}
	if len(j.Files) != len(want) {
		t.Fatalf("files = %v, want %v", j.Files, want)
	}
	for i, name := range want {
		if j.Files[i] != filepath.Join(dir, name) {
			t.Errorf("file %d = %s, want %s", i, j.Files[i], name)
		}
		info, err := os.Stat(j.Files[i])
		if err != nil || info.Size() == 0 {
			t.Errorf("%s missing or empty: %v", name, err)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, "my_ball.json"))
	if err != nil {
		t.Fatal(err)
	}
	var buf struct {
		Name    string    `json:"name"`
		Indices []uint32  `json:"indices"`
		Normals []float32 `json:"normals"`
	}
	if err := json.Unmarshal(data, &buf); err != nil {
		t.Fatalf("render buffers are not JSON: %v", err)
	}
	if buf.Name != "my ball" || len(buf.Indices) != 3*j.SurfaceFaces {
		t.Errorf("buffers name=%q indices=%d faces=%d", buf.Name, len(buf.Indices), j.SurfaceFaces)
	}

	if j.CrossCheckVolume <= 0 {
		t.Errorf("cross check volume = %f, want positive", j.CrossCheckVolume)
	}
}

func TestFileStem(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"bracket", "bracket"},
		{"bracket-smooth", "bracket-smooth"},
		{"a/b c", "a_b_c"},
		{"", "job"},
	}
	for _, tt := range tests {
		if got := fileStem(tt.in); got != tt.want {
			t.Errorf("fileStem(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPrintResult(t *testing.T) {
	result := mustRun(t, NewApp(testConfig()), `
(sphere 2 :name "spare")
(grid "ball" (sphere 1) :resolution 12)
`)
	var buf bytes.Buffer
	printResult(&buf, result)
	out := buf.String()

	if !strings.Contains(out, "JOB") || !strings.Contains(out, "ball") || !strings.Contains(out, "12x12x12") {
		t.Errorf("table missing job row:\n%s", out)
	}
	if !strings.Contains(out, "warning:") || !strings.Contains(out, "orphan") {
		t.Errorf("expected orphan warning in output:\n%s", out)
	}
}

func TestLocation(t *testing.T) {
	if got := location(ErrorData{Job: "g", Message: "m"}); got != `job "g": m` {
		t.Errorf("job location = %q", got)
	}
	if got := location(ErrorData{Line: 3, Message: "m"}); got != "line 3: m" {
		t.Errorf("line location = %q", got)
	}
	if got := location(ErrorData{Message: "m"}); got != "m" {
		t.Errorf("bare location = %q", got)
	}
}

func TestNewAppUsesConfigDefaults(t *testing.T) {
	cfg := testConfig()
	n := 20
	cfg.Resolution = &n

	result := mustRun(t, NewApp(cfg), `(grid "g" (sphere 1))`)
	if result.Jobs[0].Resolution != [3]int{20, 20, 20} {
		t.Errorf("resolution = %v, want config default 20^3", result.Jobs[0].Resolution)
	}
}

func TestE2EQuadraticSurface(t *testing.T) {
	cfg := testConfig()
	quad := true
	cfg.Quadratic = &quad

	source := `(grid "ball" (sphere 1) :resolution 21 :upsample 2)`
	linear := mustRun(t, NewApp(testConfig()), source).Jobs[0]
	j := mustRun(t, NewApp(cfg), source).Jobs[0]

	if !j.Closed {
		t.Errorf("quadratic surface should be closed, %d boundary edges", j.BoundaryEdges)
	}
	if e := j.VolumeError(); e > 0.1 {
		t.Errorf("quadratic surface volume %.4f vs source %.4f", j.SurfaceVolume, j.SourceVolume)
	}
	if j.SurfaceVolume == linear.SurfaceVolume {
		t.Error("quadratic and trilinear refinement should differ")
	}
}
