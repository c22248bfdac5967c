package scene

import (
	"fmt"
	"math"
	"sort"
)

// ValidationSeverity indicates whether a validation finding blocks grid
// building or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks building
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	NodeID   NodeID             // which node has the problem (zero if scene-level)
	Job      string             // which job has the problem, if any
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	switch {
	case e.Job != "":
		return fmt.Sprintf("[%s] job %q: %s", e.Severity, e.Job, e.Message)
	case !e.NodeID.IsZero():
		return fmt.Sprintf("[%s] node %s: %s", e.Severity, e.NodeID.Short(), e.Message)
	default:
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
}

// HasErrors reports whether any finding is error severity.
func HasErrors(findings []ValidationError) bool {
	for _, f := range findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate runs every structural check on the scene and returns the
// findings sorted errors first. An empty slice means the scene is valid.
// Validate never mutates the scene.
func Validate(s *Scene) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateDAG(s)...)
	errs = append(errs, validateReferences(s)...)
	errs = append(errs, validateNames(s)...)
	errs = append(errs, validateShapes(s)...)
	errs = append(errs, validateJobs(s)...)
	errs = append(errs, validateReachability(s)...)
	sort.SliceStable(errs, func(i, j int) bool {
		return errs[i].Severity < errs[j].Severity
	})
	return errs
}

// sortedIDs returns the node IDs in a stable order so findings are
// reproducible across runs.
func sortedIDs(s *Scene) []NodeID {
	ids := make([]NodeID, 0, len(s.Nodes))
	for id := range s.Nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return string(ids[i][:]) < string(ids[j][:])
	})
	return ids
}

// validateDAG checks for cycles using DFS with 3-color marking.
// White (0) = unvisited, gray (1) = in current DFS path, black (2) = fully explored.
func validateDAG(s *Scene) []ValidationError {
	const (
		white = iota
		gray
		black
	)

	color := make(map[NodeID]int)
	var errs []ValidationError

	var visit func(id NodeID) bool // returns true if cycle found
	visit = func(id NodeID) bool {
		switch color[id] {
		case black:
			return false
		case gray:
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  fmt.Sprintf("cycle detected: node %s is part of a cycle", id.Short()),
				Severity: SeverityError,
			})
			return true
		}

		color[id] = gray
		node, ok := s.Nodes[id]
		if !ok {
			// Dangling reference; handled by validateReferences.
			color[id] = black
			return false
		}
		for _, childID := range node.Children {
			if visit(childID) {
				return true
			}
		}
		color[id] = black
		return false
	}

	for _, id := range sortedIDs(s) {
		if color[id] == white && visit(id) {
			// One cycle error is sufficient.
			break
		}
	}
	return errs
}

// validateReferences checks that every child and job root points to a node
// that exists.
func validateReferences(s *Scene) []ValidationError {
	var errs []ValidationError
	for _, id := range sortedIDs(s) {
		node := s.Nodes[id]
		for _, childID := range node.Children {
			if _, ok := s.Nodes[childID]; !ok {
				errs = append(errs, ValidationError{
					NodeID:   node.ID,
					Message:  fmt.Sprintf("child reference %s does not exist", childID.Short()),
					Severity: SeverityError,
				})
			}
		}
	}
	for _, j := range s.Jobs {
		if j.Root.IsZero() {
			errs = append(errs, ValidationError{
				Job:      j.Name,
				Message:  "job has no root solid",
				Severity: SeverityError,
			})
			continue
		}
		if _, ok := s.Nodes[j.Root]; !ok {
			errs = append(errs, ValidationError{
				Job:      j.Name,
				Message:  fmt.Sprintf("root reference %s does not exist", j.Root.Short()),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateNames checks that node names and job names are unique and that
// the name index only points at existing nodes.
func validateNames(s *Scene) []ValidationError {
	var errs []ValidationError

	names := make([]string, 0, len(s.NameIndex))
	for name := range s.NameIndex {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, ok := s.Nodes[s.NameIndex[name]]; !ok {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("name index entry %q references non-existent node %s", name, s.NameIndex[name].Short()),
				Severity: SeverityError,
			})
		}
	}

	counts := make(map[string]int)
	for _, n := range s.Nodes {
		if n.Name != "" {
			counts[n.Name]++
		}
	}
	for _, name := range sortedKeys(counts) {
		if counts[name] > 1 {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("duplicate name %q assigned to %d nodes", name, counts[name]),
				Severity: SeverityError,
			})
		}
	}

	seen := make(map[string]bool)
	for _, j := range s.Jobs {
		if j.Name == "" {
			errs = append(errs, ValidationError{
				Message:  "job has an empty name",
				Severity: SeverityError,
			})
			continue
		}
		if seen[j.Name] {
			errs = append(errs, ValidationError{
				Job:      j.Name,
				Message:  "duplicate job name",
				Severity: SeverityError,
			})
		}
		seen[j.Name] = true
	}
	return errs
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// validateShapes checks dimensions and arity per node kind.
func validateShapes(s *Scene) []ValidationError {
	var errs []ValidationError
	bad := func(n *Node, format string, args ...any) {
		errs = append(errs, ValidationError{
			NodeID:   n.ID,
			Message:  fmt.Sprintf(format, args...),
			Severity: SeverityError,
		})
	}

	for _, id := range sortedIDs(s) {
		n := s.Nodes[id]
		switch d := n.Data.(type) {
		case BoxData:
			if !positive(d.Size.X) || !positive(d.Size.Y) || !positive(d.Size.Z) {
				bad(n, "box size (%g, %g, %g) must be positive on every axis", d.Size.X, d.Size.Y, d.Size.Z)
			}
		case SphereData:
			if !positive(d.Radius) {
				bad(n, "sphere radius %g must be positive", d.Radius)
			}
		case CylinderData:
			if !positive(d.Height) || !positive(d.Radius) {
				bad(n, "cylinder height %g and radius %g must be positive", d.Height, d.Radius)
			}
		case BooleanData:
			if len(n.Children) < 2 {
				bad(n, "%s needs at least 2 operands, got %d", d.Op, len(n.Children))
			}
		case TransformData:
			if len(n.Children) != 1 {
				bad(n, "transform needs exactly 1 child, got %d", len(n.Children))
			}
			if d.Translation != nil && !finiteVec(d.Translation.X, d.Translation.Y, d.Translation.Z) {
				bad(n, "translation must be finite")
			}
			if d.Rotation != nil && !finiteVec(d.Rotation.X, d.Rotation.Y, d.Rotation.Z) {
				bad(n, "rotation must be finite")
			}
		case nil:
			bad(n, "%s node has no data", n.Kind)
		}

		if n.Kind == NodePrimitive && len(n.Children) > 0 {
			bad(n, "primitive nodes cannot have children")
		}
	}
	return errs
}

// validateJobs checks parameter ranges.
func validateJobs(s *Scene) []ValidationError {
	var errs []ValidationError
	for _, j := range s.Jobs {
		for _, msg := range checkParams(j.Params) {
			errs = append(errs, ValidationError{
				Job:      j.Name,
				Message:  msg,
				Severity: SeverityError,
			})
		}
	}
	if len(s.Jobs) == 0 && len(s.Nodes) > 0 {
		errs = append(errs, ValidationError{
			Message:  "scene defines solids but no grid jobs",
			Severity: SeverityWarning,
		})
	}
	return errs
}

func checkParams(p JobParams) []string {
	var msgs []string
	for axis, n := range p.Resolution {
		if n < 2 {
			msgs = append(msgs, fmt.Sprintf("resolution[%d] = %d, need at least 2", axis, n))
		}
	}
	if !(p.Margin >= 0) || math.IsInf(p.Margin, 0) {
		msgs = append(msgs, fmt.Sprintf("margin %g must be finite and non-negative", p.Margin))
	}
	if !(p.AbsoluteMargin >= 0) || math.IsInf(p.AbsoluteMargin, 0) {
		msgs = append(msgs, fmt.Sprintf("absolute margin %g must be finite and non-negative", p.AbsoluteMargin))
	}
	if !finiteVec(p.Level, p.SmoothLambda, p.SmoothMu) {
		msgs = append(msgs, "level and smoothing factors must be finite")
	}
	if p.Upsample < 1 {
		msgs = append(msgs, fmt.Sprintf("upsample %d must be at least 1", p.Upsample))
	}
	if p.SmoothIterations < 0 {
		msgs = append(msgs, fmt.Sprintf("smooth iterations %d must be non-negative", p.SmoothIterations))
	}
	return msgs
}

// validateReachability warns about solids no job uses.
func validateReachability(s *Scene) []ValidationError {
	if len(s.Nodes) == 0 || len(s.Jobs) == 0 {
		return nil
	}

	reachable := make(map[NodeID]bool)
	var queue []NodeID
	for _, j := range s.Jobs {
		if _, ok := s.Nodes[j.Root]; ok && !reachable[j.Root] {
			reachable[j.Root] = true
			queue = append(queue, j.Root)
		}
	}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		node := s.Nodes[current]
		if node == nil {
			continue
		}
		for _, childID := range node.Children {
			if !reachable[childID] {
				reachable[childID] = true
				queue = append(queue, childID)
			}
		}
	}

	var errs []ValidationError
	for _, id := range sortedIDs(s) {
		if reachable[id] {
			continue
		}
		name := s.Nodes[id].Name
		if name == "" {
			name = id.Short()
		}
		errs = append(errs, ValidationError{
			NodeID:   id,
			Message:  fmt.Sprintf("node %q is not used by any job (orphan)", name),
			Severity: SeverityWarning,
		})
	}
	return errs
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

func finiteVec(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
