// Package scene defines the solid scene produced by evaluating a distgrid
// script. A scene is an immutable DAG of primitives, booleans and
// transforms, plus a list of grid jobs that each name a root solid and the
// parameters used to turn it into a signed distance grid.
package scene

import "fmt"

// JobParams controls how a job's solid is sampled and post-processed.
type JobParams struct {
	Resolution       [3]int  `json:"resolution"`        // grid vertices per axis
	Margin           float64 `json:"margin"`            // fraction of the mesh extent
	AbsoluteMargin   float64 `json:"absolute_margin"`   // world units, 0 = off
	Level            float64 `json:"level"`             // iso level to extract
	Upsample         int     `json:"upsample"`          // iso-surface resample factor
	SmoothLambda     float64 `json:"smooth_lambda"`     // Taubin shrink factor
	SmoothMu         float64 `json:"smooth_mu"`         // Taubin inflate factor
	SmoothIterations int     `json:"smooth_iterations"` // 0 = no smoothing
}

// DefaultJobParams returns the parameters used for keys a script omits.
func DefaultJobParams() JobParams {
	return JobParams{
		Resolution: [3]int{32, 32, 32},
		Margin:     0.1,
		Upsample:   1,
	}
}

// Job requests one distance grid for the solid rooted at Root.
type Job struct {
	Name   string    `json:"name"`
	Root   NodeID    `json:"root"`
	Params JobParams `json:"params"`
}

// Scene is the top-level immutable data structure produced by script
// evaluation. Each evaluation produces a new scene.
type Scene struct {
	Nodes     map[NodeID]*Node  `json:"nodes"`
	NameIndex map[string]NodeID `json:"name_index"`
	Jobs      []Job             `json:"jobs"`
}

// New creates an empty Scene.
func New() *Scene {
	return &Scene{
		Nodes:     make(map[NodeID]*Node),
		NameIndex: make(map[string]NodeID),
	}
}

// AddNode adds a node to the scene. It does not check for duplicates.
func (s *Scene) AddNode(n *Node) {
	s.Nodes[n.ID] = n
	if n.Name != "" {
		s.NameIndex[n.Name] = n.ID
	}
}

// AddJob appends a grid job. Order is preserved.
func (s *Scene) AddJob(j Job) {
	s.Jobs = append(s.Jobs, j)
}

// Lookup returns the node with the given user-assigned name, or nil.
func (s *Scene) Lookup(name string) *Node {
	id, ok := s.NameIndex[name]
	if !ok {
		return nil
	}
	return s.Nodes[id]
}

// MustLookup returns the node with the given name, or panics.
func (s *Scene) MustLookup(name string) *Node {
	n := s.Lookup(name)
	if n == nil {
		panic(fmt.Sprintf("scene: no node named %q", name))
	}
	return n
}

// Get returns the node with the given ID, or nil.
func (s *Scene) Get(id NodeID) *Node {
	return s.Nodes[id]
}

// Job returns the job with the given name.
func (s *Scene) Job(name string) (Job, bool) {
	for _, j := range s.Jobs {
		if j.Name == name {
			return j, true
		}
	}
	return Job{}, false
}

// Children returns the child nodes of n, skipping dangling references.
func (s *Scene) Children(n *Node) []*Node {
	children := make([]*Node, 0, len(n.Children))
	for _, cid := range n.Children {
		if c := s.Nodes[cid]; c != nil {
			children = append(children, c)
		}
	}
	return children
}

// NodeCount returns the total number of nodes.
func (s *Scene) NodeCount() int {
	return len(s.Nodes)
}
