// Package tessellate walks a scene and produces one closed triangle mesh
// per grid job using a geometry kernel.
package tessellate

import (
	"fmt"

	"github.com/chazu/distgrid/pkg/kernel"
	"github.com/chazu/distgrid/pkg/mesh"
	"github.com/chazu/distgrid/pkg/scene"
)

// JobMesh is the tessellated solid of one grid job.
type JobMesh struct {
	Job   scene.Job
	Solid kernel.Solid
	Mesh  *mesh.Mesh
}

// walker builds kernel solids for scene nodes. Shared subtrees are built
// once per walk.
type walker struct {
	s     *scene.Scene
	k     kernel.Kernel
	built map[scene.NodeID]kernel.Solid
	path  map[scene.NodeID]bool
}

func newWalker(s *scene.Scene, k kernel.Kernel) *walker {
	return &walker{
		s:     s,
		k:     k,
		built: make(map[scene.NodeID]kernel.Solid),
		path:  make(map[scene.NodeID]bool),
	}
}

// Tessellate produces one mesh per job, in job order. The tessellator is
// read-only and never mutates the scene.
func Tessellate(s *scene.Scene, k kernel.Kernel) ([]*JobMesh, error) {
	if s == nil {
		return nil, nil
	}

	w := newWalker(s, k)
	meshes := make([]*JobMesh, 0, len(s.Jobs))
	for _, job := range s.Jobs {
		solid, err := w.solid(job.Root)
		if err != nil {
			return nil, fmt.Errorf("tessellate: job %q: %w", job.Name, err)
		}
		m, err := k.ToMesh(solid)
		if err != nil {
			return nil, fmt.Errorf("tessellate: job %q: ToMesh failed: %w", job.Name, err)
		}
		meshes = append(meshes, &JobMesh{Job: job, Solid: solid, Mesh: m})
	}
	return meshes, nil
}

// BuildSolid returns the kernel solid rooted at id without tessellating it.
func BuildSolid(s *scene.Scene, k kernel.Kernel, id scene.NodeID) (kernel.Solid, error) {
	solid, err := newWalker(s, k).solid(id)
	if err != nil {
		return nil, fmt.Errorf("tessellate: %w", err)
	}
	return solid, nil
}

// solid builds the solid for a node, recursing into its children.
func (w *walker) solid(id scene.NodeID) (kernel.Solid, error) {
	if solid, ok := w.built[id]; ok {
		return solid, nil
	}
	n := w.s.Get(id)
	if n == nil {
		return nil, fmt.Errorf("node %s does not exist", id.Short())
	}
	if w.path[id] {
		return nil, fmt.Errorf("node %s is part of a cycle", id.Short())
	}
	w.path[id] = true
	defer delete(w.path, id)

	var (
		solid kernel.Solid
		err   error
	)
	switch n.Kind {
	case scene.NodePrimitive:
		solid, err = w.primitive(n)
	case scene.NodeBoolean:
		solid, err = w.boolean(n)
	case scene.NodeTransform:
		solid, err = w.transform(n)
	default:
		err = fmt.Errorf("unknown node kind: %v", n.Kind)
	}
	if err != nil {
		return nil, err
	}
	w.built[id] = solid
	return solid, nil
}

// primitive creates geometry for a primitive node.
func (w *walker) primitive(n *scene.Node) (kernel.Solid, error) {
	switch d := n.Data.(type) {
	case scene.BoxData:
		return w.k.Box(d.Size.X, d.Size.Y, d.Size.Z), nil
	case scene.SphereData:
		return w.k.Sphere(d.Radius), nil
	case scene.CylinderData:
		return w.k.Cylinder(d.Height, d.Radius), nil
	default:
		return nil, fmt.Errorf("primitive node %s has unsupported data type %T", n.ID.Short(), n.Data)
	}
}

// boolean folds the children left to right with the node's operation.
func (w *walker) boolean(n *scene.Node) (kernel.Solid, error) {
	d, ok := n.Data.(scene.BooleanData)
	if !ok {
		return nil, fmt.Errorf("boolean node %s has unexpected data type %T", n.ID.Short(), n.Data)
	}
	if len(n.Children) < 2 {
		return nil, fmt.Errorf("boolean node %s has %d operands, need 2", n.ID.Short(), len(n.Children))
	}

	acc, err := w.solid(n.Children[0])
	if err != nil {
		return nil, err
	}
	for _, cid := range n.Children[1:] {
		next, err := w.solid(cid)
		if err != nil {
			return nil, err
		}
		switch d.Op {
		case scene.OpUnion:
			acc = w.k.Union(acc, next)
		case scene.OpDifference:
			acc = w.k.Difference(acc, next)
		case scene.OpIntersection:
			acc = w.k.Intersection(acc, next)
		default:
			return nil, fmt.Errorf("boolean node %s has unknown op %v", n.ID.Short(), d.Op)
		}
	}
	return acc, nil
}

// transform rotates, then translates, its single child.
func (w *walker) transform(n *scene.Node) (kernel.Solid, error) {
	td, ok := n.Data.(scene.TransformData)
	if !ok {
		return nil, fmt.Errorf("transform node %s has unexpected data type %T", n.ID.Short(), n.Data)
	}
	if len(n.Children) != 1 {
		return nil, fmt.Errorf("transform node %s has %d children, need 1", n.ID.Short(), len(n.Children))
	}

	solid, err := w.solid(n.Children[0])
	if err != nil {
		return nil, err
	}
	if r := td.Rotation; r != nil && (r.X != 0 || r.Y != 0 || r.Z != 0) {
		solid = w.k.Rotate(solid, r.X, r.Y, r.Z)
	}
	if t := td.Translation; t != nil && (t.X != 0 || t.Y != 0 || t.Z != 0) {
		solid = w.k.Translate(solid, t.X, t.Y, t.Z)
	}
	return solid, nil
}
