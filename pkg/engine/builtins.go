package engine

import (
	"context"
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/distgrid/pkg/scene"
)

// builder accumulates the scene for one evaluation. Anonymous node IDs are
// numbered per evaluation so the same script always yields the same IDs.
type builder struct {
	ctx      context.Context // cancelled once the evaluation is abandoned
	scene    *scene.Scene
	defaults scene.JobParams
	anon     map[string]int
}

func newBuilder(ctx context.Context, defaults scene.JobParams) *builder {
	return &builder{
		ctx:      ctx,
		scene:    scene.New(),
		defaults: defaults,
		anon:     make(map[string]int),
	}
}

// add creates a node and returns a reference to it. Named nodes derive
// their ID from the name; anonymous ones from a per-kind counter.
func (b *builder) add(form string, kind scene.NodeKind, name string, children []scene.NodeID, data scene.NodeData) (*sexpSolid, error) {
	var path string
	if name != "" {
		if b.scene.Lookup(name) != nil {
			return nil, fmt.Errorf("%s: name %q already defined", form, name)
		}
		path = form + "/" + name
	} else {
		b.anon[form]++
		path = fmt.Sprintf("%s/_anon_%d", form, b.anon[form])
	}

	id := scene.NewNodeID(path)
	b.scene.AddNode(&scene.Node{
		ID:       id,
		Kind:     kind,
		Name:     name,
		Children: children,
		Data:     data,
	})
	return &sexpSolid{id: id, name: name}, nil
}

// optName reads the optional :name keyword.
func optName(form string, pa kwArgs) (string, error) {
	v, ok := pa.kw["name"]
	if !ok {
		return "", nil
	}
	s, err := toString(v)
	if err != nil {
		return "", fmt.Errorf("%s: name: %w", form, err)
	}
	return s, nil
}

// numberArg resolves a value given either positionally or by keyword.
func numberArg(form, key string, pa kwArgs, pos int) (float64, error) {
	if v, ok := pa.kw[key]; ok {
		f, err := toFloat64(v)
		if err != nil {
			return 0, fmt.Errorf("%s: %s: %w", form, key, err)
		}
		return f, nil
	}
	if pos < len(pa.positional) {
		f, err := toFloat64(pa.positional[pos])
		if err != nil {
			return 0, fmt.Errorf("%s: %s: %w", form, key, err)
		}
		return f, nil
	}
	return 0, fmt.Errorf("%s requires %s", form, key)
}

// registerBuiltins installs the scene DSL into a zygomys environment.
// The builtins populate b.scene during evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, b *builder) {
	// zygomys cannot interrupt Run, so a timed out script is stopped at
	// its next builtin call instead
	register := func(name string, fn zygo.ZlispUserFunction) {
		env.AddFunction(name, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if err := b.ctx.Err(); err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: evaluation abandoned: %w", name, err)
			}
			return fn(env, name, args)
		})
	}

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	register("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var c [3]float64
		for i, axis := range []string{"x", "y", "z"} {
			f, err := toFloat64(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %s: %w", axis, err)
			}
			c[i] = f
		}
		return &sexpVec3{vec: v3.Vec{X: c[0], Y: c[1], Z: c[2]}}, nil
	})

	// -----------------------------------------------------------------------
	// (box 4 2 0.5) or (box :size (vec3 4 2 0.5) :name "plate")
	// -----------------------------------------------------------------------
	register("box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := pa.unknownKeys("size", "name"); err != nil {
			return zygo.SexpNull, fmt.Errorf("box: %w", err)
		}
		nm, err := optName("box", pa)
		if err != nil {
			return zygo.SexpNull, err
		}

		var size v3.Vec
		switch {
		case pa.kw["size"] != nil:
			size, err = toVec3(pa.kw["size"])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("box: size: %w", err)
			}
		case len(pa.positional) == 1:
			size, err = toVec3(pa.positional[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("box: size: %w", err)
			}
		case len(pa.positional) == 3:
			var c [3]float64
			for i := range c {
				if c[i], err = toFloat64(pa.positional[i]); err != nil {
					return zygo.SexpNull, fmt.Errorf("box: size: %w", err)
				}
			}
			size = v3.Vec{X: c[0], Y: c[1], Z: c[2]}
		default:
			return zygo.SexpNull, fmt.Errorf("box requires a size: (box x y z) or (box :size (vec3 x y z))")
		}

		ref, err := b.add("box", scene.NodePrimitive, nm, nil, scene.BoxData{Size: size})
		if err != nil {
			return zygo.SexpNull, err
		}
		return ref, nil
	})

	// -----------------------------------------------------------------------
	// (sphere 1) or (sphere :radius 1 :name "ball")
	// -----------------------------------------------------------------------
	register("sphere", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := pa.unknownKeys("radius", "name"); err != nil {
			return zygo.SexpNull, fmt.Errorf("sphere: %w", err)
		}
		nm, err := optName("sphere", pa)
		if err != nil {
			return zygo.SexpNull, err
		}
		r, err := numberArg("sphere", "radius", pa, 0)
		if err != nil {
			return zygo.SexpNull, err
		}
		ref, err := b.add("sphere", scene.NodePrimitive, nm, nil, scene.SphereData{Radius: r})
		if err != nil {
			return zygo.SexpNull, err
		}
		return ref, nil
	})

	// -----------------------------------------------------------------------
	// (cylinder 2 0.5) or (cylinder :height 2 :radius 0.5)
	// -----------------------------------------------------------------------
	register("cylinder", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := pa.unknownKeys("height", "radius", "name"); err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
		}
		nm, err := optName("cylinder", pa)
		if err != nil {
			return zygo.SexpNull, err
		}
		h, err := numberArg("cylinder", "height", pa, 0)
		if err != nil {
			return zygo.SexpNull, err
		}
		r, err := numberArg("cylinder", "radius", pa, 1)
		if err != nil {
			return zygo.SexpNull, err
		}
		ref, err := b.add("cylinder", scene.NodePrimitive, nm, nil, scene.CylinderData{Height: h, Radius: r})
		if err != nil {
			return zygo.SexpNull, err
		}
		return ref, nil
	})

	// -----------------------------------------------------------------------
	// (union a b ...), (difference a b ...), (intersection a b ...)
	// -----------------------------------------------------------------------
	for _, op := range []scene.BooleanOp{scene.OpUnion, scene.OpDifference, scene.OpIntersection} {
		op := op
		form := op.String()
		register(form, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			pa := parseArgs(args)
			if err := pa.unknownKeys("name"); err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", form, err)
			}
			nm, err := optName(form, pa)
			if err != nil {
				return zygo.SexpNull, err
			}
			if len(pa.positional) < 2 {
				return zygo.SexpNull, fmt.Errorf("%s requires at least 2 solids, got %d", form, len(pa.positional))
			}
			children := make([]scene.NodeID, 0, len(pa.positional))
			for i, arg := range pa.positional {
				ref, err := toSolid(arg)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("%s: operand %d: %w", form, i+1, err)
				}
				children = append(children, ref.id)
			}
			ref, err := b.add(form, scene.NodeBoolean, nm, children, scene.BooleanData{Op: op})
			if err != nil {
				return zygo.SexpNull, err
			}
			return ref, nil
		})
	}

	// -----------------------------------------------------------------------
	// (translate solid (vec3 1 0 0)) and (rotate solid (vec3 0 0 90))
	// -----------------------------------------------------------------------
	for _, form := range []string{"translate", "rotate"} {
		form := form
		register(form, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			pa := parseArgs(args)
			if err := pa.unknownKeys("by", "name"); err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", form, err)
			}
			nm, err := optName(form, pa)
			if err != nil {
				return zygo.SexpNull, err
			}
			if len(pa.positional) < 1 {
				return zygo.SexpNull, fmt.Errorf("%s requires a solid as first argument", form)
			}
			child, err := toSolid(pa.positional[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", form, err)
			}

			by, ok := pa.kw["by"]
			if !ok {
				if len(pa.positional) != 2 {
					return zygo.SexpNull, fmt.Errorf("%s requires a vec3 offset", form)
				}
				by = pa.positional[1]
			}
			vec, err := toVec3(by)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: by: %w", form, err)
			}

			td := scene.TransformData{}
			if form == "translate" {
				td.Translation = &vec
			} else {
				td.Rotation = &vec
			}
			ref, err := b.add(form, scene.NodeTransform, nm, []scene.NodeID{child.id}, td)
			if err != nil {
				return zygo.SexpNull, err
			}
			return ref, nil
		})
	}

	// -----------------------------------------------------------------------
	// (defsolid "name" expr) names an anonymous solid
	// -----------------------------------------------------------------------
	register("defsolid", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("defsolid requires a name and a solid expression")
		}
		nm, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defsolid: name: %w", err)
		}
		ref, err := toSolid(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defsolid: %w", err)
		}
		if b.scene.Lookup(nm) != nil {
			return zygo.SexpNull, fmt.Errorf("defsolid: name %q already defined", nm)
		}
		n := b.scene.Get(ref.id)
		if n.Name != "" {
			return zygo.SexpNull, fmt.Errorf("defsolid: solid is already named %q", n.Name)
		}
		n.Name = nm
		b.scene.NameIndex[nm] = n.ID
		return &sexpSolid{id: n.ID, name: nm}, nil
	})

	// -----------------------------------------------------------------------
	// (solid "name")
	// -----------------------------------------------------------------------
	register("solid", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("solid requires a name argument")
		}
		nm, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("solid: name: %w", err)
		}
		n := b.scene.Lookup(nm)
		if n == nil {
			return zygo.SexpNull, fmt.Errorf("solid: no solid named %q", nm)
		}
		return &sexpSolid{id: n.ID, name: nm}, nil
	})

	// -----------------------------------------------------------------------
	// (grid "name" solid :resolution 32 :margin 0.1 :absolute-margin 0
	//       :level 0 :upsample 1
	//       :smooth-lambda 0.5 :smooth-mu -0.53 :smooth-iterations 4)
	// -----------------------------------------------------------------------
	register("grid", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := pa.unknownKeys("resolution", "margin", "absolute-margin", "level",
			"upsample", "smooth-lambda", "smooth-mu", "smooth-iterations"); err != nil {
			return zygo.SexpNull, fmt.Errorf("grid: %w", err)
		}
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("grid requires a name and a solid")
		}
		jobName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("grid: name: %w", err)
		}
		root, err := toSolid(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("grid: %w", err)
		}

		p := b.defaults
		if v, ok := pa.kw["resolution"]; ok {
			if p.Resolution, err = toResolution(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("grid: resolution: %w", err)
			}
		}
		floats := []struct {
			key string
			dst *float64
		}{
			{"margin", &p.Margin},
			{"absolute-margin", &p.AbsoluteMargin},
			{"level", &p.Level},
			{"smooth-lambda", &p.SmoothLambda},
			{"smooth-mu", &p.SmoothMu},
		}
		for _, f := range floats {
			if v, ok := pa.kw[f.key]; ok {
				if *f.dst, err = toFloat64(v); err != nil {
					return zygo.SexpNull, fmt.Errorf("grid: %s: %w", f.key, err)
				}
			}
		}
		ints := []struct {
			key string
			dst *int
		}{
			{"upsample", &p.Upsample},
			{"smooth-iterations", &p.SmoothIterations},
		}
		for _, f := range ints {
			if v, ok := pa.kw[f.key]; ok {
				if *f.dst, err = toInt(v); err != nil {
					return zygo.SexpNull, fmt.Errorf("grid: %s: %w", f.key, err)
				}
			}
		}

		if _, exists := b.scene.Job(jobName); exists {
			return zygo.SexpNull, fmt.Errorf("grid: job %q already defined", jobName)
		}
		b.scene.AddJob(scene.Job{Name: jobName, Root: root.id, Params: p})
		return root, nil
	})
}
