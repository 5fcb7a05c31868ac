package typegraph

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

// Load reads a type graph document from a .cue file.
func Load(path string) (*Graph, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("type graph %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("type graph %s: is a directory", path)
	}

	ctx := cuecontext.New()
	cfg := &load.Config{Dir: filepath.Dir(path)}
	instances := load.Instances([]string{"./" + filepath.Base(path)}, cfg)
	if len(instances) == 0 {
		return nil, &LoadError{Field: "cue", Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(inst.Err)
	}

	value := ctx.BuildInstance(inst)
	return fromValue(value, filepath.Base(path))
}

// LoadString reads a type graph document from source text. name is used for
// positions in errors and as the default unit name.
func LoadString(name, src string) (*Graph, error) {
	ctx := cuecontext.New()
	value := ctx.CompileString(src, cue.Filename(name))
	return fromValue(value, name)
}

func fromValue(v cue.Value, defaultUnit string) (*Graph, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	unit := defaultUnit
	if u := v.LookupPath(cue.ParsePath("unit")); u.Exists() {
		s, err := u.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		unit = s
	}

	l := &loader{g: New(unit), named: make(map[string]*Type)}

	if pb := v.LookupPath(cue.ParsePath("pointer_bits")); pb.Exists() {
		bits, err := pb.Uint64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		l.g.SetPointerBits(bits)
	}

	steps := []func(cue.Value) error{
		l.parseBase,
		l.parseEnums,
		l.declareAggregates,
		l.parseTypedefs,
		l.parseDefs,
	}
	for _, step := range steps {
		if err := step(v); err != nil {
			return nil, err
		}
	}
	return l.g, nil
}

type loader struct {
	g     *Graph
	named map[string]*Type
}

func (l *loader) define(key string, t *Type, v cue.Value) error {
	if _, dup := l.named[key]; dup {
		return &LoadError{Field: key, Message: "defined more than once", Pos: v.Pos()}
	}
	l.named[key] = t
	return nil
}

func (l *loader) parseBase(v cue.Value) error {
	base := v.LookupPath(cue.ParsePath("base"))
	if !base.Exists() {
		return nil
	}
	iter, err := base.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Selector().Unquoted()
		bv := iter.Value()

		kind, err := requiredString(bv, "kind")
		if err != nil {
			return err
		}
		bits, err := requiredUint(bv, "bits")
		if err != nil {
			return err
		}
		unsigned, err := optionalBool(bv, "unsigned")
		if err != nil {
			return err
		}

		var t *Type
		switch kind {
		case "integer":
			t = Integer(name, bits, unsigned)
		case "boolean":
			t = Boolean(name, bits)
		case "real":
			t = Real(name, bits)
		case "complex":
			t = Complex(name, bits)
		default:
			return &LoadError{
				Field:   "base." + name + ".kind",
				Message: fmt.Sprintf("unknown base kind %q (must be integer, boolean, real or complex)", kind),
				Pos:     bv.Pos(),
			}
		}
		if err := l.define(name, t, bv); err != nil {
			return err
		}
	}
	return nil
}

func (l *loader) parseEnums(v cue.Value) error {
	enums := v.LookupPath(cue.ParsePath("enums"))
	if !enums.Exists() {
		return nil
	}
	iter, err := enums.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Selector().Unquoted()
		ev := iter.Value()
		bits, err := requiredUint(ev, "bits")
		if err != nil {
			return err
		}
		unsigned, err := optionalBool(ev, "unsigned")
		if err != nil {
			return err
		}
		if err := l.define("enum "+name, Enum(name, bits, unsigned), ev); err != nil {
			return err
		}
	}
	return nil
}

// declareAggregates creates an incomplete shell for every named aggregate so
// pointers may refer to types defined later in the document.
func (l *loader) declareAggregates(v cue.Value) error {
	return l.eachDef(v, func(dv cue.Value) error {
		if decl := dv.LookupPath(cue.ParsePath("declare")); decl.Exists() {
			s, err := decl.String()
			if err != nil {
				return formatCUEError(err)
			}
			t, err := l.shell(s, dv)
			if err != nil {
				return err
			}
			if _, ok := l.named[s]; ok {
				return nil
			}
			return l.define(s, t, dv)
		}

		key, err := aggregateKey(dv)
		if err != nil {
			return err
		}
		if _, ok := l.named[key]; ok {
			// declared earlier; a second definition is caught by Complete
			return nil
		}
		t, err := l.shell(key, dv)
		if err != nil {
			return err
		}
		return l.define(key, t, dv)
	})
}

func (l *loader) shell(key string, v cue.Value) (*Type, error) {
	kind, name, ok := strings.Cut(key, " ")
	if !ok || name == "" {
		return nil, &LoadError{Field: "declare", Message: fmt.Sprintf("expected \"struct NAME\" or \"union NAME\", got %q", key), Pos: v.Pos()}
	}
	switch kind {
	case "struct":
		return l.g.Struct(name), nil
	case "union":
		return l.g.Union(name), nil
	default:
		return nil, &LoadError{Field: "declare", Message: fmt.Sprintf("unknown aggregate kind %q", kind), Pos: v.Pos()}
	}
}

func (l *loader) parseTypedefs(v cue.Value) error {
	typedefs := v.LookupPath(cue.ParsePath("typedefs"))
	if !typedefs.Exists() {
		return nil
	}
	iter, err := typedefs.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Selector().Unquoted()
		t, err := l.parseType(iter.Value(), "typedefs."+name)
		if err != nil {
			return err
		}
		if err := l.define(name, t.Variant(name), iter.Value()); err != nil {
			return err
		}
	}
	return nil
}

func (l *loader) parseDefs(v cue.Value) error {
	return l.eachDef(v, func(dv cue.Value) error {
		if dv.LookupPath(cue.ParsePath("declare")).Exists() {
			return nil
		}
		key, err := aggregateKey(dv)
		if err != nil {
			return err
		}
		fields, err := l.parseFields(dv, key)
		if err != nil {
			return err
		}
		if err := l.g.Complete(l.named[key], fields...); err != nil {
			return &LoadError{Field: key, Message: err.Error(), Pos: dv.Pos()}
		}
		return nil
	})
}

func (l *loader) eachDef(v cue.Value, fn func(cue.Value) error) error {
	defs := v.LookupPath(cue.ParsePath("defs"))
	if !defs.Exists() {
		return nil
	}
	iter, err := defs.List()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		if err := fn(iter.Value()); err != nil {
			return err
		}
	}
	return nil
}

func aggregateKey(dv cue.Value) (string, error) {
	for _, kind := range []string{"struct", "union"} {
		kv := dv.LookupPath(cue.ParsePath(kind))
		if !kv.Exists() {
			continue
		}
		name, err := kv.String()
		if err != nil {
			return "", formatCUEError(err)
		}
		if name == "" {
			return "", &LoadError{Field: kind, Message: "top-level definitions must be named", Pos: kv.Pos()}
		}
		return kind + " " + name, nil
	}
	return "", &LoadError{Field: "defs", Message: "definition needs a struct, union or declare field", Pos: dv.Pos()}
}

func (l *loader) parseFields(v cue.Value, context string) ([]*Field, error) {
	fv := v.LookupPath(cue.ParsePath("fields"))
	if !fv.Exists() {
		return nil, &LoadError{Field: context + ".fields", Message: "fields are required", Pos: v.Pos()}
	}
	iter, err := fv.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var fields []*Field
	for i := 0; iter.Next(); i++ {
		ev := iter.Value()
		where := fmt.Sprintf("%s.fields[%d]", context, i)

		name, err := optionalString(ev, "name")
		if err != nil {
			return nil, err
		}
		tv := ev.LookupPath(cue.ParsePath("type"))
		if !tv.Exists() {
			return nil, &LoadError{Field: where + ".type", Message: "type is required", Pos: ev.Pos()}
		}
		t, err := l.parseType(tv, where+".type")
		if err != nil {
			return nil, err
		}

		var f *Field
		wv := ev.LookupPath(cue.ParsePath("width"))
		switch {
		case wv.Exists():
			width, err := wv.Uint64()
			if err != nil {
				return nil, formatCUEError(err)
			}
			if name == "" {
				f = Padding(t, width)
			} else {
				f = Bits(name, t, width)
			}
		case name == "":
			f = Embed(t)
		default:
			f = Member(name, t)
		}

		if ov := ev.LookupPath(cue.ParsePath("offset")); ov.Exists() {
			off, err := ov.Uint64()
			if err != nil {
				return nil, formatCUEError(err)
			}
			f.At(off/8, off%8)
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func (l *loader) parseType(v cue.Value, context string) (*Type, error) {
	if s, err := v.String(); err == nil {
		switch s {
		case "void":
			return Void(), nil
		case "function":
			return Function(), nil
		}
		t, ok := l.named[s]
		if !ok {
			return nil, &LoadError{Field: context, Message: fmt.Sprintf("unknown type %q", s), Pos: v.Pos()}
		}
		return t, nil
	}

	if pv := v.LookupPath(cue.ParsePath("ptr")); pv.Exists() {
		elem, err := l.parseType(pv, context+".ptr")
		if err != nil {
			return nil, err
		}
		return l.g.PointerTo(elem), nil
	}

	if av := v.LookupPath(cue.ParsePath("array")); av.Exists() {
		elem, err := l.parseType(av, context+".array")
		if err != nil {
			return nil, err
		}
		cv := v.LookupPath(cue.ParsePath("count"))
		if !cv.Exists() {
			return FlexibleArrayOf(elem), nil
		}
		count, err := cv.Uint64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ArrayOf(elem, count), nil
	}

	if vv := v.LookupPath(cue.ParsePath("vector")); vv.Exists() {
		elem, err := l.parseType(vv, context+".vector")
		if err != nil {
			return nil, err
		}
		count, err := requiredUint(v, "count")
		if err != nil {
			return nil, err
		}
		return VectorOf(elem, count), nil
	}

	if anon, err := optionalString(v, "anon"); err != nil {
		return nil, err
	} else if anon != "" {
		return l.parseAnon(v, anon, context)
	}

	return nil, &LoadError{
		Field:   context,
		Message: "type must be a name or one of ptr, array, vector, anon",
		Pos:     v.Pos(),
	}
}

func (l *loader) parseAnon(v cue.Value, kind, context string) (*Type, error) {
	var t *Type
	switch kind {
	case "struct":
		t = l.g.AnonStruct()
	case "union":
		t = l.g.AnonUnion()
	case "enum":
		bits, err := requiredUint(v, "bits")
		if err != nil {
			return nil, err
		}
		unsigned, err := optionalBool(v, "unsigned")
		if err != nil {
			return nil, err
		}
		return Enum("", bits, unsigned), nil
	default:
		return nil, &LoadError{Field: context + ".anon", Message: fmt.Sprintf("unknown anonymous kind %q", kind), Pos: v.Pos()}
	}

	fields, err := l.parseFields(v, context)
	if err != nil {
		return nil, err
	}
	if err := l.g.Complete(t, fields...); err != nil {
		return nil, &LoadError{Field: context, Message: err.Error(), Pos: v.Pos()}
	}
	return t, nil
}

func requiredString(v cue.Value, path string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(path))
	if !fv.Exists() {
		return "", &LoadError{Field: path, Message: path + " is required", Pos: v.Pos()}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalString(v cue.Value, path string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(path))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func requiredUint(v cue.Value, path string) (uint64, error) {
	fv := v.LookupPath(cue.ParsePath(path))
	if !fv.Exists() {
		return 0, &LoadError{Field: path, Message: path + " is required", Pos: v.Pos()}
	}
	n, err := fv.Uint64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return n, nil
}

func optionalBool(v cue.Value, path string) (bool, error) {
	fv := v.LookupPath(cue.ParsePath(path))
	if !fv.Exists() {
		return false, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}
