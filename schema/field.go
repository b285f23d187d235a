package schema

import "fmt"

type FieldType uint8

const (
	// TypeAny accepts any value as is.
	TypeAny FieldType = iota
	TypeString
	TypeInt
	TypeFloat
	TypeBool
	// TypeRef holds the lookup key of a record living in another segment.
	// Every TypeRef field must be mapped in Schema.Partials.
	TypeRef
)

func (t FieldType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "bool"
	case TypeRef:
		return "ref"
	default:
		return "any"
	}
}

// Field declares one member of a record.
type Field struct {
	Name string
	Type FieldType
	// Ref names the referenced schema when Type is TypeRef. Informational only:
	// resolution goes through the segment named in Schema.Partials.
	Ref string
	// Optional fields may be absent or nil.
	Optional bool
}

func String(name string) Field { return Field{Name: name, Type: TypeString} }
func Int(name string) Field    { return Field{Name: name, Type: TypeInt} }
func Float(name string) Field  { return Field{Name: name, Type: TypeFloat} }
func Bool(name string) Field   { return Field{Name: name, Type: TypeBool} }
func Any(name string) Field    { return Field{Name: name, Type: TypeAny} }

// Ref declares a partial reference to a record of schema ref.
func Ref(name, ref string) Field { return Field{Name: name, Type: TypeRef, Ref: ref} }

// Opt marks the field optional.
func (f Field) Opt() Field {
	f.Optional = true
	return f
}

func (f Field) String() string {
	if f.Type == TypeRef {
		return fmt.Sprintf("%s:ref(%s)", f.Name, f.Ref)
	}
	return fmt.Sprintf("%s:%s", f.Name, f.Type)
}
