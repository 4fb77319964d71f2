package internal

import (
	"fmt"
	"sort"
)

// WordSize is the size in bytes of every variable slot: integers, booleans and
// object pointers all take one word.
const WordSize = 4

// Frame layout of a method activation record relative to %ebp.
const (
	ReceiverOffset       = 8
	FirstParameterOffset = 12
	FirstLocalOffset     = -4
)

type BaseType int

const (
	IntegerBaseType BaseType = iota
	BooleanBaseType
	NoneBaseType
	ObjectBaseType
)

func (t BaseType) String() string {
	switch t {
	case IntegerBaseType:
		return "Integer"
	case BooleanBaseType:
		return "Boolean"
	case NoneBaseType:
		return "None"
	case ObjectBaseType:
		return "Object"
	}
	return ""
}

// CompoundType is a base type plus, for objects, the class name.
type CompoundType struct {
	BaseType        BaseType
	ObjectClassName string
}

var (
	IntegerType = CompoundType{BaseType: IntegerBaseType}
	BooleanType = CompoundType{BaseType: BooleanBaseType}
	NoneType    = CompoundType{BaseType: NoneBaseType}
)

func ObjectType(className string) CompoundType {
	return CompoundType{BaseType: ObjectBaseType, ObjectClassName: className}
}

// Equal has no subtype widening: objects are equal only when their class names are.
func (t CompoundType) Equal(other CompoundType) bool {
	if t.BaseType != other.BaseType {
		return false
	}
	return t.BaseType != ObjectBaseType || t.ObjectClassName == other.ObjectClassName
}

func (t CompoundType) IsObject() bool {
	return t.BaseType == ObjectBaseType
}

func (t CompoundType) String() string {
	if t.BaseType == ObjectBaseType {
		return fmt.Sprintf("Object(%s)", t.ObjectClassName)
	}
	return t.BaseType.String()
}

type VariableInfo struct {
	Type   CompoundType
	Offset int
	Size   int
}

type MethodInfo struct {
	ReturnType     CompoundType
	Locals         *VariableTable // parameters included
	ParameterTypes []CompoundType
	LocalsSize     int
}

type ClassInfo struct {
	SuperClassName string
	Members        *VariableTable
	Methods        *MethodTable
	MembersSize    int
}

// Table keeps its entries in insertion order.
type Table[V any] struct {
	names  []string
	values map[string]V
}

func newTable[V any]() *Table[V] {
	return &Table[V]{values: map[string]V{}}
}

// Insert adds or replaces name. Replacing keeps the original position.
func (table *Table[V]) Insert(name string, value V) {
	if _, exist := table.values[name]; !exist {
		table.names = append(table.names, name)
	}
	table.values[name] = value
}

func (table *Table[V]) Lookup(name string) (V, bool) {
	value, exist := table.values[name]
	return value, exist
}

func (table *Table[V]) Contains(name string) bool {
	_, exist := table.values[name]
	return exist
}

func (table *Table[V]) Len() int {
	return len(table.names)
}

// Names returns the names in insertion order.
func (table *Table[V]) Names() []string {
	return append([]string(nil), table.names...)
}

// SortedNames returns the names in lexical order.
func (table *Table[V]) SortedNames() []string {
	names := table.Names()
	sort.Strings(names)
	return names
}

type VariableTable = Table[*VariableInfo]

type MethodTable = Table[*MethodInfo]

func NewVariableTable() *VariableTable {
	return newTable[*VariableInfo]()
}

func NewMethodTable() *MethodTable {
	return newTable[*MethodInfo]()
}

// ClassTable maps class names to their ClassInfo. It is filled by the type
// checker and only read afterwards.
type ClassTable struct {
	Table[*ClassInfo]
}

func NewClassTable() *ClassTable {
	return &ClassTable{Table: *newTable[*ClassInfo]()}
}

// resolve walks from className up the superclass chain and returns the first
// class for which found reports true, together with the accumulated size of
// that class's strict ancestors.
func (table *ClassTable) resolve(className string, found func(*ClassInfo) bool) (string, int, bool) {
	for className != "" {
		classInfo, exist := table.Lookup(className)
		if !exist {
			return "", 0, false
		}
		if found(classInfo) {
			return className, table.ancestorsSize(classInfo), true
		}
		className = classInfo.SuperClassName
	}
	return "", 0, false
}

func (table *ClassTable) ancestorsSize(classInfo *ClassInfo) int {
	size := 0
	for superClassName := classInfo.SuperClassName; superClassName != ""; {
		superClass, exist := table.Lookup(superClassName)
		if !exist {
			break
		}
		size += superClass.MembersSize
		superClassName = superClass.SuperClassName
	}
	return size
}

// ResolveMember finds memberName in className or its ancestors. The returned
// offset is the absolute offset of the member inside the object.
func (table *ClassTable) ResolveMember(className, memberName string) (*VariableInfo, int, bool) {
	declaringClass, ancestorsSize, ok := table.resolve(className, func(classInfo *ClassInfo) bool {
		return classInfo.Members.Contains(memberName)
	})
	if !ok {
		return nil, 0, false
	}
	classInfo, _ := table.Lookup(declaringClass)
	member, _ := classInfo.Members.Lookup(memberName)
	return member, member.Offset + ancestorsSize, true
}

// ResolveMethod finds methodName in className or its ancestors and returns the
// declaring class, which names the assembly label of the method.
func (table *ClassTable) ResolveMethod(className, methodName string) (string, *MethodInfo, bool) {
	declaringClass, _, ok := table.resolve(className, func(classInfo *ClassInfo) bool {
		return classInfo.Methods.Contains(methodName)
	})
	if !ok {
		return "", nil, false
	}
	classInfo, _ := table.Lookup(declaringClass)
	method, _ := classInfo.Methods.Lookup(methodName)
	return declaringClass, method, true
}

// Constructor returns the constructor declared by className itself. Ancestor
// constructors are not inherited.
func (table *ClassTable) Constructor(className string) (*MethodInfo, bool) {
	classInfo, exist := table.Lookup(className)
	if !exist {
		return nil, false
	}
	return classInfo.Methods.Lookup(className)
}

// ObjectSize is the size of an instance: the members of the class and all of
// its ancestors.
func (table *ClassTable) ObjectSize(className string) int {
	classInfo, exist := table.Lookup(className)
	if !exist {
		return 0
	}
	return classInfo.MembersSize + table.ancestorsSize(classInfo)
}

// VariableLocation tells where a name visible inside a method lives.
type VariableLocation struct {
	Info     *VariableInfo
	IsMember bool
	// Offset is frame relative for locals and parameters and the absolute
	// in-object offset for members.
	Offset int
}

// ResolveVariable looks name up in the locals of method first and then in the
// members of className and its ancestors.
func (table *ClassTable) ResolveVariable(className string, method *MethodInfo, name string) (VariableLocation, bool) {
	if method != nil {
		if info, exist := method.Locals.Lookup(name); exist {
			return VariableLocation{Info: info, Offset: info.Offset}, true
		}
	}
	info, offset, ok := table.ResolveMember(className, name)
	if !ok {
		return VariableLocation{}, false
	}
	return VariableLocation{Info: info, IsMember: true, Offset: offset}, true
}
