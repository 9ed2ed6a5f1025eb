package symbols

import (
	"fmt"
	"strconv"
)

// DebugID is a stable (ordinal, generation) pair assigned to a synthesized entity.
type DebugID struct {
	Ordinal    int
	Generation int
}

func (id DebugID) suffix() string {
	if id.Generation == 0 {
		return strconv.Itoa(id.Ordinal)
	}
	return fmt.Sprintf("%d#%d", id.Ordinal, id.Generation)
}

// DisplayClassName names an environment class or struct.
func DisplayClassName(method, env DebugID) string {
	return "<>c__DisplayClass" + method.suffix() + "_" + env.suffix()
}

// LambdaMethodName names the method extracted from a lambda.
func LambdaMethodName(containing string, method, lambda DebugID) string {
	return "<" + containing + ">b__" + method.suffix() + "_" + lambda.suffix()
}

// LocalFunctionName names the method extracted from a local function.
func LocalFunctionName(containing, local string, method, lambda DebugID) string {
	return "<" + containing + ">g__" + local + "|" + method.suffix() + "_" + lambda.suffix()
}

// EnvLocalName names the local holding an environment instance.
func EnvLocalName(ordinal int) string {
	return "CS$<>8__locals" + strconv.Itoa(ordinal)
}

// ParentFieldName names the field linking an environment to its parent frame.
func ParentFieldName(parentIsThis bool, ordinal int) string {
	if parentIsThis {
		return "<>4__this"
	}
	return EnvLocalName(ordinal)
}

// SingletonClassName is the name of the shared static environment.
const SingletonClassName = "<>c"

// SingletonFieldName is the field holding the shared static environment instance.
const SingletonFieldName = "<>9"

// StaticCacheFieldName names the delegate cache field on the singleton environment.
func StaticCacheFieldName(method, lambda DebugID) string {
	return "<>9__" + method.suffix() + "_" + lambda.suffix()
}

// InstanceCacheFieldName names a delegate cache field on a display class.
func InstanceCacheFieldName(lambda DebugID) string {
	return "<>9__" + lambda.suffix()
}

// CacheLocalName names a method-level delegate cache local.
func CacheLocalName(ordinal int) string {
	return "CS$<>9__CachedAnonymousMethodDelegate" + strconv.Itoa(ordinal)
}

// HoistedName names the field holding a captured parameter or local.
func HoistedName(name string) string {
	if name == "this" {
		return "<>4__this"
	}
	return name
}
