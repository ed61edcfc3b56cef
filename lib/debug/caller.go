package debug

import (
	"runtime"
	"strings"
)

// GetFullCallerName returns the package-qualified name of the calling function,
// used to name trace spans after the operation that started them. skip moves up
// the stack, 1 (the default) names the immediate caller.
func GetFullCallerName(skip ...int) string {
	skipFrames := 1
	if len(skip) > 0 {
		skipFrames = skip[0]
	}

	pc, _, _, ok := runtime.Caller(skipFrames)
	if !ok {
		return "unknown"
	}

	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "unknown"
	}

	// Strip the module path, keeping package.Function.
	fullName := fn.Name()
	lastSlash := strings.LastIndex(fullName, "/")
	if lastSlash != -1 {
		fullName = fullName[lastSlash+1:]
	}
	return fullName
}
