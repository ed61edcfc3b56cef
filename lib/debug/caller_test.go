package debug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetFullCallerName(t *testing.T) {
	t.Run("direct call", func(t *testing.T) {
		assert.Equal(t, "debug.TestGetFullCallerName.func1", GetFullCallerName())
	})
	t.Run("skip 0 names this function itself", func(t *testing.T) {
		assert.Equal(t, "debug.GetFullCallerName", GetFullCallerName(0))
	})
	t.Run("skip 1 names the caller", func(t *testing.T) {
		assert.Equal(t, "debug.TestGetFullCallerName.func3", GetFullCallerName(1))
	})
	t.Run("named function", func(t *testing.T) {
		assert.Equal(t, "debug.helperFunction", helperFunction())
	})
	t.Run("method", func(t *testing.T) {
		assert.Equal(t, "debug.(*testCaller).callGetCallerName", (&testCaller{}).callGetCallerName())
	})
	t.Run("skip beyond the stack", func(t *testing.T) {
		assert.Equal(t, "unknown", GetFullCallerName(100))
	})
}

func helperFunction() string {
	return GetFullCallerName()
}

type testCaller struct{}

func (tc *testCaller) callGetCallerName() string {
	return GetFullCallerName()
}
