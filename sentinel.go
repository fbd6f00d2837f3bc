package di

// sentinelValue is a unique marker compared by identity. It carries no
// payload; only pointer equality matters.
type sentinelValue struct {
	name string
}

func (s *sentinelValue) String() string {
	return s.name
}

var sentinel = &sentinelValue{name: "di.NotPassed"}

// NotPassed signals that an optional argument was omitted at a call site.
// Injected functions drop NotPassed arguments before binding so the
// parameter falls back to its declared default.
var NotPassed any = sentinel

// Skip is NotPassed under the name used with Set and Patch: passing Skip
// leaves the current override untouched.
var Skip = NotPassed

// IsSentinel reports whether value is the NotPassed/Skip marker.
func IsSentinel(value any) bool {
	return value == NotPassed
}
