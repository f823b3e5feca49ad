package fixture

import (
	"fmt"
	"reflect"
)

// defaultSubjectBody returns the fallback subject computation for a scope
// with no explicit subject anywhere in its chain: the nearest described
// target, instantiated per test if it is a type, returned unchanged if it is
// a plain value. The body is handed to the memoization path like any other
// definition, so instantiation happens lazily on first access.
func defaultSubjectBody(start *Scope) (Body, bool) {
	for cur := start; cur != nil; cur = cur.parent {
		if !cur.hasDescribed {
			continue
		}
		if t := cur.describedType; t != nil {
			return func(rc *ResolveCtx) (any, error) {
				return instantiate(t)
			}, true
		}
		value := cur.described
		return func(rc *ResolveCtx) (any, error) {
			return value, nil
		}, true
	}
	return nil, false
}

// instantiate builds a fresh zero-argument instance of t. Pointer types
// yield a pointer to a new pointee, mirroring new(T).
func instantiate(t reflect.Type) (any, error) {
	switch t.Kind() {
	case reflect.Ptr:
		return reflect.New(t.Elem()).Interface(), nil
	case reflect.Chan, reflect.Func, reflect.Interface:
		return nil, fmt.Errorf("cannot construct default subject of type %s", t)
	default:
		return reflect.New(t).Elem().Interface(), nil
	}
}

// Matcher is the contract the external assertion system implements.
type Matcher interface {
	// Match reports whether actual satisfies the matcher
	Match(actual any) (bool, error)
	// FailureMessage describes a failed positive expectation
	FailureMessage(actual any) string
	// NegatedFailureMessage describes a failed negative expectation
	NegatedFailureMessage(actual any) string
}

// Expectation wraps the resolved subject for consumption by the assertion
// system. It holds no state beyond the value itself.
type Expectation struct {
	value any
}

// Target resolves the running test's subject and wraps it for assertion.
// Resolution goes through the same guard, chain and cache as any fixture.
func Target(run *TestRun) (*Expectation, error) {
	val, err := Get(run, SubjectName)
	if err != nil {
		return nil, err
	}
	return &Expectation{value: val}, nil
}

// TargetAs resolves the subject with a typed result.
func TargetAs[T any](run *TestRun) (T, error) {
	return GetAs[T](run, SubjectName)
}

// Value returns the resolved subject.
func (e *Expectation) Value() any {
	return e.value
}

// ValueAs returns the resolved subject with a typed result. A free function
// because methods cannot take type parameters.
func ValueAs[T any](e *Expectation) (T, error) {
	return assertType[T](SubjectName, e.value)
}

// Should asserts that the subject satisfies the matcher.
func (e *Expectation) Should(m Matcher) error {
	ok, err := m.Match(e.value)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s", m.FailureMessage(e.value))
	}
	return nil
}

// ShouldNot asserts that the subject does not satisfy the matcher.
func (e *Expectation) ShouldNot(m Matcher) error {
	ok, err := m.Match(e.value)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("%s", m.NegatedFailureMessage(e.value))
	}
	return nil
}
