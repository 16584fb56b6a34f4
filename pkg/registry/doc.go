/*
Package registry binds action names to the handlers a conversation dispatches to.

Three actions are mandatory: say, merge and error. Every other name is a named
action, invoked only when the service asks for it. Handler shapes are fixed by
their Go types, so a handler with the wrong arity cannot be registered.

	reg, err := registry.New(registry.Actions{
		Say:   say,
		Merge: merge,
		Error: onError,
		Named: map[string]registry.ActionFunc{"fetch-weather": fetchWeather},
	})
*/
package registry
