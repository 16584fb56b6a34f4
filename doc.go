/*
Package wit is a client for the wit.ai converse API and the action loop that drives it.

A conversation turn is a sequence of steps. The client sends the user's message and
the current context, the service answers with one instruction, the client runs the
matching local action, and the loop repeats with the context that action returned.
The turn ends when the service says stop, when an error step is handled, or when the
step budget is spent.

# Key Features

  - Typed actions: say, merge and error are mandatory; every other action is named.
  - Context isolation: actions always receive a deep copy of the context.
  - Soft budget: running out of steps is a successful halt, not an error.
  - Advisory watchdog: slow actions are reported, never aborted.
  - Pluggable transport, logger and lifecycle hooks.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"
		"os"

		"github.com/ptab/wit"
		"github.com/ptab/wit/pkg/actions"
		"github.com/ptab/wit/pkg/domain"
		"github.com/ptab/wit/pkg/registry"
	)

	func main() {
		client, err := wit.New(os.Getenv("WIT_ACCESS_TOKEN"), registry.Actions{
			Say:   actions.Transcript(os.Stdout),
			Merge: actions.MergeEntities,
			Error: actions.LogError(nil),
			Named: map[string]registry.ActionFunc{
				"fetch-weather": func(ctx context.Context, sessionID string, c domain.Context, done registry.Done) {
					c["forecast"] = "sunny"
					done(c)
				},
			},
		})
		if err != nil {
			log.Fatal(err)
		}

		next, err := client.RunActions(context.Background(), domain.NewSessionID(), "weather in Paris?", nil, 0)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(next)
	}
*/
package wit
