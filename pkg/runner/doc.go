/*
Package runner implements an interactive conversation shell.

Each line read from the user runs one conversation turn through a
session.Runner (usually a *wit.Client). The context returned by a turn seeds
the next one, either in memory or through a session.Manager.

# Usage

	shell := runner.NewShell(runner.WithSessionID("user-1"))
	client, err := wit.New(token, registry.Actions{
		Say:   shell.SayAction(),
		Merge: actions.MergeEntities,
		Error: shell.ErrorAction(),
	})
	if err != nil {
		log.Fatal(err)
	}
	if err := shell.Run(ctx, client); err != nil {
		log.Fatal(err)
	}
*/
package runner
