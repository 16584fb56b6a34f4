package wit_test

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/ptab/wit"
	"github.com/ptab/wit/pkg/actions"
	"github.com/ptab/wit/pkg/domain"
	"github.com/ptab/wit/pkg/ports"
	"github.com/ptab/wit/pkg/registry"
)

// ExampleClient_RunActions runs a scripted conversation without network access.
func ExampleClient_RunActions() {
	script := []*domain.Instruction{
		domain.Merge(domain.Entities{"location": {{Value: "Lisbon"}}}),
		domain.Act("fetch-weather"),
		domain.Say("It will be sunny in Lisbon."),
		domain.Stop(),
	}
	step := 0
	transport := ports.TransportFunc(func(ctx context.Context, sessionID string, text *string, c domain.Context) (*domain.Instruction, error) {
		inst := script[step]
		step++
		return inst, nil
	})

	client, err := wit.New("", registry.Actions{
		Say:   actions.Transcript(os.Stdout),
		Merge: actions.MergeEntities,
		Error: actions.PrintError(os.Stdout),
		Named: map[string]registry.ActionFunc{
			"fetch-weather": func(ctx context.Context, sessionID string, c domain.Context, done registry.Done) {
				c["forecast"] = "sunny"
				done(c)
			},
		},
	}, wit.WithTransport(transport))
	if err != nil {
		log.Fatal(err)
	}

	next, err := client.RunActions(context.Background(), "example-session", "weather in Lisbon", nil, 0)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(next["location"], next["forecast"])

	// Output:
	// It will be sunny in Lisbon.
	// Lisbon sunny
}
