package main

import (
	"context"

	"storyweaver-chef/cmd/chef/commands"
	"storyweaver-chef/lib/telemetry"
)

func main() {
	ctx := context.Background()
	telemetry.SetupFromEnv(ctx, "chef")
	telemetry.InstrumentPerfStats(ctx)
	commands.ExecuteContext(ctx)
}
