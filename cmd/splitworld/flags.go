package main

import "flag"

var (
	// configFlag points at a TOML file; it is watched for changes while running.
	configFlag = flag.String("config", "", "TOML config file (gravity, friction, elasticity, ports)")

	// workersFlag sizes the pipeline team, boss included. 0 uses every CPU.
	workersFlag = flag.Int("workers", 0, "number of pipeline threads including the boss (0 = NumCPU)")

	roleFlag = flag.String("role", "standalone", "standalone, host or worker")

	boxesFlag     = flag.Int("boxes", 24, "boxes stacked on the left")
	trianglesFlag = flag.Int("triangles", 24, "triangles stacked on the right")
	blobbyFlag    = flag.Bool("blobby", true, "drop the blobby into the scene")

	// presetFlag replaces the generated scene with a saved preset.
	presetFlag = flag.String("preset", "", "load objects from a JSON preset instead of the default scene")

	viewerFlag = flag.String("viewer", "", "serve the websocket spectator feed on this address, e.g. :8080")

	debugFlag = flag.Bool("debug", false, "enable debug logging")
)
