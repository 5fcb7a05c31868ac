package ir

// Version constants for the descriptor schema and the tool.
const (
	// IRVersion is the descriptor schema version.
	IRVersion = "1"

	// ToolVersion is the structlayout version.
	ToolVersion = "0.3.0"
)
