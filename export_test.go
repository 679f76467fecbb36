package reflexion

// Export internal symbols for testing.
var (
	ActorCriticToolSpec = actorCriticTool
	ReflexionToolSpec   = reflexionTool
	NewToolHandler      = toolHandler
)
