package metrics

const (
	namespaceBounzy = "bounzy"
)

const (
	subsystemLifecycle = "lifecycle"
	subsystemWatcher   = "watcher"
	subsystemRelayer   = "relayer"
	subsystemRest      = "rest"
)
