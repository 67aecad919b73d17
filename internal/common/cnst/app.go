package cnst

const (
	// AppName is the name of the service
	AppName = "notifyd"
	// CommandName is the name of the CLI binary
	CommandName = "notifyd"
)
