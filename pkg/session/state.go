package session

// State is the lifecycle stage of the signed-in session.
type State string

const (
	// StateAnonymous means no token is held; only public calls succeed.
	StateAnonymous State = "ANONYMOUS"
	// StateAuthenticating means a login call is in flight.
	StateAuthenticating State = "AUTHENTICATING"
	// StateAuthenticated is normal operation.
	StateAuthenticated State = "AUTHENTICATED"
	// StateRefreshing is held while a silent token refresh is in flight.
	StateRefreshing State = "REFRESHING"
)
