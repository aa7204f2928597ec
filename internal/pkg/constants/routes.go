package constants

// Static route constants
const (
	UploadsRoute     = "/uploads"
	PublicRoute      = "/"
	LoginRoute       = "/login"
	RegisterRoute    = "/register"
	ConnectionsRoute = "/connections"
	// provider redirect target of the ad account connection flow
	ConnectionCallbackRoute = "/auth/callback"
	// Upload path without leading slash for URL construction
	UploadsPath = "uploads"
)
