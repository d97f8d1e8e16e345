package scan

// Config holds the managed scan service settings.
type Config struct {
	// Endpoint is the base URL of the scan service API.
	Endpoint string `mapstructure:"endpoint" default:""`
	// Token is the bearer token sent with every request.
	Token string `mapstructure:"token" default:""`
	// Location is the region scans are created in.
	Location string `mapstructure:"location" default:"us"`
	// TimeoutSeconds bounds a single request.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}
