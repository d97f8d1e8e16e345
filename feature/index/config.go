package index

// Config holds the search index connection settings.
type Config struct {
	// Endpoint is the base URL of the search index API.
	Endpoint string `mapstructure:"endpoint" default:""`
	// Token is the bearer token sent with every request.
	Token string `mapstructure:"token" default:""`
	// Name is the index documents are written to.
	Name string `mapstructure:"name" default:"tables"`
	// TimeoutSeconds bounds a single request.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}
