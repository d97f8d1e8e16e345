package database

// Config holds configuration for the query engine connection.
type Config struct {
	// Host is the database host.
	Host string `mapstructure:"host" default:"localhost"`
	// Port is the database port.
	Port int `mapstructure:"port" default:"3306"`
	// User is the database user. A read-only account is expected.
	User string `mapstructure:"user" default:"root"`
	// Password is the database password.
	Password string `mapstructure:"password" default:""`
	// Name is the default database (dataset) to connect to.
	Name string `mapstructure:"name" default:"information_schema"`
	// Driver is the database driver. Only mysql is supported.
	Driver string `mapstructure:"driver" default:"mysql"`
	// Project is the catalog project name reported for tables on this connection.
	Project string `mapstructure:"project" default:"default"`
	// TimeoutSeconds bounds connection setup and each I/O operation.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
	// MaxOpenConns caps the pool size.
	MaxOpenConns int `mapstructure:"max_open_conns" default:"16"`
}
