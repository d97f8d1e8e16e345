package storage

import "strings"

// Config holds configuration for the storage provider.
type Config struct {
	// Endpoint is the URL of the storage service.
	Endpoint string `mapstructure:"endpoint" default:"localhost:9000"`
	// AccessKey is the access key ID for authentication.
	AccessKey string `mapstructure:"access_key" default:"minioadmin"`
	// SecretKey is the secret access key for authentication.
	SecretKey string `mapstructure:"secret_key" default:"minioadmin"`
	// UseSSL indicates whether to use SSL/TLS for connections.
	UseSSL bool `mapstructure:"use_ssl" default:"false"`
	// Bucket holds document exports and lineage snapshots.
	Bucket string `mapstructure:"bucket" default:"metadata-sync"`
	// LineagePrefix is the key prefix of per-table lineage snapshots.
	LineagePrefix string `mapstructure:"lineage_prefix" default:"lineage/"`
	// Region is the location of the bucket (e.g., us-east-1).
	Region string `mapstructure:"region" default:""`
	// TimeoutSeconds is the connection timeout in seconds.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}

// endpoint returns the host[:port] minio expects and whether TLS is used. An
// https:// scheme turns TLS on regardless of UseSSL.
func (c Config) endpoint() (string, bool) {
	host := strings.TrimSpace(c.Endpoint)
	switch {
	case strings.HasPrefix(host, "https://"):
		return strings.TrimSuffix(strings.TrimPrefix(host, "https://"), "/"), true
	case strings.HasPrefix(host, "http://"):
		return strings.TrimSuffix(strings.TrimPrefix(host, "http://"), "/"), c.UseSSL
	}
	return strings.TrimSuffix(host, "/"), c.UseSSL
}

// LineageRoot returns LineagePrefix as an object key prefix: no leading slash and
// exactly one trailing slash. Empty means lineage is disabled.
func (c Config) LineageRoot() string {
	prefix := strings.Trim(strings.TrimSpace(c.LineagePrefix), "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}
