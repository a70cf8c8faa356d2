// Package gcp holds settings shared by the Google Cloud clients.
package gcp

import (
	"strings"

	"google.golang.org/api/option"
)

// Credentials selects how Google clients authenticate.
// With both fields empty the clients use Application Default Credentials.
type Credentials struct {
	File string `mapstructure:"credentialsFile"` // path to a service account key file.
	JSON string `mapstructure:"credentialsJson"` // service account key contents.
}

// ClientOptions returns the option.ClientOption values for c.
// JSON takes precedence over File.
func (c Credentials) ClientOptions() []option.ClientOption {
	switch {
	case strings.TrimSpace(c.JSON) != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(c.JSON))}
	case strings.TrimSpace(c.File) != "":
		return []option.ClientOption{option.WithCredentialsFile(c.File)}
	}
	return nil
}
