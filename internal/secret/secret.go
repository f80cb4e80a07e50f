// Package secret provides encrypted storage for service credentials such as
// the Grafana admin login and application API tokens.
package secret

import (
	"fmt"
	"strings"
	"time"
)

// Service identifies which service a secret belongs to.
type Service string

const (
	// ServiceGrafana holds the Grafana admin user and password.
	ServiceGrafana Service = "grafana"
	// ServicePrometheus holds the basic-auth user and password for a
	// prometheus protected by a web config.
	ServicePrometheus Service = "prometheus"
	// ServiceApp holds an API token for the monitored application.
	ServiceApp Service = "app"
)

// Secret is a stored credential for one service.
type Secret struct {
	Service   Service   `json:"service"`
	User      string    `json:"user,omitempty"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
}

// Store defines the secret storage interface.
type Store interface {
	Save(sec Secret) error
	Get(service Service) (*Secret, error)
	Delete(service Service) error
	List() ([]Secret, error)
}

// KnownServices returns all services warden can store secrets for.
func KnownServices() []Service {
	return []Service{ServiceGrafana, ServicePrometheus, ServiceApp}
}

// IsKnownService reports whether s is a service warden knows about.
func IsKnownService(s Service) bool {
	switch s {
	case ServiceGrafana, ServicePrometheus, ServiceApp:
		return true
	default:
		return false
	}
}

// ParseService validates a service name from the command line.
func ParseService(name string) (Service, error) {
	s := Service(name)
	if !IsKnownService(s) {
		known := make([]string, 0, len(KnownServices()))
		for _, k := range KnownServices() {
			known = append(known, string(k))
		}
		return "", fmt.Errorf("unknown service %q; known services: %s", name, strings.Join(known, ", "))
	}
	return s, nil
}
