// Package discovery advertises the MPD listener over mDNS and finds other
// MPD servers on the local network.
package discovery

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strconv"

	"github.com/grandcat/zeroconf"
	"github.com/rs/zerolog/log"
)

const (
	// ServiceType is the DNS-SD type MPD clients browse for
	ServiceType = "_mpd._tcp"
	domain      = "local."
)

// Advertisement is a registered service. Shutdown withdraws it.
type Advertisement struct {
	server *zeroconf.Server
	name   string
	port   int
}

// Advertise registers name on port under ServiceType
func Advertise(name string, port int, text ...string) (*Advertisement, error) {
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid port %d", port)
	}

	server, err := zeroconf.Register(name, ServiceType, domain, port, text, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register %s: %w", ServiceType, err)
	}

	log.Info().Str("name", name).Int("port", port).Msg("Advertising MPD service")
	return &Advertisement{server: server, name: name, port: port}, nil
}

// Shutdown withdraws the advertisement
func (a *Advertisement) Shutdown() {
	a.server.Shutdown()
	log.Debug().Str("name", a.name).Msg("MPD service withdrawn")
}

// PortOf extracts the port from a listen address such as "0.0.0.0:6600"
func PortOf(addr string) (int, error) {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("invalid port in listen address %q", addr)
	}
	return port, nil
}

// Service is a discovered MPD server
type Service struct {
	Name string
	Host string
	Port int
}

// Address returns host:port
func (s Service) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Browse collects MPD servers until ctx is done
func Browse(ctx context.Context) ([]Service, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	found := make(map[string]Service)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for entry := range entries {
			if svc, ok := toService(entry); ok {
				found[svc.Name] = svc
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, domain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for %s: %w", ServiceType, err)
	}

	// the resolver closes entries once ctx is done
	<-ctx.Done()
	<-done

	services := make([]Service, 0, len(found))
	for _, svc := range found {
		services = append(services, svc)
	}
	sort.Slice(services, func(i, j int) bool { return services[i].Name < services[j].Name })
	return services, nil
}

func toService(entry *zeroconf.ServiceEntry) (Service, bool) {
	if entry == nil {
		return Service{}, false
	}

	var host string
	switch {
	case len(entry.AddrIPv4) > 0:
		host = entry.AddrIPv4[0].String()
	case len(entry.AddrIPv6) > 0:
		host = entry.AddrIPv6[0].String()
	default:
		return Service{}, false
	}
	return Service{Name: entry.Instance, Host: host, Port: entry.Port}, true
}
