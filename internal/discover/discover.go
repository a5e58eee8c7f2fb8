// Package discover announces a running viewer on the local network
// over mDNS so control scripts on other machines can find it without
// configuration, and browses for viewers announced by others.
package discover

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	// Service is the mDNS service type viewers announce under.
	Service = "_ocpviewer._tcp"
	// Domain is the mDNS domain viewers announce in.
	Domain = "local."
)

// Opts holds parameters for Announce.
type Opts struct {
	Port     int       // serve port, required
	Instance string    // instance name, default ocpviewer-<hostname>
	Out      io.Writer // progress output, default os.Stdout
}

// Entry is one viewer found by Browse.
type Entry struct {
	Instance string
	Host     string
	Port     int
	Addrs    []string
}

func defaultInstance() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "viewer"
	}
	return "ocpviewer-" + host
}

// Announce registers the viewer on the local network and keeps the
// announcement up until ctx ends, then withdraws it. It blocks, so run
// it in its own goroutine.
func Announce(ctx context.Context, opts Opts) error {
	if opts.Port <= 0 {
		return fmt.Errorf("discover: port is required")
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	instance := opts.Instance
	if instance == "" {
		instance = defaultInstance()
	}

	srv, err := zeroconf.Register(instance, Service, Domain, opts.Port,
		[]string{"path=/viewer"}, nil)
	if err != nil {
		return fmt.Errorf("discover: register %s: %w", instance, err)
	}
	fmt.Fprintf(out, "discover: announcing %s on %s port %d\n", instance, Service, opts.Port)

	<-ctx.Done()
	srv.Shutdown()
	return nil
}

// Browse looks for announced viewers for the given window and returns
// what it found. A short window (a second or two) is usually enough on
// a local network.
func Browse(ctx context.Context, window time.Duration) ([]Entry, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("discover: resolver: %w", err)
	}

	browseCtx, cancel := context.WithTimeout(ctx, window)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	var found []Entry
	done := make(chan struct{})
	go func() {
		defer close(done)
		for entry := range entries {
			e := Entry{
				Instance: entry.Instance,
				Host:     entry.HostName,
				Port:     entry.Port,
			}
			for _, ip := range entry.AddrIPv4 {
				e.Addrs = append(e.Addrs, ip.String())
			}
			found = append(found, e)
		}
	}()

	if err := resolver.Browse(browseCtx, Service, Domain, entries); err != nil {
		return nil, fmt.Errorf("discover: browse: %w", err)
	}
	<-browseCtx.Done()
	<-done
	return found, nil
}
