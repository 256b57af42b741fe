// Package version provides version information for courtcache.
package version

// Version is the version of `courtcache` and `courtcached`.
// Set to "dev" by default for local builds.
// Overridden at link time with -ldflags "-X".
var version = "dev"

// Get returns the version of `courtcache` and `courtcached`.
func Get() string {
	return version
}
