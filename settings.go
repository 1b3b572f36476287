package tasklog

import (
	"os"
	"sync/atomic"
)

/*
Process-wide inputs owned by the surrounding application. The task log only reads
them, except for the version-header flag which has exactly one false->true transition
performed by whichever flush wins the compare-and-swap.
*/

// version is set at build time using
// -ldflags "-X github.com/abyssdigger/tasklog.version=v1.2.3".
var version = DEFAULT_VERSION

var settings struct {
	verbose atomic.Bool
	version atomic.Pointer[string]
	tag     atomic.Pointer[string]
	output  atomic.Pointer[Sink]
}

// Set once by the first verbose flush that wins the race.
var versionLogged atomic.Bool

var defaultOutput = NewSink(os.Stderr)

// Enables or disables verbose logging (version header, failure announcements).
func SetVerbose(verbose bool) {
	settings.verbose.Store(verbose)
}

// True if verbose logging is enabled.
func IsVerbose() bool {
	return settings.verbose.Load()
}

// Overrides the product version announced by the version header.
func SetVersion(v string) {
	settings.version.Store(&v)
}

// Returns the product version announced by the version header.
func Version() string {
	if v := settings.version.Load(); v != nil {
		return *v
	}
	return version
}

// Sets the product tag rendered in every line. Entries already created keep
// the tag they were created with.
func SetTag(tag string) {
	settings.tag.Store(&tag)
}

// Returns the product tag rendered in every line.
func Tag() string {
	if t := settings.tag.Load(); t != nil {
		return *t
	}
	return DEFAULT_TAG
}

// Replaces the process default sink used by task logs created without an explicit
// output. nil restores the default sink on os.Stderr.
func SetOutput(s *Sink) {
	settings.output.Store(s)
}

// Returns the process default sink.
func Output() *Sink {
	if s := settings.output.Load(); s != nil {
		return s
	}
	return defaultOutput
}

// True once the version header has been emitted by some flush.
func VersionLogged() bool {
	return versionLogged.Load()
}

// Wins the version-header race at most once per process.
func claimVersionHeader() bool {
	return !versionLogged.Load() && versionLogged.CompareAndSwap(false, true)
}
