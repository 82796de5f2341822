package daemonrunner

import (
	"path/filepath"
	"time"
)

// Config holds the daemon's runtime settings, resolved by the CLI before
// the supervisor starts.
type Config struct {
	// Home is the curator home directory holding status files, the
	// database, the lock and the socket.
	Home string

	// Paths
	LogFile  string
	PIDFile  string
	LockFile string
	DBPath   string

	// RPC
	SocketPath string

	// Debounce is how long filesystem events settle before the engine
	// observes a path.
	Debounce time.Duration
}

// DefaultConfig fills in the well-known file locations under home.
func DefaultConfig(home string) Config {
	return Config{
		Home:       home,
		LogFile:    filepath.Join(home, "daemon.log"),
		PIDFile:    filepath.Join(home, "daemon.pid"),
		LockFile:   filepath.Join(home, "daemon.lock"),
		DBPath:     filepath.Join(home, "curator.db"),
		SocketPath: filepath.Join(home, "curator.sock"),
		Debounce:   500 * time.Millisecond,
	}
}
