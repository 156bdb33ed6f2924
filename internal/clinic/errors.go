package clinic

import "errors"

var (
	// ErrBranchNotFound is returned when a slug or id is not in the directory.
	ErrBranchNotFound = errors.New("clinic: branch not found")
	// ErrNotLoaded is returned before the first successful Load.
	ErrNotLoaded = errors.New("clinic: directory not loaded")
	// ErrCacheMiss is returned by a Cache holding no snapshot.
	ErrCacheMiss = errors.New("clinic: snapshot cache miss")
)
