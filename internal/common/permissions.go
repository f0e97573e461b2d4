package common

// File permission constants
const (
	// FilePermissionSecure is used for files that may hold credentials (dwh.cfg, .env)
	FilePermissionSecure = 0600

	// FilePermissionNormal is used for generated artifacts such as the JSONPaths file
	FilePermissionNormal = 0644

	// DirPermissionNormal is used for normal directories
	DirPermissionNormal = 0755
)
