// Package catalogue holds build metadata shared by the CLI and the backup
// manifest.
package catalogue

// Version is the catalogue release. Backup manifests record it.
const Version = "0.1.0"

// ModulePath is the Go module path.
const ModulePath = "github.com/mesh-intelligence/catalogue"
