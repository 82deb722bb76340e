// ABOUTME: Build and device identification constants
// ABOUTME: Reported in bridge handshakes and the daemon banner
package version

const (
	// Version is the software version
	Version = "0.3.0"

	// Product is the product name sent in device info
	Product = "pcmstream"

	// Manufacturer is the manufacturer sent in device info
	Manufacturer = "Resonate Protocol"
)

// String returns "product version"
func String() string {
	return Product + " " + Version
}
