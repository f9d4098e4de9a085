package useragent

import (
	ua "github.com/mileusna/useragent"

	"github.com/mkatta/pushgate/pkg/types"
)

// Parse derives browser/OS/device metadata from a raw User-Agent
// header. Falls back to "desktop" when the device class is unknown,
// which is what the overwhelming majority of push-capable browsers
// report.
func Parse(userAgent string) *types.BrowserDetails {
	parsed := ua.Parse(userAgent)

	details := &types.BrowserDetails{UserAgent: userAgent}
	details.Browser.Name = parsed.Name
	details.Browser.Version = parsed.Version
	details.OS.Name = parsed.OS
	details.OS.Version = parsed.OSVersion

	switch {
	case parsed.Mobile:
		details.DeviceType = "mobile"
	case parsed.Tablet:
		details.DeviceType = "tablet"
	default:
		details.DeviceType = "desktop"
	}
	return details
}
