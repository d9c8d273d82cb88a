package leads

import "regexp"

var (
	androidUA = regexp.MustCompile(`(?i)android`)
	iosUA     = regexp.MustCompile(`(?i)iphone|ipad|ipod`)
	mobileUA  = regexp.MustCompile(`(?i)mobile`)
	tabletUA  = regexp.MustCompile(`(?i)tablet`)
)

// ClassifyDevice derives a device class from a user agent. First match wins:
// android, ios, generic mobile, tablet, otherwise desktop.
func ClassifyDevice(userAgent string) DeviceType {
	switch {
	case androidUA.MatchString(userAgent):
		return DeviceAndroid
	case iosUA.MatchString(userAgent):
		return DeviceIOS
	case mobileUA.MatchString(userAgent):
		return DeviceMobile
	case tabletUA.MatchString(userAgent):
		return DeviceTablet
	default:
		return DeviceDesktop
	}
}
