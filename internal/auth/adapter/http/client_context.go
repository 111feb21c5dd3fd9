package http

import (
	"strings"

	"secure-auth/internal/auth/domain/model"

	"github.com/gofiber/fiber/v2"
	"github.com/mssola/user_agent"
)

// Device types reported in DeviceInfo.Device.
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceBot     = "bot"
)

// ClientContextResolver derives the client fingerprint of a request.
type ClientContextResolver struct {
	trustProxyHeaders bool
}

// NewClientContextResolver creates a resolver. When trustProxyHeaders is set the
// first X-Forwarded-For entry, then X-Real-IP, take precedence over the peer address.
func NewClientContextResolver(trustProxyHeaders bool) *ClientContextResolver {
	return &ClientContextResolver{trustProxyHeaders: trustProxyHeaders}
}

// Resolve returns the IP, user agent and parsed device of the request.
// Location is left nil and filled by the issuer's geolocator.
func (r *ClientContextResolver) Resolve(c *fiber.Ctx) model.ClientContext {
	ua := strings.TrimSpace(c.Get(fiber.HeaderUserAgent))
	if ua == "" {
		ua = model.UnknownValue
	}
	return model.ClientContext{
		IPAddress:  r.clientIP(c),
		UserAgent:  ua,
		DeviceInfo: ParseDeviceInfo(ua),
	}
}

func (r *ClientContextResolver) clientIP(c *fiber.Ctx) string {
	ip := ""
	if r.trustProxyHeaders {
		if forwarded := c.Get(fiber.HeaderXForwardedFor); forwarded != "" {
			ip = strings.Split(forwarded, ",")[0]
		} else {
			ip = c.Get("X-Real-IP")
		}
	}
	if strings.TrimSpace(ip) == "" {
		ip = c.IP()
	}
	return NormalizeIP(ip)
}

// NormalizeIP trims the value and strips the IPv4-mapped IPv6 prefix.
// An empty value becomes model.UnknownValue.
func NormalizeIP(ip string) string {
	ip = strings.TrimSpace(ip)
	ip = strings.TrimPrefix(ip, "::ffff:")
	if ip == "" {
		return model.UnknownValue
	}
	return ip
}

// ParseDeviceInfo describes the browser, OS and device class of a user agent.
func ParseDeviceInfo(ua string) model.DeviceInfo {
	parsed := user_agent.New(ua)

	browser, version := parsed.Browser()
	os := parsed.OSInfo()

	device := DeviceDesktop
	switch {
	case parsed.Bot():
		device = DeviceBot
	case parsed.Mobile():
		device = DeviceMobile
	}

	return model.DeviceInfo{
		Browser: withVersion(browser, version),
		OS:      withVersion(os.Name, os.Version),
		Device:  device,
	}
}

func withVersion(name, version string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Unknown"
	}
	return strings.TrimSpace(name + " " + strings.TrimSpace(version))
}
