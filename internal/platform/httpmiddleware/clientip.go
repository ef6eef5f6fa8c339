package httpmiddleware

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIP 返回请求方 IP，用于点击统计。
//
// 只有当请求来自可信代理（回环、RFC1918、IPv6 ULA，例如同机 Caddy 或 docker bridge）时
// 才看转发头，否则客户端可以随意伪造 X-Forwarded-For。
func ClientIP(req *http.Request) string {
	remoteHost, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		remoteHost = req.RemoteAddr
	}
	remote, err := netip.ParseAddr(remoteHost)
	if err != nil || !isTrustedProxy(remote) {
		return remoteHost
	}

	// Cloudflare -> Caddy -> app：优先 CF-Connecting-IP
	if ip, ok := parseIP(req.Header.Get("CF-Connecting-IP")); ok {
		return ip
	}
	// 第一个是原始客户端，后面是沿途代理
	if xff := req.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip, ok := parseIP(first); ok {
			return ip
		}
	}
	if ip, ok := parseIP(req.Header.Get("X-Real-IP")); ok {
		return ip
	}
	return remoteHost
}

func parseIP(s string) (string, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return "", false
	}
	return addr.Unmap().String(), true
}

func isTrustedProxy(ip netip.Addr) bool {
	ip = ip.Unmap()
	return ip.IsLoopback() || ip.IsPrivate()
}
