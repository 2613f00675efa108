package media

import (
	"net"
	"sync"

	"github.com/rs/zerolog/log"
)

// AddrResolver yields the externally announced address for ICE candidates.
// A configured address wins; otherwise the outbound interface address is
// detected once and cached.
type AddrResolver struct {
	configured string

	once     sync.Once
	detected string
}

func NewAddrResolver(configured string) *AddrResolver {
	return &AddrResolver{configured: configured}
}

func (r *AddrResolver) AnnouncedIP() string {
	if r.configured != "" {
		return r.configured
	}
	r.once.Do(func() {
		// No packet is sent; dialing UDP just picks the default route.
		conn, err := net.Dial("udp4", "8.8.8.8:80")
		if err != nil {
			log.Warn().Err(err).Str("module", "media").Msg("announced address detection failed")
			return
		}
		defer conn.Close()
		if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
			r.detected = addr.IP.String()
		}
	})
	return r.detected
}
