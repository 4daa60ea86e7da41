package protocol

import "time"

// Status updates stay useful for a while; move notifications go stale fast.
var defaultTTLs = map[string]time.Duration{
	TypeTripStatus:    30 * time.Minute,
	TypeSegmentStatus: 30 * time.Minute,
	TypeTripInvoicing: 60 * time.Minute,

	TypeTripUpsert:     60 * time.Minute,
	TypeTripVehicle:    30 * time.Minute,
	TypeTripDelete:     60 * time.Minute,
	TypeSegmentUpsert:  60 * time.Minute,
	TypeResourceUpsert: 24 * time.Hour,

	TypeTripMoved:    10 * time.Minute,
	TypeSegmentMoved: 10 * time.Minute,

	TypeTripMoveRejected:    5 * time.Minute,
	TypeSegmentMoveRejected: 5 * time.Minute,
	TypeDecorationChanged:   5 * time.Minute,
}

// FallbackTTL is used when no specific TTL is configured.
const FallbackTTL = 10 * time.Minute

func DefaultTTLFor(msgType string) time.Duration {
	if ttl, ok := defaultTTLs[msgType]; ok {
		return ttl
	}
	return FallbackTTL
}

// IsExpired returns true if the envelope has passed its expiry time.
func IsExpired(env *Envelope) bool {
	if env.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().UTC().After(env.ExpiresAt)
}

// IsExpiredHeader checks expiry using only the raw header.
func IsExpiredHeader(hdr *RawHeader) bool {
	if hdr.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().UTC().After(hdr.ExpiresAt)
}
