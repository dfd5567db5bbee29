package models

import "time"

// keySeparator joins the two halves of a CacheKey when it is rendered as text.
const keySeparator = "-#-"

// CacheKey identifies a tier config by partner and downstream service.
// It is a comparable struct, so map and LRU lookups never depend on the
// textual rendering and two distinct pairs cannot collide.
type CacheKey struct {
	PartnerID   string
	ServiceName string
}

// NewCacheKey builds the key for a (partner, service) pair.
func NewCacheKey(partnerID, serviceName string) CacheKey {
	return CacheKey{PartnerID: partnerID, ServiceName: serviceName}
}

// String renders the key as "partnerId-#-serviceName" for logs and traces.
func (k CacheKey) String() string {
	return k.PartnerID + keySeparator + k.ServiceName
}

// ConfigRecord is the endpoint override resolved for a partner and service.
// Records are produced by the resolver from a successful lookup and treated
// as immutable afterwards.
type ConfigRecord struct {
	PartnerID   string
	ServiceName string
	EndpointURI string
	ResolvedAt  time.Time
}

// Key returns the cache key the record is stored under.
func (r ConfigRecord) Key() CacheKey {
	return NewCacheKey(r.PartnerID, r.ServiceName)
}

// ServiceDefault is the statically configured fallback endpoint for a service.
type ServiceDefault struct {
	Name       string
	DefaultURI string
}
