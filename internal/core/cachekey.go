package core

// KeyPolicy decides how a browser-side client is keyed when settings do
// not carry a name.
type KeyPolicy int

const (
	// KeyByEndpoint falls back to the endpoint URI, then to the default key.
	KeyByEndpoint KeyPolicy = iota
	// KeyByName ignores the endpoint and falls back straight to the default key.
	KeyByName
)

const (
	cacheKeyPrefix  = "CLIENT_"
	defaultCacheKey = "default"
)

func (p KeyPolicy) String() string {
	switch p {
	case KeyByEndpoint:
		return "endpoint"
	case KeyByName:
		return "name"
	default:
		return "unknown"
	}
}

// ParseKeyPolicy maps a config string to a policy. Unknown values fall
// back to KeyByEndpoint and report false.
func ParseKeyPolicy(s string) (KeyPolicy, bool) {
	switch s {
	case "", "endpoint":
		return KeyByEndpoint, true
	case "name":
		return KeyByName, true
	default:
		return KeyByEndpoint, false
	}
}

func CacheKey(policy KeyPolicy, name, uri string) string {
	if name != "" {
		return cacheKeyPrefix + name
	}
	if policy == KeyByEndpoint && uri != "" {
		return cacheKeyPrefix + uri
	}
	return cacheKeyPrefix + defaultCacheKey
}
