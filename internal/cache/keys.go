package cache

import "strings"

const catalogPrefix = "catalog"

// KeyCatalogList returns the cache key for a catalog listing filtered by the
// provided, optional, qualifiers.
func KeyCatalogList(kind string, qualifiers ...string) string {
	parts := []string{catalogPrefix, kind}
	for _, q := range qualifiers {
		q = strings.TrimSpace(q)
		if q == "" {
			q = "all"
		}
		parts = append(parts, q)
	}
	return strings.Join(parts, ":")
}

// KeyCatalogItem returns the cache key for a single catalog document.
func KeyCatalogItem(kind, id string) string {
	return catalogPrefix + ":" + kind + ":id:" + id
}

// KeyCart namespaces the durable cart blob of one shopping session.
func KeyCart(storeName, session string) string {
	storeName = strings.TrimSpace(storeName)
	if storeName == "" {
		storeName = "shopping-cart"
	}
	session = strings.TrimSpace(session)
	if session == "" {
		return storeName
	}
	return storeName + ":" + session
}

// KeyCheckoutLock names the lock serialising checkouts of one user.
func KeyCheckoutLock(userID string) string {
	return "lock:checkout:" + strings.TrimSpace(userID)
}

// CatalogPrefix matches every catalog key, for invalidation.
func CatalogPrefix() string {
	return catalogPrefix + ":"
}
