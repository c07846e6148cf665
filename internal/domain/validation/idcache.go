// Package validation проверяет документ маркетплейса по каталогу ресурсов до любых изменений на платформе
package validation

// IDCache ключи идентичности, встреченные за один проход, по ресурсам
type IDCache struct {
	sets map[string]map[string]struct{}
}

// NewIDCache создает пустой кэш
func NewIDCache() *IDCache {
	return &IDCache{sets: make(map[string]map[string]struct{})}
}

// Add регистрирует ключ; возвращает false, если ключ уже был
func (c *IDCache) Add(resource, key string) bool {
	set, ok := c.sets[resource]
	if !ok {
		set = make(map[string]struct{})
		c.sets[resource] = set
	}
	if _, dup := set[key]; dup {
		return false
	}
	set[key] = struct{}{}
	return true
}

// Has проверяет наличие ключа
func (c *IDCache) Has(resource, key string) bool {
	_, ok := c.sets[resource][key]
	return ok
}

// Len число ключей ресурса
func (c *IDCache) Len(resource string) int {
	return len(c.sets[resource])
}
