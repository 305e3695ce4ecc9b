package prediction

import (
	"fmt"
	"sync"
)

// Cache holds computed predictions keyed by (user, alarm, date).
// Writers invalidate rather than lock readers out; a briefly stale read
// is acceptable.
type Cache struct {
	mu      sync.RWMutex
	results map[string]*Result
	byUser  map[string]map[string]bool
}

// NewCache creates an empty prediction cache
func NewCache() *Cache {
	return &Cache{
		results: make(map[string]*Result),
		byUser:  make(map[string]map[string]bool),
	}
}

func cacheKey(userID, alarmID, date string) string {
	return fmt.Sprintf("%s|%s|%s", userID, alarmID, date)
}

// Get returns the cached result for the key, or nil
func (c *Cache) Get(userID, alarmID, date string) *Result {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.results[cacheKey(userID, alarmID, date)]
}

// Put stores a result
func (c *Cache) Put(result *Result) {
	key := cacheKey(result.UserID, result.AlarmID, result.Date)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.results[key] = result
	if c.byUser[result.UserID] == nil {
		c.byUser[result.UserID] = make(map[string]bool)
	}
	c.byUser[result.UserID][key] = true
}

// InvalidateUser drops every cached result for a user
func (c *Cache) InvalidateUser(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.byUser[userID] {
		delete(c.results, key)
	}
	delete(c.byUser, userID)
}
