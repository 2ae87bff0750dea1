package cache

import (
	"testing"

	"github.com/mulewatch/mulewatch/internal/domain"
)

func TestNewReturnsLRUForMemoryType(t *testing.T) {
	c, err := New(domain.CacheConfig{Type: "memory", MaxSize: 100})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := c.(*LRUCache); !ok {
		t.Fatalf("expected *LRUCache for memory type, got %T", c)
	}
}

func TestNewRejectsUnsupportedType(t *testing.T) {
	_, err := New(domain.CacheConfig{Type: "memcached"})
	if err == nil {
		t.Fatalf("expected an error for unsupported cache type")
	}
}
