package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestURLAndKey(t *testing.T) {
	c := &Client{CDNURL: "https://cdn.example.com"}

	url := c.URL("posts/abc/1.png")
	assert.Equal(t, "https://cdn.example.com/posts/abc/1.png", url)

	key, ok := c.Key(url)
	assert.True(t, ok)
	assert.Equal(t, "posts/abc/1.png", key)

	_, ok = c.Key("https://evil.example.com/posts/abc/1.png")
	assert.False(t, ok)

	_, ok = c.Key("https://cdn.example.com/")
	assert.False(t, ok)
}
