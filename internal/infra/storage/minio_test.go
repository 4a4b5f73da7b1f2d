package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bryanwahyu/homeready/internal/domain/audit"
)

func TestObjectKey(t *testing.T) {
	k1 := ObjectKey(7, audit.HazardFlood)
	k2 := ObjectKey(7, audit.HazardFlood)

	assert.True(t, strings.HasPrefix(k1, "reports/flood/7-"), k1)
	assert.True(t, strings.HasSuffix(k1, ".pdf"))
	assert.NotEqual(t, k1, k2)
	assert.True(t, strings.HasPrefix(ObjectKey(1, ""), "reports/unknown/1-"))
}
