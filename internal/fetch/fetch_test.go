package fetch_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/liharvest/internal/fetch"
)

func TestLoadRefusesOffDomain(t *testing.T) {
	t.Parallel()

	f := fetch.New("li_at=abc", fetch.WithPoliteDelay(time.Millisecond))

	doc, err := f.Load(context.Background(), "https://evil.example.com/feed/")
	require.Error(t, err)
	assert.Nil(t, doc)
	assert.Contains(t, err.Error(), "off-domain")
}
