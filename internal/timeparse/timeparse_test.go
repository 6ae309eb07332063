package timeparse_test

import (
	"math/big"
	"testing"
	"time"

	"github.com/jonesrussell/liharvest/internal/timeparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromURN(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	t.Run("exact shift for 19-digit identifier", func(t *testing.T) {
		t.Parallel()

		// 7035678901234567890 exceeds 2^53, so float64 arithmetic would
		// corrupt the low bits. The expected value is computed with big.Int
		// the same way the source platform packs it.
		id, ok := new(big.Int).SetString("7035678901234567890", 10)
		require.True(t, ok)
		wantMillis := new(big.Int).Rsh(id, 22).Int64()

		got := timeparse.FromURN("urn:li:activity:7035678901234567890", now)
		require.NotNil(t, got)
		assert.Equal(t, wantMillis, got.UnixMilli())
	})

	t.Run("precision above 2^53", func(t *testing.T) {
		t.Parallel()

		// Identifier sitting 100 below a 2^22 boundary: float64 rounds it up
		// across the boundary, so a float-backed shift lands one millisecond
		// late. The big-int path must not.
		wantMillis := int64(1_700_000_000_000)
		id := new(big.Int).Lsh(big.NewInt(wantMillis+1), 22)
		id.Sub(id, big.NewInt(100))

		got := timeparse.FromURN("urn:li:activity:"+id.String(), now)
		require.NotNil(t, got)
		assert.Equal(t, wantMillis, got.UnixMilli())

		lossy, _ := new(big.Float).SetInt(id).Float64()
		assert.NotEqual(t, wantMillis, int64(lossy)>>22)
	})

	t.Run("ugcPost and share prefixes", func(t *testing.T) {
		t.Parallel()

		activity := timeparse.FromURN("urn:li:activity:7035678901234567890", now)
		ugc := timeparse.FromURN("urn:li:ugcPost:7035678901234567890", now)
		share := timeparse.FromURN("urn:li:share:7035678901234567890", now)
		require.NotNil(t, activity)
		assert.Equal(t, activity, ugc)
		assert.Equal(t, activity, share)
	})

	tests := []struct {
		name string
		urn  string
	}{
		{"empty", ""},
		{"non-numeric suffix", "urn:li:activity:abc123"},
		{"too old (before 2014 window)", "urn:li:activity:1234567"},
		{"far future rejected", "urn:li:activity:9223372036854775807"},
		{"prefix only", "urn:li:activity:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Nil(t, timeparse.FromURN(tt.urn, now))
		})
	}
}

func TestParseRelative(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		text string
		want *time.Time
	}{
		{"minutes short", "15m", timePtr(now.Add(-15 * time.Minute))},
		{"hours short", "2h", timePtr(now.Add(-2 * time.Hour))},
		{"days short", "3d", timePtr(now.Add(-3 * 24 * time.Hour))},
		{"weeks short", "2w", timePtr(now.Add(-2 * 7 * 24 * time.Hour))},
		{"months short", "3mo", timePtr(now.Add(-3 * 30 * 24 * time.Hour))},
		{"years short", "1y", timePtr(now.Add(-365 * 24 * time.Hour))},
		{"french hours", "il y a 2 heures", timePtr(now.Add(-2 * time.Hour))},
		{"french days", "il y a 3 jours", timePtr(now.Add(-3 * 24 * time.Hour))},
		{"french year", "il y a 1 an", timePtr(now.Add(-365 * 24 * time.Hour))},
		{"yesterday french", "hier", timePtr(now.Add(-24 * time.Hour))},
		{"yesterday english", "yesterday", timePtr(now.Add(-24 * time.Hour))},
		{"now french", "maintenant", timePtr(now)},
		{"just now", "just now", timePtr(now)},
		{"unrecognized", "quelque chose", nil},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := timeparse.ParseRelative(tt.text, now)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want.UnixMilli(), got.UnixMilli())
		})
	}
}

func TestFromFields(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	t.Run("numeric epoch wins over string", func(t *testing.T) {
		t.Parallel()

		epoch := int64(1_700_000_000_000)
		created, modified := timeparse.FromFields([]timeparse.Field{
			{Name: "actorSubDesc", Value: "3d"},
			{Name: "createdTime", Value: epoch},
		}, now)
		require.NotNil(t, created)
		assert.Equal(t, epoch, created.UnixMilli())
		assert.Nil(t, modified)
	})

	t.Run("modified fields tracked separately", func(t *testing.T) {
		t.Parallel()

		created, modified := timeparse.FromFields([]timeparse.Field{
			{Name: "lastModifiedAt", Value: int64(1_700_000_000_000)},
		}, now)
		assert.Nil(t, created)
		require.NotNil(t, modified)
		assert.Equal(t, int64(1_700_000_000_000), modified.UnixMilli())
	})

	t.Run("relative string fallback", func(t *testing.T) {
		t.Parallel()

		created, _ := timeparse.FromFields([]timeparse.Field{
			{Name: "actorSubDesc", Value: "il y a 2 heures"},
		}, now)
		require.NotNil(t, created)
		assert.Equal(t, now.Add(-2*time.Hour).UnixMilli(), created.UnixMilli())
	})

	t.Run("string-valued modified field never feeds created", func(t *testing.T) {
		t.Parallel()

		created, modified := timeparse.FromFields([]timeparse.Field{
			{Name: "lastModifiedAt", Value: "2026-08-30T10:00:00Z"},
		}, now)
		assert.Nil(t, created)
		require.NotNil(t, modified)
		assert.Equal(t, time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC).UnixMilli(), modified.UnixMilli())
	})

	t.Run("no usable fields", func(t *testing.T) {
		t.Parallel()

		created, modified := timeparse.FromFields([]timeparse.Field{
			{Name: "createdTime", Value: "certainly not a date"},
			{Name: "postedAt", Value: 0},
		}, now)
		assert.Nil(t, created)
		assert.Nil(t, modified)
	})
}

func TestResolve(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	t.Run("urn fallback when fields are empty", func(t *testing.T) {
		t.Parallel()

		got := timeparse.Resolve(nil, "urn:li:activity:7035678901234567890", now)
		require.NotNil(t, got)
	})

	t.Run("modified substitutes when nothing else resolves", func(t *testing.T) {
		t.Parallel()

		got := timeparse.Resolve([]timeparse.Field{
			{Name: "lastModifiedAt", Value: int64(1_700_000_000_000)},
		}, "", now)
		require.NotNil(t, got)
		assert.Equal(t, int64(1_700_000_000_000), got.UnixMilli())
	})

	t.Run("urn encoding beats a string modified field", func(t *testing.T) {
		t.Parallel()

		// 7411335168000000000 >> 22 = 1767000000000 ms
		got := timeparse.Resolve([]timeparse.Field{
			{Name: "lastModifiedAt", Value: "2026-08-30T10:00:00Z"},
		}, "urn:li:activity:7411335168000000000", now)
		require.NotNil(t, got)
		assert.Equal(t, int64(1_767_000_000_000), got.UnixMilli())
	})

	t.Run("nothing resolves means nil, never now", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, timeparse.Resolve(nil, "", now))
	})
}

func timePtr(t time.Time) *time.Time {
	u := t.UTC()
	return &u
}
