package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getlawrence/instrumentation-explorer/pkg/instrumentation/types"
)

func TestCanonicalizeSortsKeys(t *testing.T) {
	out, err := Canonicalize(map[string]interface{}{
		"b": 2,
		"a": map[string]interface{}{"z": true, "y": nil},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"y":null,"z":true},"b":2}`, string(out))
}

func TestCanonicalizeKeepsArrayOrder(t *testing.T) {
	out, err := Canonicalize([]interface{}{"b", "a", 3})
	require.NoError(t, err)
	assert.Equal(t, `["b","a",3]`, string(out))
}

func TestDigestIndependentOfKeyOrder(t *testing.T) {
	a := map[string]interface{}{"id": "x", "name": "n", "group": "g"}
	b := map[string]interface{}{"group": "g", "id": "x", "name": "n"}

	da, err := Digest(a)
	require.NoError(t, err)
	db, err := Digest(b)
	require.NoError(t, err)

	assert.Equal(t, da, db)
	assert.Len(t, da, Length)
}

func TestDigestMatchesSHA256OfCanonicalForm(t *testing.T) {
	value := map[string]interface{}{"b": 1, "a": "x"}
	sum := sha256.Sum256([]byte(`{"a":"x","b":1}`))

	got, err := Digest(value)
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(sum[:])[:Length], got)
}

func TestDigestDeterministic(t *testing.T) {
	rec := types.Instrumentation{ID: "kafka-clients-2.6", DisplayName: "Kafka Clients", LibraryGroup: "kafka"}
	first, err := Digest(rec)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Digest(rec)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestDigestSensitivity(t *testing.T) {
	base := types.Instrumentation{ID: "x", DisplayName: "A", LibraryGroup: "g"}
	baseDigest, err := Digest(base)
	require.NoError(t, err)

	t.Run("changed value", func(t *testing.T) {
		changed := base
		changed.DisplayName = "B"
		d, err := Digest(changed)
		require.NoError(t, err)
		assert.NotEqual(t, baseDigest, d)
	})

	t.Run("added optional field", func(t *testing.T) {
		changed := base
		changed.Description = "now described"
		d, err := Digest(changed)
		require.NoError(t, err)
		assert.NotEqual(t, baseDigest, d)
	})

	t.Run("attribute order", func(t *testing.T) {
		withAttrs := func(names ...string) types.Instrumentation {
			rec := base
			attrs := make([]types.Attribute, 0, len(names))
			for _, n := range names {
				attrs = append(attrs, types.Attribute{Name: n, Type: "STRING"})
			}
			rec.Telemetry = types.Telemetry{
				"default": {Spans: []types.Span{{SpanKind: "CLIENT", Attributes: attrs}}, Metrics: []types.Metric{}},
			}
			return rec
		}
		d1, err := Digest(withAttrs("db.system", "db.name"))
		require.NoError(t, err)
		d2, err := Digest(withAttrs("db.name", "db.system"))
		require.NoError(t, err)
		assert.NotEqual(t, d1, d2)
	})
}

func TestHashViewTreatsSetsAsUnordered(t *testing.T) {
	a := types.Instrumentation{ID: "x", DisplayName: "A", LibraryGroup: "g",
		SemanticConventions: []string{"HTTP_CLIENT_SPANS", "DATABASE_CLIENT_SPANS"}}
	b := a
	b.SemanticConventions = []string{"DATABASE_CLIENT_SPANS", "HTTP_CLIENT_SPANS"}

	da, err := Digest(a.HashView())
	require.NoError(t, err)
	db, err := Digest(b.HashView())
	require.NoError(t, err)
	assert.Equal(t, da, db)
	assert.Equal(t, "HTTP_CLIENT_SPANS", a.SemanticConventions[0], "HashView must not reorder the source")
}

func TestDigestText(t *testing.T) {
	sum := sha256.Sum256([]byte("# Kafka\n"))
	assert.Equal(t, hex.EncodeToString(sum[:])[:Length], DigestText("# Kafka\n"))
	assert.NotEqual(t, DigestText("a"), DigestText("b"))
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"0123456789ab", true},
		{"48c8b39bee75", true},
		{"0123456789a", false},
		{"0123456789abc", false},
		{"0123456789AB", false},
		{"0123456789ag", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValid(tt.in))
		})
	}
}
