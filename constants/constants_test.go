package constants

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalizeMatchesExactAndCaseInsensitive(t *testing.T) {
	t.Parallel()

	cat, ok := Canonicalize("Furniture")
	require.True(t, ok)
	require.Equal(t, Furniture, cat)

	cat, ok = Canonicalize("  art & decor ")
	require.True(t, ok)
	require.Equal(t, ArtDecor, cat)
}

func TestCanonicalizeSynonymsAndFallback(t *testing.T) {
	t.Parallel()

	cat, ok := Canonicalize("antiques")
	require.True(t, ok)
	require.Equal(t, CollectiblesAntiques, cat)

	cat, ok = Canonicalize("spaceships")
	require.False(t, ok)
	require.Equal(t, Miscellaneous, cat)

	cat, ok = Canonicalize("")
	require.False(t, ok)
	require.Equal(t, Miscellaneous, cat)
}

func TestCategorySetHasThirteenValues(t *testing.T) {
	t.Parallel()

	require.Len(t, AsStringSlice(), 13)
	for _, c := range AsStringSlice() {
		require.True(t, IsCategory(c))
	}
	require.False(t, IsCategory("Other"))
}

func TestNormalizeConditionDefaultsToUnknown(t *testing.T) {
	t.Parallel()

	c, ok := NormalizeCondition("GOOD")
	require.True(t, ok)
	require.Equal(t, ConditionGood, c)

	c, ok = NormalizeCondition("like new")
	require.False(t, ok)
	require.Equal(t, ConditionUnknown, c)
}

func TestNormalizeConfidenceDefaultsToMedium(t *testing.T) {
	t.Parallel()

	require.Equal(t, ConfidenceHigh, NormalizeConfidence("High"))
	require.Equal(t, ConfidenceLow, NormalizeConfidence("low"))
	require.Equal(t, ConfidenceMedium, NormalizeConfidence(""))
	require.Equal(t, ConfidenceMedium, NormalizeConfidence("certain"))
}

func TestParseStatuses(t *testing.T) {
	t.Parallel()

	s, err := ParseItemStatus("published")
	require.NoError(t, err)
	require.Equal(t, ItemPublished, s)
	require.True(t, s.PubliclyVisible())
	require.False(t, ItemConfirmed.PubliclyVisible())

	_, err = ParseItemStatus("sold")
	require.Error(t, err)

	es, err := ParseEstateStatus("enriching")
	require.NoError(t, err)
	require.Equal(t, EstateEnriching, es)

	_, err = ParseEstateStatus("Published")
	require.Error(t, err)
}

func TestIsImageURL(t *testing.T) {
	t.Parallel()

	require.True(t, IsImageURL("https://cdn.example.com/estates/1/lamp.JPG"))
	require.False(t, IsImageURL("https://cdn.example.com/estates/1/lamp.pdf"))
	require.False(t, IsImageURL("ftp://cdn.example.com/lamp.png"))
	require.False(t, IsImageURL("lamp.png"))
}
