package activity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeType_Synonyms(t *testing.T) {
	require.Equal(t, TypeArrival, NormalizeType("tiba"))
	require.Equal(t, TypeArrival, NormalizeType("Arrival"))
	require.Equal(t, TypeDistribution, NormalizeType("agihan"))
	require.Equal(t, TypeCompletion, NormalizeType("khatam"))
	require.Equal(t, TypeClass, NormalizeType(" kelas "))
}

func TestNormalizeType_PassthroughSlug(t *testing.T) {
	require.Equal(t, Type("medical_camp"), NormalizeType("Medical Camp"))
	require.Equal(t, TypeOther, NormalizeType(""))
	require.Equal(t, TypeOther, NormalizeType("   "))
}

func TestCount_String(t *testing.T) {
	n := int64(1200)
	require.Equal(t, "1,200", Count{Number: &n}.String())
	require.Equal(t, "approximately fifty", Count{Text: "approximately fifty"}.String())
	require.Equal(t, "", Count{}.String())
	require.False(t, Count{}.Known())
}
