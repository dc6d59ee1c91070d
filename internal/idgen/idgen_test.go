package idgen

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIDFormats(t *testing.T) {
	require.Regexp(t, regexp.MustCompile(`^[A-Z0-9]{12}$`), CampaignID())
	require.Regexp(t, regexp.MustCompile(`^wallet_[A-Z0-9]{13}$`), WalletID())
	require.Regexp(t, regexp.MustCompile(`^iprog_[A-Z0-9]{14}$`), ProgramID())
	require.Regexp(t, regexp.MustCompile(`^LD[0-9]{12}$`), LoadID())
}

func TestIDsAreUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := CampaignID()
		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
	}
}

func TestLoadIDChecksum(t *testing.T) {
	for i := 0; i < 100; i++ {
		require.True(t, validLoadID(LoadID()))
	}

	require.True(t, validLoadID("LD79927398713"))
	require.False(t, validLoadID("LD79927398710"))
	require.False(t, validLoadID("79927398713"))
	require.False(t, validLoadID("LD"))
	require.False(t, validLoadID("LDabc"))
}
