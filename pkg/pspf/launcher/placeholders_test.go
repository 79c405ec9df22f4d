package launcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pspferrors "github.com/pspf/flavorpack/pkg/pspf/errors"
)

func TestSubstitutePlaceholdersWorkenv(t *testing.T) {
	got, err := substitutePlaceholders("{workenv}/bin/run", "/var/cache/pkg", nil)
	require.NoError(t, err)
	assert.Equal(t, "/var/cache/pkg/bin/run", got)
}

func TestSubstitutePlaceholdersSlotReference(t *testing.T) {
	slotPaths := map[int]string{0: "/var/cache/pkg/python3", 2: "/var/cache/pkg/app.pyz"}
	got, err := substitutePlaceholders("{slot:0} {slot:2}", "/var/cache/pkg", slotPaths)
	require.NoError(t, err)
	assert.Equal(t, "/var/cache/pkg/python3 /var/cache/pkg/app.pyz", got)
}

func TestSubstitutePlaceholdersMissingSlotErrors(t *testing.T) {
	_, err := substitutePlaceholders("{slot:9}", "/var/cache/pkg", map[int]string{0: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, pspferrors.ErrMissingSlot)
}

func TestSubstitutePlaceholdersCombined(t *testing.T) {
	slotPaths := map[int]string{1: "/var/cache/pkg/app"}
	got, err := substitutePlaceholders("{workenv}/lib:{slot:1}", "/var/cache/pkg", slotPaths)
	require.NoError(t, err)
	assert.Equal(t, "/var/cache/pkg/lib:/var/cache/pkg/app", got)
}

func TestSubstituteAllAppliesToCommandAndArgs(t *testing.T) {
	slotPaths := map[int]string{0: "/var/cache/pkg/python3"}
	cmd, args, err := substituteAll("{slot:0}", []string{"-c", "print('{workenv}')"}, "/var/cache/pkg", slotPaths)
	require.NoError(t, err)
	assert.Equal(t, "/var/cache/pkg/python3", cmd)
	assert.Equal(t, []string{"-c", "print('/var/cache/pkg')"}, args)
}

func TestSubstituteAllFailsFastOnFirstBadArg(t *testing.T) {
	_, _, err := substituteAll("ok", []string{"fine", "{slot:99}"}, "/workenv", nil)
	assert.Error(t, err)
}
