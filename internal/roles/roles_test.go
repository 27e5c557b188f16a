package roles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScreensForAdministratorSeesEverything(t *testing.T) {
	screens, err := ScreensFor(Administrator)
	require.NoError(t, err)
	assert.Len(t, screens, 8)
	assert.Contains(t, screens, ScreenUsers)
	assert.Contains(t, screens, ScreenAuditLog)
}

func TestScreensForWorker(t *testing.T) {
	screens, err := ScreensFor(Worker)
	require.NoError(t, err)
	assert.ElementsMatch(t, []Screen{ScreenProducts, ScreenSales, ScreenStatistics, ScreenSalesToday}, screens)
	assert.NotContains(t, screens, ScreenUsers)
}

func TestScreensForClientOnlyProducts(t *testing.T) {
	screens, err := ScreensFor(Client)
	require.NoError(t, err)
	assert.Equal(t, []Screen{ScreenProducts}, screens)
}

func TestScreensForUnknownRole(t *testing.T) {
	_, err := ScreensFor(Role("superuser"))
	require.Error(t, err)
}

func TestScreensForIsPure(t *testing.T) {
	first, err := ScreensFor(Administrator)
	require.NoError(t, err)
	first[0] = Screen("mutated")

	second, err := ScreensFor(Administrator)
	require.NoError(t, err)
	assert.Equal(t, ScreenProducts, second[0])
}
