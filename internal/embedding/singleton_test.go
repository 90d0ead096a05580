package embedding

import (
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ForceMockReturnsMockProvider(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	require.NoError(t, os.Setenv(EnvForceMock, "1"))
	t.Cleanup(func() { os.Unsetenv(EnvForceMock) })

	p, err := Get()
	require.NoError(t, err)
	cached, ok := p.(*CachedProvider)
	require.True(t, ok)
	_, ok = cached.Inner().(*MockProvider)
	assert.True(t, ok)
}

func TestGet_ConcurrentCallersShareOneInitialization(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	require.NoError(t, os.Setenv(EnvForceMock, "1"))
	t.Cleanup(func() { os.Unsetenv(EnvForceMock) })

	const n = 20
	var wg sync.WaitGroup
	providers := make([]Provider, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			p, err := Get()
			require.NoError(t, err)
			providers[idx] = p
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		assert.Same(t, providers[0], providers[i])
	}
}

func TestGet_NoModelDirFallsBackToMock(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	require.NoError(t, os.Setenv(EnvModelDir, t.TempDir()))
	t.Cleanup(func() { os.Unsetenv(EnvModelDir) })

	p, err := Get()
	require.NoError(t, err)
	cached, ok := p.(*CachedProvider)
	require.True(t, ok)
	_, ok = cached.Inner().(*MockProvider)
	assert.True(t, ok)
}
