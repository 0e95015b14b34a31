package biotest_test

import (
	"testing"

	"github.com/dargueta/biotest"
	"github.com/stretchr/testify/assert"
)

func TestModeHas(t *testing.T) {
	mode := biotest.ModeAsync | biotest.ModeRandomize
	assert.True(t, mode.Has(biotest.ModeAsync))
	assert.True(t, mode.Has(biotest.ModeAsync|biotest.ModeRandomize))
	assert.False(t, mode.Has(biotest.ModeAsync|biotest.ModeDirect), "all flags must be set")
	assert.True(t, mode.Has(0))
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "sync", biotest.Mode(0).String())
	assert.Equal(t, "random|aio|retry",
		(biotest.ModeRetryOnError | biotest.ModeAsync | biotest.ModeRandomize).String())
}
