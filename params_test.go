package biotest_test

import (
	"testing"
	"time"

	"github.com/dargueta/biotest"
	"github.com/stretchr/testify/assert"
)

func validParameters() biotest.RunParameters {
	return biotest.RunParameters{
		Target:     "/dev/null",
		Megabytes:  4,
		BlockSize:  512,
		Window:     biotest.DefaultWindow,
		RetryDelay: biotest.DefaultRetryDelay,
	}
}

func TestNormalizeBlockSize(t *testing.T) {
	cases := map[uint]uint{
		0:    512,
		100:  512,
		512:  512,
		1000: 512,
		1024: 1024,
		4095: 3584,
		4096: 4096,
	}
	for requested, expected := range cases {
		assert.Equal(t, expected, biotest.NormalizeBlockSize(requested), "requested %d", requested)
	}
}

func TestTotalBlocks(t *testing.T) {
	params := validParameters()
	assert.EqualValues(t, 8192, params.TotalBlocks())
	assert.EqualValues(t, 4*1024*1024, params.TotalBytes())

	// Partial blocks at the end of the data set are dropped.
	params.Megabytes = 1
	params.BlockSize = 3 * 512
	assert.EqualValues(t, 682, params.TotalBlocks())
	assert.EqualValues(t, 682*1536, params.TotalBytes())

	params.BlockSize = 0
	assert.Zero(t, params.TotalBlocks())
}

func TestValidate(t *testing.T) {
	assert.NoError(t, validParameters().Validate())

	cases := []struct {
		name   string
		modify func(*biotest.RunParameters)
		err    error
	}{
		{"no target", func(p *biotest.RunParameters) { p.Target = "" }, biotest.ErrInvalidParameters},
		{"no data", func(p *biotest.RunParameters) { p.Megabytes = 0 }, biotest.ErrInvalidParameters},
		{
			"direct and buffered",
			func(p *biotest.RunParameters) { p.Mode = biotest.ModeDirect | biotest.ModeBuffered },
			biotest.ErrConflictingModes,
		},
		{"misaligned", func(p *biotest.RunParameters) { p.BlockSize = 700 }, biotest.ErrMisalignedBlockSize},
		{"too small", func(p *biotest.RunParameters) { p.BlockSize = 256 }, biotest.ErrMisalignedBlockSize},
		{
			"async without window",
			func(p *biotest.RunParameters) { p.Mode = biotest.ModeAsync; p.Window = 0 },
			biotest.ErrInvalidParameters,
		},
		{"negative delay", func(p *biotest.RunParameters) { p.RetryDelay = -time.Second }, biotest.ErrInvalidParameters},
	}

	for _, tc := range cases {
		params := validParameters()
		tc.modify(&params)
		assert.ErrorIs(t, params.Validate(), tc.err, tc.name)
	}
}

// The window only matters for asynchronous runs.
func TestValidate__SyncIgnoresWindow(t *testing.T) {
	params := validParameters()
	params.Window = 0
	assert.NoError(t, params.Validate())
}

func TestValidateForDevice(t *testing.T) {
	params := validParameters()
	assert.NoError(t, params.ValidateForDevice(512))
	assert.NoError(t, params.ValidateForDevice(0))
	assert.ErrorIs(t, params.ValidateForDevice(4096), biotest.ErrMisalignedBlockSize)

	params.BlockSize = 8192
	assert.NoError(t, params.ValidateForDevice(4096))
}
