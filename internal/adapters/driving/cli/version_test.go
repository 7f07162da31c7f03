package cli

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCmd(t *testing.T) {
	for _, v := range []string{"dev", "1.4.0-rc.1"} {
		t.Run(v, func(t *testing.T) {
			swapServices(t, nil, nil, nil)
			original := version
			t.Cleanup(func() { version = original })
			SetVersion(v)

			out, err := execute(t, "version")

			require.NoError(t, err)
			assert.Equal(t, "slack-archive version "+v+" ("+runtime.Version()+" "+runtime.GOOS+"/"+runtime.GOARCH+")\n", out)
		})
	}
}

func TestVersionCmd_RejectsArgs(t *testing.T) {
	swapServices(t, nil, nil, nil)

	_, err := execute(t, "version", "extra")

	assert.Error(t, err)
}
