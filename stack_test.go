package relock

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDropElided(t *testing.T) {
	r := require.New(t)

	in := "goroutine 7 [running]:\n" +
		"main.f(...)\n" +
		"\t/src/main.go:10 +0x1d\n" +
		"...27 frames elided...\n" +
		"main.main()\n" +
		"\t/src/main.go:20 +0x25\n"
	want := "goroutine 7 [running]:\n" +
		"main.f(...)\n" +
		"\t/src/main.go:10 +0x1d\n" +
		"main.main()\n" +
		"\t/src/main.go:20 +0x25\n"

	r.Equal(want, string(dropElided([]byte(in))))
	r.Equal(want, string(dropElided([]byte(want))))
}

func TestCurrentGoroutineDeep(t *testing.T) {
	r := require.New(t)

	id := currentGoroutineID()

	var g goroutine
	nest(300, func() {
		g = currentGoroutine()
	})

	r.Equal(id, g.id)
	r.Greater(len(g.frames), 300)
	r.True(strings.HasPrefix(g.frames[0].Func, pkgPrefix+"TestCurrentGoroutineDeep"))

	n := 0
	for _, f := range g.frames {
		if f.Func == pkgPrefix+"nest" {
			n++
		}
	}
	r.Equal(301, n)
}
