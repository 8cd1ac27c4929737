package relock

import (
	"context"
	"testing"

	"github.com/DataDog/gostackparse"
	"github.com/stretchr/testify/require"
)

func TestFingerprintHasSuffix(t *testing.T) {
	tests := []struct {
		name string
		fp   Fingerprint
		top  Fingerprint
		want bool
	}{
		{"empty top", Fingerprint{"main.f", "main.main"}, nil, true},
		{"both empty", nil, nil, true},
		{"equal", Fingerprint{"main.f", "main.main"}, Fingerprint{"main.f", "main.main"}, true},
		{"nested", Fingerprint{"main.g", "main.f", "main.main"}, Fingerprint{"main.f", "main.main"}, true},
		{"sibling", Fingerprint{"main.g", "main.main"}, Fingerprint{"main.f", "main.main"}, false},
		{"shallower", Fingerprint{"main.main"}, Fingerprint{"main.f", "main.main"}, false},
		{"prefix only", Fingerprint{"main.f", "main.main", "main.init"}, Fingerprint{"main.f", "main.main"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.fp.HasSuffix(tt.top))
		})
	}
}

func TestTrimFingerprint(t *testing.T) {
	r := require.New(t)

	fp := trimFingerprint(Fingerprint{
		pkgPrefix + "captureFingerprint",
		pkgPrefix + "(*Lock).AcquireTask",
		"example.com/app.handle",
		"example.com/app.serve.func1",
		pkgPrefix + "(*Schedule).Fn.func1",
		pkgPrefix + "newTask.func1",
		"github.com/webriots/coro.New.func1",
		"runtime.goexit",
	})
	r.Equal(Fingerprint{"example.com/app.handle", "example.com/app.serve.func1"}, fp)

	fp = trimFingerprint(Fingerprint{
		pkgPrefix + "captureFingerprint",
		pkgPrefix + "(*Lock).Acquire",
		"main.main",
	})
	r.Equal(Fingerprint{"main.main"}, fp)

	// without an entry point only the leading package frames go
	fp = trimFingerprint(Fingerprint{
		pkgPrefix + "captureFingerprint",
		"main.f",
		"main.main",
	})
	r.Equal(Fingerprint{"main.f", "main.main"}, fp)

	r.Empty(trimFingerprint(Fingerprint{pkgPrefix + "(*Lock).TryAcquire", "runtime.main"}))
}

func TestStackFingerprint(t *testing.T) {
	r := require.New(t)

	fp := stackFingerprint([]*gostackparse.Frame{
		{Func: pkgPrefix + "captureFingerprint", File: "fingerprint.go", Line: 60},
		{Func: pkgPrefix + "(*Lock).Acquire", File: "lock.go", Line: 50},
		{Func: "main.f", File: "main.go", Line: 12},
		{Func: "main.f", File: "main.go", Line: 14},
		{Func: "main.main", File: "main.go", Line: 20},
	})

	// lines are not part of the fingerprint
	r.Equal(Fingerprint{"main.f", "main.f", "main.main"}, fp)
}

func TestScopeFingerprint(t *testing.T) {
	r := require.New(t)

	ctx := context.Background()
	r.Empty(scopeFingerprint(ctx))

	a := WithScope(ctx)
	b := WithScope(a)
	c := WithScope(ctx)

	fa, fb, fc := scopeFingerprint(a), scopeFingerprint(b), scopeFingerprint(c)
	r.Len(fa, 1)
	r.Len(fb, 2)
	r.Len(fc, 1)

	r.True(fb.HasSuffix(fa))
	r.True(fa.HasSuffix(fa))
	r.False(fa.HasSuffix(fb))
	r.False(fc.HasSuffix(fa))
	r.False(fb.HasSuffix(fc))
}

func TestCaptureFingerprintScope(t *testing.T) {
	r := require.New(t)

	ctx := WithScope(context.Background())
	id, fp := captureFingerprint(ctx)

	r.Equal(CurrentWorker(), id)
	r.Equal(scopeFingerprint(ctx), fp)
}
