package locator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	r := NewResolver("http://127.0.0.1:8088/api/v1/")
	require.Equal(t, "http://127.0.0.1:8088", r.Origin())

	cases := map[string]string{
		"":                          "",
		"https://cdn.example/v.mp4": "https://cdn.example/v.mp4",
		"http://cdn.example/v.mp4":  "http://cdn.example/v.mp4",
		"blob:abc-123":              "blob:abc-123",
		"/uploads/seg_1.png":        "http://127.0.0.1:8088/uploads/seg_1.png",
		"/api/v1/tasks/t1/metadata": "http://127.0.0.1:8088/api/v1/tasks/t1/metadata",
		"/tasks/t1/metadata":        "http://127.0.0.1:8088/api/v1/tasks/t1/metadata",
		"tasks/t1/metadata":         "http://127.0.0.1:8088/api/v1/tasks/t1/metadata",
	}
	for in, want := range cases {
		require.Equal(t, want, r.Resolve(in), in)
	}
}

func TestResolveIdempotent(t *testing.T) {
	for _, base := range []string{"http://localhost:8088/api/v1", "https://console.example"} {
		r := NewResolver(base)
		for _, in := range []string{"", "x", "/x", "/uploads/a", "/api/v2/b", "https://h/p", "blob:1", "uploads/a"} {
			once := r.Resolve(in)
			require.Equal(t, once, r.Resolve(once), "base=%s in=%s", base, in)
		}
	}
}

func TestResolvePtr(t *testing.T) {
	r := NewResolver("http://h/api/v1")
	require.Nil(t, r.ResolvePtr(nil))
	empty := ""
	require.Nil(t, r.ResolvePtr(&empty))
	in := "/uploads/a.png"
	require.Equal(t, "http://h/uploads/a.png", *r.ResolvePtr(&in))
}

func TestCheckBase(t *testing.T) {
	for _, ok := range []string{"http://localhost:8088/api/v1", "https://console.example"} {
		require.NoError(t, CheckBase(ok), ok)
	}
	for _, bad := range []string{"", "localhost:8088/api/v1", "127.0.0.1:8088", "ftp://h/api/v1", "http:///api/v1", "/api/v1"} {
		require.Error(t, CheckBase(bad), bad)
	}
}
