package headers

import (
	"reflect"
	"testing"

	http "github.com/bogdanfinn/fhttp"
)

func TestBuild(t *testing.T) {
	h := Build("T1", "test-agent/1.0")

	want := map[string]string{
		"Authorization": "Bearer T1",
		"Content-Type":  "application/json",
		"User-Agent":    "test-agent/1.0",
		"Accept":        "application/json",
	}
	for k, v := range want {
		if got := h.Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
	if !reflect.DeepEqual(h[http.HeaderOrderKey], headerOrder) {
		t.Errorf("header order = %v", h[http.HeaderOrderKey])
	}
}

func TestMapMatchesBuild(t *testing.T) {
	m := Map("abc", "ua")
	h := Build("abc", "ua")
	for k, v := range m {
		if h.Get(k) != v {
			t.Errorf("Build %s = %q, Map has %q", k, h.Get(k), v)
		}
	}
	if len(m) != len(headerOrder) {
		t.Errorf("Map has %d headers, order lists %d", len(m), len(headerOrder))
	}
}
