package fetch

import (
	"errors"
	"net/http"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/nao1215/contactscan/internal/model"
)

// TestNewRodBrowser tests failures that happen before Chrome is started.
func TestNewRodBrowser(t *testing.T) {
	t.Parallel()

	t.Run("missing binary", func(t *testing.T) {
		t.Parallel()

		_, err := NewRodBrowser(WithBrowserBin(filepath.Join(t.TempDir(), "chrome")))
		if !errors.Is(err, ErrBrowserUnavailable) {
			t.Errorf("expected ErrBrowserUnavailable, got %v", err)
		}
	})

	t.Run("malformed proxy", func(t *testing.T) {
		t.Parallel()

		_, err := NewRodBrowser(
			WithBrowserBin(filepath.Join(t.TempDir(), "chrome")),
			WithBrowserProxy("socks5://127.0.0.1:9050"),
		)
		if !errors.Is(err, ErrInvalidProxyAddress) {
			t.Errorf("expected ErrInvalidProxyAddress, got %v", err)
		}
	})
}

func TestSessionSettingsDefaults(t *testing.T) {
	t.Parallel()

	t.Run("zero values get defaults", func(t *testing.T) {
		t.Parallel()

		got := SessionSettings{}.withDefaults()
		if got.UserAgent != model.DefaultUserAgent {
			t.Errorf("UserAgent = %q", got.UserAgent)
		}
		if got.NavigateTimeout != model.DefaultTimeout ||
			got.RenderWait != model.DefaultRenderWait ||
			got.RenderTimeout != model.DefaultRenderTimeout {
			t.Errorf("unexpected timings: %+v", got)
		}
	})

	t.Run("explicit values are kept", func(t *testing.T) {
		t.Parallel()

		in := SessionSettings{
			UserAgent:       "acmebot/1.0",
			NavigateTimeout: 3 * time.Second,
			RenderWait:      time.Second,
			RenderTimeout:   5 * time.Second,
		}
		got := in.withDefaults()
		if got.UserAgent != in.UserAgent || got.NavigateTimeout != in.NavigateTimeout ||
			got.RenderWait != in.RenderWait || got.RenderTimeout != in.RenderTimeout {
			t.Errorf("withDefaults() = %+v, want %+v", got, in)
		}
	})
}

func TestFlattenHeaders(t *testing.T) {
	t.Parallel()

	h := make(http.Header)
	h.Set("Cookie", "session=1")
	h.Add("Accept-Language", "en")
	h.Add("Accept-Language", "de")
	h["X-Empty"] = nil

	got := flattenHeaders(h)
	if len(got) != 4 {
		t.Fatalf("expected 2 pairs, got %q", got)
	}
	pairs := make(map[string]string)
	for i := 0; i < len(got); i += 2 {
		pairs[got[i]] = got[i+1]
	}
	if pairs["Cookie"] != "session=1" || pairs["Accept-Language"] != "en, de" {
		t.Errorf("unexpected pairs: %v", pairs)
	}
	if slices.Contains(got, "X-Empty") {
		t.Error("empty header should be skipped")
	}
}
