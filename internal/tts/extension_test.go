package tts

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

// acceptAllHandler 让每个服务的凭据校验都通过。
func acceptAllHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/voices":
		io.WriteString(w, `{}`)
	case r.URL.Path == "/v2/voices":
		io.WriteString(w, `{"voices":[]}`)
	case strings.HasSuffix(r.URL.Path, "/models"):
		io.WriteString(w, `{"object":"list","data":[]}`)
	default:
		io.WriteString(w, `{}`)
	}
}

func TestSave_WrongExtensionMakesNoRequest(t *testing.T) {
	var edgeCalls atomic.Int32

	tests := []struct {
		name     string
		filename string
		build    func(url string) (Provider, error)
	}{
		{"witai", "out.wav", func(url string) (Provider, error) {
			return NewWitai(context.Background(), "token", testOptions(url)...)
		}},
		{"deepgram", "out.mp3", func(url string) (Provider, error) {
			return NewDeepgram(context.Background(), "key", testOptions(url)...)
		}},
		{"elevenlabs", "out.wav", func(url string) (Provider, error) {
			return NewElevenLabs(context.Background(), "key", testOptions(url)...)
		}},
		{"playai", "out.mp3", func(url string) (Provider, error) {
			return NewPlayAI(context.Background(), "key", testOptions(url)...)
		}},
		{"openai", "out.wav", func(url string) (Provider, error) {
			return NewOpenAI("key", testOptions(url)...)
		}},
		{"google", "out.wav", func(url string) (Provider, error) {
			return NewGoogle(testOptions(url)...), nil
		}},
		{"edge", "out.wav", func(url string) (Provider, error) {
			e := NewEdge(testOptions(url)...)
			e.stream = func(string, string) (<-chan map[string]interface{}, error) {
				edgeCalls.Add(1)
				return nil, errors.New("unexpected stream")
			}
			return e, nil
		}},
		{"tencent", "out.wav", func(url string) (Provider, error) {
			return NewTencent("id", "key", "", testOptions(url)...)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newCountingServer(t, acceptAllHandler)
			p, err := tt.build(srv.URL)
			if err != nil {
				t.Fatalf("construct: %v", err)
			}
			defer p.Close()
			before := srv.calls.Load()

			path := filepath.Join(t.TempDir(), tt.filename)
			err = p.Save(context.Background(), "hello", path)

			var extErr *FileExtensionError
			if !errors.As(err, &extErr) {
				t.Fatalf("err = %v, want FileExtensionError", err)
			}
			if n := srv.calls.Load() - before; n != 0 {
				t.Errorf("wrong extension made %d requests", n)
			}
			if _, err := os.Stat(path); !os.IsNotExist(err) {
				t.Error("file should not be created")
			}
		})
	}

	if n := edgeCalls.Load(); n != 0 {
		t.Errorf("edge stream opened %d times", n)
	}
}
