package tts

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/iabetor/speech-engine/internal/audio"
	"github.com/iabetor/speech-engine/internal/audio/audiotest"
)

const witaiVoicesJSON = `{
  "en_US": [{"name": "wit$Colin", "gender": "male"}, {"name": "wit$Cooper"}],
  "fr_FR": [{"name": "wit$Pierre"}],
  "de_DE": [{"name": "Hans"}]
}`

func witaiHandler(t *testing.T, audioBody string, bodies *[]witaiRequest, mu *sync.Mutex) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"error":"Bad auth"}`)
			return
		}
		if r.URL.Query().Get("v") != witaiAPIVersion {
			t.Errorf("missing version query: %s", r.URL.RawQuery)
		}
		switch r.URL.Path {
		case "/voices":
			io.WriteString(w, witaiVoicesJSON)
		case "/synthesize":
			if r.Header.Get("Accept") != "audio/mpeg" {
				t.Errorf("Accept = %q", r.Header.Get("Accept"))
			}
			var req witaiRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode body: %v", err)
			}
			mu.Lock()
			*bodies = append(*bodies, req)
			mu.Unlock()
			io.WriteString(w, audioBody)
		default:
			http.NotFound(w, r)
		}
	}
}

func TestNewWitai_EmptyToken(t *testing.T) {
	srv := newCountingServer(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := NewWitai(context.Background(), "", testOptions(srv.URL)...)
	if !errors.Is(err, ErrEmptyCredential) {
		t.Fatalf("err = %v, want ErrEmptyCredential", err)
	}
	if n := srv.calls.Load(); n != 0 {
		t.Errorf("expected no network calls, got %d", n)
	}
}

func TestNewWitai_InvalidToken(t *testing.T) {
	var (
		bodies []witaiRequest
		mu     sync.Mutex
	)
	srv := newCountingServer(t, witaiHandler(t, "", &bodies, &mu))

	_, err := NewWitai(context.Background(), "wrong", testOptions(srv.URL)...)
	if !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("err = %v, want ErrInvalidCredential", err)
	}
	var ice *InvalidCredentialError
	if !errors.As(err, &ice) {
		t.Fatalf("err type = %T", err)
	}
	if ice.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want 401", ice.StatusCode)
	}
	if !strings.Contains(ice.Body, "Bad auth") {
		t.Errorf("Body = %q", ice.Body)
	}
}

func TestWitai_Voices(t *testing.T) {
	var (
		bodies []witaiRequest
		mu     sync.Mutex
	)
	srv := newCountingServer(t, witaiHandler(t, "", &bodies, &mu))

	w, err := NewWitai(context.Background(), "test-token", testOptions(srv.URL)...)
	if err != nil {
		t.Fatalf("NewWitai: %v", err)
	}
	if w.Voice() != WitaiDefaultVoice {
		t.Errorf("default voice = %q", w.Voice())
	}

	voices, err := w.Voices(context.Background())
	if err != nil {
		t.Fatalf("Voices: %v", err)
	}
	want := []string{"Colin", "Cooper", "Pierre", "Hans"}
	if !reflect.DeepEqual(voices, want) {
		t.Errorf("voices = %v, want %v", voices, want)
	}
}

func TestFlattenWitaiVoices_Invalid(t *testing.T) {
	for _, body := range []string{`[]`, `{"en_US": "x"}`, `{`} {
		if _, err := flattenWitaiVoices([]byte(body)); err == nil {
			t.Errorf("flattenWitaiVoices(%q) expected error", body)
		}
	}
}

func TestWitai_SaveWrongExtension(t *testing.T) {
	var (
		bodies []witaiRequest
		mu     sync.Mutex
	)
	srv := newCountingServer(t, witaiHandler(t, "mp3-bytes", &bodies, &mu))
	w, err := NewWitai(context.Background(), "test-token", testOptions(srv.URL)...)
	if err != nil {
		t.Fatalf("NewWitai: %v", err)
	}
	before := srv.calls.Load()

	path := filepath.Join(t.TempDir(), "out.wav")
	err = w.Save(context.Background(), "hello", path)
	var extErr *FileExtensionError
	if !errors.As(err, &extErr) {
		t.Fatalf("err = %v, want FileExtensionError", err)
	}
	if srv.calls.Load() != before {
		t.Error("wrong extension should not trigger a request")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file should not be created")
	}
}

func TestWitai_SaveSnapshotsSettings(t *testing.T) {
	var (
		bodies []witaiRequest
		mu     sync.Mutex
	)
	srv := newCountingServer(t, witaiHandler(t, "ID3-fake-mp3", &bodies, &mu))
	w, err := NewWitai(context.Background(), "test-token", testOptions(srv.URL)...)
	if err != nil {
		t.Fatalf("NewWitai: %v", err)
	}

	dir := t.TempDir()
	first := filepath.Join(dir, "first.mp3")
	if err := w.Save(context.Background(), "hello", first); err != nil {
		t.Fatalf("Save: %v", err)
	}

	w.SetVoice("Cooper")
	w.SetSpeed(120)
	w.SetPitch(90)
	if w.Speed() != 120 || w.Pitch() != 90 {
		t.Errorf("speed/pitch = %v/%v", w.Speed(), w.Pitch())
	}

	second := filepath.Join(dir, "second.MP3")
	if err := w.Save(context.Background(), "world", second); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := os.ReadFile(second)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "ID3-fake-mp3" {
		t.Errorf("saved content = %q", got)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []witaiRequest{
		{Q: "hello", Voice: "Colin"},
		{Q: "world", Voice: "Cooper", Speed: 120, Pitch: 90},
	}
	if !reflect.DeepEqual(bodies, want) {
		t.Errorf("requests = %+v, want %+v", bodies, want)
	}
}

func TestWitai_SpeakDecodesAndSnapshotsSettings(t *testing.T) {
	var (
		bodies []witaiRequest
		mu     sync.Mutex
	)
	srv := newCountingServer(t, witaiHandler(t, string(audiotest.ToneMP3), &bodies, &mu))
	player := &fakePlayer{}
	w, err := NewWitai(context.Background(), "test-token", testOptions(srv.URL, WithPlayer(player))...)
	if err != nil {
		t.Fatalf("NewWitai: %v", err)
	}

	if err := w.Speak(context.Background(), "hello"); err != nil {
		t.Fatalf("Speak: %v", err)
	}
	w.SetVoice("Pierre")
	w.SetSpeed(130)
	w.SetPitch(70)
	if err := w.Speak(context.Background(), "bonjour"); err != nil {
		t.Fatalf("Speak: %v", err)
	}

	mu.Lock()
	want := []witaiRequest{
		{Q: "hello", Voice: "Colin"},
		{Q: "bonjour", Voice: "Pierre", Speed: 130, Pitch: 70},
	}
	if !reflect.DeepEqual(bodies, want) {
		t.Errorf("requests = %+v, want %+v", bodies, want)
	}
	mu.Unlock()

	if len(player.played) != 2 {
		t.Fatalf("played %d times, want 2", len(player.played))
	}
	wantFormat := audio.Format{Channels: 2, SampleWidth: 2, FrameRate: audiotest.ToneRate}
	for i, pcm := range player.played {
		if pcm.Format != wantFormat {
			t.Errorf("played[%d] format = %+v, want %+v", i, pcm.Format, wantFormat)
		}
		if len(pcm.Data) == 0 || len(pcm.Data)%pcm.FrameBytes() != 0 {
			t.Errorf("played[%d] has %d bytes", i, len(pcm.Data))
		}
	}
}

func TestWitai_SpeedAndPitchIndependent(t *testing.T) {
	w := &Witai{base: newBase("witai", ".mp3", WitaiDefaultVoice, newOptions(nil))}
	w.SetSpeed(150)
	w.SetPitch(80)
	w.SetSpeed(110)
	if w.Pitch() != 80 {
		t.Errorf("pitch = %v, want 80", w.Pitch())
	}
	if w.Speed() != 110 {
		t.Errorf("speed = %v, want 110", w.Speed())
	}
}

func TestWitai_RemoteError(t *testing.T) {
	srv := newCountingServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/voices" {
			io.WriteString(w, `{}`)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":"voice not found"}`)
	})
	w, err := NewWitai(context.Background(), "test-token", testOptions(srv.URL)...)
	if err != nil {
		t.Fatalf("NewWitai: %v", err)
	}

	path := filepath.Join(t.TempDir(), "out.mp3")
	err = w.Save(context.Background(), "hello", path)
	var re *RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("err = %v, want RemoteError", err)
	}
	if re.StatusCode != http.StatusBadRequest || !strings.Contains(re.Body, "voice not found") {
		t.Errorf("RemoteError = %+v", re)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("failed synthesis should not create the file")
	}
}
