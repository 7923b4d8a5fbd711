package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/joseph-ayodele/fan-ledger/internal/common"
)

const sampleTSV = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
	"1\t1\t0\t0\t0\t0\t0\t0\t800\t600\t-1\t\n" +
	"2\t1\t1\t0\t0\t0\t10\t10\t500\t80\t-1\t\n" +
	"5\t1\t1\t1\t1\t1\t20\t100\t80\t30\t95.1\t별빛\n" +
	"5\t1\t1\t1\t1\t2\t400\t98\t120\t34\t91.0\t1,234,567\n" +
	"5\t1\t1\t1\t2\t1\t20\t400\t80\t30\t90.0\t달빛\n" +
	"5\t1\t1\t1\t2\t2\t400\t400\t60\t30\t10.0\t \n" +
	"bad\trow\n"

func TestParseTSV(t *testing.T) {
	got := parseTSV(sampleTSV)
	if len(got) != 4 {
		t.Fatalf("tokens = %d, want page + 3 words: %+v", len(got), got)
	}
	if got[0].Text != "별빛 1,234,567\n달빛" {
		t.Fatalf("page text = %q", got[0].Text)
	}
	if got[0].Box[2] != (Point{X: 800, Y: 600}) {
		t.Fatalf("page box = %+v", got[0].Box)
	}
	w := got[2]
	if w.Text != "1,234,567" || w.Left() != 400 || w.Top() != 98 || w.Bottom() != 132 || w.CenterX() != 460 {
		t.Fatalf("word = %+v", w)
	}
}

type stubRunner struct {
	stdout []byte
	err    error
	calls  [][]string
}

func (s *stubRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.calls = append(s.calls, append([]string{name}, args...))
	return s.stdout, []byte("stderr text"), s.err
}

func TestTesseractRecognizer(t *testing.T) {
	r := &stubRunner{stdout: []byte(sampleTSV)}
	rec := NewTesseractRecognizer(TesseractConfig{WorkDir: t.TempDir(), PSM: 11}, r, nil)
	tokens, err := rec.Recognize(context.Background(), []byte("img"))
	if err != nil {
		t.Fatal(err)
	}
	if len(tokens) != 4 {
		t.Fatalf("tokens = %d", len(tokens))
	}
	args := strings.Join(r.calls[0], " ")
	if !strings.HasPrefix(args, "tesseract ") || !strings.Contains(args, "stdout -l kor+eng --psm 11 tsv") {
		t.Fatalf("command = %q", args)
	}

	failing := NewTesseractRecognizer(TesseractConfig{WorkDir: t.TempDir()}, &stubRunner{err: errors.New("exit 1")}, nil)
	if _, err := failing.Recognize(context.Background(), []byte("img")); err == nil || !strings.Contains(err.Error(), "stderr text") {
		t.Fatalf("err = %v", err)
	}
}

func solidImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.Gray{Y: uint8(y % 255)})
		}
	}
	return img
}

func TestPrepareUpscalesShortImages(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, solidImage(50, 100)); err != nil {
		t.Fatal(err)
	}
	p, err := Prepare(buf.Bytes(), PrepareOptions{UpscaleBelow: 2000, PreviewFrom: 0.4})
	if err != nil {
		t.Fatal(err)
	}
	if p.Width != 100 || p.Height != 200 {
		t.Fatalf("ocr image = %dx%d, want 100x200", p.Width, p.Height)
	}
	preview, err := jpeg.Decode(bytes.NewReader(p.Preview))
	if err != nil {
		t.Fatal(err)
	}
	if b := preview.Bounds(); b.Dx() != 50 || b.Dy() != 60 {
		t.Fatalf("preview = %v, want 50x60", b)
	}

	tall, err := Prepare(buf.Bytes(), PrepareOptions{UpscaleBelow: 50})
	if err != nil || tall.Width != 50 {
		t.Fatalf("no upscale expected: %+v, %v", tall.Width, err)
	}
}

func TestPrepareRejectsGarbage(t *testing.T) {
	if _, err := Prepare([]byte("not an image"), PrepareOptions{}); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestNewVisionClientWithoutCredentials(t *testing.T) {
	_, err := NewVisionClient("http://example.invalid", "", "", 0, nil)
	if !errors.Is(err, common.ErrAuthMissing) {
		t.Fatalf("err = %v", err)
	}
}

func TestVisionRecognize(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("key")
		body, _ := io.ReadAll(r.Body)
		var req visionRequest
		if err := json.Unmarshal(body, &req); err != nil || req.Requests[0].Features[0].Type != "TEXT_DETECTION" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		_, _ = io.WriteString(w, `{"responses":[{"textAnnotations":[
			{"description":"page","boundingPoly":{"vertices":[{},{"x":900},{"x":900,"y":1600},{"y":1600}]}},
			{"description":"1,234,567","boundingPoly":{"vertices":[{"x":600,"y":100},{"x":800,"y":100},{"x":800,"y":140},{"x":600,"y":140}]}}
		]}]}`)
	}))
	defer srv.Close()

	c, err := NewVisionClient(srv.URL, "k3y", "", 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	tokens, err := c.Recognize(context.Background(), []byte("jpeg"))
	if err != nil {
		t.Fatal(err)
	}
	if gotKey != "k3y" {
		t.Fatalf("api key = %q", gotKey)
	}
	if len(tokens) != 2 || tokens[1].Left() != 600 || tokens[1].Bottom() != 140 || tokens[0].Box[0] != (Point{}) {
		t.Fatalf("tokens = %+v", tokens)
	}
}

func TestVisionStatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusForbidden, common.ErrAuthMissing},
		{http.StatusServiceUnavailable, common.ErrNetwork},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))
		c, _ := NewVisionClient(srv.URL, "", "token", 0, nil)
		_, err := c.Recognize(context.Background(), []byte("x"))
		srv.Close()
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: err = %v, want %v", tt.status, err, tt.want)
		}
	}
}

type fixedRecognizer struct{ err error }

func (f fixedRecognizer) Recognize(ctx context.Context, img []byte) ([]Token, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []Token{Rect("page", 0, 0, 1, 1)}, nil
}

func TestReaderKeepsPreviewOnRecognizeFailure(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, solidImage(20, 40)); err != nil {
		t.Fatal(err)
	}
	cfg := common.Default().OCR
	r := NewReader(cfg, fixedRecognizer{err: errors.New("quota")}, &stubRunner{}, nil)
	page, err := r.Read(context.Background(), Source{Name: "a.png", Data: buf.Bytes()})
	if err == nil {
		t.Fatal("expected recognize error")
	}
	if len(page.Preview) == 0 || page.Width != 40 {
		t.Fatalf("page = %+v", page)
	}
}

func TestReaderConvertsHEIC(t *testing.T) {
	cfg := common.Default().OCR
	cfg.ArtifactCacheDir = t.TempDir()
	runner := &stubRunner{err: errors.New("no converter")}
	r := NewReader(cfg, fixedRecognizer{}, runner, nil)
	if _, err := r.Read(context.Background(), Source{Name: "shot.HEIC", Data: []byte("heic")}); err == nil {
		t.Fatal("expected conversion error")
	}
	if len(runner.calls) != 1 || runner.calls[0][0] != "magick" {
		t.Fatalf("calls = %v", runner.calls)
	}
}
