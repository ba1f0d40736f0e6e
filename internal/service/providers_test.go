package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, body)
}

func TestGeminiGenerateText(t *testing.T) {
	var gotPath, gotKey, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		gotAuth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"Hola "},{"text":"mundo"}]}}]}`)
	}))
	defer srv.Close()

	c := NewGeminiClient(&GeminiConfig{APIKey: "k1", BaseURL: srv.URL})
	text, err := c.GenerateText(context.Background(), "saluda")
	if err != nil {
		t.Fatalf("GenerateText() error = %v", err)
	}
	if text != "Hola mundo" {
		t.Errorf("text = %q", text)
	}
	if gotPath != "/models/gemini-2.5-flash-lite:generateContent" || gotKey != "k1" || gotAuth != "" {
		t.Errorf("unexpected request path=%q key=%q auth=%q", gotPath, gotKey, gotAuth)
	}
}

func TestGeminiGenerateImage(t *testing.T) {
	var body geminiRequest
	img := []byte{0x89, 'P', 'N', 'G'}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body)
		writeJSON(w, http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"aqui"},{"inlineData":{"mimeType":"image/png","data":"`+
			base64.StdEncoding.EncodeToString(img)+`"}}]}}]}`)
	}))
	defer srv.Close()

	c := NewGeminiClient(&GeminiConfig{APIKey: "k", BaseURL: srv.URL})
	out, err := c.GenerateImage(context.Background(), "mejorar", &InlineImage{MIMEType: "image/jpeg", Data: []byte{1, 2}})
	if err != nil {
		t.Fatalf("GenerateImage() error = %v", err)
	}
	if out.MIMEType != "image/png" || string(out.Data) != string(img) {
		t.Errorf("unexpected image %+v", out)
	}
	if body.GenerationConfig == nil || strings.Join(body.GenerationConfig.ResponseModalities, ",") != "TEXT,IMAGE" {
		t.Errorf("missing response modalities: %+v", body.GenerationConfig)
	}
	if len(body.Contents) != 1 || len(body.Contents[0].Parts) != 2 || body.Contents[0].Parts[1].InlineData == nil {
		t.Errorf("source image not sent: %+v", body.Contents)
	}
}

func TestGeminiErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
		wantMsg string
	}{
		{"api error", http.StatusBadRequest, `{"error":{"code":400,"message":"API key not valid"}}`, nil, "API key not valid"},
		{"no candidates", http.StatusOK, `{"candidates":[]}`, ErrEmptyResult, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			}))
			defer srv.Close()

			_, err := NewGeminiClient(&GeminiConfig{APIKey: "k", BaseURL: srv.URL}).GenerateText(context.Background(), "x")
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("err = %v, want it to mention %q", err, tt.wantMsg)
			}
		})
	}

	_, err := NewGeminiClient(&GeminiConfig{}).GenerateText(context.Background(), "x")
	if !errors.Is(err, ErrProviderDisabled) {
		t.Errorf("missing key: err = %v", err)
	}
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"{\\rtf1 a}", "{\\rtf1 a}"},
		{"```rtf\n{\\rtf1 a}\n```", "{\\rtf1 a}"},
		{"```\n{\\rtf1 a}\n```\n", "{\\rtf1 a}"},
		{"  plain  ", "plain"},
	}
	for _, tt := range tests {
		if got := stripCodeFences(tt.in); got != tt.want {
			t.Errorf("stripCodeFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestVisionDetectText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images:annotate" || r.URL.Query().Get("key") != "vk" {
			t.Errorf("unexpected request %s", r.URL)
		}
		writeJSON(w, http.StatusOK, `{"responses":[{"fullTextAnnotation":{"text":"LECHE\nENTERA","pages":[{"blocks":[
			{"boundingBox":{"vertices":[{"x":10,"y":5},{"x":90,"y":5},{"x":90,"y":30},{"x":10,"y":30}]},
			 "paragraphs":[{"words":[{"symbols":[{"text":"L"},{"text":"E"},{"text":"C"},{"text":"H"},{"text":"E"}]}]}]},
			{"boundingBox":{"vertices":[{},{},{"x":1}],"normalizedVertices":[{"x":0.1,"y":0.5},{"x":0.5,"y":0.5},{"x":0.5,"y":1}]},
			 "paragraphs":[{"words":[{"symbols":[{"text":"E"},{"text":"N"}]},{"symbols":[{"text":"T"}]}]}]},
			{"boundingBox":{"vertices":[{"x":1,"y":1}]},"paragraphs":[]}
		]}]}}]}`)
	}))
	defer srv.Close()

	c := NewVisionClient(&VisionConfig{APIKey: "vk", BaseURL: srv.URL})
	res, err := c.DetectText(context.Background(), []byte("img"), 200, 100)
	if err != nil {
		t.Fatalf("DetectText() error = %v", err)
	}
	if res.Text != "LECHE\nENTERA" {
		t.Errorf("text = %q", res.Text)
	}
	if len(res.Blocks) != 2 {
		t.Fatalf("got %d blocks, want 2", len(res.Blocks))
	}
	if res.Blocks[0].Text != "LECHE" || res.Blocks[0].Polygon[1] != (Point{X: 90, Y: 5}) {
		t.Errorf("block 0 = %+v", res.Blocks[0])
	}
	if res.Blocks[1].Text != "EN T" || res.Blocks[1].Polygon[0] != (Point{X: 20, Y: 50}) {
		t.Errorf("block 1 = %+v", res.Blocks[1])
	}
}

func TestNormalizePolygon(t *testing.T) {
	norm := []Point{{0, 0}, {1, 0.5}, {1.05, 1}}
	pixels := []Point{{0, 0}, {120, 40}}

	got := NormalizePolygon(norm, 100, 200)
	want := []Point{{0, 0}, {100, 100}, {105, 200}}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("point %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if got := NormalizePolygon(pixels, 100, 200); got[1] != pixels[1] {
		t.Errorf("pixel outline changed: %+v", got)
	}
	if got := NormalizePolygon(norm, 0, 200); got[1] != norm[1] {
		t.Errorf("zero width should leave points: %+v", got)
	}
}

func TestImageSearchRotatesKeys(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		q := r.URL.Query()
		if q.Get("searchType") != "image" || q.Get("fileType") != "jpeg,png" || q.Get("cx") != "cx1" {
			t.Errorf("unexpected query %v", q)
		}
		switch q.Get("key") {
		case "spent":
			writeJSON(w, http.StatusTooManyRequests, `{"error":{"code":429,"message":"quota"}}`)
		case "good":
			writeJSON(w, http.StatusOK, `{"items":[
				{"link":"https://a/1.jpg","mime":"image/jpeg"},
				{"link":"https://a/manual.pdf","mime":"image/jpeg"},
				{"link":"https://a/doc","mime":"application/pdf"},
				{"link":"ftp://a/2.png"},
				{"link":"https://a/3.png"}
			]}`)
		}
	}))
	defer srv.Close()

	c := NewImageSearchClient(&ImageSearchConfig{APIKeys: []string{"spent", " good "}, CX: "cx1", BaseURL: srv.URL})
	links, err := c.Search(context.Background(), "yerba", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if strings.Join(links, " ") != "https://a/1.jpg https://a/3.png" {
		t.Errorf("links = %v", links)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}

	all := NewImageSearchClient(&ImageSearchConfig{APIKeys: []string{"spent"}, CX: "cx1", BaseURL: srv.URL})
	if _, err := all.Search(context.Background(), "yerba", 5); err == nil {
		t.Error("expected error when every key fails")
	}
}

func TestLooksLikePDFURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://x/a.jpg", false},
		{"https://x/a.PDF", true},
		{"https://x/get?format=pdf", true},
		{"https://x/files/pdf", true},
		{"https://x/r?u=application%2Fpdf", true},
		{"https://x/pdfviewer.png", false},
	}
	for _, tt := range tests {
		if got := looksLikePDFURL(tt.url); got != tt.want {
			t.Errorf("looksLikePDFURL(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestSerpAPI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("gl") != "ar" || q.Get("hl") != "es" || q.Get("api_key") != "sk" {
			t.Errorf("unexpected query %v", q)
		}
		switch q.Get("q") {
		case "vacio":
			writeJSON(w, http.StatusOK, `{"error":"Google hasn't returned any results for this query."}`)
			return
		case "roto":
			writeJSON(w, http.StatusOK, `{"search_metadata":{"status":"Error"},"error":"Invalid API key"}`)
			return
		}
		switch q.Get("engine") {
		case "google_images":
			if q.Get("location") != "Argentina" {
				t.Errorf("missing location: %v", q)
			}
			writeJSON(w, http.StatusOK, `{"search_metadata":{"status":"Success"},"images_results":[
				{"original":"https://a/o.jpg","thumbnail":"https://a/t.jpg"},
				{"thumbnail":"https://a/t2.jpg"},
				{"original":"https://a/x.pdf"}
			]}`)
		case "google":
			writeJSON(w, http.StatusOK, `{"organic_results":[
				{"title":"T1","snippet":"S1"},{"title":"T2"},{"snippet":" "},{"title":"T4","snippet":"S4"}
			]}`)
		}
	}))
	defer srv.Close()

	c := NewSerpAPIClient(&SerpAPIConfig{APIKey: "sk", BaseURL: srv.URL})
	ctx := context.Background()

	images, err := c.SearchImages(ctx, "cafe", 0)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(images, " ") != "https://a/o.jpg https://a/t2.jpg" {
		t.Errorf("images = %v", images)
	}

	snippets, err := c.SearchSnippets(ctx, "cafe", 2)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(snippets, "|") != "S1|T2" {
		t.Errorf("snippets = %v", snippets)
	}

	empty, err := c.SearchImages(ctx, "vacio", 5)
	if err != nil || len(empty) != 0 {
		t.Errorf("no-results answer: %v, %v", empty, err)
	}
	if _, err := c.SearchSnippets(ctx, "roto", 5); err == nil || !strings.Contains(err.Error(), "Invalid API key") {
		t.Errorf("expected SerpAPI error, got %v", err)
	}
}
