package s3

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type stubUploader struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (u *stubUploader) Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	if u.err != nil {
		return nil, u.err
	}
	u.input = input
	u.body, _ = io.ReadAll(input.Body)
	return &manager.UploadOutput{Location: "https://bucket.s3.amazonaws.com/" + *input.Key}, nil
}

func TestMirrorImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png-bytes"))
	}))
	defer srv.Close()

	uploader := &stubUploader{}
	mirror := &ImageMirror{Bucket: "recipe-images", Uploader: uploader, HTTPClient: srv.Client()}

	location, err := mirror.MirrorImage(context.Background(), srv.URL+"/photo", "Tomato Soup")
	if err != nil {
		t.Fatalf("MirrorImage error: %v", err)
	}
	if !strings.HasPrefix(location, "https://bucket.s3.amazonaws.com/recipes/images/tomato-soup-") {
		t.Errorf("location = %q", location)
	}
	if *uploader.input.Bucket != "recipe-images" || *uploader.input.ContentType != "image/png" {
		t.Errorf("input = %+v", uploader.input)
	}
	if string(uploader.body) != "png-bytes" {
		t.Errorf("body = %q", uploader.body)
	}
}

func TestMirrorImage_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("jpeg-bytes"))
	}))
	defer srv.Close()

	mirror := &ImageMirror{Bucket: "b", Uploader: &stubUploader{}, HTTPClient: srv.Client()}
	if _, err := mirror.MirrorImage(context.Background(), srv.URL+"/missing", "Soup"); err == nil {
		t.Error("404 download should fail")
	}

	failing := &ImageMirror{Bucket: "b", Uploader: &stubUploader{err: errors.New("access denied")}, HTTPClient: srv.Client()}
	if _, err := failing.MirrorImage(context.Background(), srv.URL+"/photo", "Soup"); err == nil {
		t.Error("upload failure should surface")
	}
}

func TestMirrorImage_RejectsOversizedImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("0123456789"))
	}))
	defer srv.Close()

	uploader := &stubUploader{}
	mirror := &ImageMirror{Bucket: "b", Uploader: uploader, HTTPClient: srv.Client(), MaxBytes: 4}
	if _, err := mirror.MirrorImage(context.Background(), srv.URL+"/photo", "Soup"); !errors.Is(err, ErrImageTooLarge) {
		t.Fatalf("MirrorImage = %v, want ErrImageTooLarge", err)
	}
	if uploader.input != nil {
		t.Error("a truncated image must not be uploaded")
	}

	exact := &ImageMirror{Bucket: "b", Uploader: uploader, HTTPClient: srv.Client(), MaxBytes: 10}
	if _, err := exact.MirrorImage(context.Background(), srv.URL+"/photo", "Soup"); err != nil {
		t.Errorf("image at the limit = %v, want success", err)
	}
}

func TestGenerateS3Key(t *testing.T) {
	key := GenerateS3Key("Crème Brûlée!")
	if !strings.HasPrefix(key, "recipes/images/") || !strings.HasSuffix(key, ".jpg") {
		t.Errorf("key = %q", key)
	}
	if key == GenerateS3Key("Crème Brûlée!") {
		t.Error("keys should be unique per call")
	}
	if !strings.HasPrefix(GenerateS3Key("!!!"), "recipes/images/recipe-") {
		t.Error("empty slug should fall back to recipe")
	}
}
