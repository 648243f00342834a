package imgstore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestUploadFromURL_Success(t *testing.T) {
	var gotKey, gotImage string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotKey = r.PostFormValue("key")
		gotImage = r.PostFormValue("image")
		_, _ = w.Write([]byte(`{"success":true,"status":200,"data":{"url":"https://i.ibb.co/abc/photo.jpg","display_url":"https://i.ibb.co/abc/photo.jpg"}}`))
	}))
	t.Cleanup(srv.Close)

	up := NewUploader("KEY123", srv.URL, srv.Client())
	got, err := up.UploadFromURL(context.Background(), "https://files.example/photo_7.jpg")
	if err != nil {
		t.Fatalf("UploadFromURL: %v", err)
	}
	if got != "https://i.ibb.co/abc/photo.jpg" {
		t.Fatalf("unexpected hosted url %q", got)
	}
	if gotKey != "KEY123" || gotImage != "https://files.example/photo_7.jpg" {
		t.Fatalf("unexpected form values key=%q image=%q", gotKey, gotImage)
	}
}

func TestUploadFromURL_APIFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success":false,"status":400,"error":{"message":"Invalid API v1 key"}}`))
	}))
	t.Cleanup(srv.Close)

	up := NewUploader("BAD", srv.URL, srv.Client())
	_, err := up.UploadFromURL(context.Background(), "https://files.example/photo.jpg")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "Invalid API v1 key") {
		t.Fatalf("error should carry api message, got %v", err)
	}
}
