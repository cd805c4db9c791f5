package sink

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func testSink(url string) *HTTPSink {
	return New(Config{APIURL: url, Token: "secret", ChannelID: "log-channel"}, zerolog.Nop())
}

func TestUploadCSV(t *testing.T) {
	var gotPath, gotAuth, gotMessage, gotFilename, gotFile string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")

		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		gotMessage = r.FormValue("content")

		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			return
		}
		defer file.Close()
		gotFilename = header.Filename
		data, _ := io.ReadAll(file)
		gotFile = string(data)
	}))
	defer srv.Close()

	s := testSink(srv.URL)
	err := s.UploadCSV(context.Background(), "attendance.csv", []byte("User,Joined At\n"), "Attendance log:")
	if err != nil {
		t.Fatalf("UploadCSV() error = %v", err)
	}

	if gotPath != "/channels/log-channel/messages" {
		t.Errorf("path = %q, want /channels/log-channel/messages", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q, want bearer token", gotAuth)
	}
	if gotMessage != "Attendance log:" {
		t.Errorf("message = %q", gotMessage)
	}
	if gotFilename != "attendance.csv" {
		t.Errorf("filename = %q", gotFilename)
	}
	if gotFile != "User,Joined At\n" {
		t.Errorf("file content = %q", gotFile)
	}
}

func TestUploadCSVErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := testSink(srv.URL)
	if err := s.UploadCSV(context.Background(), "a.csv", []byte("x"), "m"); err == nil {
		t.Error("UploadCSV() error = nil for 502, want error")
	}
}

func TestNotify(t *testing.T) {
	var gotBody, gotContentType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
	}))
	defer srv.Close()

	s := testSink(srv.URL)
	if err := s.Notify(context.Background(), "tracking started"); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", gotContentType)
	}
	if gotBody != `{"content":"tracking started"}` {
		t.Errorf("body = %q", gotBody)
	}
}
