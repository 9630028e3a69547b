package sniffer_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/daveharmswebdev/property-manager-sub002/internal/media/sniffer"
)

func TestDetectHead(t *testing.T) {
	cases := []struct {
		name string
		head []byte
		mime string
	}{
		{"jpeg", []byte{0xff, 0xd8, 0xff, 0xe0, 0x00}, "image/jpeg"},
		{"png", []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0x00}, "image/png"},
		{"gif", []byte("GIF89a......"), "image/gif"},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), "image/webp"},
		{"heic", []byte("\x00\x00\x00\x18ftypheic\x00\x00\x00\x00"), "image/heic"},
		{"heif with heic brand", []byte("\x00\x00\x00\x1cftypmif1\x00\x00\x00\x00mif1heic\x00\x00\x00\x00"), "image/heic"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := sniffer.DetectHead(tc.head)
			if err != nil {
				t.Fatalf("DetectHead: %v", err)
			}
			if result.MIME != tc.mime {
				t.Fatalf("expected %s, got %s", tc.mime, result.MIME)
			}
		})
	}
}

func TestDetectHead_Unknown(t *testing.T) {
	for _, head := range [][]byte{
		nil,
		[]byte("<svg xmlns=\"http://www.w3.org/2000/svg\"/>"),
		[]byte("%PDF-1.7"),
		[]byte("\x00\x00\x00\x1cftypavif\x00\x00\x00\x00avifmif1miaf"),
		[]byte("\x00\x00\x00\x1cftypmif1\x00\x00\x00\x00mif1avifmiaf"),
	} {
		if _, err := sniffer.DetectHead(head); !errors.Is(err, sniffer.ErrUnknownType) {
			t.Fatalf("DetectHead(%q): expected ErrUnknownType, got %v", head, err)
		}
	}
}

func TestDetect_ShortReader(t *testing.T) {
	result, head, err := sniffer.Detect(bytes.NewReader([]byte("GIF87a")))
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if result.Type != sniffer.TypeGIF || len(head) != 6 {
		t.Fatalf("unexpected result %+v with %d head bytes", result, len(head))
	}
}

func TestExtensionForMIME(t *testing.T) {
	cases := map[string]string{
		"image/jpeg":               "jpg",
		"image/jpg":                "jpg",
		"IMAGE/PNG; charset=utf-8": "png",
		"image/heic":               "heic",
		"application/pdf":          "bin",
	}
	for in, want := range cases {
		if got := sniffer.ExtensionForMIME(in); got != want {
			t.Fatalf("ExtensionForMIME(%q) = %q, want %q", in, got, want)
		}
	}
}
