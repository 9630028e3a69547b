package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Storage.Driver != "minio" || cfg.Storage.UploadURLTTL != 15*time.Minute {
		t.Fatalf("unexpected storage defaults %+v", cfg.Storage)
	}
	if cfg.Cleanup.OrphanGrace != 24*time.Hour || cfg.Queue.Stream != "photos:tasks" {
		t.Fatalf("unexpected worker defaults %+v %+v", cfg.Cleanup, cfg.Queue)
	}
	if !cfg.Photos.Allows("image/heic") {
		t.Fatal("expected heic in the default allow-list")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PROPMGR_STORAGE_DRIVER", "s3")
	t.Setenv("PROPMGR_PHOTOS_ALLOWEDCONTENTTYPES", "image/png,image/jpeg")
	t.Setenv("PROPMGR_LOCKS_WAIT", "750ms")
	t.Setenv("PROPMGR_SECURITY_JWTACCESSSECRET", "s3cret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Storage.Driver != "s3" {
		t.Fatalf("expected s3 driver, got %q", cfg.Storage.Driver)
	}
	if cfg.Photos.Allows("image/gif") || !cfg.Photos.Allows("IMAGE/PNG") {
		t.Fatalf("unexpected allow-list %v", cfg.Photos.AllowedContentTypes)
	}
	if cfg.Locks.Wait != 750*time.Millisecond {
		t.Fatalf("expected 750ms lock wait, got %s", cfg.Locks.Wait)
	}
	if cfg.Security.JWTAccessSecret != "s3cret" {
		t.Fatal("expected secret from env")
	}
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PROPMGR_STORAGE_DRIVER", "ftp")

	if _, err := Load(); err == nil {
		t.Fatal("expected unsupported driver error")
	}
}
