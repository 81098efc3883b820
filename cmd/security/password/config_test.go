package password

import (
	"os"
	"testing"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{
		"BLOG_PASSWORD_MIN_LEN",
		"BLOG_PASSWORD_MAX_LEN",
		"BLOG_PASSWORD_REJECT_VERY_WEAK",
		"BLOG_ARGON2_MEMORY_KIB",
		"BLOG_ARGON2_ITERATIONS",
		"BLOG_ARGON2_PARALLELISM",
		"BLOG_ARGON2_SALT_LEN",
		"BLOG_ARGON2_KEY_LEN",
	} {
		_ = os.Unsetenv(k)
	}

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv error: %v", err)
	}

	def := DefaultConfig()
	if cfg.Policy != def.Policy {
		t.Fatalf("policy mismatch: %+v", cfg.Policy)
	}
	if cfg.Params != def.Params {
		t.Fatalf("params mismatch: %+v", cfg.Params)
	}
}

func TestFromEnv_BlankOverrideIsError(t *testing.T) {
	t.Setenv("BLOG_ARGON2_ITERATIONS", "")

	if _, err := FromEnv(); err == nil {
		t.Fatalf("expected error for blank override")
	}
}

func TestFromEnv_Override(t *testing.T) {
	t.Setenv("BLOG_PASSWORD_MIN_LEN", "10")
	t.Setenv("BLOG_PASSWORD_MAX_LEN", "200")
	t.Setenv("BLOG_PASSWORD_REJECT_VERY_WEAK", "true")
	t.Setenv("BLOG_ARGON2_MEMORY_KIB", "32768")
	t.Setenv("BLOG_ARGON2_ITERATIONS", "4")
	t.Setenv("BLOG_ARGON2_PARALLELISM", "2")
	t.Setenv("BLOG_ARGON2_SALT_LEN", "24")
	t.Setenv("BLOG_ARGON2_KEY_LEN", "32")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv error: %v", err)
	}

	if cfg.Policy.MinLength != 10 || cfg.Policy.MaxLength != 200 || !cfg.Policy.RejectVeryWeak {
		t.Fatalf("policy override failed: %+v", cfg.Policy)
	}
	if cfg.Params.MemoryKiB != 32768 || cfg.Params.Iterations != 4 || cfg.Params.Parallelism != 2 {
		t.Fatalf("argon2 override failed: %+v", cfg.Params)
	}
	if cfg.Params.SaltLength != 24 || cfg.Params.KeyLength != 32 {
		t.Fatalf("len override failed: %+v", cfg.Params)
	}
}

func TestFromEnv_InvalidMinMax(t *testing.T) {
	t.Setenv("BLOG_PASSWORD_MIN_LEN", "20")
	t.Setenv("BLOG_PASSWORD_MAX_LEN", "10")

	if _, err := FromEnv(); err == nil {
		t.Fatalf("expected error")
	}
}

func TestFromEnv_RejectsTinyMemory(t *testing.T) {
	t.Setenv("BLOG_ARGON2_MEMORY_KIB", "1024")

	if _, err := FromEnv(); err == nil {
		t.Fatalf("expected error for memory below 8 MiB")
	}
}
