package authcore

import (
	"testing"
	"time"
)

func TestParseLifetime(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"30s", 30 * time.Second},
		{"15m", 15 * time.Minute},
		{"12h", 12 * time.Hour},
		{"7d", 7 * 24 * time.Hour},
		{"3600", time.Hour},
		{" 90 ", 90 * time.Second},
		{"", fallbackLifetime},
		{"abc", fallbackLifetime},
		{"-5m", fallbackLifetime},
		{"0", fallbackLifetime},
		{"-3d", fallbackLifetime},
	}

	for _, tc := range cases {
		if got := ParseLifetime(tc.in); got != tc.want {
			t.Errorf("ParseLifetime(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	valid := testConfig()
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	mutations := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty secret", func(c *Config) { c.Token.SigningSecret = nil }},
		{"zero access ttl", func(c *Config) { c.Token.AccessTTL = 0 }},
		{"access exceeds refresh", func(c *Config) { c.Token.AccessTTL = c.Token.RefreshTTL + time.Hour }},
		{"zero lockout threshold", func(c *Config) { c.Lockout.Threshold = 0 }},
		{"zero lockout duration", func(c *Config) { c.Lockout.Duration = 0 }},
		{"zero ticket ttl", func(c *Config) { c.Verification.TTL = 0 }},
		{"code too short", func(c *Config) { c.Reset.CodeDigits = 4 }},
		{"code too long", func(c *Config) { c.Verification.CodeDigits = 12 }},
	}

	for _, m := range mutations {
		t.Run(m.name, func(t *testing.T) {
			cfg := testConfig()
			m.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation failure")
			}
		})
	}
}

func TestBuildRefusesEmptySecret(t *testing.T) {
	cfg := testConfig()
	cfg.Token.SigningSecret = nil

	_, err := New().WithConfig(cfg).Build()
	if err == nil {
		t.Fatal("build must refuse an empty signing secret")
	}
}

func TestBuilderSingleUse(t *testing.T) {
	h := newTestHarness(t, nil)

	b := New().
		WithConfig(testConfig()).
		WithRedis(h.redis).
		WithDirectory(h.dir).
		WithMailer(h.mail)

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer engine.Close()

	if _, err := b.Build(); err == nil {
		t.Error("second Build must fail")
	}
}

func TestCloneConfigDetachesSecret(t *testing.T) {
	cfg := testConfig()
	cloned := cloneConfig(cfg)

	cfg.Token.SigningSecret[0] ^= 0xFF
	if cloned.Token.SigningSecret[0] == cfg.Token.SigningSecret[0] {
		t.Error("cloned secret must not share backing storage")
	}
}
