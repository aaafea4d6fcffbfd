package cli

import (
	"bytes"
	"errors"
	"flag"
	"strings"
	"testing"

	"github.com/doridoridoriand/netsav-go/internal/config"
)

func TestParseDefaults(t *testing.T) {
	opts, err := Parse("netsav", nil, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if opts.ConfigPath != DefaultConfigPath || opts.Version {
		t.Fatalf("unexpected defaults %+v", opts)
	}
	o := opts.Overrides
	if o.LogLevel != nil || o.PIDFile != nil || o.ServerPort != nil || o.MetricsMode != nil || o.MetricsListen != nil || o.UIDisable != nil {
		t.Fatalf("expected no overrides, got %+v", o)
	}
}

func TestParseFlags(t *testing.T) {
	args := []string{
		"-c", "/tmp/netsav.yaml",
		"-p", "/tmp/netsav.pid",
		"-d",
		"--server-port", "8081",
		"--metrics-mode", "both",
		"--metrics-listen", ":9200",
		"--no-ui",
	}
	opts, err := Parse("netsav", args, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	o := opts.Overrides
	if opts.ConfigPath != "/tmp/netsav.yaml" {
		t.Fatalf("unexpected config path %q", opts.ConfigPath)
	}
	if o.LogLevel == nil || *o.LogLevel != "DEBUG" {
		t.Fatalf("expected debug level override")
	}
	if o.PIDFile == nil || *o.PIDFile != "/tmp/netsav.pid" {
		t.Fatalf("expected pid override")
	}
	if o.ServerPort == nil || *o.ServerPort != 8081 {
		t.Fatalf("expected server port override")
	}
	if o.MetricsMode == nil || *o.MetricsMode != config.MetricsModeBoth {
		t.Fatalf("expected metrics mode override")
	}
	if o.MetricsListen == nil || *o.MetricsListen != ":9200" {
		t.Fatalf("expected metrics listen override")
	}
	if o.UIDisable == nil || !*o.UIDisable {
		t.Fatalf("expected ui disable override")
	}
}

func TestParseDebugWinsOverLevel(t *testing.T) {
	opts, err := Parse("netsav", []string{"--log-level", "warn", "-d"}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if *opts.Overrides.LogLevel != "DEBUG" {
		t.Fatalf("expected DEBUG, got %q", *opts.Overrides.LogLevel)
	}
}

func TestParsePositionalConfig(t *testing.T) {
	opts, err := Parse("netsav", []string{"-V", "netsav.yaml"}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if opts.ConfigPath != "netsav.yaml" || !opts.Version {
		t.Fatalf("unexpected options %+v", opts)
	}

	if _, err := Parse("netsav", []string{"a.yaml", "b.yaml"}, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error for extra arguments")
	}
}

func TestParseErrors(t *testing.T) {
	var out bytes.Buffer
	if _, err := Parse("netsav", []string{"--metrics-mode", "all"}, &out); err == nil {
		t.Fatalf("expected error for invalid metrics mode")
	}
	if !strings.Contains(out.String(), "invalid metrics mode") {
		t.Fatalf("expected flag error in output, got %q", out.String())
	}

	if _, err := Parse("netsav", []string{"-h"}, &bytes.Buffer{}); !errors.Is(err, flag.ErrHelp) {
		t.Fatalf("expected flag.ErrHelp, got %v", err)
	}
}
