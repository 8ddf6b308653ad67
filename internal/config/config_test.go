// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"testing"
	"time"
)

func TestString(t *testing.T) {
	tests := []struct {
		name string
		flag string
		env  string
		want string
	}{
		{"flag wins", "/dev/ttyACM1", "/dev/ttyACM0", "/dev/ttyACM1"},
		{"env fallback", "", "/dev/ttyACM0", "/dev/ttyACM0"},
		{"default", "", "", "none"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvPort, tt.env)
			if got := String(tt.flag, EnvPort, "none"); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDuration(t *testing.T) {
	tests := []struct {
		name string
		flag time.Duration
		env  string
		want time.Duration
	}{
		{"flag wins", 5 * time.Second, "1s", 5 * time.Second},
		{"env fallback", 0, "1500ms", 1500 * time.Millisecond},
		{"bad env", 0, "soon", 3 * time.Second},
		{"negative env", 0, "-1s", 3 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvTimeout, tt.env)
			if got := Duration(tt.flag, EnvTimeout, 3*time.Second); got != tt.want {
				t.Errorf("Duration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPassword(t *testing.T) {
	t.Setenv(EnvPassword, "")
	if _, ok := Password(); ok {
		t.Error("Password() reported a password with the variable empty")
	}

	t.Setenv(EnvPassword, "hunter2")
	if pw, ok := Password(); !ok || pw != "hunter2" {
		t.Errorf("Password() = %q, %v", pw, ok)
	}
}

func TestBool(t *testing.T) {
	tests := []struct {
		env  string
		want bool
	}{
		{"1", true},
		{"true", true},
		{"0", false},
		{"", false},
		{"yes", false},
	}

	for _, tt := range tests {
		t.Setenv(EnvFirmwarePose, tt.env)
		if got := Bool(EnvFirmwarePose); got != tt.want {
			t.Errorf("Bool(%q) = %v, want %v", tt.env, got, tt.want)
		}
	}
}
