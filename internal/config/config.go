// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config resolves settings that may come from flags or the
// environment. A flag value that was set always wins.
package config

import (
	"os"
	"strconv"
	"time"
)

// Environment variables
const (
	EnvPort     = "EDUBOT_PORT"
	EnvBLEName  = "EDUBOT_BLE_NAME"
	EnvPassword = "EDUBOT_PASSWORD"
	EnvLogLevel = "EDUBOT_LOG_LEVEL"
	EnvFamily   = "EDUBOT_FAMILY"
	EnvTimeout  = "EDUBOT_TIMEOUT"

	EnvFirmwarePose = "EDUBOT_FIRMWARE_POSE"
)

// Defaults
const (
	DefaultLogLevel = "info"
	DefaultFamily   = "root"
)

// String returns flag if set, else the environment variable, else def
func String(flag, env, def string) string {
	if flag != "" {
		return flag
	}
	if v := os.Getenv(env); v != "" {
		return v
	}
	return def
}

// Duration returns flag if positive, else the environment variable parsed
// with time.ParseDuration, else def. Unparseable values fall back to def.
func Duration(flag time.Duration, env string, def time.Duration) time.Duration {
	if flag > 0 {
		return flag
	}
	if v := os.Getenv(env); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}

// Bool reports whether the environment variable holds a true value
func Bool(env string) bool {
	v, err := strconv.ParseBool(os.Getenv(env))
	return err == nil && v
}

// Password returns the WebSocket password from the environment, if any
func Password() (string, bool) {
	pw := os.Getenv(EnvPassword)
	return pw, pw != ""
}
