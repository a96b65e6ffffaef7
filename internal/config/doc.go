// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config provides configuration management for ellier.
//
// Precedence is defaults, then a strict YAML file, then ELLIER_* environment
// variables (optionally seeded from a .env file). The resulting AppConfig is
// validated once and treated as immutable afterwards.
package config
