// Package config handles difficulty preset loading for Captcha Rush.
//
// Presets come from two places: a small set of built-ins (default,
// classic, hard) that are always available, and optional JSON files in a
// preset directory for deployments that want their own rules. File
// presets are validated on load and cached; the file name without the
// .json extension is the preset ID.
//
// A preset file looks like:
//
//	{
//	  "name": "speedrun",
//	  "description": "3 letters, 5 seconds",
//	  "length": 3,
//	  "include_digits": false,
//	  "case_sensitive": false,
//	  "timeout_seconds": 5
//	}
package config
