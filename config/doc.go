// Package config loads YAML configuration for the reverie runtime.
//
// Every field has a working default; a missing file yields the default
// configuration rather than an error, so the CLI runs unconfigured.
package config
