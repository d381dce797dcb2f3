// Package appconfig holds the process configuration for conversion runs.
package appconfig

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Config holds the conversion settings. One value configures one run;
// the zero value is not usable, start from Default.
type Config struct {
	// Folder with source frames.
	FramesDir string `json:"framesDir"`

	// Output folder; empty derives "<framesDir>_3d".
	OutputDir string `json:"outputDir"`

	// Depth model settings.
	ModelDir             string `json:"modelDir"`
	ModelVariant         string `json:"modelVariant"`
	ORTSharedLibraryPath string `json:"ortSharedLibraryPath"`

	// Maximum pixel shift for the farthest depth. Recommended 10 to 20.
	ParallaxScale int `json:"parallaxScale"`

	// nearest, bilinear, bicubic, or lanczos.
	Interpolation string `json:"interpolation"`

	// HSBS, FSBS, HOU, or FOU.
	Layout string `json:"layout"`

	// LEFT or RIGHT: which eye comes first in the packed frame.
	EyeOrder string `json:"eyeOrder"`

	// Target output size; 0 means no resize/pad.
	TargetWidth  int `json:"targetWidth"`
	TargetHeight int `json:"targetHeight"`

	ChunkSize  int `json:"chunkSize"`
	MaxWorkers int `json:"maxWorkers"`

	JPEGQuality int `json:"jpegQuality"`

	// KeepSources disables deletion of converted source frames.
	KeepSources bool `json:"keepSources"`

	// SerializeInference funnels depth model calls through a mutex.
	SerializeInference bool `json:"serializeInference"`

	// LedgerPath, when set, records chunk state in a SQLite database.
	LedgerPath string `json:"ledgerPath"`
}

var (
	cfgMu sync.RWMutex
	cfg   Config
)

// Default returns a Config populated with sensible defaults.
func Default() Config {
	return Config{
		ModelVariant:       "vitl",
		ParallaxScale:      15,
		Interpolation:      "bilinear",
		Layout:             "FSBS",
		EyeOrder:           "LEFT",
		ChunkSize:          1000,
		MaxWorkers:         3,
		JPEGQuality:        100,
		SerializeInference: true,
	}
}

// Get returns a copy of the current in-memory config.
func Get() Config {
	cfgMu.RLock()
	defer cfgMu.RUnlock()
	return cfg
}

// Set replaces the in-memory config.
func Set(c Config) {
	cfgMu.Lock()
	cfg = c
	cfgMu.Unlock()
}

// Load reads the config file at path and updates the in-memory config.
// Missing fields keep their defaults. A missing file yields defaults.
func Load(path string) (Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			Set(c)
			return c, nil
		}
		return Config{}, fmt.Errorf("failed to read config file at %s: %v", path, err)
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("failed to parse config JSON: %v", err)
	}
	Set(c)
	return c, nil
}

// Save writes the config to disk, creating the directory as needed.
// Unknown keys already present in the file are preserved.
func Save(path string, c Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %v", err)
	}
	base := map[string]json.RawMessage{}
	if existing, readErr := os.ReadFile(path); readErr == nil {
		var tmp map[string]json.RawMessage
		if err := json.Unmarshal(existing, &tmp); err == nil {
			base = tmp
		}
	}

	marshaled, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %v", err)
	}
	incoming := map[string]json.RawMessage{}
	if err := json.Unmarshal(marshaled, &incoming); err != nil {
		return fmt.Errorf("failed to map config JSON: %v", err)
	}
	deepMergeJSON(base, incoming)

	mergedData, err := json.MarshalIndent(base, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal merged config: %v", err)
	}
	if err := os.WriteFile(path, mergedData, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %v", err)
	}
	Set(c)
	return nil
}

func isJSONObject(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

func deepMergeJSON(dst, src map[string]json.RawMessage) {
	for k, v := range src {
		if existing, ok := dst[k]; ok && isJSONObject(existing) && isJSONObject(v) {
			var dstObj map[string]json.RawMessage
			var srcObj map[string]json.RawMessage
			if err := json.Unmarshal(existing, &dstObj); err != nil {
				dst[k] = v
				continue
			}
			if err := json.Unmarshal(v, &srcObj); err != nil {
				dst[k] = v
				continue
			}
			deepMergeJSON(dstObj, srcObj)
			merged, err := json.Marshal(dstObj)
			if err != nil {
				dst[k] = v
				continue
			}
			dst[k] = merged
			continue
		}
		dst[k] = v
	}
}
