package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/decker502/pfx/internal/particle"
)

func TestLoadEngineConfig(t *testing.T) {
	tests := []struct {
		name        string
		yamlContent string
		wantErr     bool
		errContains string
		validate    func(*testing.T, *EngineConfig)
	}{
		{
			name: "valid config",
			yamlContent: `
pools:
  systems: 16
  ejectors: 64
  particles: 512
  particleGrace: 2
limits:
  systems: 32
scripts:
  dir: fx
  ext: .fx
log:
  level: debug
viewer:
  width: 800
  height: 600
  fov: 75
  entities:
    - number: 5
      origin: [0, 64, 8]
      effect: fire
      orbit: 32
      period: 4000
debug:
  addr: 127.0.0.1:6060
  seed: 42
`,
			validate: func(t *testing.T, cfg *EngineConfig) {
				if cfg.Pools.Particles != 512 || cfg.Pools.ParticleGrace != 2 {
					t.Errorf("pools = %+v", cfg.Pools)
				}
				if cfg.Scripts.Dir != "fx" || cfg.Scripts.Ext != ".fx" {
					t.Errorf("scripts = %+v", cfg.Scripts)
				}
				if cfg.Debug.Addr != "127.0.0.1:6060" || cfg.Debug.Seed != 42 {
					t.Errorf("debug = %+v", cfg.Debug)
				}
				if len(cfg.Viewer.Entities) != 1 || cfg.Viewer.Entities[0].Origin != [3]float64{0, 64, 8} {
					t.Errorf("entities = %+v", cfg.Viewer.Entities)
				}
				// 未配置的字段保留默认值
				if cfg.Viewer.Title != "Particle Viewer" || cfg.Viewer.CameraDistance != 256 {
					t.Errorf("viewer defaults lost: %+v", cfg.Viewer)
				}

				limits := cfg.StoreLimits()
				if limits.MaxSystems != 32 {
					t.Errorf("MaxSystems = %d, want 32", limits.MaxSystems)
				}
				if want := particle.DefaultLimits().MaxFiles; limits.MaxFiles != want {
					t.Errorf("MaxFiles = %d, want default %d", limits.MaxFiles, want)
				}

				sc := cfg.SystemsConfig(1)
				if sc.MaxEjectors != 64 || sc.DebugLevel != 1 || sc.Seed != 42 || sc.ScriptExt != ".fx" {
					t.Errorf("SystemsConfig() = %+v", sc)
				}
			},
		},
		{
			name:        "empty file uses defaults",
			yamlContent: "",
			validate: func(t *testing.T, cfg *EngineConfig) {
				def := DefaultEngineConfig()
				if cfg.Pools != def.Pools || cfg.Scripts != def.Scripts {
					t.Errorf("config = %+v, want defaults", cfg)
				}
			},
		},
		{
			name: "ejector pool smaller than system pool",
			yamlContent: `
pools:
  systems: 64
  ejectors: 8
  particles: 100
`,
			wantErr:     true,
			errContains: "pools.ejectors",
		},
		{
			name: "zero particle pool",
			yamlContent: `
pools:
  particles: 0
`,
			wantErr:     true,
			errContains: "pool sizes must be positive",
		},
		{
			name: "negative limit",
			yamlContent: `
limits:
  shaderFrames: -1
`,
			wantErr:     true,
			errContains: "limits.shaderFrames",
		},
		{
			name: "unknown log level",
			yamlContent: `
log:
  level: loud
`,
			wantErr:     true,
			errContains: "log.level",
		},
		{
			name: "script extension without dot",
			yamlContent: `
scripts:
  ext: particle
`,
			wantErr:     true,
			errContains: "scripts.ext",
		},
		{
			name: "entity without effect",
			yamlContent: `
viewer:
  entities:
    - number: 1
`,
			wantErr:     true,
			errContains: "effect is required",
		},
		{
			name: "duplicate entity number",
			yamlContent: `
viewer:
  entities:
    - {number: 2, effect: fire}
    - {number: 2, effect: glow}
`,
			wantErr:     true,
			errContains: "duplicate number 2",
		},
		{
			name: "orbit without period",
			yamlContent: `
viewer:
  entities:
    - {number: 3, effect: fire, orbit: 64}
`,
			wantErr:     true,
			errContains: "positive period",
		},
		{
			name: "fov out of range",
			yamlContent: `
viewer:
  fov: 180
`,
			wantErr:     true,
			errContains: "viewer.fov",
		},
		{
			name:        "invalid yaml",
			yamlContent: "pools: [",
			wantErr:     true,
			errContains: "failed to parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// 创建临时配置文件
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.yamlContent), 0644); err != nil {
				t.Fatalf("failed to write temp config: %v", err)
			}

			cfg, err := LoadEngineConfig(path)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error containing %q, got nil", tt.errContains)
				}
				if !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("error = %q, want it to contain %q", err.Error(), tt.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.validate != nil {
				tt.validate(t, cfg)
			}
		})
	}
}

func TestLoadEngineConfig_MissingFile(t *testing.T) {
	_, err := LoadEngineConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !strings.Contains(err.Error(), "failed to read") {
		t.Errorf("LoadEngineConfig(missing) error = %v, want read failure", err)
	}
}
