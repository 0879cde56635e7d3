package particle

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Limits bounds the number of templates a Store accepts.
type Limits struct {
	MaxSystems             int
	MaxEjectorsPerSystem   int
	MaxParticlesPerEjector int
	MaxShaderFrames        int
	MaxModels              int
	MaxFiles               int
}

// DefaultLimits returns the limits the stock effect scripts are written against.
func DefaultLimits() Limits {
	return Limits{
		MaxSystems:             192,
		MaxEjectorsPerSystem:   4,
		MaxParticlesPerEjector: 4,
		MaxShaderFrames:        64,
		MaxModels:              8,
		MaxFiles:               128,
	}
}

// AssetRegistry resolves asset names to renderer and sound handles.
// Registering the same name twice must return the same handle.
type AssetRegistry interface {
	RegisterSprite(name string) int
	RegisterModel(name string) int
	RegisterSound(name string) int
}

// TrailRegistry is implemented by asset registries that also know about trail systems.
type TrailRegistry interface {
	RegisterTrailSystem(name string) int
}

// Store owns every BaseSystem loaded from scripts. Handles are 1-based
// indices; 0 means "no system".
type Store struct {
	limits Limits
	assets AssetRegistry
	log    *zap.SugaredLogger

	systems []*BaseSystem
	byName  map[string]int

	// systems currently being registered, guards against reference cycles
	registering map[int]bool

	// DebugLevel enables creation and registration traces at 1 and above.
	DebugLevel int
}

// NewStore creates an empty Store. A nil logger disables logging.
func NewStore(limits Limits, assets AssetRegistry, log *zap.SugaredLogger) *Store {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Store{
		limits:      limits,
		assets:      assets,
		log:         log,
		byName:      make(map[string]int),
		registering: make(map[int]bool),
	}
}

// Reset drops every template.
func (s *Store) Reset() {
	s.systems = nil
	s.byName = make(map[string]int)
	s.registering = make(map[int]bool)
}

// Len returns the number of loaded systems.
func (s *Store) Len() int { return len(s.systems) }

// Names returns the loaded system names in load order.
func (s *Store) Names() []string {
	names := make([]string, len(s.systems))
	for i, bs := range s.systems {
		names[i] = bs.Name
	}
	return names
}

// System returns the template for handle, or nil.
func (s *Store) System(handle int) *BaseSystem {
	if handle < 1 || handle > len(s.systems) {
		return nil
	}
	return s.systems[handle-1]
}

// Lookup finds a system by case-insensitive name.
func (s *Store) Lookup(name string) (int, bool) {
	return s.lookup(name)
}

func (s *Store) lookup(name string) (int, bool) {
	h, ok := s.byName[strings.ToLower(name)]
	return h, ok
}

func (s *Store) full() bool {
	return s.limits.MaxSystems > 0 && len(s.systems) >= s.limits.MaxSystems
}

func (s *Store) add(bs *BaseSystem) int {
	s.systems = append(s.systems, bs)
	h := len(s.systems)
	s.byName[strings.ToLower(bs.Name)] = h
	return h
}

func (s *Store) debugf(level int, template string, args ...any) {
	if s.DebugLevel >= level {
		s.log.Debugf(template, args...)
	}
}

// ParseFile parses one script and adds its systems. On error the systems
// completed before the failure are kept and the rest of the file is ignored.
func (s *Store) ParseFile(name string, data []byte) error {
	p := newParser(s, name, string(data))
	if err := p.parseFile(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// Load replaces all templates with the systems found in every file under
// dir with the given extension, then resolves cross references.
// A file that fails to parse is skipped; the returned error joins every
// per-file failure and is nil when all files parsed.
func (s *Store) Load(fsys fs.FS, dir, ext string) error {
	s.Reset()

	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("failed to list particle scripts in %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(path.Ext(e.Name()), ext) {
			continue
		}
		files = append(files, path.Join(dir, e.Name()))
	}
	sort.Strings(files)

	if s.limits.MaxFiles > 0 && len(files) > s.limits.MaxFiles {
		s.log.Warnf("too many particle files (%d), only loading %d", len(files), s.limits.MaxFiles)
		files = files[:s.limits.MaxFiles]
	}

	var errs []error
	for _, f := range files {
		data, err := fs.ReadFile(fsys, f)
		if err != nil {
			s.log.Warnf("couldn't read particle file '%s': %v", f, err)
			errs = append(errs, fmt.Errorf("failed to read particle file %s: %w", f, err))
			continue
		}
		if err := s.ParseFile(f, data); err != nil {
			s.log.Warnf("%v", err)
			errs = append(errs, err)
		}
	}

	s.ResolveReferences()
	return errors.Join(errs...)
}

// ResolveReferences binds child and on-death system names to handles.
// Names that match no system are cleared with a warning. Reference cycles
// are reported but kept; the live pools bound how far they can recurse.
func (s *Store) ResolveReferences() {
	for _, bs := range s.systems {
		for _, be := range bs.Ejectors {
			for _, bp := range be.Particles {
				if bp.ChildSystemName != "" {
					if h, ok := s.lookup(bp.ChildSystemName); ok {
						bp.ChildSystemHandle = h
					} else {
						s.log.Warnf("failed to find child %s", bp.ChildSystemName)
						bp.ChildSystemName = ""
						bp.ChildSystemHandle = 0
					}
				}
				if bp.OnDeathSystemName != "" {
					if h, ok := s.lookup(bp.OnDeathSystemName); ok {
						bp.OnDeathSystemHandle = h
					} else {
						s.log.Warnf("failed to find onDeath system %s", bp.OnDeathSystemName)
						bp.OnDeathSystemName = ""
						bp.OnDeathSystemHandle = 0
					}
				}
			}
		}
	}

	for _, cycle := range s.Cycles() {
		s.log.Warnf("particle system reference cycle: %s", strings.Join(cycle, " -> "))
	}
}

// children returns the handles a system can spawn through its particles.
func (s *Store) children(bs *BaseSystem) []int {
	var out []int
	for _, be := range bs.Ejectors {
		for _, bp := range be.Particles {
			if bp.ChildSystemHandle != 0 {
				out = append(out, bp.ChildSystemHandle)
			}
			if bp.OnDeathSystemHandle != 0 {
				out = append(out, bp.OnDeathSystemHandle)
			}
		}
	}
	return out
}

// Cycles lists every reference cycle once, as system names starting and
// ending with the same system.
func (s *Store) Cycles() [][]string {
	const (
		unvisited = iota
		active
		done
	)
	state := make([]int, len(s.systems)+1)
	var stack []int
	var cycles [][]string

	var visit func(h int)
	visit = func(h int) {
		state[h] = active
		stack = append(stack, h)
		for _, c := range s.children(s.systems[h-1]) {
			switch state[c] {
			case unvisited:
				visit(c)
			case active:
				var names []string
				for k := len(stack) - 1; k >= 0; k-- {
					if stack[k] == c {
						for _, sh := range stack[k:] {
							names = append(names, s.systems[sh-1].Name)
						}
						break
					}
				}
				cycles = append(cycles, append(names, s.systems[c-1].Name))
			}
		}
		stack = stack[:len(stack)-1]
		state[h] = done
	}

	for h := 1; h <= len(s.systems); h++ {
		if state[h] == unvisited {
			visit(h)
		}
	}
	return cycles
}

// Register resolves every asset a system needs, recursing into child and
// on-death systems. It returns the system handle, or 0 if no system has
// that name. Registering an already registered system is a no-op.
func (s *Store) Register(name string) int {
	h, ok := s.lookup(name)
	if !ok {
		s.log.Warnf("failed to register particle system %s", name)
		return 0
	}
	s.register(h)
	return h
}

func (s *Store) register(h int) {
	bs := s.systems[h-1]
	if bs.Registered || s.registering[h] {
		return
	}
	s.registering[h] = true
	defer delete(s.registering, h)

	trails, _ := s.assets.(TrailRegistry)

	for _, be := range bs.Ejectors {
		for _, bp := range be.Particles {
			if s.assets != nil {
				bp.Shaders = make([]int, len(bp.ShaderNames))
				for k, n := range bp.ShaderNames {
					bp.Shaders[k] = s.assets.RegisterSprite(n)
				}
				bp.Models = make([]int, len(bp.ModelNames))
				for k, n := range bp.ModelNames {
					bp.Models[k] = s.assets.RegisterModel(n)
				}
				if bp.BounceMarkName != "" {
					bp.BounceMark = s.assets.RegisterSprite(bp.BounceMarkName)
				}
				if bp.BounceSoundName != "" {
					bp.BounceSound = s.assets.RegisterSound(bp.BounceSoundName)
				}
			}

			if bp.ChildSystemHandle != 0 {
				s.register(bp.ChildSystemHandle)
			}
			if bp.OnDeathSystemHandle != 0 {
				s.register(bp.OnDeathSystemHandle)
			}
			if bp.ChildTrailSystemName != "" && trails != nil {
				bp.ChildTrailSystemHandle = trails.RegisterTrailSystem(bp.ChildTrailSystemName)
			}
		}
	}

	bs.Registered = true
	s.debugf(1, "Registered particle system %s", bs.Name)
}
