package game

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/audio/mp3"
	"github.com/hajimehoshi/ebiten/v2/audio/vorbis"
	"go.uber.org/zap"

	auformat "github.com/decker502/pfx/internal/audio"
)

// ErrNoAudio is returned by SoundPlayer when the manager has no audio context.
var ErrNoAudio = errors.New("audio is disabled")

// assetTable assigns stable handles to case-insensitive names.
// Handle 0 means "no asset".
type assetTable struct {
	names []string
	index map[string]int
}

func newAssetTable() assetTable {
	return assetTable{index: make(map[string]int)}
}

func (t *assetTable) register(name string) int {
	if name == "" {
		return 0
	}
	key := strings.ToLower(name)
	if h, ok := t.index[key]; ok {
		return h
	}
	t.names = append(t.names, name)
	h := len(t.names)
	t.index[key] = h
	return h
}

func (t *assetTable) name(h int) (string, bool) {
	if h <= 0 || h > len(t.names) {
		return "", false
	}
	return t.names[h-1], true
}

func (t *assetTable) len() int { return len(t.names) }

// ResourceManager is the asset registry of the particle engine.
//
// Particle scripts refer to sprites, models, sounds and trail systems by
// name. The store registers those names while parsing and keeps the returned
// handles; the renderer and the audio manager turn handles back into images
// and players. Images and sounds are loaded lazily from the file system on
// first use, and sprites without a file get a procedural placeholder so every
// script renders even without art.
//
// This implementation is NOT thread-safe. It is used from the game loop only.
type ResourceManager struct {
	fsys         fs.FS
	audioContext *audio.Context
	log          *zap.SugaredLogger

	config *ResourceConfig

	sprites assetTable
	models  assetTable
	sounds  assetTable
	trails  assetTable

	spriteSources map[int]image.Image
	spriteImages  map[int]*ebiten.Image
	soundData     map[int][]byte
	failed        map[string]bool // assets that already failed to load
}

// NewResourceManager creates an empty registry.
//
// Parameters:
//   - fsys: where asset files are read from, may be nil (placeholders only)
//   - audioContext: used to decode and play sounds, may be nil (silent)
//   - logger: may be nil
func NewResourceManager(fsys fs.FS, audioContext *audio.Context, logger *zap.SugaredLogger) *ResourceManager {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &ResourceManager{
		fsys:          fsys,
		audioContext:  audioContext,
		log:           logger.Named("resources"),
		config:        &ResourceConfig{},
		sprites:       newAssetTable(),
		models:        newAssetTable(),
		sounds:        newAssetTable(),
		trails:        newAssetTable(),
		spriteSources: make(map[int]image.Image),
		spriteImages:  make(map[int]*ebiten.Image),
		soundData:     make(map[int][]byte),
		failed:        make(map[string]bool),
	}
}

// LoadResourceConfig reads the asset manifest at configPath from the
// manager's file system.
func (rm *ResourceManager) LoadResourceConfig(configPath string) error {
	if rm.fsys == nil {
		return fmt.Errorf("no file system to load %s from", configPath)
	}
	data, err := fs.ReadFile(rm.fsys, configPath)
	if err != nil {
		return fmt.Errorf("failed to read resource config %s: %w", configPath, err)
	}
	cfg, err := ParseResourceConfig(data)
	if err != nil {
		return fmt.Errorf("%s: %w", configPath, err)
	}
	rm.SetResourceConfig(cfg)
	return nil
}

// SetResourceConfig replaces the manifest. Cached sprite images are dropped
// so new styles take effect; handles stay valid.
func (rm *ResourceManager) SetResourceConfig(cfg *ResourceConfig) {
	rm.config = cfg
	rm.spriteSources = make(map[int]image.Image)
	rm.spriteImages = make(map[int]*ebiten.Image)
	rm.soundData = make(map[int][]byte)
	rm.failed = make(map[string]bool)
	rm.log.Debugf("resource config: %d sprites, %d models, %d sounds, %d trails",
		len(cfg.Sprites), len(cfg.Models), len(cfg.Sounds), len(cfg.Trails))
}

// RegisterSprite returns the handle of a sprite shader, registering it on first use.
func (rm *ResourceManager) RegisterSprite(name string) int { return rm.sprites.register(name) }

// RegisterModel returns the handle of a model.
func (rm *ResourceManager) RegisterModel(name string) int { return rm.models.register(name) }

// RegisterSound returns the handle of a sound.
func (rm *ResourceManager) RegisterSound(name string) int { return rm.sounds.register(name) }

// RegisterTrailSystem returns the handle of a trail system.
func (rm *ResourceManager) RegisterTrailSystem(name string) int { return rm.trails.register(name) }

func (rm *ResourceManager) SpriteName(h int) (string, bool)      { return rm.sprites.name(h) }
func (rm *ResourceManager) ModelName(h int) (string, bool)       { return rm.models.name(h) }
func (rm *ResourceManager) SoundName(h int) (string, bool)       { return rm.sounds.name(h) }
func (rm *ResourceManager) TrailSystemName(h int) (string, bool) { return rm.trails.name(h) }

// Counts returns how many sprites, models, sounds and trails are registered.
func (rm *ResourceManager) Counts() (sprites, models, sounds, trails int) {
	return rm.sprites.len(), rm.models.len(), rm.sounds.len(), rm.trails.len()
}

func (rm *ResourceManager) spriteResource(name string) SpriteResource {
	for _, s := range rm.config.Sprites {
		if strings.EqualFold(s.Name, name) {
			return s
		}
	}
	return SpriteResource{Name: name}
}

// SpriteSource returns the decoded image of a sprite, or its placeholder
// when the manifest gives no file or the file cannot be loaded.
// Returns nil for unknown handles.
func (rm *ResourceManager) SpriteSource(h int) image.Image {
	if img, ok := rm.spriteSources[h]; ok {
		return img
	}
	name, ok := rm.sprites.name(h)
	if !ok {
		return nil
	}

	res := rm.spriteResource(name)
	var img image.Image
	if res.Path != "" {
		decoded, err := rm.decodeImage(buildFullPath(rm.config.BasePath, res.Path))
		if err != nil {
			rm.warnOnce("sprite:"+name, "sprite %s: %v, using a placeholder", name, err)
		} else {
			img = decoded
		}
	}
	if img == nil {
		img = placeholderSprite(res.Shape, tintFromConfig(res.Tint, nameTint(name)))
	}

	rm.spriteSources[h] = img
	return img
}

// SpriteImage returns the sprite as an ebiten image, converting it once.
func (rm *ResourceManager) SpriteImage(h int) *ebiten.Image {
	if img, ok := rm.spriteImages[h]; ok {
		return img
	}
	src := rm.SpriteSource(h)
	if src == nil {
		return nil
	}
	img := ebiten.NewImageFromImage(src)
	rm.spriteImages[h] = img
	return img
}

func (rm *ResourceManager) decodeImage(p string) (image.Image, error) {
	if rm.fsys == nil {
		return nil, fmt.Errorf("no file system")
	}
	f, err := rm.fsys.Open(p)
	if err != nil {
		return nil, fmt.Errorf("failed to open image file %s: %w", p, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", p, err)
	}
	return img, nil
}

// ModelStyle returns the box size and colour a model is drawn with.
// Unconfigured models are 8 unit cubes tinted by name.
func (rm *ResourceManager) ModelStyle(h int) (size [3]float64, tint color.RGBA) {
	name, ok := rm.models.name(h)
	if !ok {
		return [3]float64{}, color.RGBA{}
	}
	for _, m := range rm.config.Models {
		if strings.EqualFold(m.Name, name) {
			size = m.Size
			if size == ([3]float64{}) {
				size = [3]float64{8, 8, 8}
			}
			return size, tintFromConfig(m.Tint, nameTint(name))
		}
	}
	return [3]float64{8, 8, 8}, nameTint(name)
}

// TrailStyle returns the drawing style of a trail system handle.
func (rm *ResourceManager) TrailStyle(h int) TrailResource {
	name, ok := rm.trails.name(h)
	if !ok {
		return TrailResource{}
	}
	style := TrailResource{Name: name}
	for _, tr := range rm.config.Trails {
		if strings.EqualFold(tr.Name, name) {
			style = tr
			break
		}
	}
	if style.Width == 0 {
		style.Width = 2
	}
	if style.Points == 0 {
		style.Points = 16
	}
	if style.Tint == nil {
		c := nameTint(name)
		style.Tint = []int{int(c.R), int(c.G), int(c.B)}
	}
	return style
}

// SoundPlayer creates a one-shot player for a sound handle. The decoded
// samples are cached; each call returns a fresh player so overlapping
// bounces do not cut each other off.
func (rm *ResourceManager) SoundPlayer(h int) (*audio.Player, error) {
	if rm.audioContext == nil {
		return nil, ErrNoAudio
	}
	name, ok := rm.sounds.name(h)
	if !ok {
		return nil, fmt.Errorf("unknown sound handle %d", h)
	}

	data, ok := rm.soundData[h]
	if !ok {
		var err error
		data, err = rm.decodeSound(name)
		if err != nil {
			return nil, err
		}
		rm.soundData[h] = data
	}
	return rm.audioContext.NewPlayerFromBytes(data), nil
}

func (rm *ResourceManager) soundPath(name string) string {
	for _, s := range rm.config.Sounds {
		if strings.EqualFold(s.Name, name) {
			return buildFullPath(rm.config.BasePath, s.Path)
		}
	}
	// 没有配置时按名字查找 .ogg 文件
	if path.Ext(name) == "" {
		name += ".ogg"
	}
	return buildFullPath(rm.config.BasePath, name)
}

// decodeSound decodes an MP3, OGG Vorbis or AU file into PCM at the context's
// sample rate.
func (rm *ResourceManager) decodeSound(name string) ([]byte, error) {
	if rm.fsys == nil {
		return nil, fmt.Errorf("sound %s: no file system", name)
	}
	p := rm.soundPath(name)
	raw, err := fs.ReadFile(rm.fsys, p)
	if err != nil {
		return nil, fmt.Errorf("failed to read sound file %s: %w", p, err)
	}
	reader := bytes.NewReader(raw)
	rate := rm.audioContext.SampleRate()

	var stream io.Reader
	switch ext := strings.ToLower(path.Ext(p)); ext {
	case ".mp3":
		s, err := mp3.DecodeWithSampleRate(rate, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to decode MP3 audio %s: %w", p, err)
		}
		stream = s
	case ".ogg":
		s, err := vorbis.DecodeWithSampleRate(rate, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to decode OGG audio %s: %w", p, err)
		}
		stream = s
	case ".au":
		s, err := auformat.DecodeAU(reader)
		if err != nil {
			return nil, fmt.Errorf("failed to decode AU audio %s: %w", p, err)
		}
		stream = s
		if s.SampleRate() != rate {
			stream = audio.Resample(s, s.Length(), s.SampleRate(), rate)
		}
	default:
		return nil, fmt.Errorf("unsupported audio format: %s (supported: .mp3, .ogg, .au)", ext)
	}

	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio %s: %w", p, err)
	}
	return data, nil
}

func (rm *ResourceManager) warnOnce(key, format string, args ...interface{}) {
	if rm.failed[key] {
		return
	}
	rm.failed[key] = true
	rm.log.Warnf(format, args...)
}
