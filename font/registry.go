package font

import "os"
import "fmt"
import "sync"
import "errors"
import "strings"
import "io/fs"
import "log/slog"
import "path/filepath"
import "crypto/sha256"
import "encoding/hex"

import "golang.org/x/image/font/sfnt"
import "golang.org/x/image/font/gofont/gobold"
import "golang.org/x/image/font/gofont/goitalic"
import "golang.org/x/image/font/gofont/gomono"
import "golang.org/x/image/font/gofont/goregular"

// Where an asset came from. Built-in fonts ship embedded in the
// binary; uploaded fonts live in the registry directory.
type Source uint8

const (
	BuiltIn Source = iota
	Uploaded
)

// An error returned by [Registry.Lookup] and related methods when
// no asset matches the requested identifier.
var ErrFontNotFound = errors.New("font not found")

// A validated font stored in the registry. The data is immutable
// once the asset has been published: readers may hold onto both
// the bytes and the parsed font without any synchronization.
type Asset struct {
	ID           string
	OriginalName string
	Source       Source
	Data         []byte
	Metrics      Metrics
	Font         *sfnt.Font
}

// A Registry holds the built-in font catalog plus every font users
// have uploaded, keyed by identifier. Built-in fonts are registered
// under their sfnt full name ("Go Regular", "Go Mono", ...); uploads
// get a content-addressed identifier so identical bytes can never
// collide or shadow each other.
//
// All methods are safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	dir      string
	builtin  map[string]*Asset
	uploaded map[string]*Asset
}

// Creates a [Registry] backed by the given directory, registers the
// embedded Go fonts as the built-in catalog and reloads any assets
// left in the directory by previous runs. Files that no longer pass
// validation are skipped with a warning instead of failing startup.
func NewRegistry(dir string, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return nil, fmt.Errorf("create fonts directory: %w", err)
	}

	registry := &Registry{
		dir:      dir,
		builtin:  make(map[string]*Asset),
		uploaded: make(map[string]*Asset),
	}
	for _, data := range [][]byte{goregular.TTF, gobold.TTF, goitalic.TTF, gomono.TTF} {
		err := registry.registerBuiltIn(data)
		if err != nil {
			return nil, err
		}
	}
	err = registry.reload(logger)
	if err != nil {
		return nil, err
	}
	return registry, nil
}

// Returns the asset stored under the given identifier, trying the
// built-in catalog first and uploaded assets second. Matching is
// exact and case-sensitive. Returns [ErrFontNotFound] otherwise.
func (self *Registry) Lookup(id string) (*Asset, error) {
	self.mu.RLock()
	defer self.mu.RUnlock()
	if asset, found := self.builtin[id]; found {
		return asset, nil
	}
	if asset, found := self.uploaded[id]; found {
		return asset, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrFontNotFound, id)
}

// Returns the cached metrics of the asset stored under the given
// identifier, or [ErrFontNotFound]. These are the same metrics the
// layout engine scales to the request size; the font tables are not
// consulted again after validation.
func (self *Registry) Metrics(id string) (Metrics, error) {
	asset, err := self.Lookup(id)
	if err != nil {
		return Metrics{}, err
	}
	return asset.Metrics, nil
}

// Returns the identifiers of every asset in the registry, built-in
// catalog first. Mostly useful for listings and diagnostics.
func (self *Registry) IDs() []string {
	self.mu.RLock()
	defer self.mu.RUnlock()
	ids := make([]string, 0, len(self.builtin)+len(self.uploaded))
	for id := range self.builtin {
		ids = append(ids, id)
	}
	for id := range self.uploaded {
		ids = append(ids, id)
	}
	return ids
}

// Validates the given font bytes and persists them under a
// content-addressed identifier, returning the stored asset.
//
// The write follows an atomic write-then-publish sequence: bytes
// go to a temporary file in the registry directory and are only
// renamed to their final identifier after validation succeeded.
// Concurrent readers can never observe a partial or unvalidated
// file, and any failure leaves the registry exactly as it was.
//
// Uploading byte-identical content twice is idempotent: the second
// call detects the existing identifier and returns the already
// stored asset.
func (self *Registry) Upload(data []byte, originalName string) (*Asset, error) {
	parsed, metrics, err := Parse(data)
	if err != nil {
		return nil, err
	}

	id := self.identifierFor(data, originalName)
	self.mu.RLock()
	existing, found := self.uploaded[id]
	self.mu.RUnlock()
	if found {
		return existing, nil
	}

	err = self.publish(id, data)
	if err != nil {
		return nil, err
	}

	asset := &Asset{
		ID:           id,
		OriginalName: filepath.Base(originalName),
		Source:       Uploaded,
		Data:         data,
		Metrics:      metrics,
		Font:         parsed,
	}
	self.mu.Lock()
	defer self.mu.Unlock()
	if winner, found := self.uploaded[id]; found {
		return winner, nil // lost a publish race against identical content
	}
	self.uploaded[id] = asset
	return asset, nil
}

// Derives the stable identifier for the given content: a sha256
// prefix plus the original extension (kept so clients can infer
// the MIME type), falling back to the sniffed container format
// when the original name doesn't carry a usable extension. Only
// the hash and a vetted extension ever reach the filesystem, so
// hostile original filenames can't traverse paths or collide.
func (self *Registry) identifierFor(data []byte, originalName string) string {
	sum := sha256.Sum256(data)
	ext := strings.ToLower(filepath.Ext(originalName))
	switch ext {
	case ".ttf", ".otf", ".ttc":
		// keep
	default:
		ext, _ = SniffFormat(data) // can't fail, data already validated
	}
	return hex.EncodeToString(sum[:8]) + ext
}

func (self *Registry) publish(id string, data []byte) error {
	finalPath := filepath.Join(self.dir, id)
	if _, err := os.Stat(finalPath); err == nil {
		return nil // already published by an earlier run or a concurrent upload
	}

	tmp, err := os.CreateTemp(self.dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("store font: %w", err)
	}
	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Sync()
	}
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), finalPath)
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("store font: %w", err)
	}
	return nil
}

func (self *Registry) registerBuiltIn(data []byte) error {
	parsed, metrics, err := Parse(data)
	if err != nil {
		return fmt.Errorf("built-in font: %w", err)
	}
	name, err := GetName(parsed)
	if err != nil || name == "" {
		return fmt.Errorf("built-in font has no usable name (%v)", err)
	}
	self.builtin[name] = &Asset{
		ID:      name,
		Source:  BuiltIn,
		Data:    data,
		Metrics: metrics,
		Font:    parsed,
	}
	return nil
}

// Re-adds every previously uploaded asset found in the registry
// directory. The on-disk name is the identifier it was published
// under, so content is trusted to match; the parse still runs to
// rebuild the in-memory font and to drop files that went bad.
func (self *Registry) reload(logger *slog.Logger) error {
	entries, err := os.ReadDir(self.dir)
	if err != nil {
		return fmt.Errorf("read fonts directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue // temp files from interrupted uploads
		}
		data, err := os.ReadFile(filepath.Join(self.dir, name))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("read fonts directory: %w", err)
		}
		parsed, metrics, err := Parse(data)
		if err != nil {
			logger.Warn("skipping stored font that fails validation",
				"file", name, "error", err)
			continue
		}
		self.uploaded[name] = &Asset{
			ID:      name,
			Source:  Uploaded,
			Data:    data,
			Metrics: metrics,
			Font:    parsed,
		}
	}
	return nil
}
