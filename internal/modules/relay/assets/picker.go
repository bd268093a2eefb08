package assets

import (
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/eskrenkovic/relay-coop-go/internal/modules/relay/domain"
)

// FilesystemPicker serves completion images from status-named directories
// under the assets root, e.g. <root>/success/*.png.
type FilesystemPicker struct {
	root string

	mu  sync.Mutex
	rng *rand.Rand
}

func NewFilesystemPicker(root string) *FilesystemPicker {
	return &FilesystemPicker{
		root: root,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (p *FilesystemPicker) PickRandom(category string) (string, error) {
	entries, err := os.ReadDir(filepath.Join(p.root, category))
	if err != nil {
		return "", domain.ErrNoImagesAvailable
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() {
			files = append(files, entry.Name())
		}
	}

	if len(files) == 0 {
		return "", domain.ErrNoImagesAvailable
	}

	p.mu.Lock()
	picked := files[p.rng.Intn(len(files))]
	p.mu.Unlock()

	return filepath.Join(p.root, category, picked), nil
}
