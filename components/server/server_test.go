package main

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/bmizerany/assert"
	"github.com/yondr/yondr/engine/name"
)

func writeFile(t *testing.T, path string, data string) {
	assert.Equal(t, nil, os.MkdirAll(filepath.Dir(path), 0755))
	assert.Equal(t, nil, ioutil.WriteFile(path, []byte(data), 0644))
}

func TestLoadResources(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "core", "door.bin"), "door")
	writeFile(t, filepath.Join(dir, "core", "_metadata.json"), "{}")
	writeFile(t, filepath.Join(dir, "items", "sword.json"), `{"damage": 3}`)

	snap, err := loadResources(dir)
	assert.Equal(t, nil, err)
	assert.Equal(t, 2, snap.Len())
	door := snap.ResourceByName(name.New("door", 0))
	assert.T(t, door != nil, "core:door should be loaded")
	assert.Equal(t, []byte("door"), door.RawData())
}

func TestLoadResourcesSkipsBrokenPackage(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a_broken", "bad.json"), "{not json")
	writeFile(t, filepath.Join(dir, "core", "door.bin"), "door")

	snap, err := loadResources(dir)
	assert.Equal(t, nil, err)
	assert.Equal(t, 1, snap.Len())
	assert.Equal(t, "door", snap.Manifest()[0].ID)
}
