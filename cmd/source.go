package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/listing-intake/internal/extract"
	"github.com/sells-group/listing-intake/internal/model"
)

// fileSource serves document content from local files, keyed by document ID.
type fileSource struct {
	paths map[string]string
}

func newFileSource() *fileSource {
	return &fileSource{paths: map[string]string{}}
}

func (f *fileSource) add(docID, path string) {
	f.paths[docID] = path
}

func (f *fileSource) Text(_ context.Context, doc model.DocumentRef) (string, error) {
	path, ok := f.paths[doc.ID]
	if !ok {
		return "", eris.Errorf("unknown document %s", doc.ID)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".text":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", eris.Wrapf(err, "read %s", path)
		}
		return string(data), nil
	}
	return "", eris.Errorf("%s has no text layer", filepath.Base(path))
}

func (f *fileSource) PageImages(_ context.Context, doc model.DocumentRef) ([]extract.PageImage, error) {
	path, ok := f.paths[doc.ID]
	if !ok {
		return nil, eris.Errorf("unknown document %s", doc.ID)
	}
	mediaType, ok := imageMediaType(path)
	if !ok {
		return nil, eris.Errorf("%s is not a supported image format", filepath.Base(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}
	return []extract.PageImage{{Page: 1, MediaType: mediaType, Data: data}}, nil
}

// localImages loads photo bytes from each image's storage ref on disk.
type localImages struct{}

func (localImages) ImageData(_ context.Context, img model.Image) ([]byte, string, error) {
	mediaType, ok := imageMediaType(img.StorageRef)
	if !ok {
		return nil, "", eris.Errorf("%s is not a supported image format", img.Filename)
	}
	data, err := os.ReadFile(img.StorageRef)
	if err != nil {
		return nil, "", eris.Wrapf(err, "read %s", img.StorageRef)
	}
	return data, mediaType, nil
}

func imageMediaType(path string) (string, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg", true
	case ".png":
		return "image/png", true
	case ".webp":
		return "image/webp", true
	case ".gif":
		return "image/gif", true
	}
	return "", false
}
