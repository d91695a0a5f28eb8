package band

import (
	"context"
	"encoding/json"
	"io"
	"io/fs"
	"path"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/bandmap/pkg/errors"
)

// Data layout inside a data directory.
const (
	GenresFile   = "genres.json"
	BandsFile    = "bands.json"
	GeometryFile = "china.json"
)

// Dataset is everything loaded from a data directory.
type Dataset struct {
	Genres []Genre
	Bands  []Band
	// Failed lists genre IDs whose band file could not be read.
	Failed []string
}

// Load reads genres.json and every <genre>/bands.json from fsys.
//
// A genre whose band file is missing or malformed is logged and skipped. If
// genres.json itself cannot be read, Load returns an empty dataset together
// with an ErrCodeDataFetchFailure error so that callers can still show an
// empty map.
func Load(ctx context.Context, fsys fs.FS, logger *log.Logger) (*Dataset, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	ds := &Dataset{}

	var index struct {
		Genres []Genre `json:"genres"`
	}
	if err := readJSON(fsys, GenresFile, &index); err != nil {
		logger.Error("failed to load genres", "err", err)
		return ds, errors.Wrap(errors.ErrCodeDataFetchFailure, err, "load %s", GenresFile)
	}
	ds.Genres = index.Genres

	for _, g := range ds.Genres {
		if err := ctx.Err(); err != nil {
			return ds, err
		}
		if err := errors.ValidateGenreID(g.ID); err != nil {
			logger.Warn("skipping genre", "genre", g.ID, "err", errors.UserMessage(err))
			ds.Failed = append(ds.Failed, g.ID)
			continue
		}
		var bands []Band
		if err := readJSON(fsys, path.Join(g.ID, BandsFile), &bands); err != nil {
			logger.Warn("failed to load bands", "genre", g.ID, "err", err)
			ds.Failed = append(ds.Failed, g.ID)
			continue
		}
		for i := range bands {
			if bands[i].Genre == "" {
				bands[i].Genre = g.ID
			}
		}
		ds.Bands = append(ds.Bands, bands...)
	}
	logger.Debug("loaded dataset", "genres", len(ds.Genres), "bands", len(ds.Bands), "failed", len(ds.Failed))
	return ds, nil
}

// LoadGeometry reads and parses the province boundary file from fsys.
func LoadGeometry(fsys fs.FS, name string, logger *log.Logger) (*Geometry, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataFetchFailure, err, "read %s", name)
	}
	return ParseGeometry(data, logger)
}

func readJSON(fsys fs.FS, name string, v any) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
