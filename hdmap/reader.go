package hdmap

import (
	"github.com/a8m/envsubst"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/yosuke-furukawa/json5/encoding/json5"
)

// laneConfig is the on-disk form of a lane. Points are [x, y] pairs in meters.
type laneConfig struct {
	ID         string       `json:"id"`
	Boundary   [][2]float64 `json:"boundary"`
	Centerline [][2]float64 `json:"centerline"`
	Left       []string     `json:"left"`
	Right      []string     `json:"right"`
	SpeedLimit float64      `json:"speed_limit"`
}

type mapConfig struct {
	Lanes []laneConfig `json:"lanes"`
}

func toPoints(pairs [][2]float64) []r2.Point {
	return lo.Map(pairs, func(pair [2]float64, _ int) r2.Point {
		return r2.Point{X: pair[0], Y: pair[1]}
	})
}

// ParseLanes decodes a JSON5 lane file.
func ParseLanes(data []byte) ([]*Lane, error) {
	var cfg mapConfig
	if err := json5.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "decoding lane map")
	}
	return lo.Map(cfg.Lanes, func(lc laneConfig, _ int) *Lane {
		return &Lane{
			ID:             lc.ID,
			Boundary:       toPoints(lc.Boundary),
			Centerline:     toPoints(lc.Centerline),
			LeftNeighbors:  lc.Left,
			RightNeighbors: lc.Right,
			SpeedLimit:     lc.SpeedLimit,
		}
	}), nil
}

// ReadLanes reads a lane file, substituting environment variables first.
func ReadLanes(path string) ([]*Lane, error) {
	buf, err := envsubst.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading lane map %q", path)
	}
	return ParseLanes(buf)
}

// ReadMap reads a lane file into a new Map.
func ReadMap(path string) (*Map, error) {
	lanes, err := ReadLanes(path)
	if err != nil {
		return nil, err
	}
	m, err := NewMap(lanes)
	if err != nil {
		return nil, errors.Wrapf(err, "lane map %q", path)
	}
	return m, nil
}
